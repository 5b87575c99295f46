package domain

import (
	"context"
	"fmt"
)

// Runner is the capability a job author supplies: given a per-execution
// context, do the work. A non-nil error marks the attempt failed; the
// scheduler records it and moves on, it never propagates.
//
// Runners may block and may outlive the tick that started them. The
// engine provides no mid-execution cancellation; the backpressure for a
// slow runner is that the next tick's lock acquisition for the same job
// fails while the previous attempt still holds it. Runners must be
// idempotent across replicas: which replica wins a lock race is
// nondeterministic.
type Runner interface {
	Run(ctx context.Context, jc *JobContext) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, jc *JobContext) error

func (f RunnerFunc) Run(ctx context.Context, jc *JobContext) error { return f(ctx, jc) }

// Job is a named unit of recurring work. The name is stable across
// deploys: it is both the advisory-lock key and the execution-history
// key. Jobs are immutable once registered.
type Job struct {
	// Name uniquely identifies the job within the registry.
	Name string
	// Spec is a six-field cron expression
	// (seconds minutes hours day-of-month month day-of-week).
	Spec string
	// Runner performs the work when the job is due.
	Runner Runner
}

// Validate checks the statically checkable parts of a job definition.
// The cron expression itself is compiled at registration.
func (j *Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if j.Spec == "" {
		return fmt.Errorf("job %q: cron expression cannot be empty", j.Name)
	}
	if j.Runner == nil {
		return fmt.Errorf("job %q: runner cannot be nil", j.Name)
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"

	"jobengine/internal/schedule"
)

// ErrDuplicateJob is returned when registering a job whose name is taken.
var ErrDuplicateJob = errors.New("duplicate job name")

// ErrJobNotFound is returned when looking up a job that was never registered.
var ErrJobNotFound = errors.New("job not found")

// Entry pairs a registered job with its compiled schedule, so an invalid
// expression can never reach the running loop.
type Entry struct {
	Job      *Job
	Schedule schedule.Schedule
}

// Registry maps job names to definitions. It is populated once at boot
// and read-only afterwards: there is no removal operation, and duplicate
// names are a configuration error caught at registration, not at runtime.
//
// Iteration order is insertion order, which keeps tick evaluation and
// test output deterministic.
type Registry struct {
	byName map[string]*Entry
	order  []*Entry
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Entry)}
}

// Register validates and adds a job definition. The cron expression is
// compiled here; registration fails with schedule.ErrInvalidExpression
// (wrapped) on unsupported syntax and ErrDuplicateJob on a name clash.
func (r *Registry) Register(job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if _, ok := r.byName[job.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
	}
	sched, err := schedule.Parse(job.Spec)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	entry := &Entry{Job: job, Schedule: sched}
	r.byName[job.Name] = entry
	r.order = append(r.order, entry)
	return nil
}

// Get returns the entry for name, or ErrJobNotFound.
func (r *Registry) Get(name string) (*Entry, error) {
	entry, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	return entry, nil
}

// All returns every entry in insertion order. The slice is a copy; the
// entries themselves are shared and must not be mutated.
func (r *Registry) All() []*Entry {
	out := make([]*Entry, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int { return len(r.order) }

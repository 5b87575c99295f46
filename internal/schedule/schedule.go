// Package schedule evaluates six-field cron expressions
// (seconds minutes hours day-of-month month day-of-week).
//
// Evaluation is a pure function of (expression, instant): Matches has no
// side effects and no hidden clock, so the scheduler can be tested against
// simulated time. Day-of-month and day-of-week combine with logical OR
// when both fields are restricted, per standard cron semantics.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidExpression is returned when an expression cannot be parsed.
// Parsing happens at registration time so a bad expression can never
// reach the running scheduler loop.
var ErrInvalidExpression = errors.New("invalid schedule expression")

// parser accepts exactly six fields. Descriptors ("@hourly", "@every")
// are rejected: job schedules must be explicit.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule is a compiled six-field cron expression.
type Schedule struct {
	expr string
	spec cron.Schedule
}

// Parse compiles a six-field cron expression. Wildcards, literals,
// ranges, steps, lists and symbolic month/day names are accepted;
// anything else fails with ErrInvalidExpression.
func Parse(expr string) (Schedule, error) {
	spec, err := parser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expr, err)
	}
	return Schedule{expr: expr, spec: spec}, nil
}

// MustParse is Parse for statically known expressions; it panics on error.
func MustParse(expr string) Schedule {
	s, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Matches reports whether the schedule fires at the given instant.
// The instant is truncated to whole seconds before matching; schedules
// have one-second granularity.
func (s Schedule) Matches(t time.Time) bool {
	if s.spec == nil {
		return false
	}
	tick := t.Truncate(time.Second)
	// The compiled spec only exposes "next activation strictly after t".
	// An instant matches exactly when it is the next activation after the
	// preceding second.
	next := s.spec.Next(tick.Add(-time.Second))
	return !next.IsZero() && next.Equal(tick)
}

// Next returns the first activation strictly after t, or the zero time
// if none exists within the search horizon.
func (s Schedule) Next(t time.Time) time.Time {
	if s.spec == nil {
		return time.Time{}
	}
	return s.spec.Next(t)
}

// String returns the original expression.
func (s Schedule) String() string { return s.expr }

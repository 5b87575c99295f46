package scheduler

import "time"

// Clock abstracts the scheduler's source of time so the loop can be
// driven by simulated instants in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

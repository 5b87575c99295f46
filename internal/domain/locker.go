package domain

import "context"

// Locker provides best-effort mutual exclusion over a named key, shared
// by every replica through the storage layer. One lock exists per job
// name, globally.
//
// Implementations must bind a held lock to the lifetime of the storage
// session that acquired it: if that session dies (crash, disconnect),
// the storage layer itself reclaims the lock. The scheduler deliberately
// runs no heartbeat or lease renewal of its own.
type Locker interface {
	// TryAcquire attempts to take the lock for name without blocking.
	// It returns false, nil when another session already holds it;
	// contention is control flow, not an error. A non-nil error means
	// the storage layer could not be reached.
	TryAcquire(ctx context.Context, name string) (bool, error)

	// Release releases the lock for name. It is idempotent: releasing a
	// lock this process does not hold is a no-op.
	Release(ctx context.Context, name string) error
}

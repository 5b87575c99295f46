// Package memory provides process-local implementations of the storage
// interfaces: a mutex-guarded locker and an in-memory execution history.
// They back single-node deployments (where cross-replica exclusion is
// moot) and the engine's tests.
package memory

import (
	"context"
	"sync"

	"jobengine/internal/domain"
)

// Locker implements domain.Locker with an in-process set of held names.
// It provides the same contract as the storage-backed lockers within a
// single process; it cannot coordinate across replicas.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocker creates an empty in-process lock manager.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

var _ domain.Locker = (*Locker)(nil)

// TryAcquire takes the lock for name unless it is already held.
func (l *Locker) TryAcquire(_ context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[name]; ok {
		return false, nil
	}
	l.held[name] = struct{}{}
	return true, nil
}

// Release drops the lock for name. Releasing an unheld lock is a no-op.
func (l *Locker) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// Held reports whether name is currently locked. Test helper.
func (l *Locker) Held(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[name]
	return ok
}

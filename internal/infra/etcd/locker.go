package etcd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobengine/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const (
	// lockPrefix is the root path for job locks in etcd.
	lockPrefix = "/jobengine/locks/"
	// sessionTTL bounds how long a crashed holder's lock survives. etcd
	// has no connection-scoped advisory locks, so a lease with expiry is
	// the substitute: the session keepalive is the renewal, the TTL the
	// reclaim bound.
	sessionTTL = 10 // seconds

	tryLockTimeout = 100 * time.Millisecond
)

// heldLock tracks the session and mutex backing one acquired lock.
type heldLock struct {
	session *concurrency.Session
	mutex   *concurrency.Mutex
}

// Locker implements domain.Locker on etcd sessions. Each acquired lock
// gets its own session; closing the session (or losing its lease)
// releases the lock.
type Locker struct {
	client *clientv3.Client
	logger *slog.Logger

	mu   sync.Mutex
	held map[string]*heldLock
}

// NewLocker creates a lock manager over an etcd client.
func NewLocker(client *clientv3.Client, logger *slog.Logger) *Locker {
	return &Locker{
		client: client,
		logger: logger.With("component", "etcd-locker"),
		held:   make(map[string]*heldLock),
	}
}

var _ domain.Locker = (*Locker)(nil)

// TryAcquire attempts a non-blocking TryLock on a fresh session.
// false, nil means another session holds the lock.
func (l *Locker) TryAcquire(ctx context.Context, name string) (bool, error) {
	l.mu.Lock()
	if _, ok := l.held[name]; ok {
		l.mu.Unlock()
		return false, nil
	}
	l.mu.Unlock()

	session, err := concurrency.NewSession(l.client, concurrency.WithTTL(sessionTTL))
	if err != nil {
		return false, fmt.Errorf("etcd: create session for lock %q: %w", name, err)
	}

	mutex := concurrency.NewMutex(session, lockPrefix+name)

	tryCtx, cancel := context.WithTimeout(ctx, tryLockTimeout)
	defer cancel()

	if err := mutex.TryLock(tryCtx); err != nil {
		_ = session.Close()
		if errors.Is(err, concurrency.ErrLocked) || errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("etcd: try lock %q: %w", name, err)
	}

	l.mu.Lock()
	l.held[name] = &heldLock{session: session, mutex: mutex}
	l.mu.Unlock()
	return true, nil
}

// Release unlocks name and closes its session, dropping the lease.
// Releasing an unheld lock is a no-op.
func (l *Locker) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	held, ok := l.held[name]
	delete(l.held, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	// Closing the session revokes the lease and releases the lock even
	// when the explicit unlock fails.
	defer func() {
		if err := held.session.Close(); err != nil {
			l.logger.Warn("failed to close lock session", "lock_name", name, "error", err)
		}
	}()

	if err := held.mutex.Unlock(ctx); err != nil {
		return fmt.Errorf("etcd: unlock %q: %w", name, err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"jobengine/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Locker implements domain.Locker with PostgreSQL advisory locks.
//
// TryAcquire pins a pool connection for the whole guarded execution:
// advisory locks are session-scoped, so the lock lives exactly as long
// as that connection's session. If the process crashes, the server tears
// the session down and reclaims the lock — no heartbeat or lease renewal
// is needed on this side, which is the point of the design.
type Locker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu   sync.Mutex
	held map[string]*pgxpool.Conn
}

// NewLocker creates an advisory-lock manager over the given pool.
func NewLocker(pool *pgxpool.Pool, logger *slog.Logger) *Locker {
	return &Locker{
		pool:   pool,
		logger: logger.With("component", "postgres-locker"),
		held:   make(map[string]*pgxpool.Conn),
	}
}

var _ domain.Locker = (*Locker)(nil)

// TryAcquire takes pg_try_advisory_lock on the key derived from name.
// It never blocks: false means another session (possibly in another
// replica, possibly a slow previous attempt in this one) holds the lock.
func (l *Locker) TryAcquire(ctx context.Context, name string) (bool, error) {
	l.mu.Lock()
	if _, ok := l.held[name]; ok {
		// This process already holds the lock from a still-running
		// execution; taking it again on a second session would fail at
		// the server anyway.
		l.mu.Unlock()
		return false, nil
	}
	l.mu.Unlock()

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: acquire connection for lock %q: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", LockKey(name)).Scan(&acquired); err != nil {
		conn.Release()
		return false, fmt.Errorf("postgres: try advisory lock %q: %w", name, err)
	}
	if !acquired {
		conn.Release()
		return false, nil
	}

	l.mu.Lock()
	l.held[name] = conn
	l.mu.Unlock()
	return true, nil
}

// Release unlocks name on the same session that acquired it and returns
// the connection to the pool. Releasing an unheld lock is a no-op.
func (l *Locker) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, ok := l.held[name]
	delete(l.held, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", LockKey(name)).Scan(&released); err != nil {
		// The session's lock state is now unknown; closing the connection
		// instead of pooling it lets the server reclaim the lock.
		_ = conn.Conn().Close(ctx)
		conn.Release()
		return fmt.Errorf("postgres: advisory unlock %q: %w", name, err)
	}
	conn.Release()

	if !released {
		l.logger.Warn("advisory lock was not held by this session", "lock_name", name)
	}
	return nil
}

// LockKey maps a job name onto the bigint keyspace of PostgreSQL
// advisory locks using 64-bit FNV-1a. Every replica derives the same key
// from the same name.
func LockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

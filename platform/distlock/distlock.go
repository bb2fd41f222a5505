// Package distlock provides cross-process mutual exclusion for background jobs.
// This is part of the platform layer and contains no business logic.
package distlock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing or extending a lock this instance does not own.
var ErrNotHeld = errors.New("lock not held")

// Lock is a single-owner lock. One instance must not be shared between goroutines.
type Lock interface {
	// Acquire tries to acquire the lock without blocking. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory builds a fresh lock instance for a key.
type Factory func(key string, ttl time.Duration) Lock

// NewFactory picks the best available backend: Redis when a client is given,
// PostgreSQL advisory locks otherwise, and a process-local no-op when neither is.
func NewFactory(client *redis.Client, pool *pgxpool.Pool) Factory {
	switch {
	case client != nil:
		return func(key string, ttl time.Duration) Lock { return NewRedisLock(client, key, ttl) }
	case pool != nil:
		return func(key string, _ time.Duration) Lock { return NewPGAdvisoryLock(pool, key) }
	default:
		return func(string, time.Duration) Lock { return NoopLock{} }
	}
}

// =============================================================================
// PostgreSQL Advisory Lock
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one pooled connection
// until Release. A dropped connection releases the lock server side.

// PGAdvisoryLock implements Lock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	lockID int64
}

// NewPGAdvisoryLock creates an advisory lock whose id is derived from key.
func NewPGAdvisoryLock(pool *pgxpool.Pool, key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{pool: pool, lockID: advisoryID(key)}
}

func advisoryID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return ErrNotHeld
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	_, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// NoopLock always succeeds. Used when no shared backend is configured.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context) error         { return nil }

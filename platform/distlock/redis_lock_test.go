package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLock_IsExclusive(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	first := NewRedisLock(client, "campaigns:dispatch", time.Minute)
	second := NewRedisLock(client, "campaigns:dispatch", time.Minute)

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected second acquire to fail while first holds the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLock_ReleaseOnlyByOwner(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "job", time.Minute)
	intruder := NewRedisLock(client, "job", time.Minute)

	if ok, _ := owner.Acquire(ctx); !ok {
		t.Fatalf("expected owner to acquire")
	}
	if err := intruder.Release(ctx); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected ErrNotHeld for non-owner, got %v", err)
	}
	if !mr.Exists("lock:job") {
		t.Fatalf("expected lock key to survive foreign release")
	}
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	first := NewRedisLock(client, "job", time.Second)
	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatalf("expected acquire")
	}
	mr.FastForward(2 * time.Second)

	second := NewRedisLock(client, "job", time.Second)
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after expiry")
	}
	if err := first.Extend(ctx, time.Minute); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected expired holder to lose the lock, got %v", err)
	}
}

func TestNewFactory_FallsBackToNoop(t *testing.T) {
	lock := NewFactory(nil, nil)("any", time.Second)
	if ok, err := lock.Acquire(context.Background()); !ok || err != nil {
		t.Fatalf("expected noop lock to acquire, got ok=%v err=%v", ok, err)
	}
}

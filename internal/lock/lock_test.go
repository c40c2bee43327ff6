package lock

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jodok/bees/internal/config"
	"github.com/redis/go-redis/v9"
)

func TestFileLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bees.lock")

	first, err := NewFileLocker(path).Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := NewFileLocker(path).Acquire(ctx); !stderrors.Is(err, ErrLocked) {
		t.Fatalf("second acquire should be refused, got %v", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := NewFileLocker(path).Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again.Release(ctx)
}

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	locker := NewRedisLocker(rdb, "bees:lock", time.Minute)
	held, err := locker.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(ctx); !stderrors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if ttl := mr.TTL("bees:lock"); ttl != time.Minute {
		t.Errorf("ttl = %s", ttl)
	}
	if err := held.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("bees:lock") {
		t.Error("key still present after release")
	}
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	locker := NewRedisLocker(rdb, "bees:lock", time.Minute)
	stale, err := locker.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	fresh, err := locker.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	// the stale holder must not delete the new holder's key
	stale.Release(ctx)
	if !mr.Exists("bees:lock") {
		t.Error("stale release removed a foreign lock")
	}
	fresh.Release(ctx)
}

func TestNewSelectsBackend(t *testing.T) {
	if _, err := New(config.LockConfig{Backend: "redis"}, nil); err == nil {
		t.Error("redis backend without a client must fail")
	}
	if _, err := New(config.LockConfig{Backend: "zookeeper"}, nil); err == nil {
		t.Error("unknown backend must fail")
	}
	l, err := New(config.LockConfig{Backend: "none"}, nil)
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	held, _ := l.Acquire(context.Background())
	if err := held.Release(context.Background()); err != nil {
		t.Error(err)
	}
}

//go:build !integration

package redis

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"membership-payments/internal/domain"
)

func newTestLocker(c RedisClient) *RedisLocker {
	logger := zerolog.New(io.Discard)
	l := NewLocker(c, &logger)
	l.backoff = time.Millisecond
	return l
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	cli := NewMockRedisClient()
	l := newTestLocker(cli)

	unlock, err := l.Lock(context.Background(), "lock:reconcile:1", time.Second)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !cli.held("lock:reconcile:1") {
		t.Fatal("key not set")
	}

	if _, err := l.Lock(context.Background(), "lock:reconcile:1", time.Second); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("second Lock err = %v, want ErrLockNotAcquired", err)
	}

	unlock()
	unlock()
	if cli.held("lock:reconcile:1") {
		t.Fatal("key still held after unlock")
	}
	if _, err := l.Lock(context.Background(), "lock:reconcile:1", time.Second); err != nil {
		t.Fatalf("relock: %v", err)
	}
}

func TestRedisLocker_UnlockKeepsForeignToken(t *testing.T) {
	cli := NewMockRedisClient()
	l := newTestLocker(cli)

	unlock, err := l.Lock(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	// simulate ttl expiry and another holder
	cli.mu.Lock()
	cli.values["k"] = "someone-else"
	cli.mu.Unlock()

	unlock()
	if !cli.held("k") {
		t.Fatal("unlock released a lock it did not own")
	}
}

func TestRedisLocker_ErrorsAndCancel(t *testing.T) {
	boom := errors.New("conn refused")
	cli := NewMockRedisClient()
	cli.SetNXFunc = func(context.Context, string, interface{}, time.Duration) (bool, error) { return false, boom }
	if _, err := newTestLocker(cli).Lock(context.Background(), "k", time.Second); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	busy := NewMockRedisClient()
	busy.SetNXFunc = func(context.Context, string, interface{}, time.Duration) (bool, error) { return false, nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestLocker(busy).Lock(ctx, "k", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	cli := NewMockRedisClient()
	rl := NewRateLimiter(cli)
	now := time.Date(2026, 1, 1, 10, 0, 30, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(context.Background(), "rate_limit:checkout:u1", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("hit %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := rl.Allow(context.Background(), "rate_limit:checkout:u1", 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("4th hit allowed: ok=%v err=%v", ok, err)
	}

	key := "rate_limit:checkout:u1:" + strconv.FormatInt(now.Truncate(time.Minute).Unix(), 10)
	if got := cli.expires[key]; got != time.Minute+time.Second {
		t.Fatalf("expire on %s = %v", key, got)
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow(context.Background(), "rate_limit:checkout:u1", 3, time.Minute); !ok {
		t.Fatal("next window should start fresh")
	}
}

func TestRateLimiter_PropagatesErrors(t *testing.T) {
	cli := NewMockRedisClient()
	cli.IncrFunc = func(context.Context, string) (int64, error) { return 0, errors.New("down") }
	if _, err := NewRateLimiter(cli).Allow(context.Background(), "k", 1, time.Minute); err == nil {
		t.Fatal("expected error")
	}
}

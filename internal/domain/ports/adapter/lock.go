package adapter

import (
	"context"
	"time"
)

// Locker serializes work on a key, possibly across processes.
// The returned unlock func is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter counts hits for a key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

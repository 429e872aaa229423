package redis

import (
	"context"
	"fmt"
	"time"

	"membership-payments/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter. Each window gets its own key, so a
// counter whose EXPIRE was lost cannot block a payer past the next window.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	bucket := fmt.Sprintf("%s:%d", key, r.now().Truncate(window).Unix())
	count, err := r.client.Incr(ctx, bucket)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, bucket, window+time.Second); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*RedisLocker)(nil)

// RedisLocker is a single-instance SET NX lock with a token-checked release.
type RedisLocker struct {
	cli     RedisClient
	tries   int
	backoff time.Duration
	log     *zerolog.Logger
}

func NewLocker(c RedisClient, logger *zerolog.Logger) *RedisLocker {
	l := logger.With().Str("component", "RedisLocker").Logger()
	return &RedisLocker{cli: c, tries: 5, backoff: 50 * time.Millisecond, log: &l}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.tries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		if err != nil {
			lastErr = err
		} else if ok {
			return l.unlocker(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.ErrLockNotAcquired
}

func (l *RedisLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := l.cli.DelIfEquals(ctx, key, token); err != nil {
				// the ttl releases it eventually
				l.log.Warn().Err(err).Str("key", key).Msg("unlock failed")
			}
		})
	}
}

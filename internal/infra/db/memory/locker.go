package memory

import (
	"context"
	"sync"
	"time"

	"membership-payments/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*KeyedLocker)(nil)

// KeyedLocker is a per-key mutex for single-instance deployments.
// The ttl is ignored: holders always release through the returned func.
type KeyedLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{held: map[string]chan struct{}{}}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			ch = make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

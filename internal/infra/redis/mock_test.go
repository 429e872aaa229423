//go:build !integration

package redis

import (
	"context"
	"sync"
	"time"
)

type MockRedisClient struct {
	mu      sync.Mutex
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration

	SetNXFunc func(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	IncrFunc  func(ctx context.Context, key string) (int64, error)
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (m *MockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *MockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = expiration
	return nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.expires[key] = ttl
	return true, nil
}

func (m *MockRedisClient) DelIfEquals(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] == value {
		delete(m.values, key)
	}
	return nil
}

func (m *MockRedisClient) Close() error { return nil }

func (m *MockRedisClient) held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

package redis

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MockCache is an in-process TTL cache used when Redis is unavailable
type MockCache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

// NewMockCache creates an empty in-memory cache
func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string]entry), now: time.Now}
}

func (c *MockCache) Get(_ context.Context, k string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[k]
	if !ok || (!e.expiresAt.IsZero() && c.now().After(e.expiresAt)) {
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *MockCache) Set(_ context.Context, k string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{data: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.items[k] = e
	return nil
}

func (c *MockCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// Flush empties the cache
func (c *MockCache) Flush(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = make(map[string]entry)
	return n, nil
}

// Ping always succeeds in memory
func (c *MockCache) Ping(context.Context) error { return nil }

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes
const KeyPrefix = "weatherapp:"

// Cache implements service.Cache on top of Redis
type Cache struct {
	rdb *goredis.Client
}

// NewCache creates a cache bound to an existing client
func NewCache(rdb *goredis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Connect parses a redis:// URL and verifies the server answers
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return rdb, nil
}

func key(k string) string { return KeyPrefix + k }

// Get returns the cached bytes for k
func (c *Cache) Get(ctx context.Context, k string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key(k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: failed to get %s: %w", k, err)
	}
	return b, true, nil
}

// Set stores value under k for ttl
func (c *Cache) Set(ctx context.Context, k string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key(k), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %s: %w", k, err)
	}
	return nil
}

// Delete removes the given keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = key(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete: %w", err)
	}
	return nil
}

// Flush removes every key under KeyPrefix and reports how many were deleted
func (c *Cache) Flush(ctx context.Context) (int, error) {
	iter := c.rdb.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	removed := 0
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("redis: failed to flush: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis: failed to scan: %w", err)
	}
	return removed, nil
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

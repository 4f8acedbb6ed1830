package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache keeps a short-lived in-process copy in front of Redis.
// Writes go through to Redis first; locks and existence checks use Redis only.
// Close releases the local layer; the Redis client is owned by the caller.
type LayeredCache struct {
	mem      *MemoryCache
	redis    *RedisCache
	localTTL time.Duration
}

// NewLayeredCache wraps redisCache with an LRU memory layer.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		LocalTTL:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		mem:      NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redis:    redisCache,
		localTTL: cfg.LocalTTL,
	}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return c.mem.Set(ctx, key, value, c.local(expiration))
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.mem.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	if err := c.redis.Get(ctx, key, dest); err != nil {
		return err
	}
	// the remaining Redis TTL is unknown here, so the local copy gets localTTL
	_ = c.mem.Set(ctx, key, backfillValue(dest), c.localTTL)
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.mem.Delete(ctx, keys...)
	return c.redis.Delete(ctx, keys...)
}

func (c *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = c.mem.DeleteByPattern(ctx, pattern)
	return c.redis.DeleteByPattern(ctx, pattern)
}

func (c *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return c.redis.Exists(ctx, keys...)
}

func (c *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.redis.TryLock(ctx, key, ttl)
}

func (c *LayeredCache) Unlock(ctx context.Context, key string) error {
	return c.redis.Unlock(ctx, key)
}

func (c *LayeredCache) Close() error {
	return c.mem.Close()
}

func (c *LayeredCache) local(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > c.localTTL {
		return c.localTTL
	}
	return expiration
}

// backfillValue undoes decode so the memory layer stores the same bytes Redis held.
func backfillValue(dest interface{}) interface{} {
	if s, ok := dest.(*string); ok {
		return *s
	}
	return dest
}

var _ Service = (*LayeredCache)(nil)

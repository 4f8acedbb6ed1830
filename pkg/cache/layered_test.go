package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayered(t *testing.T, opts ...LayeredOption) (*LayeredCache, *RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := NewRedisCacheFromClient(client, "fc")
	lc := NewLayeredCache(rc, opts...)
	t.Cleanup(func() {
		_ = lc.Close()
		_ = client.Close()
	})
	return lc, rc, mr
}

func TestLayeredWritesThroughToRedis(t *testing.T) {
	ctx := context.Background()
	lc, _, mr := newLayered(t)

	require.NoError(t, lc.Set(ctx, "latest:AAPL", payload{Symbol: "AAPL"}, time.Hour))
	assert.True(t, mr.Exists("fc:latest:AAPL"))

	// served from memory while the local copy is fresh
	mr.Del("fc:latest:AAPL")
	var out payload
	require.NoError(t, lc.Get(ctx, "latest:AAPL", &out))
	assert.Equal(t, "AAPL", out.Symbol)
}

func TestLayeredBackfillsFromRedis(t *testing.T) {
	ctx := context.Background()
	lc, rc, mr := newLayered(t)

	require.NoError(t, rc.Set(ctx, "latest:MSFT", payload{Symbol: "MSFT", Values: []float64{1}}, time.Hour))
	require.NoError(t, rc.Set(ctx, "raw", "plain", time.Hour))

	var out payload
	require.NoError(t, lc.Get(ctx, "latest:MSFT", &out))
	var s string
	require.NoError(t, lc.Get(ctx, "raw", &s))
	assert.Equal(t, "plain", s)

	mr.FlushAll()
	out = payload{}
	require.NoError(t, lc.Get(ctx, "latest:MSFT", &out))
	assert.Equal(t, []float64{1}, out.Values)
	s = ""
	require.NoError(t, lc.Get(ctx, "raw", &s))
	assert.Equal(t, "plain", s, "strings are backfilled unquoted")
}

func TestLayeredLocalCopyExpires(t *testing.T) {
	ctx := context.Background()
	lc, _, mr := newLayered(t, WithLayeredLocalTTL(5*time.Millisecond))

	require.NoError(t, lc.Set(ctx, "k", "v1", time.Hour))
	require.NoError(t, mr.Set("fc:k", "v2"))
	time.Sleep(10 * time.Millisecond)

	var s string
	require.NoError(t, lc.Get(ctx, "k", &s))
	assert.Equal(t, "v2", s)
}

func TestLayeredDeleteAndLocksUseRedis(t *testing.T) {
	ctx := context.Background()
	lc, _, mr := newLayered(t)

	require.NoError(t, lc.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, lc.Delete(ctx, "k"))
	var s string
	assert.ErrorIs(t, lc.Get(ctx, "k", &s), ErrCacheMiss)

	ok, err := lc.TryLock(ctx, "lock:run:AAPL:lagreg", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("fc:lock:run:AAPL:lagreg"))
	require.NoError(t, lc.Unlock(ctx, "lock:run:AAPL:lagreg"))
	assert.False(t, mr.Exists("fc:lock:run:AAPL:lagreg"))
}

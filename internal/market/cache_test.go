package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, next Source) (*CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedSource(next, client, DefaultCacheConfig(), zerolog.Nop()), mr
}

func TestCachedSourceCacheAside(t *testing.T) {
	next := &stubSource{name: "stub", bars: barsOf(10)}
	cache, mr := setupCache(t, next)
	ctx := context.Background()

	bars, err := cache.Fetch(ctx, "aapl", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 10)

	key := cache.Key("aapl", "1y")
	assert.Equal(t, "tradepro:bars:AAPL:1y", key)
	assert.Eventually(t, func() bool { return mr.Exists(key) }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	cached, err := cache.Fetch(ctx, "AAPL", "1y")
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, bars[9].Close, cached[9].Close)
	assert.True(t, bars[9].Timestamp.Equal(cached[9].Timestamp))

	require.NoError(t, cache.Invalidate(ctx, "AAPL", "1y"))
	_, err = cache.Fetch(ctx, "AAPL", "1y")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedSourceTTL(t *testing.T) {
	cache := NewCachedSource(&stubSource{name: "stub"}, nil, DefaultCacheConfig(), zerolog.Nop())

	assert.Equal(t, time.Minute, cache.TTL("5d"))
	assert.Equal(t, 15*time.Minute, cache.TTL("2y"))
	assert.Equal(t, "cached:stub", cache.Name())
}

func TestCachedSourceCorruptEntry(t *testing.T) {
	next := &stubSource{name: "stub", bars: barsOf(3)}
	cache, mr := setupCache(t, next)

	require.NoError(t, mr.Set(cache.Key("MSFT", "1y"), "not json"))
	bars, err := cache.Fetch(context.Background(), "MSFT", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachedSourceRedisDown(t *testing.T) {
	next := &stubSource{name: "stub", bars: barsOf(3)}
	cache, mr := setupCache(t, next)
	mr.Close()

	bars, err := cache.Fetch(context.Background(), "MSFT", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestCachedSourceCollapsesConcurrentFetches(t *testing.T) {
	next := &stubSource{name: "stub", bars: barsOf(3), delay: 100 * time.Millisecond}
	cache := NewCachedSource(next, nil, DefaultCacheConfig(), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bars, err := cache.Fetch(context.Background(), "TSLA", "1y")
			assert.NoError(t, err)
			assert.Len(t, bars, 3)
		}()
	}
	wg.Wait()

	assert.Less(t, next.calls.Load(), int32(8))
}

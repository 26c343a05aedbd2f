package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/tradepro/internal/metrics"
)

// CacheConfig sets time-to-live per lookback class.
type CacheConfig struct {
	// ShortTTL applies to the 5d window used for live quotes.
	ShortTTL time.Duration `mapstructure:"short_ttl" yaml:"short_ttl"`
	// LongTTL applies to every longer window.
	LongTTL time.Duration `mapstructure:"long_ttl" yaml:"long_ttl"`
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
}

// DefaultCacheConfig caches quotes for a minute and history for 15 minutes.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{ShortTTL: time.Minute, LongTTL: 15 * time.Minute, Prefix: "tradepro:bars"}
}

// CachedSource puts a Redis cache-aside layer in front of a Source and
// collapses concurrent fetches of the same key. A nil Redis client turns
// it into a pure singleflight wrapper.
type CachedSource struct {
	next  Source
	redis *metrics.RedisMetrics
	cfg   CacheConfig
	group singleflight.Group
	log   zerolog.Logger
}

// NewCachedSource wraps next.
func NewCachedSource(next Source, client *redis.Client, cfg CacheConfig, log zerolog.Logger) *CachedSource {
	c := &CachedSource{
		next: next,
		cfg:  cfg,
		log:  log.With().Str("component", "cached_source").Logger(),
	}
	if client != nil {
		c.redis = metrics.NewRedisMetrics(client)
	}
	return c
}

// Name implements Source.
func (c *CachedSource) Name() string {
	return "cached:" + c.next.Name()
}

// Key returns the cache key for a symbol and period.
func (c *CachedSource) Key(symbol, period string) string {
	return fmt.Sprintf("%s:%s:%s", c.cfg.Prefix, NormalizeSymbol(symbol), period)
}

// TTL returns the expiry for a period.
func (c *CachedSource) TTL(period string) time.Duration {
	if period == "5d" {
		return c.cfg.ShortTTL
	}
	return c.cfg.LongTTL
}

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context, symbol, period string) ([]PriceBar, error) {
	key := c.Key(symbol, period)

	if bars, ok := c.lookup(ctx, key); ok {
		return bars, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		bars, err := c.next.Fetch(ctx, symbol, period)
		if err != nil {
			return nil, err
		}
		c.store(key, bars, c.TTL(period))
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug().Str("key", key).Msg("Shared in-flight fetch")
	}
	return v.([]PriceBar), nil
}

func (c *CachedSource) lookup(ctx context.Context, key string) ([]PriceBar, bool) {
	if c.redis == nil {
		return nil, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.redis.Get(cacheCtx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Redis error during cache lookup")
		}
		return nil, false
	}

	var bars []PriceBar
	if err := json.Unmarshal([]byte(cached), &bars); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached bars, fetching fresh")
		return nil, false
	}
	c.log.Debug().Str("key", key).Int("bars", len(bars)).Msg("Cache hit")
	return bars, true
}

// store writes asynchronously so a slow cache never delays the caller.
func (c *CachedSource) store(key string, bars []PriceBar, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(bars)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to marshal bars for cache")
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.redis.Set(cacheCtx, key, data, ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to cache bars")
		}
	}()
}

// Invalidate removes a cached entry.
func (c *CachedSource) Invalidate(ctx context.Context, symbol, period string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, c.Key(symbol, period))
}

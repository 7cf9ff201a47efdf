// Package cache memoizes tariff lookups in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tariff-service/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix     = "tariff:resolve:"
	generationKey = keyPrefix + "gen"
)

// RedisResolutionCache stores resolved tariffs under a generation-scoped key.
// Invalidate bumps the generation, so stale entries are never read again and expire by TTL.
// Redis failures degrade to cache misses.
type RedisResolutionCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisResolutionCache(client redis.Cmdable, ttl time.Duration, logger *logrus.Logger) *RedisResolutionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisResolutionCache{client: client, ttl: ttl, logger: logger}
}

// entryKey builds tariff:resolve:g<gen>:<product>:<origin>:<dest>:<date>
func entryKey(generation int64, key model.TariffKey, date time.Time) string {
	return fmt.Sprintf("%sg%d:%s:%s:%s:%s", keyPrefix, generation, key.ProductCode, key.Origin, key.Dest, date.Format(model.DateLayout))
}

func (c *RedisResolutionCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get looks in the current generation. On a miss it still reports that generation,
// or -1 when Redis could not be read, so the caller can hand it to Set.
func (c *RedisResolutionCache) Get(ctx context.Context, key model.TariffKey, date time.Time) (*model.Tariff, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("resolution cache unavailable")
		return nil, -1, false
	}

	raw, err := c.client.Get(ctx, entryKey(gen, key, date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Debug("resolution cache read failed")
		}
		return nil, gen, false
	}

	var tariff model.Tariff
	if err := json.Unmarshal(raw, &tariff); err != nil {
		c.logger.WithError(err).Warn("discarding undecodable resolution cache entry")
		return nil, gen, false
	}
	return &tariff, gen, true
}

// Set writes under the generation the preceding Get observed. If an Invalidate ran
// in between, the entry lands in a retired generation and is never read.
func (c *RedisResolutionCache) Set(ctx context.Context, generation int64, key model.TariffKey, date time.Time, tariff *model.Tariff) {
	if generation < 0 {
		return
	}
	payload, err := json.Marshal(tariff)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(generation, key, date), payload, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("resolution cache write failed")
	}
}

func (c *RedisResolutionCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.WithError(err).Warn("resolution cache invalidation failed")
	}
}

// NopCache never stores anything. It stands in when Redis is disabled.
type NopCache struct{}

func (NopCache) Get(context.Context, model.TariffKey, time.Time) (*model.Tariff, int64, bool) {
	return nil, 0, false
}

func (NopCache) Set(context.Context, int64, model.TariffKey, time.Time, *model.Tariff) {}

func (NopCache) Invalidate(context.Context) {}

package cache

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"tariff-service/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the cache issues against an in-process map
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func newTestCache(client redis.Cmdable) *RedisResolutionCache {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRedisResolutionCache(client, time.Minute, logger)
}

func TestEntryKey(t *testing.T) {
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "1234.56"}
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "tariff:resolve:g0:1234.56:CN:US:2024-06-15", entryKey(0, key, date))
	assert.NotEqual(t, entryKey(1, key, date), entryKey(2, key, date))
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewRedisResolutionCache(client, time.Minute, logger)

	ctx := context.Background()
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "1234.56"}
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	got, gen, ok := c.Get(ctx, key, date)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, int64(-1), gen)

	c.Set(ctx, gen, key, date, &model.Tariff{OriginCountryCode: "CN"})
	c.Invalidate(ctx)
	_, _, ok = c.Get(ctx, key, date)
	assert.False(t, ok)
}

func TestRedisCacheHitWithinGeneration(t *testing.T) {
	c := newTestCache(newFakeRedis())
	ctx := context.Background()
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "1234.56"}
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	_, gen, ok := c.Get(ctx, key, date)
	require.False(t, ok)
	assert.Equal(t, int64(0), gen)

	c.Set(ctx, gen, key, date, &model.Tariff{OriginCountryCode: "CN", AdValoremRate: decimal.RequireFromString("0.1")})
	got, _, ok := c.Get(ctx, key, date)
	require.True(t, ok)
	assert.True(t, got.AdValoremRate.Equal(decimal.RequireFromString("0.1")))

	c.Invalidate(ctx)
	_, gen, ok = c.Get(ctx, key, date)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCacheDropsWriteFromBeforeInvalidate(t *testing.T) {
	c := newTestCache(newFakeRedis())
	ctx := context.Background()
	key := model.TariffKey{Origin: "CN", Dest: "US", ProductCode: "1234.56"}
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	// a reader misses, a writer commits and invalidates, then the reader stores what it read
	_, gen, ok := c.Get(ctx, key, date)
	require.False(t, ok)
	c.Invalidate(ctx)
	c.Set(ctx, gen, key, date, &model.Tariff{OriginCountryCode: "CN", AdValoremRate: decimal.RequireFromString("0.1")})

	got, _, ok := c.Get(ctx, key, date)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestNopCache(t *testing.T) {
	var c NopCache
	c.Set(context.Background(), 0, model.TariffKey{}, time.Time{}, &model.Tariff{})
	_, _, ok := c.Get(context.Background(), model.TariffKey{}, time.Time{})
	assert.False(t, ok)
}

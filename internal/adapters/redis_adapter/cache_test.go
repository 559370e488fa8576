// internal/adapters/redis_adapter/cache_test.go
package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/kobopos/ledger-be/internal/adapters/redis_adapter"
	"github.com/kobopos/ledger-be/internal/core/ports"
	"github.com/kobopos/ledger-be/test/helpers"
)

func newTestCache(t *testing.T) (ports.CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis_a.NewCache(client, helpers.TestLogger()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	type settings struct {
		Rate     string `json:"rate"`
		Currency string `json:"currency"`
	}
	stored := settings{Rate: "0.075", Currency: "NGN"}

	err := cache.Set(ctx, "settings:store1", stored, time.Minute)
	require.NoError(t, err)

	var got settings
	err = cache.Get(ctx, "settings:store1", &got)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestCache_GetMiss(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	var got string
	err := cache.Get(ctx, "missing:key", &got)
	assert.Equal(t, redis_a.ErrCacheMiss, err)
}

func TestCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	require.NoError(t, cache.Set(ctx, "ttl:test", "value", 100*time.Millisecond))

	var result string
	require.NoError(t, cache.Get(ctx, "ttl:test", &result))
	assert.Equal(t, "value", result)

	mr.FastForward(200 * time.Millisecond)

	err := cache.Get(ctx, "ttl:test", &result)
	assert.Equal(t, redis_a.ErrCacheMiss, err)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	keys := []string{"del:1", "del:2", "del:3"}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, "value", time.Minute))
	}

	require.NoError(t, cache.Delete(ctx, keys...))

	for _, key := range keys {
		var result string
		err := cache.Get(ctx, key, &result)
		assert.Equal(t, redis_a.ErrCacheMiss, err)
	}
}

func TestCache_Exists(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	require.NoError(t, cache.Set(ctx, "exists:1", "v", time.Minute))

	ok, err := cache.Exists(ctx, "exists:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Exists(ctx, "exists:1", "exists:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	fetchCount := 0
	fetchFunc := func() (interface{}, error) {
		fetchCount++
		return "fetched value", nil
	}

	var result1 string
	err := cache.GetOrSet(ctx, "getorset:test", &result1, fetchFunc, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched value", result1)
	assert.Equal(t, 1, fetchCount)

	// Second call is served from cache.
	var result2 string
	err = cache.GetOrSet(ctx, "getorset:test", &result2, fetchFunc, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched value", result2)
	assert.Equal(t, 1, fetchCount)
}

// SetNX is the dedup guard for low-stock alerts: first caller wins, repeats
// within the TTL are suppressed.
func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	key := redis_a.BuildKey(redis_a.PrefixAlert, "low_stock", "product-1")

	ok, err := cache.SetNX(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Guard expires, the next signal goes through again.
	mr.FastForward(2 * time.Minute)
	ok, err = cache.SetNX(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_BuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{
			name:     "alert_key",
			prefix:   redis_a.PrefixAlert,
			parts:    []string{"low_stock", "123"},
			expected: "alert:low_stock:123",
		},
		{
			name:     "settings_key",
			prefix:   redis_a.PrefixSettings,
			parts:    []string{"store-1"},
			expected: "settings:store-1",
		},
		{
			name:     "no_parts",
			prefix:   redis_a.PrefixPeriod,
			parts:    []string{},
			expected: "period",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redis_a.BuildKey(tt.prefix, tt.parts...))
		})
	}
}

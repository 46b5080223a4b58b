package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisRateLimiter_Allow_WithinLimit(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "6th request should be denied")
}

func TestRedisRateLimiter_Allow_DifferentKeys(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, allowed, "key-1 should be rate limited")

	allowed, err = limiter.Allow(ctx, "key-2")
	require.NoError(t, err)
	assert.True(t, allowed, "key-2 should not be affected")
}

func TestRedisRateLimiter_Allow_WindowSlides(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	allowed, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	now = now.Add(2 * time.Minute)
	allowed, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Allow_ZeroLimitDisables(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{})

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRedisRateLimiter_Remaining(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining)

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
	}

	remaining, err = limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)

	allowed, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))

	allowed, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

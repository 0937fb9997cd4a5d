package cache

import (
	"context"
	"testing"
	"time"

	"babycare-backend/internal/config"
	"babycare-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *LatestReadingCache) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := &config.CacheConfig{
		LatestKeyPrefix: "babycare:user:",
		LatestSuffix:    ":latest",
		LatestTTL:       600,
	}

	logger := zap.NewNop()
	latestCache := NewLatestReadingCache(cfg, redisClient, logger)

	return mr, latestCache
}

func TestLatestReadingCache_UpdateAndGet(t *testing.T) {
	_, latestCache := setupTestRedis(t)

	ctx := context.Background()
	notes := "after feeding"
	reading := &models.Reading{
		ID:           7,
		UserID:       1,
		Temperature:  37.1,
		Humidity:     52.5,
		CryDetected:  true,
		SickDetected: false,
		Notes:        &notes,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	err := latestCache.Update(ctx, reading)
	require.NoError(t, err)

	got, err := latestCache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reading.ID, got.ID)
	assert.Equal(t, reading.Temperature, got.Temperature)
	assert.True(t, got.CryDetected)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
}

func TestLatestReadingCache_Get_Miss(t *testing.T) {
	_, latestCache := setupTestRedis(t)

	ctx := context.Background()

	got, err := latestCache.Get(ctx, 99)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLatestReadingCache_KeyFormat(t *testing.T) {
	mr, latestCache := setupTestRedis(t)

	ctx := context.Background()
	reading := &models.Reading{ID: 1, UserID: 42, Temperature: 36.6, Humidity: 50}

	require.NoError(t, latestCache.Update(ctx, reading))
	assert.True(t, mr.Exists("babycare:user:42:latest"))
}

func TestLatestReadingCache_TTLExpiry(t *testing.T) {
	mr, latestCache := setupTestRedis(t)

	ctx := context.Background()
	reading := &models.Reading{ID: 1, UserID: 5, Temperature: 36.6, Humidity: 50}

	require.NoError(t, latestCache.Update(ctx, reading))

	mr.FastForward(601 * time.Second)

	_, err := latestCache.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLatestReadingCache_Invalidate(t *testing.T) {
	_, latestCache := setupTestRedis(t)

	ctx := context.Background()
	reading := &models.Reading{ID: 1, UserID: 5, Temperature: 36.6, Humidity: 50}

	require.NoError(t, latestCache.Update(ctx, reading))
	require.NoError(t, latestCache.Invalidate(ctx, 5))

	_, err := latestCache.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLatestReadingCache_UpdateOverwrites(t *testing.T) {
	_, latestCache := setupTestRedis(t)

	ctx := context.Background()

	require.NoError(t, latestCache.Update(ctx, &models.Reading{ID: 1, UserID: 5, Temperature: 36.6, Humidity: 50}))
	require.NoError(t, latestCache.Update(ctx, &models.Reading{ID: 2, UserID: 5, Temperature: 38.4, Humidity: 81}))

	got, err := latestCache.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, 38.4, got.Temperature)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"babycare-backend/internal/config"
	"babycare-backend/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned when no cached reading exists for a user.
var ErrCacheMiss = errors.New("cache miss")

// LatestReadingCache keeps each user's most recent reading in Redis so the
// dashboard and new websocket sessions skip the store on the hot path.
type LatestReadingCache struct {
	config      *config.CacheConfig
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewLatestReadingCache creates a latest-reading cache.
func NewLatestReadingCache(cfg *config.CacheConfig, redisClient *redis.Client, logger *zap.Logger) *LatestReadingCache {
	return &LatestReadingCache{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Update overwrites the cached reading for its owner.
func (c *LatestReadingCache) Update(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}

	key := c.key(reading.UserID)

	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	ttl := time.Duration(c.config.LatestTTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest reading cache: %w", err)
	}

	c.logger.Debug("Updated latest reading cache",
		zap.Int64("user_id", reading.UserID),
		zap.String("key", key),
	)

	return nil
}

// Get returns the cached reading for a user, or ErrCacheMiss.
func (c *LatestReadingCache) Get(ctx context.Context, userID int64) (*models.Reading, error) {
	key := c.key(userID)

	val, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get latest reading cache: %w", err)
	}

	var reading models.Reading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}

	return &reading, nil
}

// Invalidate drops the cached reading for a user.
func (c *LatestReadingCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.redisClient.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete latest reading cache: %w", err)
	}
	return nil
}

func (c *LatestReadingCache) key(userID int64) string {
	return fmt.Sprintf("%s%d%s", c.config.LatestKeyPrefix, userID, c.config.LatestSuffix)
}

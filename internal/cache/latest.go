package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const latestKeyPrefix = "energy:device:"
const latestKeySuffix = ":latest"

// LatestCache 每设备最新读数的 Redis 缓存（看板实时查询用）
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewLatestCache 创建缓存
func NewLatestCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *LatestCache {
	return &LatestCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func latestKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s", latestKeyPrefix, deviceID, latestKeySuffix)
}

// SetLatest 写入设备最新读数（带 TTL）
func (c *LatestCache) SetLatest(ctx context.Context, deviceID string, reading *domain.SensorReading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.client.Set(ctx, latestKey(deviceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest reading cache: %w", err)
	}

	return nil
}

// GetLatest 读设备最新读数；缓存未命中返回 (nil, nil)
func (c *LatestCache) GetLatest(ctx context.Context, deviceID string) (*domain.SensorReading, error) {
	val, err := c.client.Get(ctx, latestKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading cache: %w", err)
	}

	var reading domain.SensorReading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}

	return &reading, nil
}

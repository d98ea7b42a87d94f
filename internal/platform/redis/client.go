package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewClient 创建Redis客户端并验证连通性
func NewClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

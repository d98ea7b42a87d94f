package repository

import (
	"context"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// ReadingsRepository 传感器读数仓库接口
type ReadingsRepository interface {
	// CreateReading 写入一条原始读数，返回生成的 ID
	CreateReading(ctx context.Context, reading *domain.SensorReading) (int64, error)

	// GetRecentReadings 按时间倒序取设备最近 limit 条读数
	GetRecentReadings(ctx context.Context, deviceID string, limit int) ([]domain.SensorReading, error)

	// GetLatestReading 取设备最新一条读数，没有返回 (nil, nil)
	GetLatestReading(ctx context.Context, deviceID string) (*domain.SensorReading, error)
}

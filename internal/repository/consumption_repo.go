package repository

import (
	"context"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// ConsumptionRepository 能耗记录仓库接口
type ConsumptionRepository interface {
	// CreateConsumption 写入一条派生能耗记录，返回生成的 ID
	CreateConsumption(ctx context.Context, record *domain.EnergyConsumption) (int64, error)

	// GetLatestConsumption 取设备最新一条能耗记录，没有返回 (nil, nil)
	GetLatestConsumption(ctx context.Context, deviceID string) (*domain.EnergyConsumption, error)

	// ListConsumption 按时间区间查询设备能耗历史（时间正序，供导出和看板用）
	ListConsumption(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]domain.EnergyConsumption, error)
}

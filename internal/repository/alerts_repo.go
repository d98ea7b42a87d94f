package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// ErrAlertNotFound 更新类操作找不到目标报警
var ErrAlertNotFound = errors.New("alert not found")

// AlertFilters 报警查询过滤条件
type AlertFilters struct {
	UserID     *string
	DeviceID   *string
	AlertType  *string
	Severity   *string
	Severities []string
	IsRead     *bool
	IsResolved *bool
	StartTime  *time.Time
	EndTime    *time.Time
}

// AlertsRepository 报警仓库接口
type AlertsRepository interface {
	// CreateAlert 写入报警（alert_id 由调用方生成）
	CreateAlert(ctx context.Context, alert *domain.Alert) error

	// GetAlert 按 ID 查询报警，没有返回 (nil, nil)
	GetAlert(ctx context.Context, alertID string) (*domain.Alert, error)

	// GetRecentUnresolvedAlert 去重检查：查询窗口内同设备同类型且未解决的最近报警
	// deviceID 为 nil 时匹配无设备报警（device_id IS NULL）；没有返回 (nil, nil)
	GetRecentUnresolvedAlert(ctx context.Context, deviceID *string, alertType string, within time.Duration) (*domain.Alert, error)

	// ListAlerts 列表查询（过滤 + 分页），返回 (结果, 总数, err)
	ListAlerts(ctx context.Context, filters AlertFilters, page, size int) ([]*domain.Alert, int, error)

	// MarkAlertRead 标记已读
	MarkAlertRead(ctx context.Context, alertID string) error

	// ResolveAlert 标记已解决；已解决的报警退出去重窗口
	ResolveAlert(ctx context.Context, alertID string, actionTaken string) error
}

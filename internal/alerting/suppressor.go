package alerting

import (
	"context"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

// Suppressor 报警去重：窗口内同设备同类型且未解决的报警存在时不再新建
// 注意 check-then-create 不是原子的，并发读数可能各自通过检查产生重复
// 报警（已知限制，沿用原有行为）
type Suppressor struct {
	alerts repository.AlertsRepository
	logger *zap.Logger
}

// NewSuppressor 创建去重器
func NewSuppressor(alerts repository.AlertsRepository, logger *zap.Logger) *Suppressor {
	return &Suppressor{
		alerts: alerts,
		logger: logger,
	}
}

// ShouldCreate 是否允许创建报警
// deviceID 为 nil 匹配无设备报警；window 由调用路径决定
func (s *Suppressor) ShouldCreate(ctx context.Context, deviceID *string, alertType string, window time.Duration) (bool, error) {
	recent, err := s.alerts.GetRecentUnresolvedAlert(ctx, deviceID, alertType, window)
	if err != nil {
		return false, err
	}
	if recent != nil {
		s.logger.Debug("Alert suppressed by duplicate window",
			zap.String("alert_type", alertType),
			zap.String("existing_alert_id", recent.AlertID),
		)
		return false, nil
	}
	return true, nil
}

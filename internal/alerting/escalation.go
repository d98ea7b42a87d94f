package alerting

import (
	"context"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// LogEscalator 升级通道的本地实现：只记日志
// 实际的邮件/短信网关是外部系统，部署时替换为对应网关客户端
type LogEscalator struct {
	logger *zap.Logger
}

var _ Escalator = (*LogEscalator)(nil)

// NewLogEscalator 创建日志升级通道
func NewLogEscalator(logger *zap.Logger) *LogEscalator {
	return &LogEscalator{logger: logger}
}

// Send 记录一次外发
func (e *LogEscalator) Send(ctx context.Context, alert *domain.Alert, channel string) error {
	e.logger.Info("Escalating alert",
		zap.String("alert_id", alert.AlertID),
		zap.String("channel", channel),
		zap.String("severity", alert.Severity),
		zap.String("title", alert.Title),
	)
	return nil
}

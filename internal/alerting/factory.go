package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/bus"
	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier 实时推送接口（由 realtime.Hub 实现）
type Notifier interface {
	NotifyAlertCreated(alert *domain.Alert)
	NotifyAlertUpdated(alert *domain.Alert)
}

// Escalator 升级通道（Email/SMS 外发），投递结果记录但不影响报警创建
type Escalator interface {
	Send(ctx context.Context, alert *domain.Alert, channel string) error
}

// CreateAlertRequest 创建报警请求
type CreateAlertRequest struct {
	UserID         string
	Title          string
	Message        string
	AlertType      string
	Severity       string
	DeviceID       *string
	AdditionalData json.RawMessage
}

// Factory 报警工厂：落库 + 实时推送 + 总线发布 + 高级别升级外发
type Factory struct {
	alerts        repository.AlertsRepository
	notifications repository.NotificationsRepository
	notifier      Notifier
	publisher     bus.Publisher
	escalator     Escalator
	notifyCfg     config.NotifyConfig
	logger        *zap.Logger
}

// NewFactory 创建报警工厂
func NewFactory(
	alerts repository.AlertsRepository,
	notifications repository.NotificationsRepository,
	notifier Notifier,
	publisher bus.Publisher,
	escalator Escalator,
	notifyCfg config.NotifyConfig,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		alerts:        alerts,
		notifications: notifications,
		notifier:      notifier,
		publisher:     publisher,
		escalator:     escalator,
		notifyCfg:     notifyCfg,
		logger:        logger,
	}
}

// CreateAlert 创建报警并做全部扇出
// 落库失败向上返回；推送、总线、升级外发失败只记日志
func (f *Factory) CreateAlert(ctx context.Context, req CreateAlertRequest) (*domain.Alert, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.AlertType == "" {
		return nil, fmt.Errorf("alert_type is required")
	}

	alert := &domain.Alert{
		AlertID:        uuid.New().String(),
		UserID:         req.UserID,
		DeviceID:       req.DeviceID,
		Title:          req.Title,
		Message:        req.Message,
		AlertType:      req.AlertType,
		Severity:       req.Severity,
		AdditionalData: req.AdditionalData,
		CreatedAt:      time.Now(),
	}

	if err := f.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}

	f.logger.Info("Alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", alert.AlertType),
		zap.String("severity", alert.Severity),
	)

	if f.notifier != nil {
		f.notifier.NotifyAlertCreated(alert)
	}

	if f.publisher != nil {
		f.publisher.Publish("alerts", alert)
	}

	if f.shouldEscalate(alert.Severity) {
		f.escalate(ctx, alert)
	}

	return alert, nil
}

func (f *Factory) shouldEscalate(severity string) bool {
	if !f.notifyCfg.Enabled || f.escalator == nil {
		return false
	}
	return severity == domain.SeverityHigh || severity == domain.SeverityCritical
}

// escalate 高级别报警外发，并记录投递结果
func (f *Factory) escalate(ctx context.Context, alert *domain.Alert) {
	notification := &domain.AlertNotification{
		NotificationID: uuid.New().String(),
		AlertID:        alert.AlertID,
		Channel:        f.notifyCfg.Channel,
		SentAt:         time.Now(),
	}

	if err := f.notifications.CreateNotification(ctx, notification); err != nil {
		f.logger.Error("Failed to record alert notification",
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
		return
	}

	if err := f.escalator.Send(ctx, alert, f.notifyCfg.Channel); err != nil {
		f.logger.Warn("Alert escalation failed",
			zap.String("alert_id", alert.AlertID),
			zap.String("channel", f.notifyCfg.Channel),
			zap.Error(err),
		)
		errMessage := err.Error()
		if markErr := f.notifications.MarkDelivered(ctx, notification.NotificationID, false, &errMessage); markErr != nil {
			f.logger.Error("Failed to record delivery failure", zap.Error(markErr))
		}
		return
	}

	if err := f.notifications.MarkDelivered(ctx, notification.NotificationID, true, nil); err != nil {
		f.logger.Error("Failed to record delivery success", zap.Error(err))
	}
}

// MarkRead 标记已读并推送状态变更
func (f *Factory) MarkRead(ctx context.Context, alertID string) (*domain.Alert, error) {
	if err := f.alerts.MarkAlertRead(ctx, alertID); err != nil {
		return nil, err
	}

	alert, err := f.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert != nil && f.notifier != nil {
		f.notifier.NotifyAlertUpdated(alert)
	}

	return alert, nil
}

// Resolve 标记已解决并推送状态变更；解决后退出去重窗口
func (f *Factory) Resolve(ctx context.Context, alertID string, actionTaken string) (*domain.Alert, error) {
	if err := f.alerts.ResolveAlert(ctx, alertID, actionTaken); err != nil {
		return nil, err
	}

	alert, err := f.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert != nil && f.notifier != nil {
		f.notifier.NotifyAlertUpdated(alert)
	}

	return alert, nil
}

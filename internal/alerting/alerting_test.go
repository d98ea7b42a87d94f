package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// 包内共享的内存假实现

type fakeAlertsRepo struct {
	alerts    []*domain.Alert
	createErr error
	lookupErr error
}

var _ repository.AlertsRepository = (*fakeAlertsRepo)(nil)

func (r *fakeAlertsRepo) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	if r.createErr != nil {
		return r.createErr
	}
	stored := *alert
	r.alerts = append(r.alerts, &stored)
	return nil
}

func (r *fakeAlertsRepo) GetAlert(ctx context.Context, alertID string) (*domain.Alert, error) {
	for _, alert := range r.alerts {
		if alert.AlertID == alertID {
			found := *alert
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertsRepo) GetRecentUnresolvedAlert(ctx context.Context, deviceID *string, alertType string, within time.Duration) (*domain.Alert, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	cutoff := time.Now().Add(-within)
	for i := len(r.alerts) - 1; i >= 0; i-- {
		alert := r.alerts[i]
		if alert.AlertType != alertType || alert.IsResolved || !alert.CreatedAt.After(cutoff) {
			continue
		}
		if deviceID == nil {
			if alert.DeviceID != nil {
				continue
			}
		} else {
			if alert.DeviceID == nil || *alert.DeviceID != *deviceID {
				continue
			}
		}
		found := *alert
		return &found, nil
	}
	return nil, nil
}

func (r *fakeAlertsRepo) ListAlerts(ctx context.Context, filters repository.AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	result := make([]*domain.Alert, len(r.alerts))
	copy(result, r.alerts)
	return result, len(r.alerts), nil
}

func (r *fakeAlertsRepo) MarkAlertRead(ctx context.Context, alertID string) error {
	for _, alert := range r.alerts {
		if alert.AlertID == alertID {
			now := time.Now()
			alert.IsRead = true
			alert.ReadAt = &now
			return nil
		}
	}
	return fmt.Errorf("%w: alert_id=%s", repository.ErrAlertNotFound, alertID)
}

func (r *fakeAlertsRepo) ResolveAlert(ctx context.Context, alertID string, actionTaken string) error {
	for _, alert := range r.alerts {
		if alert.AlertID == alertID {
			now := time.Now()
			alert.IsResolved = true
			alert.ResolvedAt = &now
			alert.ActionTaken = &actionTaken
			return nil
		}
	}
	return fmt.Errorf("%w: alert_id=%s", repository.ErrAlertNotFound, alertID)
}

type fakeNotificationsRepo struct {
	notifications []*domain.AlertNotification
	createErr     error
}

var _ repository.NotificationsRepository = (*fakeNotificationsRepo)(nil)

func (r *fakeNotificationsRepo) CreateNotification(ctx context.Context, n *domain.AlertNotification) error {
	if r.createErr != nil {
		return r.createErr
	}
	stored := *n
	r.notifications = append(r.notifications, &stored)
	return nil
}

func (r *fakeNotificationsRepo) MarkDelivered(ctx context.Context, notificationID string, delivered bool, errMessage *string) error {
	for _, n := range r.notifications {
		if n.NotificationID == notificationID {
			n.IsDelivered = delivered
			n.ErrorMessage = errMessage
			if delivered {
				now := time.Now()
				n.DeliveredAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("notification not found: notification_id=%s", notificationID)
}

type fakeNotifier struct {
	created []*domain.Alert
	updated []*domain.Alert
}

func (n *fakeNotifier) NotifyAlertCreated(alert *domain.Alert) {
	n.created = append(n.created, alert)
}

func (n *fakeNotifier) NotifyAlertUpdated(alert *domain.Alert) {
	n.updated = append(n.updated, alert)
}

type fakePublisher struct {
	published []fakePublished
}

type fakePublished struct {
	queue   string
	payload interface{}
}

func (p *fakePublisher) Publish(queueName string, payload interface{}) {
	p.published = append(p.published, fakePublished{queue: queueName, payload: payload})
}

func (p *fakePublisher) Close() {}

type fakeEscalator struct {
	sent    []*domain.Alert
	sendErr error
}

func (e *fakeEscalator) Send(ctx context.Context, alert *domain.Alert, channel string) error {
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sent = append(e.sent, alert)
	return nil
}

type fakeDevicesRepo struct {
	devices []domain.Device
}

var _ repository.DevicesRepository = (*fakeDevicesRepo)(nil)

func (r *fakeDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	for i := range r.devices {
		if r.devices[i].DeviceID == deviceID {
			found := r.devices[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeDevicesRepo) ListActiveDevices(ctx context.Context) ([]domain.Device, error) {
	active := []domain.Device{}
	for _, device := range r.devices {
		if device.IsActive {
			active = append(active, device)
		}
	}
	return active, nil
}

func (r *fakeDevicesRepo) TouchLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error {
	return nil
}

type fakeReadingsRepo struct {
	latest map[string]*domain.SensorReading
}

var _ repository.ReadingsRepository = (*fakeReadingsRepo)(nil)

func (r *fakeReadingsRepo) CreateReading(ctx context.Context, reading *domain.SensorReading) (int64, error) {
	return 1, nil
}

func (r *fakeReadingsRepo) GetRecentReadings(ctx context.Context, deviceID string, limit int) ([]domain.SensorReading, error) {
	return nil, nil
}

func (r *fakeReadingsRepo) GetLatestReading(ctx context.Context, deviceID string) (*domain.SensorReading, error) {
	reading, ok := r.latest[deviceID]
	if !ok {
		return nil, nil
	}
	found := *reading
	return &found, nil
}

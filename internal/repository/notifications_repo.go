package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// NotificationsRepository 升级通知投递记录仓库接口
type NotificationsRepository interface {
	// CreateNotification 记录一次外发（notification_id 由调用方生成）
	CreateNotification(ctx context.Context, n *domain.AlertNotification) error

	// MarkDelivered 标记投递结果；errMessage 为 nil 表示成功
	MarkDelivered(ctx context.Context, notificationID string, delivered bool, errMessage *string) error
}

// PostgresNotificationsRepository 升级通知仓库 PostgreSQL 实现
type PostgresNotificationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

// NewPostgresNotificationsRepository 创建升级通知仓库
func NewPostgresNotificationsRepository(db *sql.DB, logger *zap.Logger) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db, logger: logger}
}

// CreateNotification 记录一次外发
func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *domain.AlertNotification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.NotificationID == "" {
		return fmt.Errorf("notification_id is required")
	}
	if n.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		INSERT INTO alert_notifications (
			notification_id,
			alert_id,
			channel,
			sent_at,
			is_delivered
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.NotificationID,
		n.AlertID,
		n.Channel,
		n.SentAt,
		n.IsDelivered,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert notification: %w", err)
	}

	return nil
}

// MarkDelivered 标记投递结果
func (r *PostgresNotificationsRepository) MarkDelivered(ctx context.Context, notificationID string, delivered bool, errMessage *string) error {
	if notificationID == "" {
		return fmt.Errorf("notification_id is required")
	}

	query := `
		UPDATE alert_notifications
		SET is_delivered = $1,
		    delivered_at = $2,
		    error_message = $3
		WHERE notification_id = $4
	`

	var deliveredAt *time.Time
	if delivered {
		now := time.Now()
		deliveredAt = &now
	}

	result, err := r.db.ExecContext(ctx, query, delivered, deliveredAt, errMessage, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notification not found: notification_id=%s", notificationID)
	}

	return nil
}

package domain

import (
	"encoding/json"
	"time"
)

// Alert 用户可见报警
// 生命周期: created → (read) → (resolved)；未解决的报警参与去重窗口
type Alert struct {
	AlertID        string          `json:"alertId" db:"alert_id"`
	UserID         string          `json:"userId" db:"user_id"`
	DeviceID       *string         `json:"deviceId,omitempty" db:"device_id"`
	Title          string          `json:"title" db:"title"`
	Message        string          `json:"message" db:"message"`
	AlertType      string          `json:"alertType" db:"alert_type"`
	Severity       string          `json:"severity" db:"severity"`
	IsRead         bool            `json:"isRead" db:"is_read"`
	ReadAt         *time.Time      `json:"readAt,omitempty" db:"read_at"`
	IsResolved     bool            `json:"isResolved" db:"is_resolved"`
	ResolvedAt     *time.Time      `json:"resolvedAt,omitempty" db:"resolved_at"`
	ActionTaken    *string         `json:"actionTaken,omitempty" db:"action_taken"`
	AdditionalData json.RawMessage `json:"additionalData,omitempty" db:"additional_data"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// AlertNotification 升级通知投递记录（Email/SMS）
type AlertNotification struct {
	NotificationID string     `json:"notificationId" db:"notification_id"`
	AlertID        string     `json:"alertId" db:"alert_id"`
	Channel        string     `json:"channel" db:"channel"`
	SentAt         time.Time  `json:"sentAt" db:"sent_at"`
	IsDelivered    bool       `json:"isDelivered" db:"is_delivered"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`
	ErrorMessage   *string    `json:"errorMessage,omitempty" db:"error_message"`
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// DevicesRepository 设备仓库接口（定时巡检用）
type DevicesRepository interface {
	// GetDevice 按 ID 查询设备，没有返回 (nil, nil)
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)

	// ListActiveDevices 取所有启用的设备
	ListActiveDevices(ctx context.Context) ([]domain.Device, error)

	// TouchLastSeen 更新设备最近上报时间
	TouchLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error
}

// PostgresDevicesRepository 设备仓库 PostgreSQL 实现
type PostgresDevicesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ DevicesRepository = (*PostgresDevicesRepository)(nil)

// NewPostgresDevicesRepository 创建设备仓库
func NewPostgresDevicesRepository(db *sql.DB, logger *zap.Logger) *PostgresDevicesRepository {
	return &PostgresDevicesRepository{db: db, logger: logger}
}

// GetDevice 按 ID 查询设备
func (r *PostgresDevicesRepository) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `
		SELECT
			device_id,
			name,
			user_id,
			max_power_consumption,
			is_active,
			last_seen_at
		FROM devices
		WHERE device_id = $1
	`

	var device domain.Device
	var lastSeen sql.NullTime

	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.DeviceID,
		&device.Name,
		&device.UserID,
		&device.MaxPowerConsumption,
		&device.IsActive,
		&lastSeen,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	if lastSeen.Valid {
		device.LastSeenAt = &lastSeen.Time
	}

	return &device, nil
}

// ListActiveDevices 取所有启用的设备
func (r *PostgresDevicesRepository) ListActiveDevices(ctx context.Context) ([]domain.Device, error) {
	query := `
		SELECT
			device_id,
			name,
			user_id,
			max_power_consumption,
			is_active,
			last_seen_at
		FROM devices
		WHERE is_active = TRUE
		ORDER BY device_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active devices: %w", err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		var device domain.Device
		var lastSeen sql.NullTime

		err := rows.Scan(
			&device.DeviceID,
			&device.Name,
			&device.UserID,
			&device.MaxPowerConsumption,
			&device.IsActive,
			&lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		if lastSeen.Valid {
			device.LastSeenAt = &lastSeen.Time
		}

		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// TouchLastSeen 更新设备最近上报时间
func (r *PostgresDevicesRepository) TouchLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error {
	if deviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	query := `
		UPDATE devices
		SET last_seen_at = $1
		WHERE device_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, seenAt, deviceID); err != nil {
		return fmt.Errorf("failed to update device last_seen_at: %w", err)
	}

	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// PostgresConsumptionRepository 能耗记录仓库 PostgreSQL 实现
type PostgresConsumptionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ConsumptionRepository = (*PostgresConsumptionRepository)(nil)

// NewPostgresConsumptionRepository 创建能耗记录仓库
func NewPostgresConsumptionRepository(db *sql.DB, logger *zap.Logger) *PostgresConsumptionRepository {
	return &PostgresConsumptionRepository{db: db, logger: logger}
}

// CreateConsumption 写入一条派生能耗记录
func (r *PostgresConsumptionRepository) CreateConsumption(ctx context.Context, record *domain.EnergyConsumption) (int64, error) {
	if record == nil {
		return 0, fmt.Errorf("record is required")
	}

	query := `
		INSERT INTO energy_consumption (
			device_id,
			power_consumption,
			energy_used,
			voltage,
			current,
			power_factor,
			temperature,
			gas_level,
			weather_condition,
			recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		record.DeviceID,
		record.PowerConsumptionW,
		record.EnergyUsedKWh,
		record.Voltage,
		record.Current,
		record.PowerFactor,
		record.Temperature,
		record.GasLevel,
		record.WeatherCondition,
		record.RecordedAt,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create energy consumption record: %w", err)
	}

	return id, nil
}

// GetLatestConsumption 取设备最新一条能耗记录
func (r *PostgresConsumptionRepository) GetLatestConsumption(ctx context.Context, deviceID string) (*domain.EnergyConsumption, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `
		SELECT
			id,
			device_id,
			power_consumption,
			energy_used,
			voltage,
			current,
			power_factor,
			temperature,
			gas_level,
			weather_condition,
			recorded_at
		FROM energy_consumption
		WHERE device_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	record, err := scanConsumption(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

// ListConsumption 按时间区间查询设备能耗历史
func (r *PostgresConsumptionRepository) ListConsumption(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]domain.EnergyConsumption, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT
			id,
			device_id,
			power_consumption,
			energy_used,
			voltage,
			current,
			power_factor,
			temperature,
			gas_level,
			weather_condition,
			recorded_at
		FROM energy_consumption
		WHERE device_id = $1
		  AND recorded_at >= $2
		  AND recorded_at <= $3
		ORDER BY recorded_at ASC
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query energy consumption: %w", err)
	}
	defer rows.Close()

	records := []domain.EnergyConsumption{}
	for rows.Next() {
		record, err := scanConsumption(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate energy consumption: %w", err)
	}

	return records, nil
}

func scanConsumption(row rowScanner) (*domain.EnergyConsumption, error) {
	var record domain.EnergyConsumption
	var deviceID, weather sql.NullString

	err := row.Scan(
		&record.ID,
		&deviceID,
		&record.PowerConsumptionW,
		&record.EnergyUsedKWh,
		&record.Voltage,
		&record.Current,
		&record.PowerFactor,
		&record.Temperature,
		&record.GasLevel,
		&weather,
		&record.RecordedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan energy consumption: %w", err)
	}

	if deviceID.Valid {
		record.DeviceID = &deviceID.String
	}
	if weather.Valid {
		record.WeatherCondition = &weather.String
	}

	return &record, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// PostgresReadingsRepository 传感器读数仓库 PostgreSQL 实现
type PostgresReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ReadingsRepository = (*PostgresReadingsRepository)(nil)

// NewPostgresReadingsRepository 创建读数仓库
func NewPostgresReadingsRepository(db *sql.DB, logger *zap.Logger) *PostgresReadingsRepository {
	return &PostgresReadingsRepository{db: db, logger: logger}
}

// CreateReading 写入一条原始读数
func (r *PostgresReadingsRepository) CreateReading(ctx context.Context, reading *domain.SensorReading) (int64, error) {
	if reading == nil {
		return 0, fmt.Errorf("reading is required")
	}

	rawData := reading.RawData
	if len(rawData) == 0 {
		rawData = json.RawMessage("{}")
	}

	query := `
		INSERT INTO sensor_readings (
			sensor_id,
			sensor_type,
			temperature,
			gas_level,
			energy_usage,
			voltage,
			current,
			power_factor,
			humidity,
			location,
			device_id,
			raw_data,
			timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reading.SensorID,
		reading.SensorType,
		reading.Temperature,
		reading.GasLevel,
		reading.EnergyUsage,
		reading.Voltage,
		reading.Current,
		reading.PowerFactor,
		reading.Humidity,
		reading.Location,
		reading.DeviceID,
		rawData,
		reading.Timestamp,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create sensor reading: %w", err)
	}

	return id, nil
}

// GetRecentReadings 按时间倒序取设备最近 limit 条读数
func (r *PostgresReadingsRepository) GetRecentReadings(ctx context.Context, deviceID string, limit int) ([]domain.SensorReading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id,
			sensor_id,
			sensor_type,
			temperature,
			gas_level,
			energy_usage,
			voltage,
			current,
			power_factor,
			humidity,
			location,
			device_id,
			raw_data,
			timestamp
		FROM sensor_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	readings := []domain.SensorReading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}

// GetLatestReading 取设备最新一条读数
func (r *PostgresReadingsRepository) GetLatestReading(ctx context.Context, deviceID string) (*domain.SensorReading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `
		SELECT
			id,
			sensor_id,
			sensor_type,
			temperature,
			gas_level,
			energy_usage,
			voltage,
			current,
			power_factor,
			humidity,
			location,
			device_id,
			raw_data,
			timestamp
		FROM sensor_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	reading, err := scanReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return reading, nil
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(row rowScanner) (*domain.SensorReading, error) {
	var reading domain.SensorReading
	var humidity sql.NullFloat64
	var deviceID sql.NullString
	var rawData []byte

	err := row.Scan(
		&reading.ID,
		&reading.SensorID,
		&reading.SensorType,
		&reading.Temperature,
		&reading.GasLevel,
		&reading.EnergyUsage,
		&reading.Voltage,
		&reading.Current,
		&reading.PowerFactor,
		&humidity,
		&reading.Location,
		&deviceID,
		&rawData,
		&reading.Timestamp,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
	}

	if humidity.Valid {
		reading.Humidity = &humidity.Float64
	}
	if deviceID.Valid {
		reading.DeviceID = &deviceID.String
	}
	if len(rawData) > 0 {
		reading.RawData = rawData
	} else {
		reading.RawData = json.RawMessage("{}")
	}

	return &reading, nil
}

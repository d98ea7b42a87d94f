package domain

import (
	"encoding/json"
	"time"
)

// SensorReading 传感器原始读数（落库实体）
// EnergyUsage 字段是瞬时功率（W）
type SensorReading struct {
	ID          int64           `json:"id" db:"id"`
	SensorID    string          `json:"sensorId" db:"sensor_id"`
	SensorType  string          `json:"sensorType" db:"sensor_type"`
	Temperature float64         `json:"temperature" db:"temperature"`
	GasLevel    float64         `json:"gasLevel" db:"gas_level"`
	EnergyUsage float64         `json:"energyUsage" db:"energy_usage"`
	Voltage     float64         `json:"voltage" db:"voltage"`
	Current     float64         `json:"current" db:"current"`
	PowerFactor float64         `json:"powerFactor" db:"power_factor"`
	Humidity    *float64        `json:"humidity,omitempty" db:"humidity"`
	Location    string          `json:"location" db:"location"`
	DeviceID    *string         `json:"deviceId,omitempty" db:"device_id"`
	RawData     json.RawMessage `json:"rawData,omitempty" db:"raw_data"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// EnergyConsumption 按读数派生的能耗记录（创建后不可变）
// PowerConsumptionW 瞬时功率（W）原样透传；EnergyUsedKWh = 功率 / 1000
type EnergyConsumption struct {
	ID                int64     `json:"id" db:"id"`
	DeviceID          *string   `json:"deviceId,omitempty" db:"device_id"`
	PowerConsumptionW float64   `json:"powerConsumption" db:"power_consumption"`
	EnergyUsedKWh     float64   `json:"energyUsed" db:"energy_used"`
	Voltage           float64   `json:"voltage" db:"voltage"`
	Current           float64   `json:"current" db:"current"`
	PowerFactor       float64   `json:"powerFactor" db:"power_factor"`
	Temperature       float64   `json:"temperature" db:"temperature"`
	GasLevel          float64   `json:"gasLevel" db:"gas_level"`
	WeatherCondition  *string   `json:"weatherCondition,omitempty" db:"weather_condition"`
	RecordedAt        time.Time `json:"recordedAt" db:"recorded_at"`
}

// CostPerHour 派生成本，不落库
func (e *EnergyConsumption) CostPerHour() float64 {
	return e.EnergyUsedKWh * 0.5
}

// CarbonFootprint 派生碳排放，不落库
func (e *EnergyConsumption) CarbonFootprint() float64 {
	return e.EnergyUsedKWh * 0.4
}

// Device 设备（巡检用的最小投影）
type Device struct {
	DeviceID            string     `json:"deviceId" db:"device_id"`
	Name                string     `json:"name" db:"name"`
	UserID              string     `json:"userId" db:"user_id"`
	MaxPowerConsumption float64    `json:"maxPowerConsumption" db:"max_power_consumption"`
	IsActive            bool       `json:"isActive" db:"is_active"`
	LastSeenAt          *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
}

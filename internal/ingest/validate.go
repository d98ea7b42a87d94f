package ingest

import (
	"fmt"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// 物理量合法区间
const (
	minTemperature = -50.0
	maxTemperature = 1000.0
	maxGasLevel    = 100.0
	maxVoltage     = 500.0
	maxCurrent     = 100.0
	maxPowerFactor = 1.0
)

// ValidationError 入站读数校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateReading 校验入站读数的物理量区间
// 零值视为该量未上报，不参与区间检查
func ValidateReading(reading *domain.SensorReading) error {
	if reading == nil {
		return &ValidationError{Field: "reading", Reason: "is required"}
	}
	if reading.SensorID == "" {
		return &ValidationError{Field: "sensorId", Reason: "is required"}
	}
	if reading.Temperature < minTemperature || reading.Temperature > maxTemperature {
		return &ValidationError{Field: "temperature", Reason: fmt.Sprintf("must be within [%.0f, %.0f]", minTemperature, maxTemperature)}
	}
	if reading.GasLevel < 0 || reading.GasLevel > maxGasLevel {
		return &ValidationError{Field: "gasLevel", Reason: fmt.Sprintf("must be within [0, %.0f]", maxGasLevel)}
	}
	if reading.EnergyUsage < 0 {
		return &ValidationError{Field: "energyUsage", Reason: "must not be negative"}
	}
	if reading.Voltage < 0 || reading.Voltage > maxVoltage {
		return &ValidationError{Field: "voltage", Reason: fmt.Sprintf("must be within [0, %.0f]", maxVoltage)}
	}
	if reading.Current < 0 || reading.Current > maxCurrent {
		return &ValidationError{Field: "current", Reason: fmt.Sprintf("must be within [0, %.0f]", maxCurrent)}
	}
	if reading.PowerFactor < 0 || reading.PowerFactor > maxPowerFactor {
		return &ValidationError{Field: "powerFactor", Reason: "must be within [0, 1]"}
	}
	if reading.Humidity != nil && (*reading.Humidity < 0 || *reading.Humidity > 100) {
		return &ValidationError{Field: "humidity", Reason: "must be within [0, 100]"}
	}
	return nil
}

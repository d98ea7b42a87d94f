package energy

import (
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// Derive 把原始读数换算成能耗记录（纯函数，落库由调用方负责）
// 能耗按瞬时功率持续一小时折算：energyUsed = power / 1000 (kWh)
func Derive(reading *domain.SensorReading) *domain.EnergyConsumption {
	recordedAt := reading.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	return &domain.EnergyConsumption{
		DeviceID:          reading.DeviceID,
		PowerConsumptionW: reading.EnergyUsage,
		EnergyUsedKWh:     reading.EnergyUsage / 1000.0,
		Voltage:           reading.Voltage,
		Current:           reading.Current,
		PowerFactor:       reading.PowerFactor,
		Temperature:       reading.Temperature,
		GasLevel:          reading.GasLevel,
		RecordedAt:        recordedAt,
	}
}

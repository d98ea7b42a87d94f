package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
)

// 本地规则的评分常量，经 domain.SeverityForScore 映射回对应级别
const (
	scoreCritical = 0.9
	scoreHigh     = 0.7
	scoreMedium   = 0.5
)

// 固定阈值
const (
	highConsumptionKWh  = 300.0
	tempWarnThreshold   = 40.0
	tempCritThreshold   = 50.0
	voltageMin          = 200.0
	voltageMax          = 250.0
	voltageCritMin      = 180.0
	voltageCritMax      = 260.0
	powerFactorWarn     = 0.7
	powerFactorCritical = 0.5
)

// EvaluateRules 本地阈值规则，逐条读数独立判断
// seen 里已有的类型不再重复产出（跨策略去重，也覆盖同一批内的重复）
func EvaluateRules(readings []domain.SensorReading, seen map[string]bool) []domain.Anomaly {
	if seen == nil {
		seen = map[string]bool{}
	}

	var anomalies []domain.Anomaly
	for i := range readings {
		r := &readings[i]

		if a := checkHighConsumption(r); a != nil && !seen[a.Type] {
			seen[a.Type] = true
			anomalies = append(anomalies, *a)
		}
		if a := checkTemperature(r); a != nil && !seen[a.Type] {
			seen[a.Type] = true
			anomalies = append(anomalies, *a)
		}
		if a := checkVoltage(r); a != nil && !seen[a.Type] {
			seen[a.Type] = true
			anomalies = append(anomalies, *a)
		}
		if a := checkPowerFactor(r); a != nil && !seen[a.Type] {
			seen[a.Type] = true
			anomalies = append(anomalies, *a)
		}
	}

	return anomalies
}

func checkHighConsumption(r *domain.SensorReading) *domain.Anomaly {
	energyKWh := r.EnergyUsage / 1000.0
	if energyKWh <= highConsumptionKWh {
		return nil
	}
	return &domain.Anomaly{
		DetectedAt:     time.Now(),
		Type:           domain.AnomalyHighConsumption,
		Severity:       scoreHigh,
		Description:    fmt.Sprintf("Energy usage %.2f kWh exceeds the %.0f kWh threshold", energyKWh, highConsumptionKWh),
		NormalValue:    highConsumptionKWh,
		ActualValue:    energyKWh,
		Recommendation: "Check the device for continuous heavy load or metering faults",
	}
}

func checkTemperature(r *domain.SensorReading) *domain.Anomaly {
	// 温度为 0 视为传感器缺数，不触发
	if r.Temperature == 0 || r.Temperature <= tempWarnThreshold {
		return nil
	}
	score := scoreHigh
	if r.Temperature > tempCritThreshold {
		score = scoreCritical
	}
	return &domain.Anomaly{
		DetectedAt:     time.Now(),
		Type:           domain.AnomalyTemperature,
		Severity:       score,
		Description:    fmt.Sprintf("Temperature %.1fC exceeds the %.0fC threshold", r.Temperature, tempWarnThreshold),
		NormalValue:    tempWarnThreshold,
		ActualValue:    r.Temperature,
		Recommendation: "Inspect cooling and ventilation around the device",
	}
}

func checkVoltage(r *domain.SensorReading) *domain.Anomaly {
	// 电压为 0 视为无效读数，不触发
	if r.Voltage == 0 {
		return nil
	}
	if r.Voltage >= voltageMin && r.Voltage <= voltageMax {
		return nil
	}
	score := scoreMedium
	if r.Voltage < voltageCritMin || r.Voltage > voltageCritMax {
		score = scoreCritical
	}
	return &domain.Anomaly{
		DetectedAt:     time.Now(),
		Type:           domain.AnomalyVoltage,
		Severity:       score,
		Description:    fmt.Sprintf("Voltage %.1fV is outside the [%.0f, %.0f]V range", r.Voltage, voltageMin, voltageMax),
		NormalValue:    (voltageMin + voltageMax) / 2,
		ActualValue:    r.Voltage,
		Recommendation: "Check the supply line and voltage regulator",
	}
}

func checkPowerFactor(r *domain.SensorReading) *domain.Anomaly {
	// 功率因数为 0 视为无效读数，不触发
	if r.PowerFactor == 0 || r.PowerFactor >= powerFactorWarn {
		return nil
	}
	score := scoreMedium
	if r.PowerFactor < powerFactorCritical {
		score = scoreHigh
	}
	return &domain.Anomaly{
		DetectedAt:     time.Now(),
		Type:           domain.AnomalyLowPowerFactor,
		Severity:       score,
		Description:    fmt.Sprintf("Power factor %.2f is below the %.1f threshold", r.PowerFactor, powerFactorWarn),
		NormalValue:    powerFactorWarn,
		ActualValue:    r.PowerFactor,
		Recommendation: "Consider power factor correction equipment",
	}
}

// StatisticalScan 统计规则：功率偏离窗口均值超过 2 个标准差即告警
// 评分 = min(1.0, |偏差| / (均值 × 0.5))
func StatisticalScan(readings []domain.SensorReading, seen map[string]bool) []domain.Anomaly {
	if len(readings) < 2 {
		return nil
	}
	if seen == nil {
		seen = map[string]bool{}
	}

	var sum float64
	for i := range readings {
		sum += readings[i].EnergyUsage
	}
	mean := sum / float64(len(readings))

	var sqSum float64
	for i := range readings {
		diff := readings[i].EnergyUsage - mean
		sqSum += diff * diff
	}
	// 样本标准差（n-1）
	stdDev := math.Sqrt(sqSum / float64(len(readings)-1))

	if stdDev == 0 || mean == 0 {
		return nil
	}

	var anomalies []domain.Anomaly
	for i := range readings {
		r := &readings[i]
		deviation := math.Abs(r.EnergyUsage - mean)
		if deviation <= 2*stdDev {
			continue
		}
		if seen[domain.AnomalyHighConsumption] {
			continue
		}
		seen[domain.AnomalyHighConsumption] = true

		anomalies = append(anomalies, domain.Anomaly{
			DetectedAt:     r.Timestamp,
			Type:           domain.AnomalyHighConsumption,
			Severity:       math.Min(1.0, deviation/(mean*0.5)),
			Description:    fmt.Sprintf("Power consumption %.2fW deviates more than 2 standard deviations from the window mean %.2fW", r.EnergyUsage, mean),
			NormalValue:    mean,
			ActualValue:    r.EnergyUsage,
			Recommendation: "Review recent device activity for unusual load patterns",
		})
	}

	return anomalies
}

package domain

import "time"

// 异常类型（固定分类）
const (
	AnomalyHighConsumption = "HighConsumption"
	AnomalyTemperature     = "TemperatureAnomaly"
	AnomalyVoltage         = "VoltageAnomaly"
	AnomalyLowPowerFactor  = "LowPowerFactor"
	AnomalyDeviceOffline   = "DeviceOffline"
	AnomalyGeneral         = "GeneralAnomaly"
)

// 报警级别
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Anomaly 单次检测产出的异常（瞬态，不落库）
type Anomaly struct {
	DetectedAt time.Time `json:"detectedAt"`
	Type       string    `json:"anomalyType"`
	// Severity 评分 [0,1]，经 SeverityForScore 映射为级别
	Severity       float64 `json:"severity"`
	Description    string  `json:"description"`
	NormalValue    float64 `json:"normalValue"`
	ActualValue    float64 `json:"actualValue"`
	Recommendation string  `json:"recommendation"`
}

// SeverityForScore 评分到级别的映射
func SeverityForScore(score float64) string {
	switch {
	case score > 0.8:
		return SeverityCritical
	case score > 0.6:
		return SeverityHigh
	case score > 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

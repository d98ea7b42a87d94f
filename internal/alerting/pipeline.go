package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// Pipeline 把检测产出的异常经去重后变成报警
type Pipeline struct {
	suppressor *Suppressor
	factory    *Factory
	logger     *zap.Logger
}

// NewPipeline 创建处理管道
func NewPipeline(suppressor *Suppressor, factory *Factory, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		suppressor: suppressor,
		factory:    factory,
		logger:     logger,
	}
}

// ProcessAnomalies 逐条处理异常：去重检查通过的创建报警
// 单条失败记日志继续，不中断其余异常；返回实际创建的报警数
func (p *Pipeline) ProcessAnomalies(ctx context.Context, userID string, deviceID *string, anomalies []domain.Anomaly, window time.Duration) int {
	created := 0
	for _, anomaly := range anomalies {
		ok, err := p.suppressor.ShouldCreate(ctx, deviceID, anomaly.Type, window)
		if err != nil {
			p.logger.Error("Duplicate check failed",
				zap.String("anomaly_type", anomaly.Type),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		req := buildAlertRequest(userID, deviceID, &anomaly)
		if _, err := p.factory.CreateAlert(ctx, req); err != nil {
			p.logger.Error("Failed to create alert from anomaly",
				zap.String("anomaly_type", anomaly.Type),
				zap.Error(err),
			)
			continue
		}
		created++
	}
	return created
}

func buildAlertRequest(userID string, deviceID *string, anomaly *domain.Anomaly) CreateAlertRequest {
	severity := domain.SeverityForScore(anomaly.Severity)

	message := anomaly.Description
	if message == "" {
		message = fmt.Sprintf("Anomaly detected: %s", anomaly.Type)
	}

	additionalData, err := json.Marshal(map[string]interface{}{
		"severityScore":  anomaly.Severity,
		"normalValue":    anomaly.NormalValue,
		"actualValue":    anomaly.ActualValue,
		"recommendation": anomaly.Recommendation,
		"detectedAt":     anomaly.DetectedAt.Format(time.RFC3339),
	})
	if err != nil {
		additionalData = json.RawMessage("{}")
	}

	return CreateAlertRequest{
		UserID:         userID,
		Title:          alertTitle(anomaly.Type),
		Message:        message,
		AlertType:      anomaly.Type,
		Severity:       severity,
		DeviceID:       deviceID,
		AdditionalData: additionalData,
	}
}

func alertTitle(anomalyType string) string {
	switch anomalyType {
	case domain.AnomalyHighConsumption:
		return "High Energy Consumption"
	case domain.AnomalyTemperature:
		return "Temperature Anomaly"
	case domain.AnomalyVoltage:
		return "Voltage Anomaly"
	case domain.AnomalyLowPowerFactor:
		return "Low Power Factor"
	case domain.AnomalyDeviceOffline:
		return "Device Offline"
	default:
		return "Anomaly Detected"
	}
}

package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteScorer 远程异常评分客户端
// 调用受超时约束，超时或出错都交给本地规则兜底，不向上传播
type RemoteScorer struct {
	client *resty.Client
	logger *zap.Logger
}

// NewRemoteScorer 创建远程评分客户端
func NewRemoteScorer(cfg *config.DetectorConfig, logger *zap.Logger) *RemoteScorer {
	client := resty.New().
		SetBaseURL(cfg.ScorerURL).
		SetTimeout(cfg.ScorerTimeout).
		SetHeader("Content-Type", "application/json")

	return &RemoteScorer{
		client: client,
		logger: logger,
	}
}

// scoreRequest 评分请求体
type scoreRequest struct {
	DeviceID string       `json:"DeviceId"`
	Data     []scorePoint `json:"Data"`
}

type scorePoint struct {
	Date              time.Time `json:"Date"`
	EnergyConsumption float64   `json:"EnergyConsumption"`
	PowerConsumption  float64   `json:"PowerConsumption"`
	Temperature       float64   `json:"Temperature"`
	Voltage           float64   `json:"Voltage"`
	Current           float64   `json:"Current"`
	PowerFactor       float64   `json:"PowerFactor"`
}

// Score 把最近读数送远程评分，返回解析后的异常列表
func (s *RemoteScorer) Score(ctx context.Context, deviceID string, readings []domain.SensorReading) ([]domain.Anomaly, error) {
	req := scoreRequest{
		DeviceID: deviceID,
		Data:     make([]scorePoint, 0, len(readings)),
	}
	for _, r := range readings {
		req.Data = append(req.Data, scorePoint{
			Date:              r.Timestamp,
			EnergyConsumption: r.EnergyUsage / 1000.0,
			PowerConsumption:  r.EnergyUsage,
			Temperature:       r.Temperature,
			Voltage:           r.Voltage,
			Current:           r.Current,
			PowerFactor:       r.PowerFactor,
		})
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/detect-anomalies")

	if err != nil {
		return nil, fmt.Errorf("scorer request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode())
	}

	anomalies, err := parseScorerResponse(resp.Body())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Remote scorer returned",
		zap.String("device_id", deviceID),
		zap.Int("anomaly_count", len(anomalies)),
	)

	return anomalies, nil
}

// ParseAnomalyPayload 解析外部送入的异常数组
// 评分响应和结果回推 webhook 用同一个格式
func ParseAnomalyPayload(body []byte) ([]domain.Anomaly, error) {
	return parseScorerResponse(body)
}

// parseScorerResponse 解析评分响应，字段命名按两种风格兼容
func parseScorerResponse(body []byte) ([]domain.Anomaly, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse scorer response: %w", err)
	}

	anomalies := make([]domain.Anomaly, 0, len(items))
	for _, item := range items {
		anomalyType := stringField(item, "AnomalyType")
		if anomalyType == "" {
			anomalyType = domain.AnomalyGeneral
		}

		severity, ok := floatField(item, "Severity")
		if !ok {
			severity = 0.5
		}
		if severity < 0 {
			severity = -severity
		}
		if severity > 1 {
			severity = 1
		}

		normal, _ := floatField(item, "NormalValue")
		actual, _ := floatField(item, "ActualValue")

		anomalies = append(anomalies, domain.Anomaly{
			DetectedAt:     time.Now(),
			Type:           anomalyType,
			Severity:       severity,
			Description:    stringField(item, "Description"),
			NormalValue:    normal,
			ActualValue:    actual,
			Recommendation: stringField(item, "Recommendation"),
		})
	}

	return anomalies, nil
}

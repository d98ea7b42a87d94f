package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/platform/mqtt"

	"go.uber.org/zap"
)

// Ingestor 遥测接入接口（由 ingest.Service 实现）
type Ingestor interface {
	IngestReading(ctx context.Context, reading *domain.SensorReading) (int64, error)
}

// Bridge MQTT 遥测桥接：订阅传感器主题，把消息送进接入管道
// 主题形如 sensors/{deviceId}/telemetry
type Bridge struct {
	client *mqtt.Client
	cfg    config.MQTTConfig
	ingest Ingestor
	logger *zap.Logger
}

// NewBridge 创建桥接
func NewBridge(client *mqtt.Client, cfg config.MQTTConfig, ingest Ingestor, logger *zap.Logger) *Bridge {
	return &Bridge{
		client: client,
		cfg:    cfg,
		ingest: ingest,
		logger: logger,
	}
}

// Start 订阅遥测主题
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.cfg.Topic, byte(b.cfg.QoS), b.handleMessage); err != nil {
		return fmt.Errorf("failed to start telemetry bridge: %w", err)
	}
	b.logger.Info("MQTT telemetry bridge started",
		zap.String("topic", b.cfg.Topic),
		zap.Int("qos", b.cfg.QoS),
	)
	return nil
}

// Stop 退订并断开
func (b *Bridge) Stop() {
	if err := b.client.Unsubscribe(b.cfg.Topic); err != nil {
		b.logger.Warn("Failed to unsubscribe telemetry topic", zap.Error(err))
	}
	b.client.Disconnect()
}

// handleMessage 单条消息：解析 → 补全设备标识 → 接入
// 接入用独立 context，MQTT 回调没有请求生命周期
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	var reading domain.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("failed to parse telemetry payload: %w", err)
	}

	topicDevice := deviceIDFromTopic(topic)
	if reading.DeviceID == nil && topicDevice != "" {
		reading.DeviceID = &topicDevice
	}
	if reading.SensorID == "" {
		reading.SensorID = topicDevice
	}
	if len(reading.RawData) == 0 {
		reading.RawData = json.RawMessage(payload)
	}

	id, err := b.ingest.IngestReading(context.Background(), &reading)
	if err != nil {
		return fmt.Errorf("failed to ingest telemetry from %s: %w", topic, err)
	}

	b.logger.Debug("Telemetry bridged",
		zap.String("topic", topic),
		zap.Int64("id", id),
	)
	return nil
}

// deviceIDFromTopic 从 sensors/{deviceId}/telemetry 取设备段
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

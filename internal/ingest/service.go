package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/bus"
	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/energy"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

// Broadcaster 实时推送接口（由 realtime.Hub 实现）
type Broadcaster interface {
	NotifySensorData(reading *domain.SensorReading)
	NotifyEnergyConsumption(record *domain.EnergyConsumption)
}

// AnomalyDetector 检测接口（由 detector.Detector 实现）
type AnomalyDetector interface {
	Detect(ctx context.Context, deviceID string, readings []domain.SensorReading) []domain.Anomaly
}

// AlertSink 异常消费接口（由 alerting.Pipeline 实现）
type AlertSink interface {
	ProcessAnomalies(ctx context.Context, userID string, deviceID *string, anomalies []domain.Anomaly, window time.Duration) int
}

// LatestStore 最新读数缓存接口（由 cache.LatestCache 实现）
type LatestStore interface {
	SetLatest(ctx context.Context, deviceID string, reading *domain.SensorReading) error
}

// Service 遥测接入编排：校验 → 落库 → 缓存/推送/总线 → 后台检测
type Service struct {
	detectorCfg config.DetectorConfig
	alertCfg    config.AlertConfig

	readings    repository.ReadingsRepository
	consumption repository.ConsumptionRepository
	devices     repository.DevicesRepository

	latest     LatestStore
	hub        Broadcaster
	publisher  bus.Publisher
	detector   AnomalyDetector
	alerts     AlertSink
	fan        *FanService
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewService 创建接入服务；latest/hub/publisher/fan 可为 nil（对应环节跳过）
func NewService(
	detectorCfg config.DetectorConfig,
	alertCfg config.AlertConfig,
	readings repository.ReadingsRepository,
	consumption repository.ConsumptionRepository,
	devices repository.DevicesRepository,
	latest LatestStore,
	hub Broadcaster,
	publisher bus.Publisher,
	detector AnomalyDetector,
	alerts AlertSink,
	fan *FanService,
	logger *zap.Logger,
) *Service {
	return &Service{
		detectorCfg: detectorCfg,
		alertCfg:    alertCfg,
		readings:    readings,
		consumption: consumption,
		devices:     devices,
		latest:      latest,
		hub:         hub,
		publisher:   publisher,
		detector:    detector,
		alerts:      alerts,
		fan:         fan,
		logger:      logger,
	}
}

// IngestReading 处理一条入站读数，返回落库生成的 ID
// 读数和派生能耗的落库失败都直接返回错误；缓存、推送、总线、检测是尽力而为
func (s *Service) IngestReading(ctx context.Context, reading *domain.SensorReading) (int64, error) {
	if err := ValidateReading(reading); err != nil {
		return 0, err
	}

	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	id, err := s.readings.CreateReading(ctx, reading)
	if err != nil {
		return 0, fmt.Errorf("failed to store reading: %w", err)
	}
	reading.ID = id

	s.logger.Debug("Reading stored",
		zap.Int64("id", id),
		zap.String("sensor_id", reading.SensorID),
	)

	if s.fan != nil && reading.Temperature != 0 {
		s.fan.ApplyTemperature(reading.Temperature)
	}

	if s.latest != nil && reading.DeviceID != nil {
		if err := s.latest.SetLatest(ctx, *reading.DeviceID, reading); err != nil {
			s.logger.Warn("Failed to cache latest reading",
				zap.String("device_id", *reading.DeviceID),
				zap.Error(err),
			)
		}
	}

	if s.hub != nil {
		s.hub.NotifySensorData(reading)
	}

	if reading.DeviceID != nil {
		if err := s.processDeviceReading(ctx, reading); err != nil {
			return 0, err
		}
	} else {
		s.scheduleDevicelessDetection(reading)
	}

	return id, nil
}

// processDeviceReading 设备读数的派生与扇出
// 派生记录是同步路径的落库，失败向上返回
func (s *Service) processDeviceReading(ctx context.Context, reading *domain.SensorReading) error {
	deviceID := *reading.DeviceID

	record := energy.Derive(reading)
	recordID, err := s.consumption.CreateConsumption(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to store energy consumption: %w", err)
	}
	record.ID = recordID
	if s.hub != nil {
		s.hub.NotifyEnergyConsumption(record)
	}

	if s.publisher != nil {
		s.publisher.Publish("sensor-data", reading)
	}

	if err := s.devices.TouchLastSeen(ctx, deviceID, reading.Timestamp); err != nil {
		s.logger.Warn("Failed to update device last_seen_at",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	// 检测在后台跑，不阻塞接入响应；用独立 context 避免请求取消中断检测
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.detectForDevice(context.Background(), deviceID)
	}()

	return nil
}

// scheduleDevicelessDetection 无设备读数只对当前这一条跑本地规则
func (s *Service) scheduleDevicelessDetection(reading *domain.SensorReading) {
	snapshot := *reading

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		anomalies := s.detector.Detect(ctx, snapshot.SensorID, []domain.SensorReading{snapshot})
		if len(anomalies) == 0 {
			return
		}

		s.alerts.ProcessAnomalies(ctx, s.alertCfg.DefaultUserID, nil, anomalies, s.alertCfg.DevicelessWindow)
	}()
}

// detectForDevice 取设备最近历史跑一轮检测，产出交给报警管道
func (s *Service) detectForDevice(ctx context.Context, deviceID string) {
	history, err := s.readings.GetRecentReadings(ctx, deviceID, s.detectorCfg.HistoryWindow)
	if err != nil {
		s.logger.Error("Failed to load reading history for detection",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}
	if len(history) == 0 {
		return
	}

	anomalies := s.detector.Detect(ctx, deviceID, history)
	if len(anomalies) == 0 {
		return
	}

	userID := s.alertCfg.DefaultUserID
	device, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		s.logger.Warn("Failed to resolve device owner",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	} else if device != nil {
		userID = device.UserID
	}

	created := s.alerts.ProcessAnomalies(ctx, userID, &deviceID, anomalies, s.alertCfg.DeviceWindow)
	if created > 0 {
		s.logger.Info("Detection produced alerts",
			zap.String("device_id", deviceID),
			zap.Int("anomaly_count", len(anomalies)),
			zap.Int("alert_count", created),
		)
	}
}

// Wait 等待所有后台检测收尾（优雅退出用）
func (s *Service) Wait() {
	s.wg.Wait()
}

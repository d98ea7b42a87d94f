package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

// 巡检阈值（比实时规则宽松，只兜长期状况）
const (
	sweepLoadRatio     = 0.9
	sweepTempThreshold = 60.0
	sweepPFThreshold   = 0.8
	sweepVoltageMin    = 200.0
	sweepVoltageMax    = 250.0
	offlineThreshold   = 24 * time.Hour
)

// Sweeper 定时巡检：周期性扫描所有设备，补充实时路径覆盖不到的检查
type Sweeper struct {
	cfg        config.AlertConfig
	devices    repository.DevicesRepository
	readings   repository.ReadingsRepository
	suppressor *Suppressor
	factory    *Factory
	logger     *zap.Logger
}

// NewSweeper 创建巡检器
func NewSweeper(
	cfg config.AlertConfig,
	devices repository.DevicesRepository,
	readings repository.ReadingsRepository,
	suppressor *Suppressor,
	factory *Factory,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		cfg:        cfg,
		devices:    devices,
		readings:   readings,
		suppressor: suppressor,
		factory:    factory,
		logger:     logger,
	}
}

// Start 启动巡检循环（阻塞直到 ctx 取消）
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("Alert sweeper started",
		zap.Duration("interval", s.cfg.SweepInterval),
	)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	// 启动时先跑一轮
	if err := s.sweepOnce(ctx); err != nil {
		s.logger.Error("Sweep failed on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Alert sweeper stopped")
			return nil
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logger.Error("Sweep failed", zap.Error(err))
				// 继续下一轮，不中断
			}
		}
	}
}

// sweepOnce 扫描一轮所有启用设备
func (s *Sweeper) sweepOnce(ctx context.Context) error {
	devices, err := s.devices.ListActiveDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active devices: %w", err)
	}

	s.logger.Debug("Sweeping devices", zap.Int("device_count", len(devices)))

	for i := range devices {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.checkDevice(ctx, &devices[i]); err != nil {
			s.logger.Error("Device sweep check failed",
				zap.String("device_id", devices[i].DeviceID),
				zap.Error(err),
			)
			// 继续处理下一台设备
		}
	}

	return nil
}

// checkDevice 对单台设备跑巡检规则
func (s *Sweeper) checkDevice(ctx context.Context, device *domain.Device) error {
	latest, err := s.readings.GetLatestReading(ctx, device.DeviceID)
	if err != nil {
		return err
	}

	// 离线检查：完全无读数或最近读数过旧
	if latest == nil || time.Since(latest.Timestamp) > offlineThreshold {
		s.raise(ctx, device, domain.AnomalyDeviceOffline, domain.SeverityMedium,
			"Device Offline",
			fmt.Sprintf("Device %s has not reported data for more than 24 hours", device.Name),
			nil,
		)
		return nil
	}

	// 负载检查：最新功率超过额定功率的 90%
	if device.MaxPowerConsumption > 0 && latest.EnergyUsage > device.MaxPowerConsumption*sweepLoadRatio {
		s.raise(ctx, device, domain.AnomalyHighConsumption, domain.SeverityHigh,
			"High Energy Consumption",
			fmt.Sprintf("Current consumption %.2fW is above %.0f%% of the rated maximum %.2fW",
				latest.EnergyUsage, sweepLoadRatio*100, device.MaxPowerConsumption),
			map[string]interface{}{"powerValue": latest.EnergyUsage, "maxPower": device.MaxPowerConsumption},
		)
	}

	if latest.Temperature > sweepTempThreshold {
		s.raise(ctx, device, domain.AnomalyTemperature, domain.SeverityHigh,
			"Temperature Anomaly",
			fmt.Sprintf("Temperature %.1fC exceeds the %.0fC sweep threshold", latest.Temperature, sweepTempThreshold),
			map[string]interface{}{"temperature": latest.Temperature},
		)
	}

	if latest.Voltage != 0 && (latest.Voltage < sweepVoltageMin || latest.Voltage > sweepVoltageMax) {
		s.raise(ctx, device, domain.AnomalyVoltage, domain.SeverityHigh,
			"Voltage Anomaly",
			fmt.Sprintf("Voltage %.1fV is outside the [%.0f, %.0f]V range", latest.Voltage, sweepVoltageMin, sweepVoltageMax),
			map[string]interface{}{"voltage": latest.Voltage},
		)
	}

	if latest.PowerFactor != 0 && latest.PowerFactor < sweepPFThreshold {
		s.raise(ctx, device, domain.AnomalyLowPowerFactor, domain.SeverityMedium,
			"Low Power Factor",
			fmt.Sprintf("Power factor %.2f is below the %.1f sweep threshold", latest.PowerFactor, sweepPFThreshold),
			map[string]interface{}{"powerFactor": latest.PowerFactor},
		)
	}

	return nil
}

// raise 巡检窗口去重后创建报警；失败只记日志
func (s *Sweeper) raise(ctx context.Context, device *domain.Device, alertType, severity, title, message string, extra map[string]interface{}) {
	deviceID := device.DeviceID

	ok, err := s.suppressor.ShouldCreate(ctx, &deviceID, alertType, s.cfg.SweepWindow)
	if err != nil {
		s.logger.Error("Sweep duplicate check failed",
			zap.String("device_id", deviceID),
			zap.String("alert_type", alertType),
			zap.Error(err),
		)
		return
	}
	if !ok {
		return
	}

	additionalData := json.RawMessage("{}")
	if extra != nil {
		if data, err := json.Marshal(extra); err == nil {
			additionalData = data
		}
	}

	_, err = s.factory.CreateAlert(ctx, CreateAlertRequest{
		UserID:         device.UserID,
		Title:          title,
		Message:        message,
		AlertType:      alertType,
		Severity:       severity,
		DeviceID:       &deviceID,
		AdditionalData: additionalData,
	})
	if err != nil {
		s.logger.Error("Failed to create sweep alert",
			zap.String("device_id", deviceID),
			zap.String("alert_type", alertType),
			zap.Error(err),
		)
	}
}

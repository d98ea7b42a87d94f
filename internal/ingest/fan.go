package ingest

import (
	"sync"

	"github.com/kaganay/AygazSmartEnergy/internal/config"

	"go.uber.org/zap"
)

// FanService 风扇联动：手动开关 + 按温度阈值自动控制
// 开关状态只在内存里，进程重启后回到关闭
type FanService struct {
	mu     sync.Mutex
	on     bool
	cfg    config.FanConfig
	logger *zap.Logger
}

// NewFanService 创建风扇控制
func NewFanService(cfg config.FanConfig, logger *zap.Logger) *FanService {
	return &FanService{
		cfg:    cfg,
		logger: logger,
	}
}

// State 当前开关状态
func (f *FanService) State() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// SetState 手动设置开关
func (f *FanService) SetState(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.on != on {
		f.on = on
		f.logger.Info("Fan state changed", zap.Bool("on", on), zap.String("source", "manual"))
	}
}

// ApplyTemperature 按温度阈值自动开关（迟滞区间内保持现状）
func (f *FanService) ApplyTemperature(temperature float64) {
	if !f.cfg.AutoEnabled {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case !f.on && temperature >= f.cfg.OnThresholdTemp:
		f.on = true
		f.logger.Info("Fan state changed",
			zap.Bool("on", true),
			zap.String("source", "auto"),
			zap.Float64("temperature", temperature),
		)
	case f.on && temperature <= f.cfg.OffThresholdTemp:
		f.on = false
		f.logger.Info("Fan state changed",
			zap.Bool("on", false),
			zap.String("source", "auto"),
			zap.Float64("temperature", temperature),
		)
	}
}

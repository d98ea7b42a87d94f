package detector

import (
	"context"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// Scorer 远程评分策略接口
type Scorer interface {
	Score(ctx context.Context, deviceID string, readings []domain.SensorReading) ([]domain.Anomaly, error)
}

// Detector 异常检测器：远程评分优先，失败降级到本地规则
// 远程已报过的类型本地不再重复产出
type Detector struct {
	scorer    Scorer
	minPoints int
	logger    *zap.Logger
}

// NewDetector 创建检测器；scorer 传 nil 表示只用本地规则
func NewDetector(scorer Scorer, cfg *config.DetectorConfig, logger *zap.Logger) *Detector {
	minPoints := cfg.MinHistoryPoints
	if minPoints <= 0 {
		minPoints = 10
	}
	return &Detector{
		scorer:    scorer,
		minPoints: minPoints,
		logger:    logger,
	}
}

// Detect 对设备最近读数做一轮检测
// readings 按时间倒序（最新在前）；返回本轮产出的异常列表
func (d *Detector) Detect(ctx context.Context, deviceID string, readings []domain.SensorReading) []domain.Anomaly {
	if len(readings) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var anomalies []domain.Anomaly

	if d.scorer != nil && len(readings) >= d.minPoints {
		remote, err := d.scorer.Score(ctx, deviceID, readings)
		if err != nil {
			// 远程失败只记日志，走本地规则兜底
			d.logger.Warn("Remote scorer unavailable, falling back to local rules",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		} else {
			for _, a := range remote {
				seen[a.Type] = true
			}
			anomalies = append(anomalies, remote...)
		}
	}

	anomalies = append(anomalies, EvaluateRules(readings, seen)...)

	// 统计规则只在历史够长时有意义，门槛与远程评分一致
	if len(readings) >= d.minPoints {
		anomalies = append(anomalies, StatisticalScan(readings, seen)...)
	}

	return anomalies
}

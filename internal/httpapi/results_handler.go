package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/detector"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

// AnomalySink 异常消费接口（由 alerting.Pipeline 实现）
type AnomalySink interface {
	ProcessAnomalies(ctx context.Context, userID string, deviceID *string, anomalies []domain.Anomaly, window time.Duration) int
}

// ResultsHandler 评分服务的结果回推 webhook
// 评分既可以同步（接入时调用）也可以异步把结果推回来
type ResultsHandler struct {
	sink     AnomalySink
	devices  repository.DevicesRepository
	alertCfg config.AlertConfig
	logger   *zap.Logger
}

// NewResultsHandler 创建结果回推处理器
func NewResultsHandler(sink AnomalySink, devices repository.DevicesRepository, alertCfg config.AlertConfig, logger *zap.Logger) *ResultsHandler {
	return &ResultsHandler{
		sink:     sink,
		devices:  devices,
		alertCfg: alertCfg,
		logger:   logger,
	}
}

// Receive POST /api/v1/anomaly-results?device_id=
func (h *ResultsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read request body"))
		return
	}

	anomalies, err := detector.ParseAnomalyPayload(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid anomaly payload"))
		return
	}

	userID := h.alertCfg.DefaultUserID
	window := h.alertCfg.DevicelessWindow
	var deviceID *string

	if v := r.URL.Query().Get("device_id"); v != "" {
		deviceID = &v
		window = h.alertCfg.DeviceWindow

		device, err := h.devices.GetDevice(r.Context(), v)
		if err != nil {
			h.logger.Warn("Failed to resolve device owner for pushed results",
				zap.String("device_id", v),
				zap.Error(err),
			)
		} else if device != nil {
			userID = device.UserID
		}
	}

	created := h.sink.ProcessAnomalies(r.Context(), userID, deviceID, anomalies, window)

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"received": len(anomalies),
		"created":  created,
	}))
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/ingest"

	"go.uber.org/zap"
)

// IngestService 遥测接入接口（由 ingest.Service 实现）
type IngestService interface {
	IngestReading(ctx context.Context, reading *domain.SensorReading) (int64, error)
}

// LatestGetter 最新读数缓存读取接口（由 cache.LatestCache 实现）
type LatestGetter interface {
	GetLatest(ctx context.Context, deviceID string) (*domain.SensorReading, error)
}

// SensorHandler 遥测接入与最新读数查询
type SensorHandler struct {
	ingest IngestService
	latest LatestGetter
	logger *zap.Logger
}

// NewSensorHandler 创建遥测处理器；latest 可为 nil（未启用缓存）
func NewSensorHandler(ingestSvc IngestService, latest LatestGetter, logger *zap.Logger) *SensorHandler {
	return &SensorHandler{
		ingest: ingestSvc,
		latest: latest,
		logger: logger,
	}
}

// Create POST /api/v1/sensor-data
func (h *SensorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var reading domain.SensorReading
	if err := readBodyJSON(r, &reading); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	id, err := h.ingest.IngestReading(r.Context(), &reading)
	if err != nil {
		var validationErr *ingest.ValidationError
		if errors.As(err, &validationErr) {
			writeJSON(w, http.StatusBadRequest, Fail(validationErr.Error()))
			return
		}
		h.logger.Error("Failed to ingest reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to store reading"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success":   true,
		"id":        id,
		"timestamp": time.Now(),
	}))
}

// Latest GET /api/v1/sensor-data/latest/{deviceId}
func (h *SensorHandler) Latest(w http.ResponseWriter, r *http.Request, deviceID string) {
	if h.latest == nil {
		writeJSON(w, http.StatusNotFound, Fail("latest data cache is not enabled"))
		return
	}

	reading, err := h.latest.GetLatest(r.Context(), deviceID)
	if err != nil {
		h.logger.Error("Failed to read latest cache",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to read latest data"))
		return
	}
	if reading == nil {
		writeJSON(w, http.StatusNotFound, Fail("no recent data for device"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(reading))
}

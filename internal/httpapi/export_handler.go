package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/report"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

const exportDefaultRange = 30 * 24 * time.Hour

// ExportHandler 能耗历史 xlsx 导出
type ExportHandler struct {
	consumption repository.ConsumptionRepository
	logger      *zap.Logger
}

// NewExportHandler 创建导出处理器
func NewExportHandler(consumption repository.ConsumptionRepository, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		consumption: consumption,
		logger:      logger,
	}
}

// Consumption GET /api/v1/export/consumption?device_id=&from=&to=
// from/to 是 RFC3339，缺省导出最近 30 天
func (h *ExportHandler) Consumption(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	deviceID := query.Get("device_id")
	if deviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}

	to := time.Now()
	from := to.Add(-exportDefaultRange)
	if v := query.Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("from must be RFC3339"))
			return
		}
		from = parsed
	}
	if v := query.Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("to must be RFC3339"))
			return
		}
		to = parsed
	}

	records, err := h.consumption.ListConsumption(r.Context(), deviceID, from, to, 0)
	if err != nil {
		h.logger.Error("Failed to load consumption history for export",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load consumption history"))
		return
	}

	workbook, err := report.BuildConsumptionWorkbook(records)
	if err != nil {
		h.logger.Error("Failed to build export workbook", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to build export"))
		return
	}

	filename := fmt.Sprintf("consumption-%s-%s.xlsx", deviceID, to.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := workbook.Write(w); err != nil {
		h.logger.Error("Failed to stream export workbook", zap.Error(err))
	}
}

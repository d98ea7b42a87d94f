package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"go.uber.org/zap"
)

// AlertLifecycle 报警状态流转接口（由 alerting.Factory 实现）
type AlertLifecycle interface {
	MarkRead(ctx context.Context, alertID string) (*domain.Alert, error)
	Resolve(ctx context.Context, alertID string, actionTaken string) (*domain.Alert, error)
}

// AlertsHandler 报警查询与生命周期操作
type AlertsHandler struct {
	alerts    repository.AlertsRepository
	lifecycle AlertLifecycle
	logger    *zap.Logger
}

// NewAlertsHandler 创建报警处理器
func NewAlertsHandler(alerts repository.AlertsRepository, lifecycle AlertLifecycle, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		alerts:    alerts,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// List GET /api/v1/alerts
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := repository.AlertFilters{}
	if v := query.Get("user_id"); v != "" {
		filters.UserID = &v
	}
	if v := query.Get("device_id"); v != "" {
		filters.DeviceID = &v
	}
	if v := query.Get("alert_type"); v != "" {
		filters.AlertType = &v
	}
	if v := query.Get("severity"); v != "" {
		filters.Severity = &v
	}
	if v := query.Get("is_read"); v != "" {
		isRead := v == "true"
		filters.IsRead = &isRead
	}
	if v := query.Get("is_resolved"); v != "" {
		isResolved := v == "true"
		filters.IsResolved = &isResolved
	}

	page := parseInt(query.Get("page"), 1)
	size := parseInt(query.Get("size"), 20)

	alerts, total, err := h.alerts.ListAlerts(r.Context(), filters, page, size)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alerts"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": alerts,
		"total": total,
		"page":  page,
		"size":  size,
	}))
}

// MarkRead POST /api/v1/alerts/{id}/read
func (h *AlertsHandler) MarkRead(w http.ResponseWriter, r *http.Request, alertID string) {
	alert, err := h.lifecycle.MarkRead(r.Context(), alertID)
	if err != nil {
		h.writeLifecycleError(w, alertID, "mark alert read", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// Resolve POST /api/v1/alerts/{id}/resolve
func (h *AlertsHandler) Resolve(w http.ResponseWriter, r *http.Request, alertID string) {
	var body struct {
		ActionTaken string `json:"actionTaken"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	alert, err := h.lifecycle.Resolve(r.Context(), alertID, body.ActionTaken)
	if err != nil {
		h.writeLifecycleError(w, alertID, "resolve alert", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

func (h *AlertsHandler) writeLifecycleError(w http.ResponseWriter, alertID, action string, err error) {
	if errors.Is(err, repository.ErrAlertNotFound) {
		writeJSON(w, http.StatusNotFound, Fail("alert not found"))
		return
	}
	h.logger.Error("Failed to "+action,
		zap.String("alert_id", alertID),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, Fail("failed to "+action))
}

package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// FanControl 风扇控制接口（由 ingest.FanService 实现）
type FanControl interface {
	State() bool
	SetState(on bool)
}

// FanHandler 风扇状态查询与手动开关
type FanHandler struct {
	fan    FanControl
	logger *zap.Logger
}

// NewFanHandler 创建风扇处理器
func NewFanHandler(fan FanControl, logger *zap.Logger) *FanHandler {
	return &FanHandler{
		fan:    fan,
		logger: logger,
	}
}

// Get GET /api/v1/fan
func (h *FanHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"on": h.fan.State(),
	}))
}

// Set PUT /api/v1/fan
func (h *FanHandler) Set(w http.ResponseWriter, r *http.Request) {
	var body struct {
		On *bool `json:"on"`
	}
	if err := readBodyJSON(r, &body); err != nil || body.On == nil {
		writeJSON(w, http.StatusBadRequest, Fail("body must contain boolean field 'on'"))
		return
	}

	h.fan.SetState(*body.On)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"on": h.fan.State(),
	}))
}

package httpapi

import (
	"net/http"
	"strings"

	"github.com/kaganay/AygazSmartEnergy/internal/realtime"

	"go.uber.org/zap"
)

// Router 标准库 http.ServeMux 之上的薄封装
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterSensorRoutes 遥测接入 + 最新读数查询
func (r *Router) RegisterSensorRoutes(h *SensorHandler) {
	r.Handle("/api/v1/sensor-data", methodOnly(http.MethodPost, h.Create))

	r.Handle("/api/v1/sensor-data/latest/", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		deviceID := strings.TrimPrefix(req.URL.Path, "/api/v1/sensor-data/latest/")
		if deviceID == "" || strings.Contains(deviceID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Latest(w, req, deviceID)
	}))
}

// RegisterAlertRoutes 报警列表与生命周期
func (r *Router) RegisterAlertRoutes(h *AlertsHandler) {
	r.Handle("/api/v1/alerts", methodOnly(http.MethodGet, h.List))

	// /api/v1/alerts/{id}/read 和 /api/v1/alerts/{id}/resolve
	r.Handle("/api/v1/alerts/", methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/alerts/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch parts[1] {
		case "read":
			h.MarkRead(w, req, parts[0])
		case "resolve":
			h.Resolve(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// RegisterResultRoutes 评分结果回推 webhook
func (r *Router) RegisterResultRoutes(h *ResultsHandler) {
	r.Handle("/api/v1/anomaly-results", methodOnly(http.MethodPost, h.Receive))
}

// RegisterFanRoutes 风扇控制
func (r *Router) RegisterFanRoutes(h *FanHandler) {
	r.Handle("/api/v1/fan", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.Get(w, req)
		case http.MethodPut:
			h.Set(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterExportRoutes 数据导出
func (r *Router) RegisterExportRoutes(h *ExportHandler) {
	r.Handle("/api/v1/export/consumption", methodOnly(http.MethodGet, h.Consumption))
}

// RegisterRealtime WebSocket 接入点
func (r *Router) RegisterRealtime(hub *realtime.Hub) {
	r.Handle("/ws", func(w http.ResponseWriter, req *http.Request) {
		realtime.ServeWS(hub, r.logger, w, req)
	})
}

// RegisterHealth 存活探针
func (r *Router) RegisterHealth() {
	r.Handle("/healthz", methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	}))
}

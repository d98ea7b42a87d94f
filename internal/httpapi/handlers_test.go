package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"
	"github.com/kaganay/AygazSmartEnergy/internal/ingest"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string {
	return &s
}

type fakeIngest struct {
	id     int64
	err    error
	gotten *domain.SensorReading
}

func (f *fakeIngest) IngestReading(ctx context.Context, reading *domain.SensorReading) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.gotten = reading
	return f.id, nil
}

type fakeLatest struct {
	reading *domain.SensorReading
	err     error
}

func (f *fakeLatest) GetLatest(ctx context.Context, deviceID string) (*domain.SensorReading, error) {
	return f.reading, f.err
}

type fakeLifecycle struct {
	alert *domain.Alert
	err   error
}

func (f *fakeLifecycle) MarkRead(ctx context.Context, alertID string) (*domain.Alert, error) {
	return f.alert, f.err
}

func (f *fakeLifecycle) Resolve(ctx context.Context, alertID string, actionTaken string) (*domain.Alert, error) {
	return f.alert, f.err
}

type fakeSink struct {
	userID    string
	deviceID  *string
	anomalies []domain.Anomaly
	window    time.Duration
}

func (f *fakeSink) ProcessAnomalies(ctx context.Context, userID string, deviceID *string, anomalies []domain.Anomaly, window time.Duration) int {
	f.userID = userID
	f.deviceID = deviceID
	f.anomalies = anomalies
	f.window = window
	return len(anomalies)
}

type fakeAlertsListRepo struct {
	repository.AlertsRepository
	filters repository.AlertFilters
	page    int
	size    int
	items   []*domain.Alert
	total   int
}

func (f *fakeAlertsListRepo) ListAlerts(ctx context.Context, filters repository.AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	f.filters = filters
	f.page = page
	f.size = size
	return f.items, f.total, nil
}

type fakeDevicesRepo struct {
	repository.DevicesRepository
	device *domain.Device
}

func (f *fakeDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return f.device, nil
}

type fakeConsumptionRepo struct {
	repository.ConsumptionRepository
	records []domain.EnergyConsumption
	err     error
}

func (f *fakeConsumptionRepo) ListConsumption(ctx context.Context, deviceID string, from, to time.Time, limit int) ([]domain.EnergyConsumption, error) {
	return f.records, f.err
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestSensorCreateSuccess(t *testing.T) {
	ingestSvc := &fakeIngest{id: 42}
	handler := NewSensorHandler(ingestSvc, nil, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterSensorRoutes(handler)

	body := `{"sensorId":"sensor-1","temperature":25,"energyUsage":1500}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor-data", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeResult(t, rec)
	assert.Equal(t, float64(ResultSuccess), envelope["code"])

	result := envelope["result"].(map[string]any)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, float64(42), result["id"])
	assert.NotEmpty(t, result["timestamp"])

	require.NotNil(t, ingestSvc.gotten)
	assert.Equal(t, "sensor-1", ingestSvc.gotten.SensorID)
}

func TestSensorCreateValidationError(t *testing.T) {
	ingestSvc := &fakeIngest{err: &ingest.ValidationError{Field: "voltage", Reason: "must be within [0, 500]"}}
	handler := NewSensorHandler(ingestSvc, nil, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterSensorRoutes(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor-data", strings.NewReader(`{"sensorId":"s","voltage":900}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeResult(t, rec)
	assert.Equal(t, float64(ResultError), envelope["code"])
	assert.Contains(t, envelope["message"], "voltage")
}

func TestSensorCreateInternalError(t *testing.T) {
	ingestSvc := &fakeIngest{err: fmt.Errorf("db down")}
	handler := NewSensorHandler(ingestSvc, nil, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterSensorRoutes(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor-data", strings.NewReader(`{"sensorId":"s"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSensorCreateMethodNotAllowed(t *testing.T) {
	handler := NewSensorHandler(&fakeIngest{}, nil, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterSensorRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensor-data", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSensorLatestHitAndMiss(t *testing.T) {
	latest := &fakeLatest{reading: &domain.SensorReading{SensorID: "sensor-1", DeviceID: strPtr("device-1")}}
	handler := NewSensorHandler(&fakeIngest{}, latest, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterSensorRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensor-data/latest/device-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	latest.reading = nil
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sensor-data/latest/device-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertsListPassesFilters(t *testing.T) {
	repo := &fakeAlertsListRepo{items: []*domain.Alert{{AlertID: "a1"}}, total: 1}
	handler := NewAlertsHandler(repo, &fakeLifecycle{}, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterAlertRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?user_id=user-1&severity=High&is_resolved=false&page=2&size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.filters.UserID)
	assert.Equal(t, "user-1", *repo.filters.UserID)
	require.NotNil(t, repo.filters.Severity)
	assert.Equal(t, "High", *repo.filters.Severity)
	require.NotNil(t, repo.filters.IsResolved)
	assert.False(t, *repo.filters.IsResolved)
	assert.Equal(t, 2, repo.page)
	assert.Equal(t, 10, repo.size)

	envelope := decodeResult(t, rec)
	result := envelope["result"].(map[string]any)
	assert.Equal(t, float64(1), result["total"])
}

func TestAlertMarkReadAndResolve(t *testing.T) {
	lifecycle := &fakeLifecycle{alert: &domain.Alert{AlertID: "a1", IsRead: true}}
	handler := NewAlertsHandler(&fakeAlertsListRepo{}, lifecycle, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterAlertRoutes(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/resolve", strings.NewReader(`{"actionTaken":"rebooted"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAlertLifecycleNotFound(t *testing.T) {
	lifecycle := &fakeLifecycle{err: fmt.Errorf("%w: alert_id=missing", repository.ErrAlertNotFound)}
	handler := NewAlertsHandler(&fakeAlertsListRepo{}, lifecycle, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterAlertRoutes(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/missing/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertUnknownActionIs404(t *testing.T) {
	handler := NewAlertsHandler(&fakeAlertsListRepo{}, &fakeLifecycle{}, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterAlertRoutes(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/archive", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func newResultsRouter(sink *fakeSink, device *domain.Device) *Router {
	alertCfg := config.AlertConfig{
		DeviceWindow:     5 * time.Minute,
		DevicelessWindow: time.Minute,
		DefaultUserID:    "admin",
	}
	handler := NewResultsHandler(sink, &fakeDevicesRepo{device: device}, alertCfg, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterResultRoutes(handler)
	return router
}

func TestAnomalyResultsWithDevice(t *testing.T) {
	sink := &fakeSink{}
	router := newResultsRouter(sink, &domain.Device{DeviceID: "device-1", UserID: "user-1"})

	body := `[{"AnomalyType":"VoltageAnomaly","Severity":0.9,"Description":"spike"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomaly-results?device_id=device-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", sink.userID)
	require.NotNil(t, sink.deviceID)
	assert.Equal(t, "device-1", *sink.deviceID)
	assert.Equal(t, 5*time.Minute, sink.window)
	require.Len(t, sink.anomalies, 1)
	assert.Equal(t, domain.AnomalyVoltage, sink.anomalies[0].Type)
}

func TestAnomalyResultsCamelCaseDeviceless(t *testing.T) {
	sink := &fakeSink{}
	router := newResultsRouter(sink, nil)

	body := `[{"anomalyType":"TemperatureAnomaly","severity":0.7}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomaly-results", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", sink.userID)
	assert.Nil(t, sink.deviceID)
	assert.Equal(t, time.Minute, sink.window)
	require.Len(t, sink.anomalies, 1)
	assert.Equal(t, domain.AnomalyTemperature, sink.anomalies[0].Type)
}

func TestAnomalyResultsRejectsBadPayload(t *testing.T) {
	router := newResultsRouter(&fakeSink{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomaly-results", strings.NewReader(`{"not":"an array"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFanRoutes(t *testing.T) {
	fan := ingest.NewFanService(config.FanConfig{}, zap.NewNop())
	handler := NewFanHandler(fan, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterFanRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)["result"].(map[string]any)
	assert.Equal(t, false, result["on"])

	req = httptest.NewRequest(http.MethodPut, "/api/v1/fan", strings.NewReader(`{"on":true}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fan.State())

	req = httptest.NewRequest(http.MethodPut, "/api/v1/fan", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportConsumption(t *testing.T) {
	deviceID := "device-1"
	repo := &fakeConsumptionRepo{records: []domain.EnergyConsumption{
		{DeviceID: &deviceID, PowerConsumptionW: 1000, EnergyUsedKWh: 1, RecordedAt: time.Now()},
	}}
	handler := NewExportHandler(repo, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterExportRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/consumption?device_id=device-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestExportRequiresDeviceID(t *testing.T) {
	handler := NewExportHandler(&fakeConsumptionRepo{}, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterExportRoutes(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/consumption", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.RegisterHealth()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package mqttbridge

import (
	"context"
	"fmt"
	"testing"

	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubIngestor struct {
	reading *domain.SensorReading
	err     error
}

func (s *stubIngestor) IngestReading(ctx context.Context, reading *domain.SensorReading) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.reading = reading
	return 7, nil
}

func newTestBridge(ingestor Ingestor) *Bridge {
	return NewBridge(nil, config.MQTTConfig{Topic: "sensors/+/telemetry", QoS: 1}, ingestor, zap.NewNop())
}

func TestHandleMessageBridgesReading(t *testing.T) {
	ingestor := &stubIngestor{}
	bridge := newTestBridge(ingestor)

	payload := `{"sensorId":"sensor-1","temperature":24.5,"energyUsage":900}`
	err := bridge.handleMessage("sensors/device-1/telemetry", []byte(payload))
	require.NoError(t, err)

	require.NotNil(t, ingestor.reading)
	assert.Equal(t, "sensor-1", ingestor.reading.SensorID)
	require.NotNil(t, ingestor.reading.DeviceID)
	assert.Equal(t, "device-1", *ingestor.reading.DeviceID)
	assert.JSONEq(t, payload, string(ingestor.reading.RawData))
}

func TestHandleMessageFillsSensorIDFromTopic(t *testing.T) {
	ingestor := &stubIngestor{}
	bridge := newTestBridge(ingestor)

	err := bridge.handleMessage("sensors/device-2/telemetry", []byte(`{"temperature":20}`))
	require.NoError(t, err)

	require.NotNil(t, ingestor.reading)
	assert.Equal(t, "device-2", ingestor.reading.SensorID)
}

func TestHandleMessageKeepsExplicitDeviceID(t *testing.T) {
	ingestor := &stubIngestor{}
	bridge := newTestBridge(ingestor)

	err := bridge.handleMessage("sensors/device-3/telemetry", []byte(`{"sensorId":"s","deviceId":"device-override"}`))
	require.NoError(t, err)

	require.NotNil(t, ingestor.reading.DeviceID)
	assert.Equal(t, "device-override", *ingestor.reading.DeviceID)
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	bridge := newTestBridge(&stubIngestor{})

	err := bridge.handleMessage("sensors/device-1/telemetry", []byte(`not json`))
	require.Error(t, err)
}

func TestHandleMessagePropagatesIngestError(t *testing.T) {
	bridge := newTestBridge(&stubIngestor{err: fmt.Errorf("db down")})

	err := bridge.handleMessage("sensors/device-1/telemetry", []byte(`{"sensorId":"s"}`))
	require.Error(t, err)
}

func TestDeviceIDFromTopic(t *testing.T) {
	assert.Equal(t, "device-1", deviceIDFromTopic("sensors/device-1/telemetry"))
	assert.Equal(t, "device-1", deviceIDFromTopic("sensors/device-1"))
	assert.Equal(t, "", deviceIDFromTopic("sensors"))
}

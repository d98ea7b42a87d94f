package alerting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestSuppressorAllowsWhenNoRecentAlert(t *testing.T) {
	repo := &fakeAlertsRepo{}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuppressorBlocksWithinWindow(t *testing.T) {
	repo := &fakeAlertsRepo{
		alerts: []*domain.Alert{
			{
				AlertID:   "existing",
				DeviceID:  strPtr("device-1"),
				AlertType: domain.AnomalyHighConsumption,
				CreatedAt: time.Now().Add(-1 * time.Minute),
			},
		},
	}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuppressorAllowsOutsideWindow(t *testing.T) {
	repo := &fakeAlertsRepo{
		alerts: []*domain.Alert{
			{
				AlertID:   "old",
				DeviceID:  strPtr("device-1"),
				AlertType: domain.AnomalyHighConsumption,
				CreatedAt: time.Now().Add(-10 * time.Minute),
			},
		},
	}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuppressorAllowsDifferentTypeAndDevice(t *testing.T) {
	repo := &fakeAlertsRepo{
		alerts: []*domain.Alert{
			{
				AlertID:   "existing",
				DeviceID:  strPtr("device-1"),
				AlertType: domain.AnomalyHighConsumption,
				CreatedAt: time.Now().Add(-1 * time.Minute),
			},
		},
	}
	suppressor := NewSuppressor(repo, testLogger())

	// 同设备不同类型
	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyVoltage, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// 不同设备同类型
	ok, err = suppressor.ShouldCreate(context.Background(), strPtr("device-2"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuppressorResolvedAlertAllowsNew(t *testing.T) {
	repo := &fakeAlertsRepo{
		alerts: []*domain.Alert{
			{
				AlertID:    "resolved",
				DeviceID:   strPtr("device-1"),
				AlertType:  domain.AnomalyHighConsumption,
				IsResolved: true,
				CreatedAt:  time.Now().Add(-1 * time.Minute),
			},
		},
	}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuppressorDevicelessMatchesOnlyDeviceless(t *testing.T) {
	repo := &fakeAlertsRepo{
		alerts: []*domain.Alert{
			{
				AlertID:   "deviceless",
				DeviceID:  nil,
				AlertType: domain.AnomalyTemperature,
				CreatedAt: time.Now().Add(-30 * time.Second),
			},
		},
	}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), nil, domain.AnomalyTemperature, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 有设备的查询不受无设备报警影响
	ok, err = suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyTemperature, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuppressorPropagatesLookupError(t *testing.T) {
	repo := &fakeAlertsRepo{lookupErr: fmt.Errorf("db down")}
	suppressor := NewSuppressor(repo, testLogger())

	ok, err := suppressor.ShouldCreate(context.Background(), strPtr("device-1"), domain.AnomalyHighConsumption, 5*time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
}

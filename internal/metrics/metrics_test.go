package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)

	m.StateTransition("connected")
	m.DialAttempt(true)
	m.DialAttempt(false)
	m.DedupResult("alert_update", true)
	m.DedupResult("alert_update", false)
	m.Notification("alert_update", "error")
	m.SubscriptionAdded("alert_update")
	m.SubscriptionAdded("alert_update")
	m.SubscriptionRemoved("alert_update")
	m.HistoryFlushed(7)

	totals := collect(t, reader)
	assert.Equal(t, int64(1), totals["livenotify.connection.transitions.total"])
	assert.Equal(t, int64(2), totals["livenotify.connection.dials.total"])
	assert.Equal(t, int64(2), totals["livenotify.dedup.results.total"])
	assert.Equal(t, int64(1), totals["livenotify.notifications.total"])
	assert.Equal(t, int64(1), totals["livenotify.subscriptions.active"])
	assert.Equal(t, int64(7), totals["livenotify.history.rows.total"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.StateTransition("connecting")
		m.DialAttempt(false)
		m.GaveUp()
		m.MessageReceived("x")
		m.MessageMalformed()
		m.MessageUnrouted("x")
		m.HandlerPanic("x")
		m.SubscriptionAdded("x")
		m.SubscriptionRemoved("x")
		m.DedupResult("x", true)
		m.Notification("x", "info")
		m.SideEffectFailed("sound")
		m.HistoryFlushed(1)
		m.HistoryError()
	})
}

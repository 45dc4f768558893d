package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.AuthFailed("password")
		m.SessionStarted()
		m.SessionFailed("launch")
		m.SessionEnded(time.Second)
		m.RecordRelay("out", 10)
		m.RecordDropped(10)
		m.RecordResize("applied")
		m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond)
	})
}

func TestSessionAccounting(t *testing.T) {
	m := NewMetrics()

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded(2 * time.Second)
	m.SessionFailed("provision")

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ActiveSessions)
	assert.Equal(t, int64(2), snap.SessionsStarted)
	assert.Equal(t, int64(1), snap.SessionsFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionFailures.WithLabelValues("provision")))
}

func TestRelayAccounting(t *testing.T) {
	m := NewMetrics()

	tests := []struct {
		direction string
		n         int
	}{
		{"out", 100},
		{"in", 7},
		{"out", 0},
		{"in", -1},
	}
	for _, tt := range tests {
		m.RecordRelay(tt.direction, tt.n)
	}
	m.RecordDropped(5)

	snap := m.Snapshot()
	assert.Equal(t, int64(100), snap.BytesOut)
	assert.Equal(t, int64(7), snap.BytesIn)
	assert.Equal(t, 100.0, testutil.ToFloat64(m.RelayBytes.WithLabelValues("out")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RelayDropped))
}

func TestConnectionsAndResize(t *testing.T) {
	m := NewMetrics()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.RecordResize("applied")
	m.RecordResize("rejected")
	m.RecordResize("applied")

	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResizeEvents.WithLabelValues("applied")))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.SessionStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SessionsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SessionsStarted))
	assert.NotSame(t, a.Registry(), b.Registry())
}

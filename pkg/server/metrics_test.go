package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordSessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Registry: reg})

	m.sessionOpened()
	m.sessionOpened()
	m.sessionClosed()

	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionsTotal); got != 2 {
		t.Errorf("sessions total = %v, want 2", got)
	}
}

func TestMetricsRecordEventsAndPatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Registry: reg})

	m.eventHandled("click", "ok", 0.01)
	m.eventHandled("click", "ok", 0.02)
	m.eventHandled("input", "dropped", 0)
	m.patchSent(3, 120)

	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("click", "ok")); got != 2 {
		t.Errorf("click ok events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.patchesSent); got != 3 {
		t.Errorf("patches sent = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.patchBytes); got != 120 {
		t.Errorf("patch bytes = %v, want 120", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.sessionOpened()
	m.sessionClosed()
	m.eventHandled("click", "ok", 0.01)
	m.patchSent(1, 10)
	m.renderDone(0.1, 2)
	m.wsError("read")
}

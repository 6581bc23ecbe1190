// Package monitoring provides Prometheus metrics for the session core and
// its HTTP surface. The core is observed through the event bus rather than
// instrumented directly, so metrics stay decoupled from session state.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/BlockShell/core/internal/term"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	SessionExits   *prometheus.CounterVec

	// Block metrics
	BlocksCreated *prometheus.CounterVec
	OutputBytes   prometheus.Counter

	// History metrics
	UndoOps prometheus.Counter
	RedoOps prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "core_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "core_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "core_sessions_total",
				Help: "Total number of sessions created",
			},
		),
		SessionExits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_session_exits_total",
				Help: "Total number of session process exits",
			},
			[]string{"status"},
		),

		BlocksCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_blocks_created_total",
				Help: "Total number of blocks created by type",
			},
			[]string{"type"},
		),
		OutputBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "core_output_bytes_total",
				Help: "Total raw output bytes streamed",
			},
		),

		UndoOps: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "core_undo_operations_total",
				Help: "Total number of undo operations",
			},
		),
		RedoOps: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "core_redo_operations_total",
				Help: "Total number of redo operations",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "core_ws_connections",
				Help: "Current number of WebSocket clients",
			},
		),
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Uptime returns service uptime
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// WatchBus subscribes to the event bus and translates session events into
// metrics until the bus closes.
func (m *Metrics) WatchBus(bus *term.Bus) {
	sub := bus.Subscribe()
	go func() {
		for evt := range sub.C {
			switch evt.Type {
			case term.EventBlockCreated:
				if evt.Block != nil {
					m.BlocksCreated.WithLabelValues(string(evt.Block.Type)).Inc()
				}
			case term.EventOutput:
				m.OutputBytes.Add(float64(len(evt.Chunk)))
			case term.EventSessionCreated:
				m.SessionsTotal.Inc()
				m.SessionsActive.Inc()
			case term.EventSessionClosed:
				m.SessionsActive.Dec()
			case term.EventSessionExit:
				m.SessionsActive.Dec()
				status := "clean"
				if evt.ExitCode != 0 {
					status = "error"
				}
				m.SessionExits.WithLabelValues(status).Inc()
			}
		}
	}()
}

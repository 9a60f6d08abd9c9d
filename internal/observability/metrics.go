// Package observability holds the Prometheus metrics, slog setup and
// OpenTelemetry tracer provider of the reconstruction service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "derivrecon"

// Metrics are the reconstruction counters. All methods are safe for
// concurrent use.
type Metrics struct {
	// RequestsTotal counts reconstructions by mode and status (ok, error).
	RequestsTotal *prometheus.CounterVec
	// ErrorsTotal counts failed reconstructions by error kind.
	ErrorsTotal *prometheus.CounterVec
	// DurationSeconds is the wall time of a reconstruction by mode.
	DurationSeconds *prometheus.HistogramVec
	// InvalidPointsTotal counts sample points where f, f' or f'' had no
	// real value.
	InvalidPointsTotal prometheus.Counter
}

// NewMetrics registers the metrics with reg. Use a fresh registry per
// server; registering twice on one registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconstruct_requests_total",
				Help:      "Reconstructions by mode and status",
			},
			[]string{"mode", "status"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconstruct_errors_total",
				Help:      "Failed reconstructions by error kind",
			},
			[]string{"kind"},
		),
		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "reconstruct_duration_seconds",
				Help:      "Reconstruction latency by mode",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"mode"},
		),
		InvalidPointsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sample_points_invalid_total",
				Help:      "Sample points with no real value",
			},
		),
	}
}

// ObserveReconstruct records one reconstruction. kind is empty on success.
func (m *Metrics) ObserveReconstruct(mode, kind string, elapsed time.Duration) {
	status := "ok"
	if kind != "" {
		status = "error"
		m.ErrorsTotal.WithLabelValues(kind).Inc()
	}
	m.RequestsTotal.WithLabelValues(mode, status).Inc()
	m.DurationSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveInvalidPoints adds n failed sample points.
func (m *Metrics) ObserveInvalidPoints(n int) {
	if n > 0 {
		m.InvalidPointsTotal.Add(float64(n))
	}
}

// Package metrics exposes Prometheus instrumentation for the intake servers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. Each instance
// owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	Submissions     *prometheus.CounterVec
	Exports         *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		// result: ok, incomplete, malformed, error
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of employee submissions, labeled by result",
		}, []string{"result"}),
		// mode: report, download
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_exports_total",
			Help: "Total number of CSV exports, labeled by delivery mode",
		}, []string{"mode"}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// RegisterQueueDepth exposes the write queue backlog as a gauge.
func (m *Metrics) RegisterQueueDepth(pending func() int) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "intake_write_queue_pending",
		Help: "Number of append requests waiting for the writer",
	}, func() float64 { return float64(pending()) })
}

func (m *Metrics) IncSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncExport(mode string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

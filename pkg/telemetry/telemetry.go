package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tinyslice"

// Metrics holds the server's own instrumentation
type Metrics struct {
	registry *prometheus.Registry

	ResponsesTotal   *prometheus.CounterVec
	ResponseDuration *prometheus.HistogramVec
	RowsWritten      *prometheus.CounterVec
	BytesWritten     *prometheus.CounterVec
	PointsIngested   prometheus.Counter
	StreamsActive    prometheus.Gauge
	RetentionRuns    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the metrics on a private registry, with Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Data responses by format and status.",
			},
			[]string{"format", "status"},
		),
		ResponseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_duration_seconds",
				Help:      "Time to build and write a data response.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_written_total",
				Help:      "Result rows written by format.",
			},
			[]string{"format"},
		),
		BytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_written_total",
				Help:      "Response bytes written by format.",
			},
			[]string{"format"},
		),
		PointsIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_ingested_total",
				Help:      "Points accepted by the ingest endpoint.",
			},
		),
		StreamsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "streams_active",
				Help:      "Open websocket data streams.",
			},
		),
		RetentionRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retention_runs_total",
				Help:      "Retention passes by status.",
			},
			[]string{"status"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ResponsesTotal,
		m.ResponseDuration,
		m.RowsWritten,
		m.BytesWritten,
		m.PointsIngested,
		m.StreamsActive,
		m.RetentionRuns,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveResponse records one finished data response
func (m *Metrics) ObserveResponse(format, status string, rows int, bytes int64, elapsed time.Duration) {
	m.ResponsesTotal.WithLabelValues(format, status).Inc()
	m.ResponseDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	m.RowsWritten.WithLabelValues(format).Add(float64(rows))
	m.BytesWritten.WithLabelValues(format).Add(float64(bytes))
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// WatchStorage exports the data directory size as tinyslice_storage_used_bytes.
// usage is called on every scrape; errors report -1.
func (m *Metrics) WatchStorage(usage func() (int64, error)) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_used_bytes",
			Help:      "Disk used by the data directory.",
		},
		func() float64 {
			n, err := usage()
			if err != nil {
				return -1
			}
			return float64(n)
		},
	))
}

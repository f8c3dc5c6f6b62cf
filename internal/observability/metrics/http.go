package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchesAccepted prometheus.Counter
	filesAccepted   prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchesAccepted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "upload",
			Name:      "batches_accepted_total",
			Help:      "Total upload batches accepted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	filesAccepted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "upload",
			Name:      "files_accepted_total",
			Help:      "Total uploaded files accepted into batches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight, batchesAccepted, filesAccepted)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		batchesAccepted: batchesAccepted,
		filesAccepted:   filesAccepted,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) RequestStarted() {
	m.requestInFlight.Inc()
}

func (m *HTTPServerMetrics) RequestFinished(service, method, path string, status int, duration time.Duration) {
	m.requestInFlight.Dec()
	m.requestTotal.WithLabelValues(service, method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) BatchAccepted(fileCount int) {
	m.batchesAccepted.Inc()
	m.filesAccepted.Add(float64(fileCount))
}

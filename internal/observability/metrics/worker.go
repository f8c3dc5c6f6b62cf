package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	batchTotal    *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchInFlight prometheus.Gauge
	fileTotal     *prometheus.CounterVec
	rowsAccepted  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "worker",
			Name:      "batch_process_total",
			Help:      "Total processed batches by status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lc",
			Subsystem: "worker",
			Name:      "batch_process_duration_seconds",
			Help:      "Batch processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lc",
			Subsystem: "worker",
			Name:      "batch_process_in_flight",
			Help:      "Number of in-flight batch runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	fileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "worker",
			Name:      "file_outcome_total",
			Help:      "Total per-file outcomes by terminal status.",
		},
		[]string{"service", "status"},
	)
	rowsAccepted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lc",
			Subsystem: "worker",
			Name:      "rows_accepted_total",
			Help:      "Total product rows accepted against the record budget.",
		},
		[]string{"service"},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, fileTotal, rowsAccepted)

	return &WorkerMetrics{
		registry:      registry,
		batchTotal:    batchTotal,
		batchDuration: batchDuration,
		batchInFlight: batchInFlight,
		fileTotal:     fileTotal,
		rowsAccepted:  rowsAccepted,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(service string, duration time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.batchTotal.WithLabelValues(service, status).Inc()
	m.batchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveFileOutcome(service, status string, recordCount int) {
	m.fileTotal.WithLabelValues(service, status).Inc()
	if recordCount > 0 {
		m.rowsAccepted.WithLabelValues(service).Add(float64(recordCount))
	}
}

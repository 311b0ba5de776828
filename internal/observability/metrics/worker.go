package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	reprocessTotal    *prometheus.CounterVec
	reprocessDuration *prometheus.HistogramVec
	reprocessInFlight prometheus.Gauge
	queueLag          *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	reprocessTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "room_reprocess_total",
			Help:      "Total room reprocess requests handled by status.",
		},
		[]string{"service", "status"},
	)
	reprocessDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "room_reprocess_duration_seconds",
			Help:      "Room reprocess duration in seconds by status.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "status"},
	)
	reprocessInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "room_reprocess_in_flight",
			Help:      "Number of in-flight room reprocess tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between a reprocess request and the start of its processing.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(reprocessTotal, reprocessDuration, reprocessInFlight, queueLag)

	return &WorkerMetrics{
		registry:          registry,
		service:           service,
		reprocessTotal:    reprocessTotal,
		reprocessDuration: reprocessDuration,
		reprocessInFlight: reprocessInFlight,
		queueLag:          queueLag,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartReprocess() {
	m.reprocessInFlight.Inc()
}

func (m *WorkerMetrics) FinishReprocess(duration time.Duration, err error) {
	m.reprocessInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.reprocessTotal.WithLabelValues(m.service, status).Inc()
	m.reprocessDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

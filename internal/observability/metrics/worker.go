package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the cache-invalidation worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	invalidateTotal    *prometheus.CounterVec
	invalidateDuration *prometheus.HistogramVec
	invalidateInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	invalidateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "worker",
			Name:      "partition_invalidate_total",
			Help:      "Total processed partition invalidation events by status.",
		},
		[]string{"service", "status"},
	)
	invalidateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "worker",
			Name:      "partition_invalidate_duration_seconds",
			Help:      "Invalidation handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	invalidateInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regassist",
			Subsystem: "worker",
			Name:      "partition_invalidate_in_flight",
			Help:      "Number of invalidation events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(invalidateTotal, invalidateDuration, invalidateInFlight)

	return &WorkerMetrics{
		registry:           registry,
		invalidateTotal:    invalidateTotal,
		invalidateDuration: invalidateDuration,
		invalidateInFlight: invalidateInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartInvalidation() {
	m.invalidateInFlight.Inc()
}

func (m *WorkerMetrics) FinishInvalidation(service string, duration time.Duration, err error) {
	m.invalidateInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.invalidateTotal.WithLabelValues(service, status).Inc()
	m.invalidateDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	failuresTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "d4d",
			Subsystem: "worker",
			Name:      "normalize_total",
			Help:      "Total normalize requests served by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "d4d",
			Subsystem: "worker",
			Name:      "normalize_duration_seconds",
			Help:      "Normalize request duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "d4d",
			Subsystem: "worker",
			Name:      "normalize_in_flight",
			Help:      "Number of in-flight normalize requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	failuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "d4d",
			Subsystem: "worker",
			Name:      "normalize_failures_total",
			Help:      "Failed normalize requests by error kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, failuresTotal)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		failuresTotal:   failuresTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRequest() {
	m.processInFlight.Inc()
}

// FinishRequest records a served request; kind is the error kind label or empty.
func (m *WorkerMetrics) FinishRequest(service string, duration time.Duration, kind string) {
	m.processInFlight.Dec()

	status := "success"
	if kind != "" {
		status = "error"
		m.failuresTotal.WithLabelValues(service, kind).Inc()
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

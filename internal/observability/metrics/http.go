package metrics

import (
	"bufio"
	"fmt"
	"net"
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

	normalizeTotal     *prometheus.CounterVec
	normalizeChars     *prometheus.HistogramVec
	normalizeTruncated *prometheus.CounterVec
	contentSources     *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "d4d",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "d4d",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "d4d",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	normalizeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "d4d",
			Subsystem: "normalize",
			Name:      "requests_total",
			Help:      "Total normalize requests by format and outcome kind.",
		},
		[]string{"service", "format", "kind"},
	)
	normalizeChars := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "d4d",
			Subsystem: "normalize",
			Name:      "document_chars",
			Help:      "Characters in successfully normalized documents.",
			Buckets:   []float64{100, 1000, 5000, 10000, 25000, 50000},
		},
		[]string{"service", "format"},
	)
	normalizeTruncated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "d4d",
			Subsystem: "normalize",
			Name:      "truncated_total",
			Help:      "Normalized documents cut at the size ceiling.",
		},
		[]string{"service", "format"},
	)
	contentSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "d4d",
			Subsystem: "content",
			Name:      "sources",
			Help:      "Sources per content build request.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		normalizeTotal,
		normalizeChars,
		normalizeTruncated,
		contentSources,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		normalizeTotal:     normalizeTotal,
		normalizeChars:     normalizeChars,
		normalizeTruncated: normalizeTruncated,
		contentSources:     contentSources,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordNormalize counts one normalize outcome. kind is empty on success.
func (m *HTTPServerMetrics) RecordNormalize(service, format, kind string, chars int, truncated bool) {
	if format == "" {
		format = "unknown"
	}
	if kind == "" {
		kind = "ok"
	}
	m.normalizeTotal.WithLabelValues(service, format, kind).Inc()
	if kind != "ok" {
		return
	}
	m.normalizeChars.WithLabelValues(service, format).Observe(float64(chars))
	if truncated {
		m.normalizeTruncated.WithLabelValues(service, format).Inc()
	}
}

func (m *HTTPServerMetrics) RecordContentBuild(service string, sources int) {
	m.contentSources.WithLabelValues(service).Observe(float64(sources))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

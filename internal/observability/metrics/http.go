package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics covers the API surface plus the query pipeline behind
// it: interpretation, retrieval, ranking and relation resolution.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryRequestsTotal      *prometheus.CounterVec
	queryInterpreterTotal   *prometheus.CounterVec
	queryRetrievalEmpty     *prometheus.CounterVec
	queryRankedResults      *prometheus.HistogramVec
	queryRankDuration       *prometheus.HistogramVec
	queryAnomaliesTotal     *prometheus.CounterVec
	relationUnresolvedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regassist",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total completed query requests by endpoint.",
		},
		[]string{"service", "endpoint"},
	)
	queryInterpreterTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "interpreter_requests_total",
			Help:      "Total query requests by interpreter implementation.",
		},
		[]string{"service", "interpreter"},
	)
	queryRetrievalEmpty := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "retrieval_empty_total",
			Help:      "Total query requests that retrieved no candidates.",
		},
		[]string{"service", "endpoint"},
	)
	queryRankedResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "ranked_results",
			Help:      "Distribution of ranked results per completed query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	queryRankDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	queryAnomaliesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "query",
			Name:      "chunk_anomalies_total",
			Help:      "Total malformed chunk observations reported by the ranker.",
		},
		[]string{"service"},
	)
	relationUnresolvedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "relations",
			Name:      "unresolved_total",
			Help:      "Total dangling relation targets encountered during resolution.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryRequestsTotal,
		queryInterpreterTotal,
		queryRetrievalEmpty,
		queryRankedResults,
		queryRankDuration,
		queryAnomaliesTotal,
		relationUnresolvedTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		queryRequestsTotal:      queryRequestsTotal,
		queryInterpreterTotal:   queryInterpreterTotal,
		queryRetrievalEmpty:     queryRetrievalEmpty,
		queryRankedResults:      queryRankedResults,
		queryRankDuration:       queryRankDuration,
		queryAnomaliesTotal:     queryAnomaliesTotal,
		relationUnresolvedTotal: relationUnresolvedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses per-chunk paths so URIs do not explode label
// cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasSuffix(path, "/relations") && strings.HasPrefix(path, "/v1/chunks/"):
		return "/v1/chunks/{uri}/relations"
	case strings.HasPrefix(path, "/v1/chunks/"):
		return "/v1/chunks/{uri}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(service, endpoint string, resultCount int, duration time.Duration) {
	m.queryRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.queryRankedResults.WithLabelValues(service, endpoint).Observe(float64(resultCount))
	m.queryRankDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if resultCount == 0 {
		m.queryRetrievalEmpty.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordInterpreter(service, interpreter string) {
	if interpreter == "" {
		interpreter = "heuristic"
	}
	m.queryInterpreterTotal.WithLabelValues(service, interpreter).Inc()
}

func (m *HTTPServerMetrics) RecordChunkAnomalies(service string, count int) {
	if count <= 0 {
		return
	}
	m.queryAnomaliesTotal.WithLabelValues(service).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordUnresolvedRelations(service string, count int) {
	if count <= 0 {
		return
	}
	m.relationUnresolvedTotal.WithLabelValues(service).Add(float64(count))
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

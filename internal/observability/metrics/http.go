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

	runsTotal          *prometheus.CounterVec
	runIterations      *prometheus.HistogramVec
	runDuration        *prometheus.HistogramVec
	runItems           *prometheus.HistogramVec
	sourceFetchTotal   *prometheus.CounterVec
	sourceFetchSeconds *prometheus.HistogramVec
	sourceFetchItems   *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusionrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fusionrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusionrag",
			Subsystem: "retrieval",
			Name:      "runs_total",
			Help:      "Total completed retrieval sessions by outcome and query type.",
		},
		[]string{"service", "outcome", "query_type"},
	)
	runIterations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "retrieval",
			Name:      "iterations",
			Help:      "Distribution of refinement iterations per session.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"service"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "End-to-end session duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	runItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "retrieval",
			Name:      "returned_items",
			Help:      "Distribution of fused items returned per session.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	sourceFetchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusionrag",
			Subsystem: "source",
			Name:      "fetch_total",
			Help:      "Total source fetches by source and status.",
		},
		[]string{"service", "source", "status"},
	)
	sourceFetchSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Source fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "source"},
	)
	sourceFetchItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusionrag",
			Subsystem: "source",
			Name:      "fetch_items",
			Help:      "Distribution of items returned per source fetch.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"service", "source"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		runsTotal,
		runIterations,
		runDuration,
		runItems,
		sourceFetchTotal,
		sourceFetchSeconds,
		sourceFetchItems,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		runsTotal:          runsTotal,
		runIterations:      runIterations,
		runDuration:        runDuration,
		runItems:           runItems,
		sourceFetchTotal:   sourceFetchTotal,
		sourceFetchSeconds: sourceFetchSeconds,
		sourceFetchItems:   sourceFetchItems,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
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

// RecordRetrievalRun records one finished session. Outcome is "sufficient",
// "degraded", or "failed".
func (m *HTTPServerMetrics) RecordRetrievalRun(service, outcome, queryType string, iterations, items int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if queryType == "" {
		queryType = "unknown"
	}
	m.runsTotal.WithLabelValues(service, outcome, queryType).Inc()
	m.runDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.runItems.WithLabelValues(service).Observe(float64(items))
	if iterations > 0 {
		m.runIterations.WithLabelValues(service).Observe(float64(iterations))
	}
}

type FetchRecorder struct {
	metrics *HTTPServerMetrics
	service string
}

// FetchObserver adapts the metrics to the source instrumentation hook.
func (m *HTTPServerMetrics) FetchObserver(service string) *FetchRecorder {
	return &FetchRecorder{metrics: m, service: service}
}

func (r *FetchRecorder) ObserveSourceFetch(source string, duration time.Duration, items int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.sourceFetchTotal.WithLabelValues(r.service, source, status).Inc()
	r.metrics.sourceFetchSeconds.WithLabelValues(r.service, source).Observe(duration.Seconds())
	if err == nil {
		r.metrics.sourceFetchItems.WithLabelValues(r.service, source).Observe(float64(items))
	}
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

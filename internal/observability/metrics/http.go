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

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

const namespace = "docqa"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	questionsTotal  *prometheus.CounterVec
	retrievedChunks *prometheus.HistogramVec
	answerDuration  *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec

	uploadsTotal      *prometheus.CounterVec
	translationsTotal *prometheus.CounterVec
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		service:  service,

		requestTotal: counterVec("http", "requests_total",
			"Total HTTP requests processed.", "service", "method", "path", "status"),
		requestDuration: histogramVec("http", "request_duration_seconds",
			"HTTP request duration in seconds.", prometheus.DefBuckets, "service", "method", "path"),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		}),

		questionsTotal: counterVec("answers", "questions_total",
			"Questions by outcome: answered, no_context, failed or rejected.", "service", "outcome"),
		retrievedChunks: histogramVec("answers", "retrieved_chunks",
			"Chunks retrieved per answered question.", []float64{0, 1, 2, 3, 5, 8, 13}, "service"),
		answerDuration: histogramVec("answers", "duration_seconds",
			"Question answering duration in seconds, translation included.", []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120}, "service"),
		tokensTotal: counterVec("answers", "completion_tokens_total",
			"Tokens reported by the completion backend.", "service", "model"),

		uploadsTotal: counterVec("documents", "uploads_total",
			"Document uploads by outcome.", "service", "status"),
		translationsTotal: counterVec("translation", "requests_total",
			"Translate requests by backend, method and outcome.", "service", "provider", "method", "status"),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.questionsTotal,
		m.retrievedChunks,
		m.answerDuration,
		m.tokensTotal,
		m.uploadsTotal,
		m.translationsTotal,
	)
	return m
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

// normalizePath replaces session ids and provider names so label
// cardinality stays bounded.
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" {
		switch parts[1] {
		case "sessions", "backends":
			parts[2] = "{" + strings.TrimSuffix(parts[1], "s") + "}"
			return "/" + strings.Join(parts, "/")
		}
	}
	return path
}

// RecordAnswer classifies one Ask call. Rejected questions (no document,
// empty question) never reached retrieval.
func (m *HTTPServerMetrics) RecordAnswer(service string, result domain.AskResult, duration time.Duration) {
	outcome := "answered"
	switch {
	case result.Turn == nil && !result.Success:
		outcome = "rejected"
	case !result.Success:
		outcome = "failed"
	case len(result.Sources) == 0:
		outcome = "no_context"
	}
	m.questionsTotal.WithLabelValues(service, outcome).Inc()
	if outcome == "rejected" {
		return
	}
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())

	meta := result.Metadata
	if meta == nil {
		return
	}
	m.retrievedChunks.WithLabelValues(service).Observe(float64(meta.ChunksRetrieved))
	if meta.TokensUsed > 0 {
		model := meta.ModelUsed
		if model == "" {
			model = "unknown"
		}
		m.tokensTotal.WithLabelValues(service, model).Add(float64(meta.TokensUsed))
	}
}

// RecordUpload counts an upload as success, degraded (indexed but not
// translated) or error.
func (m *HTTPServerMetrics) RecordUpload(service string, result domain.UploadResult) {
	status := "success"
	switch {
	case !result.Success:
		status = "error"
	case result.Degraded:
		status = "degraded"
	}
	m.uploadsTotal.WithLabelValues(service, status).Inc()
}

// ObserveTranslation satisfies usecase.TranslationObserver.
func (m *HTTPServerMetrics) ObserveTranslation(provider domain.Provider, method string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	if method == "" {
		method = "none"
	}
	m.translationsTotal.WithLabelValues(m.service, string(provider), method, status).Inc()
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

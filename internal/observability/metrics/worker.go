package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal     *prometheus.CounterVec
	handleDuration  *prometheus.HistogramVec
	handleInFlight  prometheus.Gauge
	eventLag        *prometheus.HistogramVec
	answeredResults *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "session_events_total",
			Help:      "Total consumed session events by type and handling status.",
		},
		[]string{"service", "type", "status"},
	)
	handleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "session_event_duration_seconds",
			Help:      "Session event handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	handleInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "session_events_in_flight",
			Help:      "Number of session events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between an event occurring and the worker handling it.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)
	answeredResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "questions_total",
			Help:      "Questions seen on the event stream by outcome.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(eventsTotal, handleDuration, handleInFlight, eventLag, answeredResults)

	return &WorkerMetrics{
		registry:        registry,
		eventsTotal:     eventsTotal,
		handleDuration:  handleDuration,
		handleInFlight:  handleInFlight,
		eventLag:        eventLag,
		answeredResults: answeredResults,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.handleInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, event domain.SessionEvent, duration time.Duration, err error) {
	m.handleInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(service, string(event.Type), status).Inc()
	m.handleDuration.WithLabelValues(service, status).Observe(duration.Seconds())

	if event.Type == domain.EventQuestionAnswered {
		outcome := "answered"
		if !event.Success {
			outcome = "failed"
		}
		m.answeredResults.WithLabelValues(service, outcome).Inc()
	}
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}

package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/ports"
	"github.com/kirillkom/docqa-assistant/internal/observability/metrics"
)

const defaultHistoryLimit = 50

type Options struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	InFlightWait   time.Duration
	MaxUploadBytes int64
}

type Router struct {
	sessions ports.SessionDirectory
	admin    ports.TranslationAdmin
	metrics  *metrics.HTTPServerMetrics
	opts     Options
	logger   *slog.Logger
}

// NewRouter builds the session API. metrics may be nil.
func NewRouter(
	sessions ports.SessionDirectory,
	admin ports.TranslationAdmin,
	httpMetrics *metrics.HTTPServerMetrics,
	opts Options,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.InFlightWait <= 0 {
		opts.InFlightWait = 250 * time.Millisecond
	}
	return &Router{
		sessions: sessions,
		admin:    admin,
		metrics:  httpMetrics,
		opts:     opts,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/backends", rt.listBackends)
	mux.HandleFunc("GET /v1/backends/{provider}/status", rt.backendStatus)
	mux.HandleFunc("GET /v1/translation/cache", rt.cacheStats)
	mux.HandleFunc("DELETE /v1/translation/cache", rt.clearCache)

	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/document", rt.uploadDocument)
	mux.HandleFunc("DELETE /v1/sessions/{id}/document", rt.clearDocument)
	mux.HandleFunc("POST /v1/sessions/{id}/ask", rt.ask)
	mux.HandleFunc("GET /v1/sessions/{id}/history", rt.history)
	mux.HandleFunc("GET /v1/sessions/{id}/languages", rt.languages)
	mux.HandleFunc("PUT /v1/sessions/{id}/language", rt.setLanguage)
	mux.HandleFunc("PUT /v1/sessions/{id}/backend", rt.setBackend)
	mux.HandleFunc("POST /v1/sessions/{id}/summary", rt.translateSummary)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.InFlightWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.Service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, out any) bool {
	return json.NewDecoder(r.Body).Decode(out) == nil
}

package httpadapter

import (
	"net/http"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

func (rt *Router) listBackends(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"backends": rt.admin.BackendOptions()})
}

// backendStatus runs a live test translation through the backend.
func (rt *Router) backendStatus(w http.ResponseWriter, r *http.Request) {
	provider, ok := domain.ParseProvider(r.PathValue("provider"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown translation backend"})
		return
	}
	result := rt.admin.TestConnection(r.Context(), provider)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

func (rt *Router) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.admin.CacheStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) clearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed, err := rt.admin.ClearCache(r.Context(), pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "pattern": pattern})
}

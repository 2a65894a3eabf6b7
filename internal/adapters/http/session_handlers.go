package httpadapter

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

func (rt *Router) session(w http.ResponseWriter, r *http.Request) (ports.DocumentSession, bool) {
	session, err := rt.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return session, true
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	resp := map[string]any{
		"session": session.Snapshot(),
		"service": session.ServiceInfo(),
	}
	if stats, err := session.Collection(r.Context()); err == nil {
		resp["collection"] = stats
	} else {
		rt.logger.Warn("collection_stats_failed", "session_id", session.ID(), "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if rt.opts.MaxUploadBytes > 0 {
		// Leave room for the multipart envelope; the session enforces the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes+1<<20)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read uploaded file: " + err.Error()})
		return
	}

	result := session.Upload(r.Context(), domain.Upload{Filename: header.Filename, Data: data})
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.opts.Service, result)
	}
	if !result.Success {
		writeJSON(w, mapErrorToHTTPStatus(result.Err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) clearDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	if err := session.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ask answers 200 for every turn that was recorded, successful or not; only
// rejected questions map to an error status.
func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if !decodeJSON(r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result := session.Ask(r.Context(), req.Question)
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(rt.opts.Service, result, time.Since(start))
	}

	if !result.Success && result.Turn == nil && result.Err != nil {
		writeJSON(w, mapErrorToHTTPStatus(result.Err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	turns, err := rt.sessions.ArchivedTurns(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (rt *Router) languages(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	snapshot := session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": session.LanguageOptions(),
		"current":   snapshot.Language,
		"backend":   snapshot.TranslationBackend,
	})
}

func (rt *Router) setLanguage(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if !decodeJSON(r, &req) || strings.TrimSpace(req.Language) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'language' is required"})
		return
	}
	if err := session.SetLanguage(domain.LanguageCode(req.Language)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"language": session.Snapshot().Language})
}

func (rt *Router) setBackend(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Backend string `json:"backend"`
	}
	if !decodeJSON(r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	provider, known := domain.ParseProvider(req.Backend)
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown translation backend"})
		return
	}
	result, err := session.SetTranslationBackend(provider)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) translateSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := rt.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if r.ContentLength != 0 && !decodeJSON(r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	result, err := session.TranslateSummary(r.Context(), domain.LanguageCode(req.Target))
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

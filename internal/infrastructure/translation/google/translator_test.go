package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

func newTestTranslator(t *testing.T, handler http.HandlerFunc, executor *resilience.Executor) *Translator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	translator, err := New(context.Background(), Config{
		Endpoint:   server.URL + "/language/translate/",
		HTTPClient: server.Client(),
	}, executor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return translator
}

func TestTranslateSendsTextFormatAndReadsDetectedSource(t *testing.T) {
	var target, format, query string
	translator := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		target = r.FormValue("target")
		format = r.FormValue("format")
		query = r.FormValue("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hola &amp; adiós","detectedSourceLanguage":"en"}]}}`))
	}, nil)

	got, err := translator.Translate(context.Background(), "Hello & goodbye", "", "es")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.Text != "Hola & adiós" || got.DetectedSource != "en" {
		t.Fatalf("unexpected result %+v", got)
	}
	if target != "es" || format != "text" || query != "Hello & goodbye" {
		t.Fatalf("unexpected request target=%q format=%q q=%q", target, format, query)
	}
	if translator.Provider() != domain.ProviderCloud || translator.MaxChunkChars() != 5000 {
		t.Fatalf("unexpected backend identity")
	}
}

func TestTranslateRetriesServiceUnavailable(t *testing.T) {
	calls := 0
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, nil)
	translator := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend busy"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Bonjour"}]}}`))
	}, executor)

	got, err := translator.Translate(context.Background(), "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got.Text != "Bonjour" || got.DetectedSource != "en" || calls != 3 {
		t.Fatalf("unexpected result %+v after %d calls", got, calls)
	}
}

func TestTranslateDoesNotRetryBadRequest(t *testing.T) {
	calls := 0
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, nil)
	translator := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid Value"}}`))
	}, executor)

	_, err := translator.Translate(context.Background(), "Hello", "en", "xx")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("bad request must not be temporary: %v", err)
	}
}

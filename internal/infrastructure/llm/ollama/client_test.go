package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

func TestCompleterSendsSystemPromptAndOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"llama3","response":"  two years ","prompt_eval_count":30,"eval_count":12}`))
	}))
	defer server.Close()

	completer := NewCompleter(New(server.URL, "llama3", "embed"))
	completion, err := completer.Complete(context.Background(), domain.CompletionRequest{
		SystemPrompt: "system text",
		UserPrompt:   "question?",
		MaxTokens:    1000,
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completion.Text != "two years" || completion.TokensUsed != 42 || completion.Model != "llama3" {
		t.Fatalf("unexpected completion %+v", completion)
	}
	if payload["system"] != "system text" || payload["prompt"] != "question?" || payload["stream"] != false {
		t.Fatalf("unexpected payload %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["num_predict"] != float64(1000) || options["temperature"] != 0.3 {
		t.Fatalf("unexpected options %v", options)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadRequest)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("bad request must not be temporary")
	}
}

func TestEmbedRetriesBadGateway(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, nil)
	embedder := NewEmbedder(New(server.URL, "gen", "nomic", WithExecutor(executor)))

	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || calls != 2 {
		t.Fatalf("unexpected vectors=%d calls=%d", len(vectors), calls)
	}
	if embedder.Model() != "nomic" {
		t.Fatalf("unexpected model %q", embedder.Model())
	}
}

func TestTranslationRuntimeLoadAndTranslate(t *testing.T) {
	var prompts []string
	var loads int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nllb-mt" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		if req.Prompt == "" {
			loads++
			_, _ = w.Write([]byte(`{"response":""}`))
			return
		}
		prompts = append(prompts, req.Prompt)
		_, _ = w.Write([]byte(`{"response":"Hello world"}`))
	}))
	defer server.Close()

	runtime := NewTranslationRuntime(New(server.URL, "gen", "embed"), "nllb-mt")
	if err := runtime.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	out, err := runtime.Translate(context.Background(), []string{"Hola mundo"}, "spa_Latn", "eng_Latn")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if loads != 1 || len(out) != 1 || out[0] != "Hello world" {
		t.Fatalf("unexpected loads=%d out=%v", loads, out)
	}
	if !strings.Contains(prompts[0], "from spa_Latn to eng_Latn") || !strings.Contains(prompts[0], "Hola mundo") {
		t.Fatalf("unexpected prompt %q", prompts[0])
	}
}

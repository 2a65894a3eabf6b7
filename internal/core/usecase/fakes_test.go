package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type detectorFake struct {
	code domain.LanguageCode
	err  error
}

func (f *detectorFake) Detect(string) (domain.LanguageCode, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.code, nil
}

type backendCall struct {
	text   string
	source domain.ProviderCode
	target domain.ProviderCode
}

type backendFake struct {
	provider domain.Provider
	maxChars int
	detected domain.ProviderCode
	err      error

	mu    sync.Mutex
	calls []backendCall
}

func (f *backendFake) Provider() domain.Provider { return f.provider }
func (f *backendFake) MaxChunkChars() int       { return f.maxChars }

func (f *backendFake) Translate(_ context.Context, text string, source, target domain.ProviderCode) (ports.BackendTranslation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{text: text, source: source, target: target})
	f.mu.Unlock()
	if f.err != nil {
		return ports.BackendTranslation{}, f.err
	}
	return ports.BackendTranslation{Text: "[" + string(target) + "]" + text, DetectedSource: f.detected}, nil
}

func (f *backendFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type cacheFake struct {
	mu      sync.Mutex
	entries map[string]domain.TranslationCacheEntry
	puts    int
	getErr  error
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string]domain.TranslationCacheEntry)}
}

func (f *cacheFake) Get(_ context.Context, key string) (*domain.TranslationCacheEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	entry, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (f *cacheFake) Put(_ context.Context, entry domain.TranslationCacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[entry.Key] = entry
	return nil
}

func (f *cacheFake) Clear(_ context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for key := range f.entries {
		if pattern == "" || strings.Contains(key, pattern) {
			delete(f.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (f *cacheFake) Stats(context.Context) (domain.CacheStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.CacheStats{TotalEntries: len(f.entries), Location: "memory"}, nil
}

func (f *cacheFake) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for key := range f.entries {
		out = append(out, key)
	}
	return out
}

func backendFactories(backends ...*backendFake) map[domain.Provider]ports.TranslatorBackendFactory {
	out := make(map[domain.Provider]ports.TranslatorBackendFactory, len(backends))
	for _, backend := range backends {
		b := backend
		out[b.provider] = func(context.Context) (ports.TranslatorBackend, error) { return b, nil }
	}
	return out
}

func newTestRouter(provider domain.Provider, detector ports.LanguageDetector, cache ports.TranslationCache, backends ...*backendFake) *TranslationRouter {
	pool := NewBackendPool(backendFactories(backends...), discardLogger())
	return NewTranslationRouter(language.MustNewRegistry(), detector, pool, cache, provider, discardLogger())
}

// embedderFake fails single-text calls whose text contains failOn. When hold
// is set, Embed signals entered and waits until hold is closed.
type embedderFake struct {
	batchErr error
	failOn   string
	failAll  bool
	queries  []string
	entered  chan struct{}
	hold     chan struct{}
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.hold != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.hold
	}
	if f.failAll {
		return nil, errors.New("embedder down")
	}
	if len(texts) > 1 && f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return nil, errors.New("embed failed")
		}
		out = append(out, []float32{float32(len(text)), 1})
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.failAll {
		return nil, errors.New("embedder down")
	}
	return []float32{1, 1}, nil
}

func (f *embedderFake) Model() string { return "embed-test" }

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(text string) []string {
	if f.chunks != nil {
		return f.chunks
	}
	return strings.Split(text, "|")
}

// indexFake keeps entries in memory and ranks by insertion order.
type indexFake struct {
	mu         sync.Mutex
	entries    []domain.IndexEntry
	upsertErr  error
	queryErr   error
	clearErr   error
	exceptErr  error
	queries    int
	deletedDoc []string
}

func (f *indexFake) Name() string { return "test_index" }

func (f *indexFake) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *indexFake) Query(_ context.Context, _ []float32, topK int, documentID string) ([]domain.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []domain.VectorMatch
	for i, entry := range f.entries {
		if documentID != "" && entry.Metadata.DocumentID != documentID {
			continue
		}
		out = append(out, domain.VectorMatch{
			ID:       entry.ID,
			Text:     entry.Text,
			Metadata: entry.Metadata,
			Distance: 0.1 * float64(i%10),
		})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (f *indexFake) DeleteDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDoc = append(f.deletedDoc, documentID)
	kept := f.entries[:0]
	for _, entry := range f.entries {
		if entry.Metadata.DocumentID != documentID {
			kept = append(kept, entry)
		}
	}
	f.entries = kept
	return nil
}

func (f *indexFake) DeleteExcept(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exceptErr != nil {
		return f.exceptErr
	}
	kept := f.entries[:0]
	for _, entry := range f.entries {
		if entry.Metadata.DocumentID == documentID {
			kept = append(kept, entry)
		}
	}
	f.entries = kept
	return nil
}

func (f *indexFake) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.entries = nil
	return nil
}

func (f *indexFake) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *indexFake) documentIDs() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, entry := range f.entries {
		out[entry.Metadata.DocumentID] = true
	}
	return out
}

type completerFake struct {
	text     string
	tokens   int
	err      error
	requests []domain.CompletionRequest
}

func (f *completerFake) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Text: f.text, TokensUsed: f.tokens, Model: "llm-test"}, nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, string, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *extractorFake) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".txt", ".xlsx"}
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
}

func (f *publisherFake) PublishSessionEvent(_ context.Context, event domain.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *publisherFake) types() []domain.SessionEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SessionEventType, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Type)
	}
	return out
}

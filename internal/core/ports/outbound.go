package ports

import (
	"context"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// TextExtractor turns uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
	SupportedExtensions() []string
}

// LanguageDetector guesses the language of a text sample.
type LanguageDetector interface {
	Detect(text string) (domain.LanguageCode, error)
}

// BackendTranslation is one translated piece returned by a backend.
type BackendTranslation struct {
	Text           string
	DetectedSource domain.ProviderCode
}

// TranslatorBackend translates a single piece of text that already fits its size cap.
// An empty source asks the backend to auto-detect.
type TranslatorBackend interface {
	Provider() domain.Provider
	MaxChunkChars() int
	Translate(ctx context.Context, text string, source, target domain.ProviderCode) (BackendTranslation, error)
}

// TranslatorBackendFactory builds (and loads) a backend on first use.
type TranslatorBackendFactory func(ctx context.Context) (TranslatorBackend, error)

// TranslationCache persists translation results keyed by cache key.
type TranslationCache interface {
	Get(ctx context.Context, key string) (*domain.TranslationCacheEntry, bool, error)
	Put(ctx context.Context, entry domain.TranslationCacheEntry) error
	Clear(ctx context.Context, pattern string) (int, error)
	Stats(ctx context.Context) (domain.CacheStats, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Chunker splits text into retrieval units.
type Chunker interface {
	Split(text string) []string
}

// VectorIndex stores chunk embeddings for one session.
type VectorIndex interface {
	Name() string
	Upsert(ctx context.Context, entries []domain.IndexEntry) error
	Query(ctx context.Context, vector []float32, topK int, documentID string) ([]domain.VectorMatch, error)
	DeleteDocument(ctx context.Context, documentID string) error
	DeleteExcept(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// VectorIndexFactory opens the index owned by one session.
type VectorIndexFactory func(ctx context.Context, sessionID string) (VectorIndex, error)

// Completer produces a model completion.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// EventPublisher announces session lifecycle events.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error
}

// EventSubscriber consumes session lifecycle events.
type EventSubscriber interface {
	SubscribeSessionEvents(ctx context.Context, handler func(context.Context, domain.SessionEvent) error) error
}

// ConversationArchive keeps question/answer turns beyond a session's in-memory history.
type ConversationArchive interface {
	AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error
	ListTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)
}

// EventRecorder persists consumed session events.
type EventRecorder interface {
	RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error
}

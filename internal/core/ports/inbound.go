package ports

import (
	"context"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// DocumentSession is the inbound contract for one user's document conversation.
type DocumentSession interface {
	ID() string
	Upload(ctx context.Context, upload domain.Upload) domain.UploadResult
	Ask(ctx context.Context, question string) domain.AskResult
	Clear(ctx context.Context) error
	SetLanguage(code domain.LanguageCode) error
	SetTranslationBackend(provider domain.Provider) (domain.BackendSwitch, error)
	LanguageOptions() []domain.LanguageOption
	History() []domain.ConversationTurn
	Snapshot() domain.SessionSnapshot
	TranslateSummary(ctx context.Context, target domain.LanguageCode) (domain.SummaryTranslation, error)
	Collection(ctx context.Context) (domain.CollectionStats, error)
	ServiceInfo() domain.ServiceInfo
}

// SessionDirectory creates and looks up sessions.
type SessionDirectory interface {
	Create(ctx context.Context) (DocumentSession, error)
	Get(id string) (DocumentSession, error)
	Delete(ctx context.Context, id string) error
	// ArchivedTurns falls back to in-memory history when no archive is configured.
	ArchivedTurns(ctx context.Context, id string, limit int) ([]domain.ConversationTurn, error)
}

// TranslationAdmin exposes backend and cache administration.
type TranslationAdmin interface {
	BackendOptions() []domain.BackendOption
	LanguageOptions(provider domain.Provider) []domain.LanguageOption
	TestConnection(ctx context.Context, provider domain.Provider) domain.ConnectionTest
	CacheStats(ctx context.Context) (domain.CacheStats, error)
	ClearCache(ctx context.Context, pattern string) (int, error)
}

package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

type sessionFake struct {
	id       string
	language domain.LanguageCode
	backend  domain.Provider

	uploaded   *domain.Upload
	uploadResp domain.UploadResult
	askResp    domain.AskResult
	question   string
	cleared    bool
	setLangErr error
	summary    domain.SummaryTranslation
	summaryErr error
}

func (f *sessionFake) ID() string { return f.id }

func (f *sessionFake) Upload(_ context.Context, upload domain.Upload) domain.UploadResult {
	f.uploaded = &upload
	return f.uploadResp
}

func (f *sessionFake) Ask(_ context.Context, question string) domain.AskResult {
	f.question = question
	return f.askResp
}

func (f *sessionFake) Clear(context.Context) error {
	f.cleared = true
	return nil
}

func (f *sessionFake) SetLanguage(code domain.LanguageCode) error {
	if f.setLangErr != nil {
		return f.setLangErr
	}
	f.language = code
	return nil
}

func (f *sessionFake) SetTranslationBackend(provider domain.Provider) (domain.BackendSwitch, error) {
	previous := f.language
	f.backend = provider
	return domain.BackendSwitch{Provider: provider, Language: f.language, PreviousLanguage: previous}, nil
}

func (f *sessionFake) LanguageOptions() []domain.LanguageOption {
	return []domain.LanguageOption{{Code: "en", Name: "English"}, {Code: "es", Name: "Spanish"}}
}

func (f *sessionFake) History() []domain.ConversationTurn { return nil }

func (f *sessionFake) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ID:                 f.id,
		State:              domain.SessionEmpty,
		Language:           f.language,
		TranslationBackend: f.backend,
	}
}

func (f *sessionFake) TranslateSummary(context.Context, domain.LanguageCode) (domain.SummaryTranslation, error) {
	return f.summary, f.summaryErr
}

func (f *sessionFake) Collection(context.Context) (domain.CollectionStats, error) {
	return domain.CollectionStats{TotalChunks: 3, CollectionName: "docqa_" + f.id}, nil
}

func (f *sessionFake) ServiceInfo() domain.ServiceInfo {
	return domain.ServiceInfo{ActiveService: "NLLB (Open Source)", ServiceType: f.backend}
}

type directoryFake struct {
	sessions map[string]*sessionFake
	turns    []domain.ConversationTurn
	limit    int
}

func newDirectoryFake(sessions ...*sessionFake) *directoryFake {
	d := &directoryFake{sessions: make(map[string]*sessionFake)}
	for _, s := range sessions {
		d.sessions[s.id] = s
	}
	return d
}

func notFound(id string) error {
	return domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("session %q", id))
}

func (d *directoryFake) Create(context.Context) (ports.DocumentSession, error) {
	s := &sessionFake{id: "new-session", language: "en", backend: domain.ProviderCloud}
	d.sessions[s.id] = s
	return s, nil
}

func (d *directoryFake) Get(id string) (ports.DocumentSession, error) {
	s, ok := d.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return s, nil
}

func (d *directoryFake) Delete(_ context.Context, id string) error {
	if _, ok := d.sessions[id]; !ok {
		return notFound(id)
	}
	delete(d.sessions, id)
	return nil
}

func (d *directoryFake) ArchivedTurns(_ context.Context, id string, limit int) ([]domain.ConversationTurn, error) {
	if _, ok := d.sessions[id]; !ok {
		return nil, notFound(id)
	}
	d.limit = limit
	return d.turns, nil
}

type adminFake struct {
	pattern string
	removed int
	test    domain.ConnectionTest
}

func (a *adminFake) BackendOptions() []domain.BackendOption {
	return []domain.BackendOption{
		{ID: domain.ProviderCloud, Name: "Google Cloud Translate"},
		{ID: domain.ProviderLocal, Name: "NLLB (Open Source)"},
	}
}

func (a *adminFake) LanguageOptions(domain.Provider) []domain.LanguageOption {
	return []domain.LanguageOption{{Code: "en", Name: "English"}}
}

func (a *adminFake) TestConnection(context.Context, domain.Provider) domain.ConnectionTest {
	return a.test
}

func (a *adminFake) CacheStats(context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{TotalEntries: 2, Location: "cache"}, nil
}

func (a *adminFake) ClearCache(_ context.Context, pattern string) (int, error) {
	a.pattern = pattern
	if pattern == "broken" {
		return 0, errors.New("disk failure")
	}
	return a.removed, nil
}

func newTestHandler(dir *directoryFake, admin *adminFake, opts Options) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(dir, admin, nil, opts, logger).Handler()
}

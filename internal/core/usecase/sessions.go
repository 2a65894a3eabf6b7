package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

type SessionDeps struct {
	Translation  *TranslationService
	Extractor    ports.TextExtractor
	Chunker      ports.Chunker
	Embedder     ports.Embedder
	Completer    ports.Completer
	IndexFactory ports.VectorIndexFactory
	Events       ports.EventPublisher
	// Archive is optional.
	Archive ports.ConversationArchive
}

type SessionOptions struct {
	MaxUploadBytes    int64
	TopK              int
	DefaultLanguage   domain.LanguageCode
	DefaultBackend    domain.Provider
	AnswerMaxTokens   int
	AnswerTemperature float64
}

// SessionManager keeps the live sessions of one process. Every session gets
// its own vector index and router; backends and cache are shared.
type SessionManager struct {
	deps   SessionDeps
	opts   SessionOptions
	logger *slog.Logger
	newID  func() string

	mu       sync.RWMutex
	sessions map[string]*SessionState
}

func NewSessionManager(deps SessionDeps, opts SessionOptions, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		newID:    uuid.NewString,
		sessions: make(map[string]*SessionState),
	}
}

func (m *SessionManager) Create(ctx context.Context) (ports.DocumentSession, error) {
	session, err := m.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CreateSession is Create returning the concrete session.
func (m *SessionManager) CreateSession(ctx context.Context) (*SessionState, error) {
	id := m.newID()
	index, err := m.deps.IndexFactory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	registry := m.deps.Translation.Registry()
	router := m.deps.Translation.NewRouter(m.opts.DefaultBackend)
	session := NewSessionState(
		id,
		m.deps.Extractor,
		NewDocumentNormalizer(),
		NewIndexer(m.deps.Chunker, m.deps.Embedder, index, m.logger),
		NewRetriever(m.deps.Embedder, index, m.logger),
		NewAnswerSynthesizer(m.deps.Completer, registry, m.opts.AnswerMaxTokens, m.opts.AnswerTemperature),
		router,
		m.deps.Events,
		SessionConfig{
			MaxUploadBytes:  m.opts.MaxUploadBytes,
			TopK:            m.opts.TopK,
			DefaultLanguage: m.opts.DefaultLanguage,
		},
		m.logger,
	)
	if m.deps.Archive != nil {
		session.SetArchive(m.deps.Archive)
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()
	m.logger.Info("session_created", "session_id", id, "index", index.Name())
	return session, nil
}

func (m *SessionManager) Get(id string) (ports.DocumentSession, error) {
	session, err := m.Session(id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (m *SessionManager) Session(id string) (*SessionState, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("session %q", id))
	}
	return session, nil
}

// Delete forgets the session and clears its index.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "delete session", fmt.Errorf("session %q", id))
	}
	if err := session.Clear(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.Info("session_deleted", "session_id", id)
	return nil
}

// ArchivedTurns reads a session's archived conversation.
func (m *SessionManager) ArchivedTurns(ctx context.Context, id string, limit int) ([]domain.ConversationTurn, error) {
	session, err := m.Session(id)
	if err != nil {
		return nil, err
	}
	return session.ArchivedTurns(ctx, limit)
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

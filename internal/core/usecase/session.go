package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	textlang "golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const (
	defaultMaxUploadBytes = 50 * 1024 * 1024
	uploadFirstNotice     = "Please upload a document first."
)

type SessionConfig struct {
	MaxUploadBytes  int64
	TopK            int
	DefaultLanguage domain.LanguageCode
}

// SessionState owns one user's active document, preferences and history.
// Mutating operations run one at a time; Snapshot and History never block
// behind them.
type SessionState struct {
	id          string
	createdAt   time.Time
	extractor   ports.TextExtractor
	normalizer  *DocumentNormalizer
	indexer     *Indexer
	retriever   *Retriever
	synthesizer *AnswerSynthesizer
	router      *TranslationRouter
	events      ports.EventPublisher
	logger      *slog.Logger
	cfg         SessionConfig
	now         func() time.Time

	ops sync.Mutex

	mu       sync.RWMutex
	archive  ports.ConversationArchive
	status   domain.SessionStatus
	document *domain.Document
	language domain.LanguageCode
	history  []domain.ConversationTurn
}

func NewSessionState(
	id string,
	extractor ports.TextExtractor,
	normalizer *DocumentNormalizer,
	indexer *Indexer,
	retriever *Retriever,
	synthesizer *AnswerSynthesizer,
	router *TranslationRouter,
	events ports.EventPublisher,
	cfg SessionConfig,
	logger *slog.Logger,
) *SessionState {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	lang := cfg.DefaultLanguage
	if !router.ValidateLanguageCode(lang) {
		lang = firstOr(router.SupportedLanguages(), "en")
	}
	return &SessionState{
		id:          id,
		createdAt:   time.Now().UTC(),
		extractor:   extractor,
		normalizer:  normalizer,
		indexer:     indexer,
		retriever:   retriever,
		synthesizer: synthesizer,
		router:      router,
		events:      events,
		logger:      logger.With("session_id", id),
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		status:      domain.SessionEmpty,
		language:    lang,
	}
}

func (s *SessionState) ID() string {
	return s.id
}

// SetArchive makes every recorded turn also land in archive.
func (s *SessionState) SetArchive(archive ports.ConversationArchive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = archive
}

// ArchivedTurns returns up to limit archived turns in chronological order,
// including those dropped from History by later uploads.
func (s *SessionState) ArchivedTurns(ctx context.Context, limit int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	archive := s.archive
	s.mu.RUnlock()
	if archive == nil {
		return s.History(), nil
	}
	turns, err := archive.ListTurns(ctx, s.id, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived turns: %w", err)
	}
	return turns, nil
}

// Upload replaces the active document. Any failure leaves the previous
// document, index and history in place.
func (s *SessionState) Upload(ctx context.Context, upload domain.Upload) domain.UploadResult {
	s.ops.Lock()
	defer s.ops.Unlock()

	if problem := s.uploadProblem(upload); problem != "" {
		return s.failedUpload(problem, domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New(problem)))
	}

	s.mu.Lock()
	previous := s.status
	target := s.language
	s.status = domain.SessionProcessing
	s.mu.Unlock()
	restore := func() {
		s.mu.Lock()
		s.status = previous
		s.mu.Unlock()
	}

	text, err := s.extractor.Extract(ctx, upload.Filename, upload.Data)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("no text could be extracted from the document")
	}
	if err != nil {
		restore()
		wrapped := domain.WrapError(domain.ErrExtraction, "extract text", err)
		return s.failedUpload(fmt.Sprintf("Processing failed: %v", err), wrapped)
	}

	doc := s.normalizer.Normalize(ctx, text, SourceFile{
		Filename:  upload.Filename,
		SizeBytes: upload.Size(),
		FileType:  upload.Extension(),
		MimeType:  upload.MimeType(),
	}, target, s.router)

	indexed := s.indexer.IndexDocument(ctx, doc.Text, domain.IndexMetadata{
		Filename: doc.Filename,
		FileType: doc.FileType,
	})
	if !indexed.Success {
		restore()
		result := s.failedUpload(fmt.Sprintf("Document processed but indexing failed: %s", indexed.Error), indexed.Err)
		result.Document = &doc
		result.Degraded = previous == domain.SessionIndexed
		return result
	}

	doc.DocumentID = indexed.DocumentID
	doc.ChunksCount = indexed.ChunksCount
	doc.IndexedAt = s.now()

	s.mu.Lock()
	s.document = &doc
	s.status = domain.SessionIndexed
	s.history = nil
	s.mu.Unlock()

	s.logger.Info("document_ready",
		"filename", doc.Filename,
		"document_id", doc.DocumentID,
		"words", doc.WordCount,
		"translation_status", doc.TranslationStatus,
	)
	s.publish(ctx, domain.SessionEvent{
		Type:       domain.EventDocumentIndexed,
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		Chunks:     doc.ChunksCount,
		Provider:   s.router.Active(),
		Success:    true,
	})

	docCopy := doc
	return domain.UploadResult{
		Success:  true,
		Status:   s.uploadStatus(doc),
		Degraded: doc.TranslationNeeded && !doc.TranslationSuccess,
		Document: &docCopy,
		State:    domain.SessionIndexed,
	}
}

// Ask answers from the active document. Failed answers are still recorded in
// history with their error.
func (s *SessionState) Ask(ctx context.Context, question string) domain.AskResult {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.RLock()
	doc := s.document
	status := s.status
	target := s.language
	s.mu.RUnlock()

	if doc == nil || status != domain.SessionIndexed {
		return domain.AskResult{
			Success: false,
			Notice:  uploadFirstNotice,
			Err:     domain.WrapError(domain.ErrNoActiveDocument, "ask", errors.New("no document uploaded")),
		}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		err := domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
		return domain.AskResult{Success: false, Error: "Question is empty", Err: err}
	}

	turn := domain.ConversationTurn{
		Question:  question,
		CreatedAt: s.now(),
		Metadata:  domain.AnswerMetadata{TargetLanguage: target},
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK, doc.DocumentID)
	if err != nil {
		wrapped := domain.WrapError(domain.ErrSynthesis, "retrieve context", err)
		turn.Error = fmt.Sprintf("Question answering failed: %v", err)
		return s.recordFailedTurn(ctx, turn, wrapped)
	}

	answer := s.synthesizer.Answer(ctx, question, chunks, target)
	turn.Metadata = domain.AnswerMetadata{
		ChunksRetrieved: len(chunks),
		TokensUsed:      answer.TokensUsed,
		ModelUsed:       answer.ModelUsed,
		TargetLanguage:  target,
	}
	if !answer.Success {
		turn.Answer = answer.Answer
		turn.Error = answer.Error
		return s.recordFailedTurn(ctx, turn, answer.Err)
	}

	turn.Success = true
	turn.Answer = answer.Answer
	turn.Sources = Sources(chunks)
	s.appendTurn(ctx, turn)

	s.publish(ctx, domain.SessionEvent{
		Type:       domain.EventQuestionAnswered,
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		Chunks:     len(chunks),
		Success:    true,
	})

	metadata := turn.Metadata
	return domain.AskResult{
		Success:  true,
		Answer:   turn.Answer,
		Sources:  turn.Sources,
		Metadata: &metadata,
		Turn:     &turn,
	}
}

// Clear resets the session to Empty even when the index could not be wiped.
func (s *SessionState) Clear(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	var documentID, filename string
	if s.document != nil {
		documentID, filename = s.document.DocumentID, s.document.Filename
	}
	s.document = nil
	s.status = domain.SessionEmpty
	s.history = nil
	s.mu.Unlock()

	err := s.indexer.Clear(ctx)
	s.publish(ctx, domain.SessionEvent{
		Type:       domain.EventDocumentCleared,
		DocumentID: documentID,
		Filename:   filename,
		Success:    err == nil,
	})
	if err != nil {
		s.logger.Warn("document_clear_failed", "error", err)
		return fmt.Errorf("clear document: %w", err)
	}
	return nil
}

func (s *SessionState) SetLanguage(code domain.LanguageCode) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	code = language.NormalizeCode(string(code))
	if !s.router.ValidateLanguageCode(code) {
		return domain.WrapError(
			domain.ErrUnsupportedLanguage,
			"set language",
			fmt.Errorf("language %q is not supported by %s", code, s.router.registry.ServiceDisplayName(s.router.Active())),
		)
	}
	s.mu.Lock()
	s.language = code
	s.mu.Unlock()
	return nil
}

// SetTranslationBackend keeps the selected language when the new backend
// supports it and otherwise falls back to the backend's first language.
func (s *SessionState) SetTranslationBackend(provider domain.Provider) (domain.BackendSwitch, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	if err := s.router.SwitchBackend(provider); err != nil {
		return domain.BackendSwitch{}, err
	}

	s.mu.Lock()
	previous := s.language
	if !s.router.registry.IsSupported(previous, provider) {
		s.language = firstOr(s.router.registry.SupportedLanguages(provider), previous)
	}
	current := s.language
	s.mu.Unlock()

	if current != previous {
		s.logger.Info("language_remapped", "from", previous, "to", current, "provider", provider)
	}
	s.publish(context.Background(), domain.SessionEvent{
		Type:     domain.EventBackendSwitched,
		Provider: provider,
		Success:  true,
	})

	return domain.BackendSwitch{
		Provider:         provider,
		Language:         current,
		LanguageChanged:  current != previous,
		PreviousLanguage: previous,
		Languages:        s.router.registry.LanguageOptions(provider),
	}, nil
}

func (s *SessionState) LanguageOptions() []domain.LanguageOption {
	return s.router.LanguageOptions()
}

func (s *SessionState) History() []domain.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

func (s *SessionState) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := domain.SessionSnapshot{
		ID:                 s.id,
		State:              s.status,
		Language:           s.language,
		TranslationBackend: s.router.Active(),
		HistoryLength:      len(s.history),
		CreatedAt:          s.createdAt,
	}
	if s.document != nil {
		doc := *s.document
		snapshot.Document = &doc
	}
	return snapshot
}

// TranslateSummary translates a short summary of the active document; an
// empty target uses the session language.
func (s *SessionState) TranslateSummary(ctx context.Context, target domain.LanguageCode) (domain.SummaryTranslation, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.RLock()
	doc := s.document
	if target == "" {
		target = s.language
	}
	s.mu.RUnlock()

	if doc == nil {
		return domain.SummaryTranslation{}, domain.WrapError(domain.ErrNoActiveDocument, "translate summary", errors.New("no document uploaded"))
	}
	target = language.NormalizeCode(string(target))
	if !s.router.ValidateLanguageCode(target) {
		return domain.SummaryTranslation{}, domain.WrapError(domain.ErrUnsupportedLanguage, "translate summary", fmt.Errorf("language %q is not supported", target))
	}
	return s.router.TranslateDocumentSummary(ctx, *doc, target), nil
}

// Collection reports the session's vector index contents.
func (s *SessionState) Collection(ctx context.Context) (domain.CollectionStats, error) {
	return s.indexer.CollectionStats(ctx)
}

func (s *SessionState) ServiceInfo() domain.ServiceInfo {
	return s.router.ServiceInfo()
}

// uploadProblem returns a user-facing reason the upload is rejected, or "".
func (s *SessionState) uploadProblem(upload domain.Upload) string {
	if strings.TrimSpace(upload.Filename) == "" {
		return "No file uploaded"
	}
	ext := upload.Extension()
	supported := s.extractor.SupportedExtensions()
	if !slices.Contains(supported, ext) {
		return fmt.Sprintf("Unsupported file format: %s. Supported formats: %s", ext, strings.Join(supported, ", "))
	}
	if upload.Size() == 0 {
		return "File is empty"
	}
	if upload.Size() > s.cfg.MaxUploadBytes {
		return fmt.Sprintf("File size (%.1f MB) exceeds maximum allowed size (%d MB)",
			float64(upload.Size())/1024/1024, s.cfg.MaxUploadBytes/1024/1024)
	}
	return ""
}

func (s *SessionState) failedUpload(status string, err error) domain.UploadResult {
	s.mu.RLock()
	state := s.status
	s.mu.RUnlock()
	s.logger.Warn("document_upload_failed", "error", err)
	return domain.UploadResult{
		Success: false,
		Status:  status,
		State:   state,
		Error:   domain.ErrorMessage(err),
		Err:     err,
	}
}

func (s *SessionState) recordFailedTurn(ctx context.Context, turn domain.ConversationTurn, err error) domain.AskResult {
	s.appendTurn(ctx, turn)
	s.logger.Warn("question_failed", "error", err)
	metadata := turn.Metadata
	return domain.AskResult{
		Success:  false,
		Answer:   turn.Answer,
		Metadata: &metadata,
		Error:    turn.Error,
		Turn:     &turn,
		Err:      err,
	}
}

func (s *SessionState) appendTurn(ctx context.Context, turn domain.ConversationTurn) {
	s.mu.Lock()
	s.history = append(s.history, turn)
	archive := s.archive
	s.mu.Unlock()

	if archive == nil {
		return
	}
	if err := archive.AppendTurn(context.WithoutCancel(ctx), s.id, turn); err != nil {
		s.logger.Warn("conversation_archive_failed", "error", err)
	}
}

func (s *SessionState) uploadStatus(doc domain.Document) string {
	p := message.NewPrinter(textlang.English)
	var b strings.Builder
	b.WriteString("Document processed successfully!\n")
	b.WriteString(p.Sprintf("Extracted %d words from %d page(s)\n", doc.WordCount, doc.Pages))
	fmt.Fprintf(&b, "Indexed with %d chunks", doc.ChunksCount)
	if doc.TranslationNeeded {
		registry := s.router.registry
		target := registry.LanguageName(doc.TargetLanguage)
		if doc.TranslationSuccess {
			fmt.Fprintf(&b, "\nTranslated from %s to %s", registry.LanguageName(doc.DetectedLanguage), target)
		} else {
			fmt.Fprintf(&b, "\nTranslation to %s failed, showing original text: %s", target, doc.TranslationError)
		}
	}
	return b.String()
}

func (s *SessionState) publish(ctx context.Context, event domain.SessionEvent) {
	if s.events == nil {
		return
	}
	event.SessionID = s.id
	event.OccurredAt = s.now()
	if err := s.events.PublishSessionEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("session_event_publish_failed", "type", event.Type, "error", err)
	}
}

func firstOr(codes []domain.LanguageCode, fallback domain.LanguageCode) domain.LanguageCode {
	if len(codes) == 0 {
		return fallback
	}
	return codes[0]
}

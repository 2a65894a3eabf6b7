package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const summaryPreviewChars = 500

// TranslationObserver receives one call per finished translate request.
type TranslationObserver interface {
	ObserveTranslation(provider domain.Provider, method string, success bool)
}

// TranslateRequest is one translate call. An empty Source means auto-detect;
// an empty CacheName skips the cache.
type TranslateRequest struct {
	Text      string
	Target    domain.LanguageCode
	Source    domain.LanguageCode
	CacheName string
}

// TranslationRouter routes translation through the session's active backend.
// Backends and cache are shared; only the active choice is per router.
type TranslationRouter struct {
	registry      *language.Registry
	detector      ports.LanguageDetector
	pool          *BackendPool
	cache         ports.TranslationCache
	observer      TranslationObserver
	logger        *slog.Logger
	localFallback domain.LanguageCode

	mu     sync.RWMutex
	active domain.Provider
}

func NewTranslationRouter(
	registry *language.Registry,
	detector ports.LanguageDetector,
	pool *BackendPool,
	cache ports.TranslationCache,
	initial domain.Provider,
	logger *slog.Logger,
) *TranslationRouter {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := domain.ParseProvider(string(initial)); !ok {
		initial = domain.ProviderCloud
	}
	return &TranslationRouter{
		registry:      registry,
		detector:      detector,
		pool:          pool,
		cache:         cache,
		logger:        logger,
		localFallback: "en",
		active:        initial,
	}
}

func (r *TranslationRouter) SetObserver(observer TranslationObserver) {
	r.observer = observer
}

func (r *TranslationRouter) Active() domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SwitchBackend changes the active provider. The backend itself is built on
// its first translate call.
func (r *TranslationRouter) SwitchBackend(provider domain.Provider) error {
	if len(r.registry.SupportedLanguages(provider)) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "switch backend", fmt.Errorf("unknown translation backend %q", provider))
	}
	r.mu.Lock()
	previous := r.active
	r.active = provider
	r.mu.Unlock()
	if previous != provider {
		r.logger.Info("translation_backend_switched", "from", previous, "to", provider)
	}
	return nil
}

// DetectLanguage looks at the first 1000 characters only. ok is false when
// the detector cannot decide.
func (r *TranslationRouter) DetectLanguage(text string) (domain.LanguageCode, bool) {
	if r.detector == nil || strings.TrimSpace(text) == "" {
		return "", false
	}
	code, err := r.detector.Detect(detectionSample(text))
	if err != nil {
		r.logger.Debug("language_detection_failed", "error", err)
		return "", false
	}
	code = language.NormalizeCode(string(code))
	if code == "" {
		return "", false
	}
	return code, true
}

func (r *TranslationRouter) IsTranslationNeeded(text string, target domain.LanguageCode) bool {
	detected, ok := r.DetectLanguage(text)
	if !ok {
		return true
	}
	return detected != target
}

func (r *TranslationRouter) Translate(ctx context.Context, req TranslateRequest) domain.TranslationResult {
	provider := r.Active()
	result := r.translate(ctx, provider, req)
	if r.observer != nil {
		r.observer.ObserveTranslation(provider, result.Method, result.Success)
	}
	if !result.Success {
		r.logger.Warn("translation_failed",
			"provider", provider,
			"target", req.Target,
			"error", result.Error,
		)
	}
	return result
}

func (r *TranslationRouter) translate(ctx context.Context, provider domain.Provider, req TranslateRequest) domain.TranslationResult {
	if strings.TrimSpace(req.Text) == "" {
		return domain.FailedTranslation(req.Target, domain.WrapError(domain.ErrInvalidInput, "translate", errors.New("no text provided for translation")))
	}

	requested := req.Source
	if requested == "" {
		requested = domain.AutoDetect
	}

	var key string
	if req.CacheName != "" {
		key = cacheKey(req.CacheName, provider, requested, req.Target, req.Text)
		if cached, ok := r.lookup(ctx, key, req.Text); ok {
			return cached
		}
	}

	source := requested
	if source == domain.AutoDetect {
		if detected, ok := r.DetectLanguage(req.Text); ok {
			source = detected
		} else if provider == domain.ProviderLocal {
			source = r.localFallback
		}
	}

	if source == req.Target {
		result := domain.TranslationResult{
			Success:        true,
			TranslatedText: req.Text,
			SourceLanguage: source,
			TargetLanguage: req.Target,
			Method:         domain.MethodNoTranslation,
		}
		r.store(ctx, key, provider, req.Text, result)
		return result
	}

	targetCode, err := r.registry.ProviderCode(req.Target, provider)
	if err != nil {
		return domain.FailedTranslation(req.Target, err)
	}
	var sourceCode domain.ProviderCode
	if source != domain.AutoDetect {
		sourceCode, err = r.registry.ProviderCode(source, provider)
		if err != nil {
			return domain.FailedTranslation(req.Target, err)
		}
	}

	backend, err := r.pool.Get(ctx, provider)
	if err != nil {
		return domain.FailedTranslation(req.Target, err)
	}

	pieces := splitForTranslation(req.Text, backend.MaxChunkChars())
	translated := make([]string, 0, len(pieces))
	for i, piece := range pieces {
		out, err := backend.Translate(ctx, piece, sourceCode, targetCode)
		if err != nil {
			return domain.FailedTranslation(req.Target, domain.WrapError(domain.ErrTranslation, fmt.Sprintf("translate piece %d/%d", i+1, len(pieces)), err))
		}
		if source == domain.AutoDetect && out.DetectedSource != "" {
			source = r.resolveDetected(out.DetectedSource, provider)
		}
		translated = append(translated, out.Text)
	}

	result := domain.TranslationResult{
		Success:        true,
		TranslatedText: strings.Join(translated, " "),
		SourceLanguage: source,
		TargetLanguage: req.Target,
		Method:         methodFor(provider),
	}
	r.store(ctx, key, provider, req.Text, result)
	return result
}

// BatchTranslate translates each text independently; per-item cache names are
// <cacheName stem>_chunk_<i>.
func (r *TranslationRouter) BatchTranslate(ctx context.Context, texts []string, target, source domain.LanguageCode, cacheName string) []domain.TranslationResult {
	out := make([]domain.TranslationResult, 0, len(texts))
	for i, text := range texts {
		req := TranslateRequest{Text: text, Target: target, Source: source}
		if cacheName != "" {
			req.CacheName = fmt.Sprintf("%s_chunk_%d", cacheStem(cacheName), i)
		}
		result := r.Translate(ctx, req)
		result.Index = i
		out = append(out, result)
	}
	return out
}

func (r *TranslationRouter) TranslateDocumentSummary(ctx context.Context, doc domain.Document, target domain.LanguageCode) domain.SummaryTranslation {
	summary := fmt.Sprintf(
		"Document: %s\nFile Type: %s\nPages: %d\nWord Count: %d\n\nContent Preview:\n%s",
		doc.Filename, doc.FileType, doc.Pages, doc.WordCount, preview(doc.Text, summaryPreviewChars),
	)
	result := r.Translate(ctx, TranslateRequest{
		Text:      summary,
		Target:    target,
		CacheName: cacheStem(doc.Filename) + "_summary",
	})
	if !result.Success {
		return domain.SummaryTranslation{Success: false, TargetLanguage: target, Error: result.Error}
	}
	return domain.SummaryTranslation{
		Success:           true,
		TranslatedSummary: result.TranslatedText,
		SourceLanguage:    result.SourceLanguage,
		TargetLanguage:    target,
	}
}

func (r *TranslationRouter) ServiceInfo() domain.ServiceInfo {
	provider := r.Active()
	return domain.ServiceInfo{
		ActiveService:      r.registry.ServiceDisplayName(provider),
		ServiceType:        provider,
		SupportedLanguages: len(r.registry.SupportedLanguages(provider)),
		BackendLoaded:      r.pool.Loaded(provider),
	}
}

func (r *TranslationRouter) ValidateLanguageCode(code domain.LanguageCode) bool {
	return r.registry.IsSupported(code, r.Active())
}

func (r *TranslationRouter) SupportedLanguages() []domain.LanguageCode {
	return r.registry.SupportedLanguages(r.Active())
}

func (r *TranslationRouter) LanguageOptions() []domain.LanguageOption {
	return r.registry.LanguageOptions(r.Active())
}

func (r *TranslationRouter) lookup(ctx context.Context, key, text string) (domain.TranslationResult, bool) {
	if r.cache == nil {
		return domain.TranslationResult{}, false
	}
	entry, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("translation_cache_read_failed", "key", key, "error", err)
		return domain.TranslationResult{}, false
	}
	if !ok || entry == nil || entry.ContentHash != contentHash(text) {
		return domain.TranslationResult{}, false
	}
	r.logger.Debug("translation_cache_hit", "key", key)
	return domain.TranslationResult{
		Success:        true,
		TranslatedText: entry.TranslatedText,
		SourceLanguage: entry.SourceLanguage,
		TargetLanguage: entry.TargetLanguage,
		Method:         domain.CachedMethod(entry.Method),
	}, true
}

func (r *TranslationRouter) store(ctx context.Context, key string, provider domain.Provider, text string, result domain.TranslationResult) {
	if r.cache == nil || key == "" {
		return
	}
	err := r.cache.Put(ctx, domain.TranslationCacheEntry{
		Key:            key,
		ContentHash:    contentHash(text),
		Provider:       provider,
		TranslatedText: result.TranslatedText,
		SourceLanguage: result.SourceLanguage,
		TargetLanguage: result.TargetLanguage,
		Method:         result.Method,
	})
	if err != nil {
		r.logger.Warn("translation_cache_write_failed", "key", key, "error", err)
	}
}

func (r *TranslationRouter) resolveDetected(pc domain.ProviderCode, provider domain.Provider) domain.LanguageCode {
	if code, err := r.registry.GlobalCode(pc, provider); err == nil {
		return code
	}
	return language.NormalizeCode(string(pc))
}

func methodFor(provider domain.Provider) string {
	if provider == domain.ProviderLocal {
		return domain.MethodLocal
	}
	return domain.MethodCloud
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const (
	connectionProbeText   = "Hello"
	connectionProbeTarget = domain.LanguageCode("es")
)

// TranslationService owns the dependencies shared by every session's router
// and serves backend and cache administration.
type TranslationService struct {
	registry *language.Registry
	detector ports.LanguageDetector
	pool     *BackendPool
	cache    ports.TranslationCache
	observer TranslationObserver
	logger   *slog.Logger
}

func NewTranslationService(
	registry *language.Registry,
	detector ports.LanguageDetector,
	pool *BackendPool,
	cache ports.TranslationCache,
	observer TranslationObserver,
	logger *slog.Logger,
) *TranslationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslationService{
		registry: registry,
		detector: detector,
		pool:     pool,
		cache:    cache,
		observer: observer,
		logger:   logger,
	}
}

func (s *TranslationService) Registry() *language.Registry {
	return s.registry
}

// NewRouter returns a router over the shared pool and cache.
func (s *TranslationService) NewRouter(initial domain.Provider) *TranslationRouter {
	router := NewTranslationRouter(s.registry, s.detector, s.pool, s.cache, initial, s.logger)
	router.SetObserver(s.observer)
	return router
}

func (s *TranslationService) BackendOptions() []domain.BackendOption {
	return s.registry.BackendOptions()
}

func (s *TranslationService) LanguageOptions(provider domain.Provider) []domain.LanguageOption {
	return s.registry.LanguageOptions(provider)
}

// TestConnection translates "Hello" into Spanish through the given backend.
func (s *TranslationService) TestConnection(ctx context.Context, provider domain.Provider) domain.ConnectionTest {
	router := NewTranslationRouter(s.registry, s.detector, s.pool, nil, provider, s.logger)
	if err := router.SwitchBackend(provider); err != nil {
		return domain.ConnectionTest{Success: false, Error: err.Error()}
	}
	result := router.Translate(ctx, TranslateRequest{
		Text:   connectionProbeText,
		Source: "en",
		Target: connectionProbeTarget,
	})
	if !result.Success {
		return domain.ConnectionTest{
			Success: false,
			Message: fmt.Sprintf("%s connection failed", s.registry.ServiceDisplayName(provider)),
			Error:   result.Error,
		}
	}
	return domain.ConnectionTest{
		Success:        true,
		Message:        fmt.Sprintf("%s connection successful", s.registry.ServiceDisplayName(provider)),
		Original:       connectionProbeText,
		Translated:     result.TranslatedText,
		TargetLanguage: connectionProbeTarget,
		DetectedSource: result.SourceLanguage,
	}
}

func (s *TranslationService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	if s.cache == nil {
		return domain.CacheStats{}, nil
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// ClearCache removes entries whose key contains pattern, or all entries when
// pattern is empty.
func (s *TranslationService) ClearCache(ctx context.Context, pattern string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	removed, err := s.cache.Clear(ctx, strings.TrimSpace(pattern))
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("translation_cache_cleared", "pattern", pattern, "removed", removed)
	return removed, nil
}

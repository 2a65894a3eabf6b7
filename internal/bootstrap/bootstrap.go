package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docqa-assistant/internal/config"
	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
	"github.com/kirillkom/docqa-assistant/internal/core/usecase"
	cachememory "github.com/kirillkom/docqa-assistant/internal/infrastructure/cache/memory"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/langdetect"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/translation/google"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/translation/lambda"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/translation/local"
	vectormemory "github.com/kirillkom/docqa-assistant/internal/infrastructure/vector/memory"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/docqa-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Sessions    *usecase.SessionManager
	Translation *usecase.TranslationService
	HTTPMetrics *metrics.HTTPServerMetrics

	// Queue is nil unless session events are enabled.
	Queue *nats.Queue
	// Events is nil without a database.
	Events ports.EventRecorder

	closers []func()
}

// New wires every adapter named by cfg. service labels metrics.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, problem := range cfg.Validate() {
		logger.Warn("config_problem", "error", problem)
	}

	app := &App{
		Config:      cfg,
		Logger:      logger,
		HTTPMetrics: metrics.NewHTTPServerMetrics(service),
	}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		AttemptTimeout:      cfg.AttemptTimeout,
		BreakerEnabled:      cfg.BreakerEnabled,
	}, logger)

	registry, err := language.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("init language registry: %w", err)
	}

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		app.closers = append(app.closers, func() { _ = db.Close() })
		app.Events = sqlstore.NewEventRepository(db, dialect)
	}

	cache, err := newTranslationCache(cfg, db, dialect)
	if err != nil {
		return nil, err
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.WithExecutor(executor))

	runtime, err := newLocalRuntime(ctx, cfg, ollamaClient, executor)
	if err != nil {
		return nil, err
	}
	pool := usecase.NewBackendPool(map[domain.Provider]ports.TranslatorBackendFactory{
		domain.ProviderCloud: google.NewFactory(google.Config{
			APIKey:          cfg.GoogleTranslateAPIKey,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Endpoint:        cfg.GoogleTranslateURL,
		}, executor),
		domain.ProviderLocal: local.NewFactory(runtime),
	}, logger)
	app.Translation = usecase.NewTranslationService(registry, langdetect.New(), pool, cache, app.HTTPMetrics, logger)

	completer, err := newCompleter(cfg, ollamaClient, executor)
	if err != nil {
		return nil, err
	}

	deps := usecase.SessionDeps{
		Translation:  app.Translation,
		Extractor:    extractor.New(),
		Chunker:      chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Embedder:     ollama.NewEmbedder(ollamaClient),
		Completer:    completer,
		IndexFactory: newIndexFactory(cfg, executor),
	}
	if cfg.ArchiveEnabled && db != nil {
		deps.Archive = sqlstore.NewConversationRepository(db, dialect)
	}
	if cfg.EventsEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
		deps.Events = queue
	}

	backend, known := domain.ParseProvider(cfg.TranslationBackend)
	if !known {
		backend = domain.ProviderCloud
	}
	app.Sessions = usecase.NewSessionManager(deps, usecase.SessionOptions{
		MaxUploadBytes:    cfg.MaxUploadBytes(),
		TopK:              cfg.RAGTopK,
		DefaultLanguage:   domain.LanguageCode(cfg.DefaultLanguage),
		DefaultBackend:    backend,
		AnswerMaxTokens:   cfg.AnswerMaxTokens,
		AnswerTemperature: cfg.AnswerTemperature,
	}, logger)

	logger.Info("bootstrap_ready",
		"translation_backend", backend,
		"completer", cfg.CompleterBackend,
		"vector_backend", cfg.VectorBackend,
		"cache_backend", cfg.CacheBackend,
		"events", cfg.EventsEnabled,
		"archive", deps.Archive != nil,
	)
	ok = true
	return app, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// openDatabase returns a nil handle when nothing needs SQL.
func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, sqlstore.Dialect, error) {
	needed := cfg.CacheBackend == "postgres" || cfg.CacheBackend == "sqlite" || cfg.ArchiveEnabled
	if !needed && cfg.DatabaseDSN == "" {
		return nil, "", nil
	}
	if cfg.DatabaseDSN == "" {
		return nil, "", fmt.Errorf("DATABASE_DSN is required for the %s cache or the conversation archive", cfg.CacheBackend)
	}

	dialect, err := sqlstore.ParseDialect(cfg.DatabaseDialect())
	if err != nil {
		return nil, "", err
	}
	db, err := sqlstore.OpenDB(ctx, dialect, cfg.DatabaseDSN)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := sqlstore.EnsureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ensure schema: %w", err)
	}
	return db, dialect, nil
}

func newTranslationCache(cfg config.Config, db *sql.DB, dialect sqlstore.Dialect) (ports.TranslationCache, error) {
	switch cfg.CacheBackend {
	case "postgres", "sqlite":
		return sqlstore.NewTranslationCacheRepository(db, dialect), nil
	case "memory":
		return cachememory.New(), nil
	case "file", "":
		storage, err := localfs.New(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("init translation cache: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown translation cache backend: %s", cfg.CacheBackend)
	}
}

func newLocalRuntime(ctx context.Context, cfg config.Config, client *ollama.Client, executor *resilience.Executor) (local.ModelRuntime, error) {
	switch cfg.LocalRuntime {
	case "lambda":
		runtime, err := lambda.New(ctx, cfg.LambdaFunction, cfg.AWSRegion, executor)
		if err != nil {
			return nil, fmt.Errorf("init lambda runtime: %w", err)
		}
		return runtime, nil
	case "ollama", "":
		return ollama.NewTranslationRuntime(client, cfg.NLLBModelName), nil
	default:
		return nil, fmt.Errorf("unknown nllb runtime: %s", cfg.LocalRuntime)
	}
}

func newCompleter(cfg config.Config, client *ollama.Client, executor *resilience.Executor) (ports.Completer, error) {
	switch cfg.CompleterBackend {
	case "openai":
		completer, err := openai.NewCompleter(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, executor)
		if err != nil {
			return nil, fmt.Errorf("init openai completer: %w", err)
		}
		return completer, nil
	case "ollama", "":
		return ollama.NewCompleter(client), nil
	default:
		return nil, fmt.Errorf("unknown completer backend: %s", cfg.CompleterBackend)
	}
}

func newIndexFactory(cfg config.Config, executor *resilience.Executor) ports.VectorIndexFactory {
	if cfg.VectorBackend == "memory" {
		return vectormemory.NewFactory(cfg.QdrantCollection)
	}
	opts := []qdrant.Option{qdrant.WithExecutor(executor)}
	if cfg.QdrantAPIKey != "" {
		opts = append(opts, qdrant.WithAPIKey(cfg.QdrantAPIKey))
	}
	return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, opts...).Open
}

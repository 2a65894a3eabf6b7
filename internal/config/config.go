package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort           string
	LogLevel          string
	WorkerMetricsPort string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int

	// TranslationBackend is google_cloud or nllb.
	TranslationBackend    string
	GoogleTranslateAPIKey string
	GoogleCredentialsFile string
	GoogleTranslateURL    string
	// LocalRuntime runs the nllb backend: ollama or lambda.
	LocalRuntime   string
	// NLLBModelName is the Ollama model for the nllb backend; empty uses OllamaGenModel.
	NLLBModelName  string
	LambdaFunction string
	AWSRegion      string

	// CompleterBackend is ollama or openai.
	CompleterBackend string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	// VectorBackend is qdrant or memory.
	VectorBackend    string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// CacheBackend is file, postgres, sqlite or memory.
	CacheBackend   string
	CacheDir       string
	DatabaseDSN    string
	ArchiveEnabled bool

	EventsEnabled bool
	NATSURL       string
	NATSSubject   string

	ChunkSize         int
	ChunkOverlap      int
	RAGTopK           int
	MaxFileSizeMB     int
	AnswerMaxTokens   int
	AnswerTemperature float64
	DefaultLanguage   string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	AttemptTimeout      time.Duration
	BreakerEnabled      bool
}

// Load reads the environment. A .env file in the working directory is
// applied first and never overrides variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:           mustEnv("API_PORT", "8080"),
		LogLevel:          mustEnv("LOG_LEVEL", "info"),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),

		RateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		RateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		MaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 32),

		TranslationBackend:    mustEnv("TRANSLATION_SERVICE", "google_cloud"),
		GoogleTranslateAPIKey: mustEnv("GOOGLE_TRANSLATE_API_KEY", ""),
		GoogleCredentialsFile: mustEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleTranslateURL:    mustEnv("GOOGLE_TRANSLATE_URL", ""),
		LocalRuntime:          mustEnv("NLLB_RUNTIME", "ollama"),
		NLLBModelName:         mustEnv("NLLB_MODEL_NAME", ""),
		LambdaFunction:        mustEnv("NLLB_LAMBDA_FUNCTION", ""),
		AWSRegion:             mustEnv("AWS_REGION", "us-east-1"),

		CompleterBackend: mustEnv("COMPLETER_BACKEND", "ollama"),
		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      mustEnv("OPENAI_MODEL", "gpt-3.5-turbo"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		VectorBackend:    mustEnv("VECTOR_BACKEND", "qdrant"),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     mustEnv("QDRANT_API_KEY", ""),
		QdrantCollection: mustEnv("QDRANT_COLLECTION_PREFIX", "docqa"),

		CacheBackend:   mustEnv("TRANSLATION_CACHE_BACKEND", "file"),
		CacheDir:       mustEnv("TRANSLATION_CACHE_DIR", "cache"),
		DatabaseDSN:    mustEnv("DATABASE_DSN", ""),
		ArchiveEnabled: mustEnvBool("CONVERSATION_ARCHIVE_ENABLED", false),

		EventsEnabled: mustEnvBool("SESSION_EVENTS_ENABLED", false),
		NATSURL:       mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:   mustEnv("NATS_SUBJECT", "docqa.session.events"),

		ChunkSize:         mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      mustEnvInt("CHUNK_OVERLAP", 200),
		RAGTopK:           mustEnvInt("RAG_TOP_K", 5),
		MaxFileSizeMB:     mustEnvInt("MAX_FILE_SIZE_MB", 50),
		AnswerMaxTokens:   mustEnvInt("ANSWER_MAX_TOKENS", 1000),
		AnswerTemperature: mustEnvFloat("ANSWER_TEMPERATURE", 0.3),
		DefaultLanguage:   mustEnv("DEFAULT_LANGUAGE", "en"),

		RetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("RESILIENCE_RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RESILIENCE_RETRY_MAX_BACKOFF", 400*time.Millisecond),
		AttemptTimeout:      mustEnvDuration("RESILIENCE_ATTEMPT_TIMEOUT", 0),
		BreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
	}
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Validate lists every configuration problem. An empty result means the
// configuration is usable.
func (c Config) Validate() []error {
	var errs []error

	switch c.TranslationBackend {
	case "google_cloud":
		if c.GoogleTranslateAPIKey == "" && c.GoogleCredentialsFile == "" {
			errs = append(errs, fmt.Errorf("google_cloud translation requires GOOGLE_TRANSLATE_API_KEY or GOOGLE_APPLICATION_CREDENTIALS"))
		}
	case "nllb":
	default:
		errs = append(errs, fmt.Errorf("unknown translation service: %s", c.TranslationBackend))
	}

	switch c.LocalRuntime {
	case "ollama":
	case "lambda":
		if c.LambdaFunction == "" {
			errs = append(errs, fmt.Errorf("lambda runtime requires NLLB_LAMBDA_FUNCTION"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown nllb runtime: %s", c.LocalRuntime))
	}

	switch c.CompleterBackend {
	case "ollama":
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OpenAI API key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown completer backend: %s", c.CompleterBackend))
	}

	switch c.VectorBackend {
	case "qdrant", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend: %s", c.VectorBackend))
	}

	switch c.CacheBackend {
	case "file", "memory":
	case "postgres", "sqlite":
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("%s translation cache requires DATABASE_DSN", c.CacheBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown translation cache backend: %s", c.CacheBackend))
	}
	if c.ArchiveEnabled && c.DatabaseDSN == "" {
		errs = append(errs, fmt.Errorf("conversation archive requires DATABASE_DSN"))
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.ChunkOverlap))
	}
	if c.RAGTopK <= 0 {
		errs = append(errs, fmt.Errorf("top k must be positive, got %d", c.RAGTopK))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("max file size must be positive, got %d MB", c.MaxFileSizeMB))
	}
	return errs
}

// DatabaseDialect is the SQL dialect implied by the cache backend, or by
// the DSN scheme when the cache lives elsewhere.
func (c Config) DatabaseDialect() string {
	switch c.CacheBackend {
	case "postgres", "sqlite":
		return c.CacheBackend
	}
	if strings.HasPrefix(c.DatabaseDSN, "postgres://") || strings.HasPrefix(c.DatabaseDSN, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

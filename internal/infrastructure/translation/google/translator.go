// Package google is the cloud translation backend on top of the Cloud Translation v2 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

// MaxChunkChars is the largest piece sent in one request.
const MaxChunkChars = 5000

type Config struct {
	APIKey          string
	CredentialsFile string
	// Endpoint overrides the API base URL. Used by tests and private gateways.
	Endpoint   string
	HTTPClient *http.Client
}

func (c Config) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	return opts
}

type Translator struct {
	service  *translate.Service
	executor *resilience.Executor
}

// NewFactory builds the API client on first use so missing credentials only
// fail when the cloud backend is actually selected.
func NewFactory(cfg Config, executor *resilience.Executor) ports.TranslatorBackendFactory {
	return func(ctx context.Context) (ports.TranslatorBackend, error) {
		return New(ctx, cfg, executor)
	}
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Translator, error) {
	service, err := translate.NewService(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create translate service: %w", err)
	}
	return &Translator{service: service, executor: executor}, nil
}

func (t *Translator) Provider() domain.Provider {
	return domain.ProviderCloud
}

func (t *Translator) MaxChunkChars() int {
	return MaxChunkChars
}

func (t *Translator) Translate(ctx context.Context, text string, source, target domain.ProviderCode) (ports.BackendTranslation, error) {
	call := func(callCtx context.Context) (*translate.TranslationsListResponse, error) {
		req := t.service.Translations.List([]string{text}, string(target)).Format("text")
		if source != "" {
			req = req.Source(string(source))
		}
		return req.Context(callCtx).Do()
	}

	var (
		resp *translate.TranslationsListResponse
		err  error
	)
	if t.executor != nil {
		resp, err = resilience.Do(ctx, t.executor, "google.translate", call, classify)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return ports.BackendTranslation{}, resilience.WrapTemporary("google translate", err, classify)
	}
	if resp == nil || len(resp.Translations) == 0 {
		return ports.BackendTranslation{}, fmt.Errorf("google translate returned no translations")
	}

	first := resp.Translations[0]
	detected := source
	if first.DetectedSourceLanguage != "" {
		detected = domain.ProviderCode(first.DetectedSourceLanguage)
	}
	return ports.BackendTranslation{
		Text:           html.UnescapeString(first.TranslatedText),
		DetectedSource: detected,
	}, nil
}

func classify(err error) resilience.ErrorClassification {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if resilience.IsRetryableHTTPStatus(apiErr.Code) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ClassifyTransport(err)
}

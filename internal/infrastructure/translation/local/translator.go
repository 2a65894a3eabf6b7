// Package local adapts a self-hosted translation model to the router's backend contract.
package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

// MaxChunkChars keeps each request inside the model's input window.
const MaxChunkChars = 400

// ModelRuntime hosts the translation model. Load may be slow and is called once per process.
type ModelRuntime interface {
	Name() string
	Load(ctx context.Context) error
	Translate(ctx context.Context, texts []string, source, target domain.ProviderCode) ([]string, error)
}

type Translator struct {
	runtime ModelRuntime
}

// NewFactory defers model loading until the backend is first requested.
func NewFactory(runtime ModelRuntime) ports.TranslatorBackendFactory {
	return func(ctx context.Context) (ports.TranslatorBackend, error) {
		if runtime == nil {
			return nil, fmt.Errorf("local translation runtime is not configured")
		}
		if err := runtime.Load(ctx); err != nil {
			return nil, fmt.Errorf("load %s: %w", runtime.Name(), err)
		}
		return &Translator{runtime: runtime}, nil
	}
}

func (t *Translator) Provider() domain.Provider {
	return domain.ProviderLocal
}

func (t *Translator) MaxChunkChars() int {
	return MaxChunkChars
}

func (t *Translator) Translate(ctx context.Context, text string, source, target domain.ProviderCode) (ports.BackendTranslation, error) {
	// The model cannot detect languages; the router always resolves a source first.
	if source == "" {
		return ports.BackendTranslation{}, domain.WrapError(domain.ErrInvalidInput, "local translate", fmt.Errorf("source language is required"))
	}
	out, err := t.runtime.Translate(ctx, []string{text}, source, target)
	if err != nil {
		return ports.BackendTranslation{}, err
	}
	if len(out) != 1 {
		return ports.BackendTranslation{}, fmt.Errorf("%s returned %d translations for 1 input", t.runtime.Name(), len(out))
	}
	return ports.BackendTranslation{Text: strings.TrimSpace(out[0]), DetectedSource: source}, nil
}

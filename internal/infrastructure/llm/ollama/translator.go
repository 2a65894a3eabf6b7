package ollama

import (
	"context"
	"fmt"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// TranslationRuntime runs a local translation model through Ollama.
type TranslationRuntime struct {
	client *Client
	model  string
}

func NewTranslationRuntime(client *Client, model string) *TranslationRuntime {
	if model == "" {
		model = client.genModel
	}
	return &TranslationRuntime{client: client, model: model}
}

func (r *TranslationRuntime) Name() string {
	return "ollama:" + r.model
}

// Load asks Ollama to bring the model into memory. A generate request with no
// prompt only loads the model.
func (r *TranslationRuntime) Load(ctx context.Context) error {
	if _, err := r.client.generate(ctx, generateRequest{Model: r.model}, "load"); err != nil {
		return fmt.Errorf("load translation model %s: %w", r.model, err)
	}
	return nil
}

func (r *TranslationRuntime) Translate(ctx context.Context, texts []string, source, target domain.ProviderCode) ([]string, error) {
	out := make([]string, 0, len(texts))
	for _, text := range texts {
		resp, err := r.client.generate(ctx, generateRequest{
			Model:   r.model,
			Prompt:  buildTranslationPrompt(text, source, target),
			Options: &generateOptions{Temperature: 0},
		}, "translate")
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Response)
	}
	return out, nil
}

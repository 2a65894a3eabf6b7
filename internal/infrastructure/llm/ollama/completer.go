package ollama

import (
	"context"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// Completer answers through /api/generate with a separate system prompt.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	resp, err := c.client.generate(ctx, generateRequest{
		Prompt: req.UserPrompt,
		System: req.SystemPrompt,
		Options: &generateOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}, "generate")
	if err != nil {
		return domain.Completion{}, err
	}
	model := resp.Model
	if model == "" {
		model = c.client.genModel
	}
	return domain.Completion{
		Text:       resp.Response,
		TokensUsed: resp.PromptEvalCount + resp.EvalCount,
		Model:      model,
	}, nil
}

package ollama

import (
	"context"

	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return resilience.WrapTemporary("ollama "+operation, call(ctx), resilience.ClassifyTransport)
	}
	err := c.executor.Execute(ctx, "ollama."+operation, call, resilience.ClassifyTransport)
	return resilience.WrapTemporary("ollama "+operation, err, resilience.ClassifyTransport)
}

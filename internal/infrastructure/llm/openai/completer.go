// Package openai answers questions through an OpenAI-compatible chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 120 * time.Second
)

type Config struct {
	APIKey string
	// BaseURL may point at Azure OpenAI or any compatible server.
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Completer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	executor   *resilience.Executor
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func NewCompleter(cfg Config, executor *resilience.Executor) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Completer{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		executor:   executor,
	}, nil
}

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("marshal chat request: %w", err)
	}

	call := func(callCtx context.Context) (chatResponse, error) {
		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return chatResponse{}, fmt.Errorf("create chat request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return chatResponse{}, fmt.Errorf("openai chat request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return chatResponse{}, resilience.NewStatusError("openai", "chat", resp)
		}
		var out chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return chatResponse{}, fmt.Errorf("decode chat response: %w", err)
		}
		return out, nil
	}

	var resp chatResponse
	if c.executor != nil {
		resp, err = resilience.Do(ctx, c.executor, "openai.chat", call, resilience.ClassifyTransport)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return domain.Completion{}, resilience.WrapTemporary("openai chat", err, resilience.ClassifyTransport)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, fmt.Errorf("openai: no response choices returned")
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensUsed: resp.Usage.TotalTokens,
		Model:      model,
	}, nil
}

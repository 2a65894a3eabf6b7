package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/ports"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/resilience"
)

// Client talks to one Qdrant server; every session gets its own collection.
type Client struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL, prefix string, opts ...Option) *Client {
	if prefix == "" {
		prefix = "docqa"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     prefix,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectionName is <prefix>_<session id without dashes>.
func (c *Client) CollectionName(sessionID string) string {
	return c.prefix + "_" + strings.ReplaceAll(sessionID, "-", "")
}

// Open satisfies ports.VectorIndexFactory. The collection is created lazily
// on first upsert, once the vector size is known.
func (c *Client) Open(_ context.Context, sessionID string) (ports.VectorIndex, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return &Collection{client: c, name: c.CollectionName(sessionID)}, nil
}

var errNotFound = errors.New("qdrant: not found")

func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = raw
	}

	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return errNotFound
		}
		if resp.StatusCode >= 300 {
			return resilience.NewStatusError("qdrant", operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	classifier := func(err error) resilience.ErrorClassification {
		if errors.Is(err, errNotFound) {
			return resilience.ErrorClassification{}
		}
		return resilience.ClassifyTransport(err)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, classifier)
	} else {
		err = call(ctx)
	}
	if errors.Is(err, errNotFound) {
		return err
	}
	return resilience.WrapTemporary("qdrant "+operation, err, classifier)
}

// isConflict reports an "already exists" answer, which some Qdrant versions
// return when creating a collection twice.
func isConflict(err error) bool {
	var statusErr *resilience.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict
}

// Package llm is a small Gemini client with bounded retry, used by the
// classifier and extractor collaborators.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/falanarofako/backend-conversational-survey/pkg/metrics"
)

const DEFAULT_MODEL = "gemini-2.5-flash"

type Request struct {
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the model for an application/json reply.
	JSON bool
}

// Backend performs one generation call.
type Backend interface {
	Generate(ctx context.Context, model string, req Request) (string, error)
}

type Client struct {
	backend Backend
	model   string
	retry   RetryConfig
	timeout time.Duration
	metrics *metrics.Metrics
}

type ClientOption func(*Client)

func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg.withDefaults()
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(backend Backend, model string, opts ...ClientOption) *Client {
	if model == "" {
		model = DEFAULT_MODEL
	}
	c := &Client{
		backend: backend,
		model:   model,
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGeminiClient creates a client talking to the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string, model string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewClient(&genaiBackend{client: gc}, model, opts...), nil
}

func (c *Client) Model() string {
	return c.model
}

// Complete returns the model's text reply. Transient failures are retried with
// backoff; fatal ones return immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	requestID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		start := time.Now()
		text, err := c.attempt(ctx, req)
		c.metrics.RecordLLMCall(c.model, err == nil, time.Since(start))
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return "", err
		}
		if attempt < c.retry.MaxAttempts {
			backoff := c.retry.backoff(attempt)
			slog.Debug("LLM request failed, retrying",
				slog.String("requestID", requestID),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return "", NewFatalError(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	slog.Warn("LLM request failed after retries", slog.String("requestID", requestID), slog.String("model", c.model), slog.String("error", lastErr.Error()))
	return "", lastErr
}

func (c *Client) attempt(parent context.Context, req Request) (string, error) {
	ctx := parent
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.timeout)
		defer cancel()
	}
	text, err := c.backend.Generate(ctx, c.model, req)
	if err == nil {
		return text, nil
	}
	if parent.Err() == nil && ctx.Err() != nil {
		return "", NewTransientError(fmt.Errorf("attempt timed out after %s: %w", c.timeout, err))
	}
	if IsTransient(err) || IsFatal(err) {
		return "", err
	}
	return "", classifyAPIError(err)
}

// CompleteJSON asks for a JSON reply and decodes it into out.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out interface{}) error {
	req.JSON = true
	text, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	raw := ExtractJSON(text)
	if raw == "" {
		return NewFatalError(fmt.Errorf("no JSON object in model reply: %.200q", text))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return NewFatalError(fmt.Errorf("decode model reply: %w", err))
	}
	return nil
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) Generate(ctx context.Context, model string, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", classifyAPIError(err)
	}
	text := resp.Text()
	if text == "" {
		return "", NewTransientError(errors.New("empty model reply"))
	}
	return text, nil
}

// Package llm adapts an OpenAI-compatible API for note generation and
// embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Config configures the client.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration // per attempt
	Retries        int           // extra attempts after the first
	RetryInterval  time.Duration // initial backoff interval
	Temperature    float32
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a new LLM client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(config),
		cfg:    cfg,
		logger: logger.With("component", "llm"),
	}
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string { return c.cfg.EmbeddingModel }

// ChatModel returns the configured chat model name.
func (c *Client) ChatModel() string { return c.cfg.ChatModel }

// Generate sends a single user prompt and returns the model's reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Complete(ctx, "", prompt)
}

// Complete sends an optional system prompt and a user prompt.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	content, err := call(ctx, c, "chat completion", func(ctx context.Context) (string, error) {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.ChatModel,
			Messages:    msgs,
			Temperature: c.cfg.Temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("LLM returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("LLM response", "chars", len(content))
	return strings.TrimSpace(content), nil
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return call(ctx, c, "embedding", func(ctx context.Context) ([][]float32, error) {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))
		}
		out := make([][]float32, len(texts))
		for i, d := range resp.Data {
			idx := d.Index
			if idx < 0 || idx >= len(out) {
				idx = i
			}
			out[idx] = d.Embedding
		}
		return out, nil
	})
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// call runs op with a per-attempt timeout, retrying transient failures
// with exponential backoff.
func call[T any](ctx context.Context, c *Client, what string, op func(context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		res, err := op(actx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, backoff.Permanent(ctx.Err())
		}
		if !isRetryable(err) {
			return res, backoff.Permanent(err)
		}
		c.logger.Warn("LLM call failed", "op", what, "attempt", attempt, "error", err)
		return res, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.Retries+1)),
	)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", what, ctx.Err())
	}
	if isRetryable(err) {
		return res, fmt.Errorf("%w: %s after %d attempts: %v", model.ErrUpstreamTransient, what, attempt, err)
	}
	return res, fmt.Errorf("%s: %w", what, err)
}

func isRetryableStatus(code int) bool {
	return code == 408 || code == 429 || (code >= 500 && code <= 599)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isRetryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

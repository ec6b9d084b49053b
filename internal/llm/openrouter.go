package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ppetrov/pairbench/internal/model"
)

// Client calls an OpenRouter-compatible chat-completions API. It issues one
// request at a time and retries transient failures (429/5xx, network) with
// exponential backoff up to a fixed bound.
type Client struct {
	api     *openai.Client
	cfg     model.RemoteConfig
	limiter *rate.Limiter  // nil when pacing disabled
	cache   *responseCache // nil when caching disabled
}

// NewClient creates a client from remote configuration. The API key is a
// hard requirement.
func NewClient(cfg model.RemoteConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &model.PreconditionError{What: "OPENROUTER_API_KEY not set in environment"}
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0, got %d", cfg.MaxRetries)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	c := &Client{
		api: openai.NewClientWithConfig(clientConfig),
		cfg: cfg,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}
	if cfg.CacheTTL > 0 {
		c.cache = newResponseCache(cfg.CacheTTL)
	}
	return c, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openrouter"
}

// Generate performs the chat completion with bounded retry. MaxRetries
// counts attempts after the first, so the call makes at most MaxRetries+1
// requests before failing with *ServiceError carrying the last cause.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var key string
	if c.cache != nil {
		key = cacheKey(req)
		if text, found := c.cache.get(key); found {
			return text, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return "", err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			if c.cache != nil {
				c.cache.set(key, text)
			}
			return text, nil
		}
		lastErr = err

		// A canceled parent context ends the call regardless of the
		// failure class.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			var svcErr *ServiceError
			if errors.As(err, &svcErr) {
				return "", svcErr
			}
			return "", &ServiceError{
				StatusCode: statusCode(err),
				Message:    "unrecoverable failure",
				Cause:      err,
			}
		}
	}

	return "", &ServiceError{
		StatusCode: statusCode(lastErr),
		Message:    fmt.Sprintf("retries exhausted after %d attempts", c.cfg.MaxRetries+1),
		Cause:      lastErr,
	}
}

// attempt issues a single bounded request
func (c *Client) attempt(ctx context.Context, req GenerateRequest) (string, error) {
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 180 * time.Second
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", &ServiceError{Message: "empty response: no choices returned"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &ServiceError{Message: "empty response: blank message content"}
	}
	return text, nil
}

// backoff sleeps base << attempt, honoring cancellation
func (c *Client) backoff(ctx context.Context, attempt int) error {
	base := c.cfg.RetryBaseDelay
	if base == 0 {
		base = 2 * time.Second
	}
	delay := base * time.Duration(1<<uint(attempt))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

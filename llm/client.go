// Package llm provides a provider-agnostic gateway for text-generation
// requests with retry and classified-error support.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// maxResponseSize limits the provider response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Endpoint describes how to reach one provider.
type Endpoint struct {
	// Provider is the registered provider name.
	Provider string

	// Model is the model identifier to request. Empty uses the provider default.
	Model string

	// BaseURL overrides the provider's default API base URL.
	BaseURL string

	// APIKey is the credential for the provider, if it requires one.
	APIKey string
}

// Request is a single text-generation invocation.
type Request struct {
	// Prompt is the user prompt.
	Prompt string

	// SystemPrompt is the provider-neutral system instruction.
	SystemPrompt string

	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int
}

// Response contains the generation result.
type Response struct {
	// Content is the raw generated text.
	Content string

	// Model is the model that produced the response.
	Model string

	// PromptTokens and CompletionTokens are provider-reported usage.
	PromptTokens     int
	CompletionTokens int

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Attempts is how many attempts were made, including the successful one.
	Attempts int

	// Duration is the total wall-clock time spent, including backoff.
	Duration time.Duration
}

// Client invokes external text-generation providers.
type Client struct {
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a gateway client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for slow completions
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Invoke sends a generation request to the endpoint's provider, retrying
// transient failures with exponential backoff. Client errors (bad auth,
// malformed request) surface immediately.
func (c *Client) Invoke(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewGatewayError(KindClientError, fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	started := time.Now()
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, provider, ep, req)
		if err == nil {
			resp.Attempts = attempt
			resp.Duration = time.Since(started)
			return resp, nil
		}

		lastErr = err

		if !c.retryConfig.ShouldRetry(err, attempt) {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Debug("provider request failed, retrying",
			"provider", ep.Provider,
			"attempt", attempt,
			"max_attempts", c.retryConfig.MaxAttempts,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, NewGatewayError(KindTimeout, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("invoke %s: %w", ep.Provider, lastErr)
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents thundering herd when multiple clients retry simultaneously.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	// +/- 25% to prevent synchronized retries
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// doRequest executes a single HTTP request against the provider.
func (c *Client) doRequest(ctx context.Context, provider Provider, ep Endpoint, req Request) (*Response, error) {
	model := ep.Model
	if model == "" {
		model = ModelName(ep.Provider)
	}

	url := provider.BuildURL(ep.BaseURL)

	body, err := provider.BuildRequestBody(model, req.SystemPrompt, req.Prompt, req.MaxTokens)
	if err != nil {
		return nil, NewGatewayError(KindClientError, fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("sending provider request",
		"provider", ep.Provider,
		"model", model,
		"url", url)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewGatewayError(KindClientError, fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, ep.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewGatewayError(KindUnavailable, fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	resp, err := provider.ParseResponse(respBody, model)
	if err != nil {
		return nil, NewGatewayError(KindUnknown, err)
	}
	return resp, nil
}

// classifyTransportError maps network-level failures onto error kinds.
func classifyTransportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewGatewayError(KindTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewGatewayError(KindTimeout, err)
	default:
		return NewGatewayError(KindUnavailable, err)
	}
}

// Package llm provides embedding and chat completion clients for
// OpenAI-compatible endpoints. Remote calls are rate limited, retried
// with backoff, and guarded by a circuit breaker.
package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/SiteSageAI/sitesage-mvp/pkg/fn"
	"github.com/SiteSageAI/sitesage-mvp/pkg/resilience"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultEmbedModel  = "text-embedding-3-small"
	DefaultChatModel   = "gpt-4o-mini"
	defaultTemperature = 0.2

	// attemptTimeout bounds a single remote attempt so a stalled
	// connection cannot hold a retry slot indefinitely.
	attemptTimeout = 60 * time.Second
)

// api is the slice of the OpenAI client surface this package uses.
type api interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the client.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string
	// BaseURL overrides the OpenAI endpoint, for self-hosted
	// OpenAI-compatible servers. Empty means api.openai.com.
	BaseURL string
	// EmbedModel is the embedding model name.
	EmbedModel string
	// ChatModel is the chat completion model name.
	ChatModel string
	// Temperature for chat completions. Zero means the default.
	Temperature float32
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
	// Retry controls per-call retry behaviour. Zero means fn.DefaultRetry.
	Retry fn.RetryOpts
	// Breaker controls the circuit breaker. Zero values take
	// resilience defaults.
	Breaker resilience.BreakerOpts
}

// Client calls an OpenAI-compatible endpoint for embeddings and chat.
type Client struct {
	api         api
	embedModel  string
	chatModel   string
	temperature float32
	retry       fn.RetryOpts
	breaker     *resilience.Breaker
	limiter     *rate.Limiter
}

// New creates a client from config, filling in defaults.
func New(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return newWithAPI(openai.NewClientWithConfig(oc), cfg)
}

func newWithAPI(a api, cfg Config) *Client {
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fn.DefaultRetry
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		api:         a,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: cfg.Temperature,
		retry:       cfg.Retry,
		breaker:     resilience.NewBreaker(cfg.Breaker),
		limiter:     lim,
	}
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single request and returns vectors in
// input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.embedModel),
	}
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[openai.EmbeddingResponse] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[openai.EmbeddingResponse](err)
		}
		return resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[openai.EmbeddingResponse] {
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			defer cancel()
			return fn.FromPair(c.api.CreateEmbeddings(attemptCtx, req))
		})
	})
	resp, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("llm: embed batch of %d: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("llm: embed batch: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// Responses may arrive out of order; Index ties each vector back
	// to its input position.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("llm: embed batch: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Chat sends a system and user message pair and returns the model reply.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	}
	result := fn.Retry(ctx, c.retry, func(ctx context.Context) fn.Result[openai.ChatCompletionResponse] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[openai.ChatCompletionResponse](err)
		}
		return resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[openai.ChatCompletionResponse] {
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			defer cancel()
			return fn.FromPair(c.api.CreateChatCompletion(attemptCtx, req))
		})
	})
	resp, err := result.Unwrap()
	if err != nil {
		return "", fmt.Errorf("llm: chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: chat: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// BreakerState reports the circuit breaker state for health endpoints.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

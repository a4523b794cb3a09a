package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/SiteSageAI/sitesage-mvp/pkg/fn"
	"github.com/SiteSageAI/sitesage-mvp/pkg/resilience"
)

type mockAPI struct {
	embedCalls int
	embedReq   openai.EmbeddingRequestConverter
	embedResp  openai.EmbeddingResponse
	embedErrs  []error // consumed one per call; nil entry means success

	chatCalls int
	chatReq   openai.ChatCompletionRequest
	chatResp  openai.ChatCompletionResponse
	chatErr   error
}

func (m *mockAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	m.embedCalls++
	m.embedReq = conv
	if len(m.embedErrs) > 0 {
		err := m.embedErrs[0]
		m.embedErrs = m.embedErrs[1:]
		if err != nil {
			return openai.EmbeddingResponse{}, err
		}
	}
	return m.embedResp, nil
}

func (m *mockAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.chatCalls++
	m.chatReq = req
	if m.chatErr != nil {
		return openai.ChatCompletionResponse{}, m.chatErr
	}
	return m.chatResp, nil
}

// fastRetry keeps failing tests from sleeping through real backoff.
var fastRetry = fn.RetryOpts{MaxAttempts: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

func TestNewDefaults(t *testing.T) {
	c := newWithAPI(&mockAPI{}, Config{})

	if c.embedModel != DefaultEmbedModel {
		t.Errorf("embedModel = %q, want %q", c.embedModel, DefaultEmbedModel)
	}
	if c.chatModel != DefaultChatModel {
		t.Errorf("chatModel = %q, want %q", c.chatModel, DefaultChatModel)
	}
	if c.temperature != defaultTemperature {
		t.Errorf("temperature = %v, want %v", c.temperature, defaultTemperature)
	}
	if c.retry.MaxAttempts != fn.DefaultRetry.MaxAttempts {
		t.Errorf("retry.MaxAttempts = %d, want %d", c.retry.MaxAttempts, fn.DefaultRetry.MaxAttempts)
	}
	if c.limiter.Limit() != rate.Inf {
		t.Errorf("limiter.Limit() = %v, want Inf", c.limiter.Limit())
	}
}

func TestNewRateLimiter(t *testing.T) {
	c := newWithAPI(&mockAPI{}, Config{RequestsPerSecond: 4})

	if got := c.limiter.Limit(); got != rate.Limit(4) {
		t.Errorf("limiter.Limit() = %v, want 4", got)
	}
	if got := c.limiter.Burst(); got != 4 {
		t.Errorf("limiter.Burst() = %d, want 4", got)
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	m := &mockAPI{}
	c := newWithAPI(m, Config{Retry: fastRetry})

	vecs, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil vectors, got %v", vecs)
	}
	if m.embedCalls != 0 {
		t.Errorf("expected no API calls, got %d", m.embedCalls)
	}
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	m := &mockAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{
				{Index: 1, Embedding: []float32{0.2, 0.2}},
				{Index: 0, Embedding: []float32{0.1, 0.1}},
			},
		},
	}
	c := newWithAPI(m, Config{Retry: fastRetry})

	vecs, err := c.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.2 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}

	req, ok := m.embedReq.(openai.EmbeddingRequestStrings)
	if !ok {
		t.Fatalf("unexpected request type %T", m.embedReq)
	}
	if len(req.Input) != 2 || req.Input[0] != "first" {
		t.Errorf("unexpected input %v", req.Input)
	}
	if req.Model != openai.EmbeddingModel(DefaultEmbedModel) {
		t.Errorf("model = %q, want %q", req.Model, DefaultEmbedModel)
	}
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	m := &mockAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{0.1}}},
		},
	}
	c := newWithAPI(m, Config{Retry: fastRetry})

	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error on count mismatch")
	}
	if !strings.Contains(err.Error(), "got 1 embeddings for 2 inputs") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbedBatchIndexOutOfRange(t *testing.T) {
	m := &mockAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 5, Embedding: []float32{0.1}}},
		},
	}
	c := newWithAPI(m, Config{Retry: fastRetry})

	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "index 5 out of range") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbedSingle(t *testing.T) {
	m := &mockAPI{
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{0.5, 0.6}}},
		},
	}
	c := newWithAPI(m, Config{Retry: fastRetry})

	vec, err := c.Embed(context.Background(), "pavement evaluation division")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestEmbedBatchRetriesThenSucceeds(t *testing.T) {
	m := &mockAPI{
		embedErrs: []error{errors.New("transient")},
		embedResp: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{0.1}}},
		},
	}
	c := newWithAPI(m, Config{
		Retry: fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
	})

	vecs, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("EmbedBatch after retry: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
	if m.embedCalls != 2 {
		t.Errorf("expected 2 API calls, got %d", m.embedCalls)
	}
}

func TestEmbedBatchBreakerOpens(t *testing.T) {
	boom := errors.New("endpoint down")
	m := &mockAPI{embedErrs: []error{boom, boom}}
	c := newWithAPI(m, Config{
		Retry:   fastRetry,
		Breaker: resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Hour},
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.EmbedBatch(ctx, []string{"a"}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := c.EmbedBatch(ctx, []string{"a"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if m.embedCalls != 2 {
		t.Errorf("open breaker should not reach the API, calls = %d", m.embedCalls)
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Errorf("BreakerState() = %v, want open", c.BreakerState())
	}
}

func TestChatSuccess(t *testing.T) {
	m := &mockAPI{
		chatResp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "The division head is Dr. Sharma."}},
			},
		},
	}
	c := newWithAPI(m, Config{ChatModel: "gpt-4o", Temperature: 0.4, Retry: fastRetry})

	reply, err := c.Chat(context.Background(), "You answer from context only.", "Who heads Pavement Evaluation?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "The division head is Dr. Sharma." {
		t.Errorf("unexpected reply %q", reply)
	}

	if m.chatReq.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", m.chatReq.Model)
	}
	if m.chatReq.Temperature != 0.4 {
		t.Errorf("temperature = %v, want 0.4", m.chatReq.Temperature)
	}
	if len(m.chatReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(m.chatReq.Messages))
	}
	if m.chatReq.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", m.chatReq.Messages[0].Role)
	}
	if m.chatReq.Messages[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("second message role = %q, want user", m.chatReq.Messages[1].Role)
	}
	if m.chatReq.Messages[1].Content != "Who heads Pavement Evaluation?" {
		t.Errorf("user content = %q", m.chatReq.Messages[1].Content)
	}
}

func TestChatNoChoices(t *testing.T) {
	c := newWithAPI(&mockAPI{}, Config{Retry: fastRetry})

	_, err := c.Chat(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestChatError(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := newWithAPI(&mockAPI{chatErr: boom}, Config{Retry: fastRetry})

	_, err := c.Chat(context.Background(), "sys", "user")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped quota error, got %v", err)
	}
	if !strings.Contains(err.Error(), "llm: chat") {
		t.Errorf("error not namespaced: %v", err)
	}
}

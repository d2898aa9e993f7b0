package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/metrics"
)

// embeddingResponse mirrors the OpenAI-compatible embedding response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingItem `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func embeddingServer(t *testing.T, items []embeddingItem, tokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := embeddingResponse{Object: "list", Model: "test-model", Data: items}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(baseURL string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	expected := []float32{0.1, 0.2, 0.3, 0.4}
	server := embeddingServer(t, []embeddingItem{
		{Object: "embedding", Embedding: expected, Index: 0},
	}, 10)
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(result.Embedding) != len(expected) {
		t.Fatalf("expected %d dimensions, got %d", len(expected), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expected[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expected[i])
		}
	}
	if result.PromptTokens != 10 || result.TotalTokens != 10 {
		t.Errorf("usage = %d/%d, expected 10/10", result.PromptTokens, result.TotalTokens)
	}
}

type recordingSink struct {
	metrics.Nop
	embeddings  []string // "status/tokens"
	generations []string
}

func (s *recordingSink) EmbeddingRequest(_, _, status string, _ time.Duration, _, totalTokens int) {
	s.embeddings = append(s.embeddings, fmt.Sprintf("%s/%d", status, totalTokens))
}

func (s *recordingSink) GenerationRequest(_, _, status string, _ time.Duration, _, completionTokens int) {
	s.generations = append(s.generations, fmt.Sprintf("%s/%d", status, completionTokens))
}

func TestEmbedder_ReportsToSink(t *testing.T) {
	server := embeddingServer(t, []embeddingItem{
		{Object: "embedding", Embedding: []float32{0.1, 0.2}, Index: 0},
	}, 10)
	defer server.Close()

	sink := &recordingSink{}
	e := NewEmbedder(&Config{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model",
		Provider: "test", Sink: sink, Logger: zap.NewNop(),
	})

	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(sink.embeddings) != 1 || sink.embeddings[0] != "success/10" {
		t.Errorf("embeddings = %v, want one success/10", sink.embeddings)
	}
}

func TestEmbedder_BatchEmbedRestoresOrder(t *testing.T) {
	// API answers out of order; BatchEmbed sorts by Index.
	server := embeddingServer(t, []embeddingItem{
		{Object: "embedding", Embedding: []float32{0.3, 0.4}, Index: 1},
		{Object: "embedding", Embedding: []float32{0.1, 0.2}, Index: 0},
	}, 20)
	defer server.Close()

	result, err := newTestEmbedder(server.URL).BatchEmbed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if result.Embeddings[0][0] != 0.1 || result.Embeddings[1][0] != 0.3 {
		t.Errorf("order not restored: %v", result.Embeddings)
	}
	if result.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d, expected 20", result.TotalTokens)
	}
}

func TestEmbedder_BatchEmbedEmpty(t *testing.T) {
	result, err := newTestEmbedder("http://unused").BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", result.Embeddings)
	}
}

func TestEmbedder_BatchEmbedCountMismatch(t *testing.T) {
	server := embeddingServer(t, []embeddingItem{
		{Object: "embedding", Embedding: []float32{0.1, 0.2}, Index: 0},
	}, 10)
	defer server.Close()

	_, err := newTestEmbedder(server.URL).BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}

func TestEmbedder_RateLimitMapsToErrRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"quota exhausted"}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestEmbedder_ServerErrorMapsToProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"upstream broken"}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "say hi" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Temperature != 0.7 {
			t.Errorf("temperature = %f", req.Temperature)
		}

		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	result, err := gen.Generate(context.Background(), "say hi", domain.GenerateOptions{Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Text != "hi there" {
		t.Errorf("text = %q", result.Text)
	}
	if result.PromptTokens != 5 || result.CompletionTokens != 2 {
		t.Errorf("usage = %d/%d", result.PromptTokens, result.CompletionTokens)
	}
}

func TestGenerator_ReportsToSink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	sink := &recordingSink{}
	gen := NewGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model",
		Provider: "test", Sink: sink, Logger: zap.NewNop(),
	})

	if _, err := gen.Generate(context.Background(), "hello", domain.GenerateOptions{}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(sink.generations) != 1 || sink.generations[0] != "success/2" {
		t.Errorf("generations = %v, want one success/2", sink.generations)
	}
}

func TestGenerator_ErrorMapsToProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Provider: "test", Logger: zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), "hello", domain.GenerateOptions{})
	if !errors.Is(err, domain.ErrModelProviderError) {
		t.Fatalf("expected ErrModelProviderError, got %v", err)
	}
}

func TestScorer_ScoreRelevance(t *testing.T) {
	// One server handles both the single query embed and the batch of
	// candidates, keyed on input length.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := embeddingResponse{Object: "list", Model: "test-model"}
		if len(req.Input) == 1 {
			resp.Data = []embeddingItem{{Embedding: []float32{1, 0}, Index: 0}}
		} else {
			resp.Data = []embeddingItem{
				{Embedding: []float32{1, 0}, Index: 0},  // identical: score 1
				{Embedding: []float32{0, 1}, Index: 1},  // orthogonal: score 0
				{Embedding: []float32{-1, 0}, Index: 2}, // opposite: clamped to 0
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	scorer := NewScorer(newTestEmbedder(server.URL))
	scores, err := scorer.ScoreRelevance(context.Background(), "query", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ScoreRelevance failed: %v", err)
	}

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0] < 0.99 {
		t.Errorf("identical vector score = %f", scores[0])
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("orthogonal/opposite scores = %f, %f", scores[1], scores[2])
	}
}

func TestScorer_EmptyTexts(t *testing.T) {
	scorer := NewScorer(newTestEmbedder("http://unused"))
	scores, err := scorer.ScoreRelevance(context.Background(), "query", nil)
	if err != nil || scores != nil {
		t.Fatalf("expected nil/nil, got %v/%v", scores, err)
	}
}

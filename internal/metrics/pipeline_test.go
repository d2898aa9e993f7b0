package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestSink(t *testing.T) *PromSink {
	t.Helper()
	return NewPromSink(prometheus.NewRegistry())
}

func TestPromSink_SearchServed(t *testing.T) {
	s := newTestSink(t)

	s.SearchServed("hybrid", true, true)
	s.SearchServed("hybrid", true, true)
	s.SearchServed("lexical_only", false, false)

	if got := testutil.ToFloat64(s.searchRequests.WithLabelValues("hybrid", "true", "success")); got != 2 {
		t.Errorf("hybrid success = %f, want 2", got)
	}
	if got := testutil.ToFloat64(s.searchRequests.WithLabelValues("lexical_only", "false", "error")); got != 1 {
		t.Errorf("lexical_only error = %f, want 1", got)
	}
}

func TestPromSink_SearchStage(t *testing.T) {
	s := newTestSink(t)

	s.SearchStage(StageEmbed, 5*time.Millisecond)
	s.SearchStage(StageKNN, 2*time.Millisecond)

	if got := testutil.CollectAndCount(s.searchStageDuration); got != 2 {
		t.Errorf("stage series = %d, want 2", got)
	}
}

func TestPromSink_EmbeddingRequest_ErrorSkipsDurationAndTokens(t *testing.T) {
	s := newTestSink(t)

	s.EmbeddingRequest("openai", "m", "error", time.Second, 10, 10)

	if got := testutil.ToFloat64(s.embeddingRequests.WithLabelValues("openai", "m", "error")); got != 1 {
		t.Errorf("error count = %f, want 1", got)
	}
	if got := testutil.CollectAndCount(s.embeddingDuration); got != 0 {
		t.Errorf("duration series = %d, want 0 on error", got)
	}
	if got := testutil.CollectAndCount(s.embeddingTokens); got != 0 {
		t.Errorf("token series = %d, want 0 on error", got)
	}
}

func TestPromSink_EmbeddingCache(t *testing.T) {
	s := newTestSink(t)

	s.EmbeddingCache(true)
	s.EmbeddingCache(false)
	s.EmbeddingCache(false)

	if got := testutil.ToFloat64(s.embeddingCache.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %f, want 1", got)
	}
	if got := testutil.ToFloat64(s.embeddingCache.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %f, want 2", got)
	}
}

func TestPromSink_GenerationRequest_TokensByType(t *testing.T) {
	s := newTestSink(t)

	s.GenerationRequest("openai", "m", "success", time.Second, 5, 2)

	if got := testutil.ToFloat64(s.generationTokens.WithLabelValues("openai", "m", "prompt")); got != 5 {
		t.Errorf("prompt tokens = %f, want 5", got)
	}
	if got := testutil.ToFloat64(s.generationTokens.WithLabelValues("openai", "m", "completion")); got != 2 {
		t.Errorf("completion tokens = %f, want 2", got)
	}
}

func TestPromSink_Reset(t *testing.T) {
	s := newTestSink(t)

	s.SearchServed("hybrid", false, true)
	s.EmbeddingCache(true)
	s.Reset()

	if got := testutil.CollectAndCount(s.searchRequests); got != 0 {
		t.Errorf("search series after reset = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(s.embeddingCache); got != 0 {
		t.Errorf("cache series after reset = %d, want 0", got)
	}
}

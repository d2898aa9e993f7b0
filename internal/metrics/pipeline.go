package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline stage labels.
const (
	StageEmbed   = "embed"
	StageLexical = "lexical"
	StageKNN     = "knn"
	StageRerank  = "rerank"
)

// Sink receives pipeline observations. Components hold a Sink passed
// at construction time; nothing in the pipeline touches a package-level
// collector. PromSink is the production implementation, Nop the
// default for tests and components constructed without one.
type Sink interface {
	SearchServed(searchType string, reranked bool, success bool)
	SearchStage(stage string, d time.Duration)
	EmbeddingRequest(provider, model, status string, d time.Duration, promptTokens, totalTokens int)
	EmbeddingCache(hit bool)
	GenerationRequest(provider, model, status string, d time.Duration, promptTokens, completionTokens int)
	CitationsExtracted(count int)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) SearchServed(string, bool, bool) {}

func (Nop) SearchStage(string, time.Duration) {}

func (Nop) EmbeddingRequest(string, string, string, time.Duration, int, int) {}

func (Nop) EmbeddingCache(bool) {}

func (Nop) GenerationRequest(string, string, string, time.Duration, int, int) {}

func (Nop) CitationsExtracted(int) {}

// PromSink exposes pipeline observations as Prometheus collectors. It
// owns its collectors: two sinks registered against the same registry
// would collide, so main constructs exactly one.
type PromSink struct {
	searchRequests       *prometheus.CounterVec
	searchStageDuration  *prometheus.HistogramVec
	embeddingRequests    *prometheus.CounterVec
	embeddingDuration    *prometheus.HistogramVec
	embeddingTokens      *prometheus.CounterVec
	embeddingCache       *prometheus.CounterVec
	generationRequests   *prometheus.CounterVec
	generationDuration   *prometheus.HistogramVec
	generationTokens     *prometheus.CounterVec
	citationsPerResponse prometheus.Histogram
}

// NewPromSink creates the pipeline collectors and registers them with
// reg. Pass prometheus.DefaultRegisterer to serve them on /metrics.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	s := &PromSink{
		searchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "search_requests_total",
				Help:      "Total number of search requests",
			},
			[]string{"search_type", "reranked", "status"},
		),
		searchStageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "raggate",
				Name:      "search_stage_duration_seconds",
				Help:      "Duration of individual search pipeline stages",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		embeddingRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests",
			},
			[]string{"provider", "model", "status"},
		),
		embeddingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "raggate",
				Name:      "embedding_request_duration_seconds",
				Help:      "Embedding request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider", "model"},
		),
		embeddingTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "embedding_tokens_total",
				Help:      "Total embedding tokens consumed",
			},
			[]string{"provider", "model", "type"},
		),
		embeddingCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "embedding_cache_total",
				Help:      "Embedding cache hits and misses",
			},
			[]string{"result"}, // "hit" / "miss"
		),
		generationRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "generation_requests_total",
				Help:      "Total number of text generation requests",
			},
			[]string{"provider", "model", "status"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "raggate",
				Name:      "generation_request_duration_seconds",
				Help:      "Text generation request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "model"},
		),
		generationTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "raggate",
				Name:      "generation_tokens_total",
				Help:      "Total generation tokens consumed",
			},
			[]string{"provider", "model", "type"}, // type: prompt / completion
		),
		citationsPerResponse: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "raggate",
				Name:      "citations_per_response",
				Help:      "Number of citations extracted per generated response",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),
	}

	reg.MustRegister(
		s.searchRequests,
		s.searchStageDuration,
		s.embeddingRequests,
		s.embeddingDuration,
		s.embeddingTokens,
		s.embeddingCache,
		s.generationRequests,
		s.generationDuration,
		s.generationTokens,
		s.citationsPerResponse,
	)

	return s
}

func (s *PromSink) SearchServed(searchType string, reranked bool, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	s.searchRequests.WithLabelValues(searchType, boolLabel(reranked), status).Inc()
}

func (s *PromSink) SearchStage(stage string, d time.Duration) {
	s.searchStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (s *PromSink) EmbeddingRequest(
	provider, model, status string, d time.Duration, promptTokens, totalTokens int,
) {
	s.embeddingRequests.WithLabelValues(provider, model, status).Inc()
	if status != "success" {
		return
	}
	s.embeddingDuration.WithLabelValues(provider, model).Observe(d.Seconds())
	if totalTokens > 0 {
		s.embeddingTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		s.embeddingTokens.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}

func (s *PromSink) EmbeddingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.embeddingCache.WithLabelValues(result).Inc()
}

func (s *PromSink) GenerationRequest(
	provider, model, status string, d time.Duration, promptTokens, completionTokens int,
) {
	s.generationRequests.WithLabelValues(provider, model, status).Inc()
	if status != "success" {
		return
	}
	s.generationDuration.WithLabelValues(provider, model).Observe(d.Seconds())
	if promptTokens+completionTokens > 0 {
		s.generationTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		s.generationTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

func (s *PromSink) CitationsExtracted(count int) {
	s.citationsPerResponse.Observe(float64(count))
}

// Reset clears the labeled series, typically between load-test runs.
// The citations histogram has no Reset and stays cumulative.
func (s *PromSink) Reset() {
	s.searchRequests.Reset()
	s.searchStageDuration.Reset()
	s.embeddingRequests.Reset()
	s.embeddingDuration.Reset()
	s.embeddingTokens.Reset()
	s.embeddingCache.Reset()
	s.generationRequests.Reset()
	s.generationDuration.Reset()
	s.generationTokens.Reset()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

package openai

import (
	"context"
	"fmt"
	"math"

	"github.com/koralov/raggate/internal/domain"
)

// Scorer implements domain.RerankScorer on top of the embedding API:
// the semantic relevance of a candidate is the cosine similarity of
// its embedding to the query embedding, clamped to [0,1].
type Scorer struct {
	embedder *Embedder
}

// NewScorer creates an embedding-based rerank scorer.
func NewScorer(embedder *Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// ScoreRelevance implements domain.RerankScorer. Scores are
// order-aligned with texts.
func (s *Scorer) ScoreRelevance(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	queryEmb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(candidates.Embeddings) != len(texts) {
		return nil, fmt.Errorf(
			"scorer got %d embeddings for %d texts: %w",
			len(candidates.Embeddings), len(texts), domain.ErrModelProviderError,
		)
	}

	scores := make([]float64, len(texts))
	for i := range candidates.Embeddings {
		sim := cosine(queryEmb.Embedding, candidates.Embeddings[i])
		if sim < 0 {
			sim = 0
		}
		scores[i] = sim
	}
	return scores, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

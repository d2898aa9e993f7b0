package rerank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/domain/search/result"
	"github.com/koralov/raggate/internal/logger"
)

// excerptLen bounds the candidate text sent to the scorer.
const excerptLen = 800

// Scorer returns one relevance score in [0,1] per text, order-aligned
// with the input.
type Scorer interface {
	ScoreRelevance(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Service blends model relevance scores with retrieval confidence.
// Reranking is an enhancement, never a hard dependency: any scorer
// failure falls back to retrieval order.
type Service struct {
	scorer Scorer
	blend  float64
}

// New creates a reranker. blend is the weight of the model score in
// the combined score; retrieval confidence gets the remainder.
func New(scorer Scorer, blend float64) *Service {
	if blend <= 0 || blend >= 1 {
		blend = 0.6
	}
	return &Service{scorer: scorer, blend: blend}
}

// Rerank re-scores candidates and returns at most topK, ordered by
// combined score descending. The bool reports whether model scores
// were actually applied.
func (s *Service) Rerank(
	ctx context.Context, query string, candidates []result.Result, topK int,
) ([]result.Ranked, bool) {
	if len(candidates) == 0 || topK <= 0 {
		return nil, false
	}

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidateText(&candidates[i])
	}

	scores, err := s.scorer.ScoreRelevance(ctx, query, texts)
	if err != nil {
		logger.FromContext(ctx).Warn("rerank scoring failed, keeping retrieval order",
			zap.Error(err))
		return fallback(candidates, topK), false
	}
	if len(scores) < len(candidates) {
		logger.FromContext(ctx).Warn("rerank returned short score slice, keeping retrieval order",
			zap.Int("want", len(candidates)), zap.Int("got", len(scores)))
		return fallback(candidates, topK), false
	}

	ranked := make([]result.Ranked, len(candidates))
	for i := range candidates {
		combined := (1-s.blend)*candidates[i].Confidence() + s.blend*scores[i]
		ranked[i] = result.NewRanked(candidates[i], scores[i], combined)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore() > ranked[j].CombinedScore()
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, true
}

// fallback keeps the original retrieval ordering.
func fallback(candidates []result.Result, topK int) []result.Ranked {
	n := min(len(candidates), topK)
	ranked := make([]result.Ranked, n)
	for i := 0; i < n; i++ {
		ranked[i] = result.FromResult(candidates[i])
	}
	return ranked
}

func candidateText(r *result.Result) string {
	doc := r.Document()
	text := doc.Title()
	if content := doc.Content(); content != "" {
		if len(content) > excerptLen {
			content = content[:excerptLen]
		}
		text += "\n" + content
	}
	return text
}

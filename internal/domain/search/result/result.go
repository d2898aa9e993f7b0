package result

import (
	"github.com/koralov/raggate/internal/domain/document"
)

// Result is a single search hit.
type Result struct {
	id         string
	score      float64
	confidence float64
	doc        document.Document
	highlights []string
}

// New creates a search result. score is in store-native relevance
// units; confidence is the normalized [0,1] form surfaced to clients.
func New(id string, score, confidence float64, doc document.Document, highlights []string) Result {
	return Result{id: id, score: score, confidence: confidence, doc: doc, highlights: highlights}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the store-native relevance score.
func (r *Result) Score() float64 { return r.score }

// Confidence returns the normalized relevance in [0,1].
func (r *Result) Confidence() float64 { return r.confidence }

// Document returns the hydrated document.
func (r *Result) Document() *document.Document {
	return &r.doc
}

// Highlights returns matched text fragments, when requested.
func (r *Result) Highlights() []string { return r.highlights }

// WithScore returns a copy of the result with a replaced score and confidence.
func (r Result) WithScore(score, confidence float64) Result {
	r.score = score
	r.confidence = confidence
	return r
}

// NormalizeConfidence maps a store-native score into [0,1] by dividing
// by an empirical ceiling and clamping.
func NormalizeConfidence(score, ceiling float64) float64 {
	if ceiling <= 0 {
		return 0
	}
	c := score / ceiling
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Ranked is a result annotated with second-pass rerank scores.
type Ranked struct {
	Result
	rerankScore   float64
	combinedScore float64
	reranked      bool
}

// NewRanked wraps a result with rerank scores.
func NewRanked(res Result, rerankScore, combinedScore float64) Ranked {
	return Ranked{Result: res, rerankScore: rerankScore, combinedScore: combinedScore, reranked: true}
}

// FromResult wraps a result that went through no reranking; the
// combined score falls back to the retrieval confidence.
func FromResult(res Result) Ranked {
	return Ranked{Result: res, combinedScore: res.Confidence()}
}

// RerankScore returns the semantic similarity score from the reranker.
func (r *Ranked) RerankScore() float64 { return r.rerankScore }

// CombinedScore returns the blended retrieval/rerank score.
func (r *Ranked) CombinedScore() float64 { return r.combinedScore }

// Reranked reports whether the candidate went through the reranker.
func (r *Ranked) Reranked() bool { return r.reranked }

// Hit is a lightweight channel hit before fusion and hydration.
type Hit struct {
	ID        string
	Score     float64
	Highlight string
}

// Facets holds aggregation counts collected alongside a search.
type Facets struct {
	Categories  map[string]int
	Departments map[string]int
	Tags        map[string]int
	// Months is a monthly date histogram keyed as "2006-01".
	Months map[string]int
}

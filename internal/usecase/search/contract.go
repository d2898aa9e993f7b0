package search

import (
	"context"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/result"
)

// Repository defines the retrieval channels contract.
type Repository interface {
	Lexical(
		ctx context.Context, query string, filters filter.Filters, topK int, withHighlights bool,
	) ([]result.Hit, int, error)

	KNN(
		ctx context.Context, vector []float32, filters filter.Filters, k int,
	) ([]result.Hit, error)

	Facets(ctx context.Context, filters filter.Filters) (result.Facets, error)
}

// DocumentReader hydrates fused candidates into full documents.
type DocumentReader interface {
	GetMulti(ctx context.Context, ids []string) ([]domdoc.Document, error)
}

// Embedder vectorizes the query for the kNN channel.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker re-scores fused candidates. The bool reports whether
// reranking was actually applied (it fails soft).
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []result.Result, topK int) ([]result.Ranked, bool)
}

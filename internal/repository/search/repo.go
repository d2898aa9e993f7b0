package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/koralov/raggate/internal/db"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchLexical(ctx context.Context, q *db.LexicalQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) (map[string]int, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements the retrieval channels over an FT document index.
type Repo struct {
	store     store
	index     string
	keyPrefix string
}

// New creates a search repository.
func New(s store, index, keyPrefix string) *Repo {
	return &Repo{store: s, index: index, keyPrefix: keyPrefix}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// Lexical runs the weighted BM25 channel. The query is tokenized into
// OR'd terms; multi-word queries additionally get a boosted
// exact-phrase clause. Returns hits and the total match count.
func (r *Repo) Lexical(
	ctx context.Context, query string, filters filter.Filters, topK int, withHighlights bool,
) ([]result.Hit, int, error) {
	q := &db.LexicalQuery{
		IndexName: r.index,
		Terms:     strings.Fields(strings.ToLower(query)),
		Filters:   filters,
		TopK:      topK,
	}
	if strings.Contains(strings.TrimSpace(query), " ") {
		q.Phrase = strings.ToLower(strings.TrimSpace(query))
	}
	if withHighlights {
		q.ReturnFields = []string{"content"}
		q.HighlightFields = []string{"content"}
	}

	sr, err := r.store.SearchLexical(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("lexical search: %w", err)
	}

	return r.parseHits(sr, "content"), total(sr), nil
}

// KNN runs the vector similarity channel. Scores arrive already
// converted from cosine distance to [0,1] similarity.
func (r *Repo) KNN(
	ctx context.Context, vector []float32, filters filter.Filters, k int,
) ([]result.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    r.index,
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	return r.parseHits(sr, ""), nil
}

// Facets aggregates match counts for each facet dimension under the
// same filters the retrieval channels use.
func (r *Repo) Facets(ctx context.Context, filters filter.Filters) (result.Facets, error) {
	facets := result.Facets{}

	for _, dim := range []struct {
		field string
		out   *map[string]int
	}{
		{"category", &facets.Categories},
		{"department", &facets.Departments},
		{"tags", &facets.Tags},
		{"month", &facets.Months},
	} {
		counts, err := r.store.Aggregate(ctx, &db.AggregateQuery{
			IndexName: r.index,
			Filters:   filters,
			GroupBy:   dim.field,
		})
		if err != nil {
			return result.Facets{}, fmt.Errorf("aggregate %s: %w", dim.field, err)
		}
		*dim.out = counts
	}

	return facets, nil
}

func (r *Repo) parseHits(sr *db.SearchResult, highlightField string) []result.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := r.keyPrefix + "doc:"
	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		h := result.Hit{
			ID:    strings.TrimPrefix(entry.Key, prefix),
			Score: entry.Score,
		}
		if highlightField != "" {
			h.Highlight = entry.Fields[highlightField]
		}
		hits = append(hits, h)
	}
	return hits
}

func total(sr *db.SearchResult) int {
	if sr == nil {
		return 0
	}
	return sr.Total
}

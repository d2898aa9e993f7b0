package db

import "github.com/koralov/raggate/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Filters
	Vector       []float32
	K            int
	ReturnFields []string
}

// LexicalQuery is the input for weighted BM25 text search. Terms are
// OR'd across the index's TEXT fields with schema-level weights; Phrase,
// when set, adds a boosted exact-match clause on top.
type LexicalQuery struct {
	IndexName    string
	Terms        []string
	Phrase       string
	PhraseBoost  float64
	Filters      filter.Filters
	TopK         int
	ReturnFields []string
	// HighlightFields requests match fragments for the named TEXT fields;
	// fragments replace the field values in the returned entries.
	HighlightFields []string
}

// AggregateQuery groups documents matching the filters by a TAG field
// and counts group sizes (facet aggregation).
type AggregateQuery struct {
	IndexName string
	Filters   filter.Filters
	GroupBy   string
	Limit     int
}

// SearchResult is the output of a search operation. Total is the full
// match count independent of the requested page size.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

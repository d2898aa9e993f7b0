package request

import (
	"fmt"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 1024
	DefaultTopK    = 5
	MaxTopK        = 50
)

// Request is a validated search query. An empty query is allowed and
// degrades the lexical channel to match-all.
type Request struct {
	query          string
	filters        filter.Filters
	topK           int
	enableRerank   bool
	withFacets     bool
	withHighlights bool
}

// New validates and normalizes search parameters.
// Defaults: topK=5, clamped to MaxTopK.
func New(
	query string,
	filters filter.Filters,
	topK int,
	enableRerank, withFacets, withHighlights bool,
) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)",
			domain.ErrInvalidRequest, MaxQueryLength)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{
		query:          query,
		filters:        filters,
		topK:           topK,
		enableRerank:   enableRerank,
		withFacets:     withFacets,
		withHighlights: withHighlights,
	}, nil
}

// Query returns the search query text (possibly empty).
func (r *Request) Query() string { return r.query }

// Filters returns the filter set.
func (r *Request) Filters() filter.Filters { return r.filters }

// TopK returns the number of final results requested.
func (r *Request) TopK() int { return r.topK }

// EnableRerank reports whether second-pass reranking was requested.
func (r *Request) EnableRerank() bool { return r.enableRerank }

// WithFacets reports whether facet aggregations were requested.
func (r *Request) WithFacets() bool { return r.withFacets }

// WithHighlights reports whether highlight snippets were requested.
func (r *Request) WithHighlights() bool { return r.withHighlights }

package search

import (
	"context"

	"github.com/koralov/raggate/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	knnFn       func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	lexicalFn   func(ctx context.Context, q *db.LexicalQuery) (*db.SearchResult, error)
	aggregateFn func(ctx context.Context, q *db.AggregateQuery) (map[string]int, error)
	textSearch  bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.knnFn != nil {
		return m.knnFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchLexical(ctx context.Context, q *db.LexicalQuery) (*db.SearchResult, error) {
	if m.lexicalFn != nil {
		return m.lexicalFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Aggregate(ctx context.Context, q *db.AggregateQuery) (map[string]int, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, q)
	}
	return map[string]int{}, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.textSearch
}

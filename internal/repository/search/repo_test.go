package search

import (
	"context"
	"errors"
	"testing"

	"github.com/koralov/raggate/internal/db"
	"github.com/koralov/raggate/internal/domain/search/filter"
)

func TestLexical_BuildsQuery(t *testing.T) {
	var gotQuery *db.LexicalQuery

	repo := New(&mockStore{
		lexicalFn: func(_ context.Context, q *db.LexicalQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{
				Total: 12,
				Entries: []db.SearchEntry{
					{Key: "raggate:doc:doc-001", Score: 4.2, Fields: map[string]string{"content": "the <b>vpn</b> gateway"}},
					{Key: "raggate:doc:doc-002", Score: 1.1},
				},
			}, nil
		},
	}, "enterprise_docs", "raggate:")

	hits, totalHits, err := repo.Lexical(context.Background(), "VPN Setup", filter.Filters{}, 100, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery.IndexName != "enterprise_docs" {
		t.Errorf("index = %q", gotQuery.IndexName)
	}
	if len(gotQuery.Terms) != 2 || gotQuery.Terms[0] != "vpn" || gotQuery.Terms[1] != "setup" {
		t.Errorf("terms = %v", gotQuery.Terms)
	}
	if gotQuery.Phrase != "vpn setup" {
		t.Errorf("phrase = %q", gotQuery.Phrase)
	}
	if len(gotQuery.HighlightFields) != 1 || gotQuery.HighlightFields[0] != "content" {
		t.Errorf("highlight fields = %v", gotQuery.HighlightFields)
	}

	if totalHits != 12 {
		t.Errorf("total = %d, want 12", totalHits)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "doc-001" || hits[0].Score != 4.2 {
		t.Errorf("hit[0] = %+v", hits[0])
	}
	if hits[0].Highlight != "the <b>vpn</b> gateway" {
		t.Errorf("highlight = %q", hits[0].Highlight)
	}
}

func TestLexical_SingleWordHasNoPhrase(t *testing.T) {
	var gotQuery *db.LexicalQuery

	repo := New(&mockStore{
		lexicalFn: func(_ context.Context, q *db.LexicalQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{}, nil
		},
	}, "enterprise_docs", "raggate:")

	_, _, err := repo.Lexical(context.Background(), "vpn", filter.Filters{}, 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Phrase != "" {
		t.Errorf("phrase = %q, want empty", gotQuery.Phrase)
	}
	if gotQuery.HighlightFields != nil {
		t.Errorf("highlight fields = %v, want nil", gotQuery.HighlightFields)
	}
}

func TestKNN_StripsKeyPrefix(t *testing.T) {
	repo := New(&mockStore{
		knnFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.K != 100 {
				t.Errorf("k = %d, want 100", q.K)
			}
			return &db.SearchResult{
				Total: 1,
				Entries: []db.SearchEntry{
					{Key: "raggate:doc:doc-007", Score: 0.83},
				},
			}, nil
		},
	}, "enterprise_docs", "raggate:")

	hits, err := repo.KNN(context.Background(), []float32{0.1, 0.2}, filter.Filters{}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "doc-007" || hits[0].Score != 0.83 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestKNN_Error(t *testing.T) {
	repo := New(&mockStore{
		knnFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, errors.New("store down")
		},
	}, "enterprise_docs", "raggate:")

	_, err := repo.KNN(context.Background(), []float32{0.1}, filter.Filters{}, 10)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFacets_CollectsAllDimensions(t *testing.T) {
	byField := map[string]map[string]int{
		"category":   {"guide": 4},
		"department": {"it": 3, "hr": 1},
		"tags":       {"vpn": 2},
		"month":      {"2024-03": 4},
	}

	repo := New(&mockStore{
		aggregateFn: func(_ context.Context, q *db.AggregateQuery) (map[string]int, error) {
			return byField[q.GroupBy], nil
		},
	}, "enterprise_docs", "raggate:")

	facets, err := repo.Facets(context.Background(), filter.Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facets.Categories["guide"] != 4 {
		t.Errorf("categories = %v", facets.Categories)
	}
	if facets.Departments["hr"] != 1 {
		t.Errorf("departments = %v", facets.Departments)
	}
	if facets.Tags["vpn"] != 2 {
		t.Errorf("tags = %v", facets.Tags)
	}
	if facets.Months["2024-03"] != 4 {
		t.Errorf("months = %v", facets.Months)
	}
}

func TestFacets_AggregateError(t *testing.T) {
	repo := New(&mockStore{
		aggregateFn: func(_ context.Context, _ *db.AggregateQuery) (map[string]int, error) {
			return nil, errors.New("aggregate failed")
		},
	}, "enterprise_docs", "raggate:")

	_, err := repo.Facets(context.Background(), filter.Filters{})
	if err == nil {
		t.Fatal("expected error")
	}
}

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/request"
	"github.com/koralov/raggate/internal/domain/search/result"
	"github.com/koralov/raggate/internal/metrics"
)

type mockRepo struct {
	lexicalFn func(ctx context.Context, query string, filters filter.Filters, topK int, withHighlights bool) ([]result.Hit, int, error)
	knnFn     func(ctx context.Context, vector []float32, filters filter.Filters, k int) ([]result.Hit, error)
	facetsFn  func(ctx context.Context, filters filter.Filters) (result.Facets, error)
}

func (m *mockRepo) Lexical(
	ctx context.Context, query string, filters filter.Filters, topK int, withHighlights bool,
) ([]result.Hit, int, error) {
	if m.lexicalFn != nil {
		return m.lexicalFn(ctx, query, filters, topK, withHighlights)
	}
	return nil, 0, nil
}

func (m *mockRepo) KNN(
	ctx context.Context, vector []float32, filters filter.Filters, k int,
) ([]result.Hit, error) {
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, filters, k)
	}
	return nil, nil
}

func (m *mockRepo) Facets(ctx context.Context, filters filter.Filters) (result.Facets, error) {
	if m.facetsFn != nil {
		return m.facetsFn(ctx, filters)
	}
	return result.Facets{}, nil
}

type mockDocs struct {
	docs map[string]domdoc.Document
}

func (m *mockDocs) GetMulti(_ context.Context, ids []string) ([]domdoc.Document, error) {
	out := make([]domdoc.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockReranker struct {
	fn func(ctx context.Context, query string, candidates []result.Result, topK int) ([]result.Ranked, bool)
}

func (m *mockReranker) Rerank(
	ctx context.Context, query string, candidates []result.Result, topK int,
) ([]result.Ranked, bool) {
	if m.fn != nil {
		return m.fn(ctx, query, candidates, topK)
	}
	ranked := make([]result.Ranked, 0, topK)
	for i := range candidates {
		if i >= topK {
			break
		}
		ranked = append(ranked, result.FromResult(candidates[i]))
	}
	return ranked, true
}

func seedDoc(t *testing.T, id, title, content string, tags []string) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(
		id, title, content, "", "guide", "it",
		tags, "Author", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "",
	)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}

func mustRequest(t *testing.T, query string, topK int, rerank, facets bool) *request.Request {
	t.Helper()
	req, err := request.New(query, filter.Filters{}, topK, rerank, facets, false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func newTestService(repo *mockRepo, docs *mockDocs, embed *mockEmbedder, rr *mockReranker) *Service {
	return New(repo, docs, embed, rr, nil, Config{})
}

func TestSearch_HybridFusesChannels(t *testing.T) {
	docs := &mockDocs{docs: map[string]domdoc.Document{
		"a": seedDoc(t, "a", "Doc A", "Content A", nil),
		"b": seedDoc(t, "b", "Doc B", "Content B", nil),
		"c": seedDoc(t, "c", "Doc C", "Content C", nil),
	}}
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return []result.Hit{{ID: "a", Score: 5}, {ID: "c", Score: 2}}, 17, nil
		},
		knnFn: func(_ context.Context, _ []float32, _ filter.Filters, _ int) ([]result.Hit, error) {
			return []result.Hit{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.6}}, nil
		},
	}

	svc := newTestService(repo, docs, &mockEmbedder{}, &mockReranker{})
	out, err := svc.Search(context.Background(), mustRequest(t, "query", 5, false, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.SearchType != SearchTypeHybrid {
		t.Errorf("searchType = %q", out.SearchType)
	}
	if out.TotalHits != 17 {
		t.Errorf("totalHits = %d, want 17", out.TotalHits)
	}
	if len(out.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(out.Results))
	}
	// "a" appears in both channels at rank 1, so it must lead.
	if out.Results[0].ID() != "a" {
		t.Errorf("results[0] = %s, want a", out.Results[0].ID())
	}
	if out.UsedReranking {
		t.Error("usedReranking must be false when rerank disabled")
	}
}

func TestSearch_EmbeddingFailureDegradesToLexical(t *testing.T) {
	docs := &mockDocs{docs: map[string]domdoc.Document{
		"a": seedDoc(t, "a", "Doc A", "Content A", nil),
	}}
	knnCalled := false
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return []result.Hit{{ID: "a", Score: 3}}, 1, nil
		},
		knnFn: func(_ context.Context, _ []float32, _ filter.Filters, _ int) ([]result.Hit, error) {
			knnCalled = true
			return nil, nil
		},
	}

	svc := newTestService(repo, docs, &mockEmbedder{err: errors.New("provider down")}, &mockReranker{})
	out, err := svc.Search(context.Background(), mustRequest(t, "query", 5, false, false))
	if err != nil {
		t.Fatalf("embedding failure must not be fatal: %v", err)
	}

	if knnCalled {
		t.Error("knn channel must be skipped when embedding fails")
	}
	if out.SearchType != SearchTypeLexicalOnly {
		t.Errorf("searchType = %q, want lexical_only", out.SearchType)
	}
	if len(out.Results) != 1 || out.Results[0].ID() != "a" {
		t.Errorf("results = %+v", out.Results)
	}
}

func TestSearch_EmptyQuerySkipsVectorChannel(t *testing.T) {
	embedCalled := &mockEmbedder{}
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, query string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			if query != "" {
				t.Errorf("query = %q", query)
			}
			return nil, 0, nil
		},
	}

	svc := newTestService(repo, &mockDocs{}, embedCalled, &mockReranker{})
	out, err := svc.Search(context.Background(), mustRequest(t, "", 5, false, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SearchType != SearchTypeLexicalOnly {
		t.Errorf("searchType = %q", out.SearchType)
	}
	if out.TotalHits != 0 || len(out.Results) != 0 {
		t.Errorf("out = %+v", out)
	}
}

func TestSearch_RerankGetsWiderSlate(t *testing.T) {
	corpus := map[string]domdoc.Document{}
	var lexHits []result.Hit
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		corpus[id] = seedDoc(t, id, "Doc "+id, "Content "+id, nil)
		lexHits = append(lexHits, result.Hit{ID: id, Score: 1})
	}

	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return lexHits, len(lexHits), nil
		},
	}

	var slateSize int
	rr := &mockReranker{fn: func(_ context.Context, _ string, candidates []result.Result, topK int) ([]result.Ranked, bool) {
		slateSize = len(candidates)
		ranked := make([]result.Ranked, topK)
		for i := 0; i < topK; i++ {
			ranked[i] = result.FromResult(candidates[i])
		}
		return ranked, true
	}}

	svc := newTestService(repo, &mockDocs{docs: corpus}, &mockEmbedder{}, rr)
	out, err := svc.Search(context.Background(), mustRequest(t, "query", 2, true, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3×topK fused candidates go to the reranker.
	if slateSize != 6 {
		t.Errorf("slate = %d, want 6", slateSize)
	}
	if len(out.Results) != 2 {
		t.Errorf("results = %d, want 2", len(out.Results))
	}
	if !out.UsedReranking {
		t.Error("usedReranking must be true")
	}
}

func TestSearch_DefensivePostFilter(t *testing.T) {
	tagged := seedDoc(t, "tagged", "Tagged", "Content", []string{"vpn"})
	untagged := seedDoc(t, "untagged", "Untagged", "Content", nil)

	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			// The store erroneously returns a hit that no longer matches.
			return []result.Hit{{ID: "tagged", Score: 3}, {ID: "untagged", Score: 2}}, 2, nil
		},
	}

	filters, err := filter.New(filter.DateRange{}, nil, nil, []string{"vpn"})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	req, err := request.New("query", filters, 5, false, false, false)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}

	svc := newTestService(repo, &mockDocs{docs: map[string]domdoc.Document{
		"tagged": tagged, "untagged": untagged,
	}}, &mockEmbedder{err: errors.New("skip knn")}, &mockReranker{})

	out, err := svc.Search(context.Background(), &req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID() != "tagged" {
		t.Errorf("results = %+v", out.Results)
	}
}

func TestSearch_FacetsCollectedOnRequest(t *testing.T) {
	repo := &mockRepo{
		facetsFn: func(_ context.Context, _ filter.Filters) (result.Facets, error) {
			return result.Facets{Categories: map[string]int{"guide": 3}}, nil
		},
	}

	svc := newTestService(repo, &mockDocs{}, &mockEmbedder{}, &mockReranker{})
	out, err := svc.Search(context.Background(), mustRequest(t, "query", 5, false, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Facets == nil || out.Facets.Categories["guide"] != 3 {
		t.Errorf("facets = %+v", out.Facets)
	}
}

type stageSink struct {
	metrics.Nop
	stages []string
}

func (s *stageSink) SearchStage(stage string, _ time.Duration) {
	s.stages = append(s.stages, stage)
}

func TestSearch_RecordsStageTimings(t *testing.T) {
	docs := &mockDocs{docs: map[string]domdoc.Document{
		"a": seedDoc(t, "a", "Doc A", "Content A", nil),
	}}
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return []result.Hit{{ID: "a", Score: 3}}, 1, nil
		},
		knnFn: func(_ context.Context, _ []float32, _ filter.Filters, _ int) ([]result.Hit, error) {
			return []result.Hit{{ID: "a", Score: 0.9}}, nil
		},
	}

	sink := &stageSink{}
	svc := New(repo, docs, &mockEmbedder{}, &mockReranker{}, sink, Config{})
	if _, err := svc.Search(context.Background(), mustRequest(t, "query", 5, true, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{metrics.StageEmbed, metrics.StageKNN, metrics.StageLexical, metrics.StageRerank}
	if len(sink.stages) != len(want) {
		t.Fatalf("stages = %v, want %v", sink.stages, want)
	}
	for i := range want {
		if sink.stages[i] != want[i] {
			t.Fatalf("stages = %v, want %v", sink.stages, want)
		}
	}
}

func TestSearch_DegradedRunSkipsVectorStages(t *testing.T) {
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return nil, 0, nil
		},
	}

	sink := &stageSink{}
	svc := New(repo, &mockDocs{}, &mockEmbedder{err: errors.New("provider down")}, &mockReranker{}, sink, Config{})
	if _, err := svc.Search(context.Background(), mustRequest(t, "query", 5, false, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.stages) != 1 || sink.stages[0] != metrics.StageLexical {
		t.Fatalf("stages = %v, want only %q", sink.stages, metrics.StageLexical)
	}
}

func TestSearch_LexicalErrorIsFatal(t *testing.T) {
	repo := &mockRepo{
		lexicalFn: func(_ context.Context, _ string, _ filter.Filters, _ int, _ bool) ([]result.Hit, int, error) {
			return nil, 0, errors.New("store down")
		},
	}

	svc := newTestService(repo, &mockDocs{}, &mockEmbedder{}, &mockReranker{})
	_, err := svc.Search(context.Background(), mustRequest(t, "query", 5, false, false))
	if err == nil {
		t.Fatal("expected error")
	}
}

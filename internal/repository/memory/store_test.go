package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/document"
	"github.com/koralov/raggate/internal/domain/search/filter"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()

	docs := []struct {
		id, title, content, category, department string
		tags                                     []string
		date                                     time.Time
		embedding                                []float32
	}{
		{
			id: "doc-remote", title: "Remote Work Policy",
			content:  "Remote work requires manager approval and a secure VPN connection.",
			category: "policy", department: "hr", tags: []string{"remote", "policy"},
			date:      time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
			embedding: []float32{1, 0, 0},
		},
		{
			id: "doc-vpn", title: "VPN Setup Guide",
			content:  "Step by step VPN configuration for remote employees.",
			category: "guide", department: "it", tags: []string{"vpn", "remote"},
			date:      time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			embedding: []float32{0.9, 0.1, 0},
		},
		{
			id: "doc-menu", title: "Cafeteria Menu",
			content:  "Weekly meal options in the office cafeteria.",
			category: "facilities", department: "office", tags: []string{"food"},
			date:      time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			embedding: []float32{0, 1, 0},
		},
	}

	for _, d := range docs {
		doc, err := document.New(d.id, d.title, d.content, "", d.category, d.department, d.tags, "author", d.date, "")
		if err != nil {
			t.Fatalf("document.New: %v", err)
		}
		doc = doc.WithEmbedding(d.embedding)
		if err := s.Index(context.Background(), &doc); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	return s
}

func TestLexicalWeightedScoring(t *testing.T) {
	s := seedStore(t)

	hits, total, err := s.Lexical(context.Background(), "remote", filter.Filters{}, 10, false)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}

	// "remote" appears in doc-remote's title (3), content (1) and tags
	// (1.5) but only in doc-vpn's content and tags; the title match
	// must rank doc-remote first.
	if hits[0].ID != "doc-remote" || hits[1].ID != "doc-vpn" {
		t.Errorf("order = %v", hits)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores not ranked: %v", hits)
	}
}

func TestLexicalPhraseBoost(t *testing.T) {
	s := seedStore(t)

	hits, _, err := s.Lexical(context.Background(), "remote work", filter.Filters{}, 10, false)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "doc-remote" {
		t.Fatalf("hits = %v", hits)
	}

	single, _, _ := s.Lexical(context.Background(), "remote", filter.Filters{}, 10, false)
	if hits[0].Score <= single[0].Score {
		t.Error("phrase match should boost the score")
	}
}

func TestLexicalEmptyQueryMatchesAll(t *testing.T) {
	s := seedStore(t)

	hits, total, err := s.Lexical(context.Background(), "", filter.Filters{}, 10, false)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if total != 3 || len(hits) != 3 {
		t.Errorf("total = %d, hits = %d", total, len(hits))
	}
}

func TestLexicalTopKAndTotal(t *testing.T) {
	s := seedStore(t)

	hits, total, err := s.Lexical(context.Background(), "remote", filter.Filters{}, 1, false)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if len(hits) != 1 || total != 2 {
		t.Errorf("len = %d, total = %d", len(hits), total)
	}
}

func TestLexicalHighlights(t *testing.T) {
	s := seedStore(t)

	hits, _, err := s.Lexical(context.Background(), "vpn", filter.Filters{}, 10, true)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if len(hits) == 0 || !strings.Contains(hits[0].Highlight, "<b>") {
		t.Errorf("highlight missing: %v", hits)
	}
}

func TestLexicalFilters(t *testing.T) {
	s := seedStore(t)

	f, err := filter.New(filter.DateRange{}, []string{"guide"}, nil, nil)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}

	hits, total, err := s.Lexical(context.Background(), "remote", f, 10, false)
	if err != nil {
		t.Fatalf("Lexical: %v", err)
	}
	if total != 1 || hits[0].ID != "doc-vpn" {
		t.Errorf("hits = %v total = %d", hits, total)
	}
}

func TestKNNRanksByCosine(t *testing.T) {
	s := seedStore(t)

	hits, err := s.KNN(context.Background(), []float32{1, 0, 0}, filter.Filters{}, 2)
	if err != nil {
		t.Fatalf("KNN: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len = %d", len(hits))
	}
	if hits[0].ID != "doc-remote" || hits[1].ID != "doc-vpn" {
		t.Errorf("order = %v", hits)
	}
	if hits[0].Score <= hits[1].Score || hits[0].Score > 1 {
		t.Errorf("scores = %v", hits)
	}
}

func TestKNNZeroMatchFilters(t *testing.T) {
	s := seedStore(t)

	f, err := filter.New(filter.DateRange{}, []string{"nonexistent"}, nil, nil)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}

	hits, err := s.KNN(context.Background(), []float32{1, 0, 0}, f, 10)
	if err != nil {
		t.Fatalf("KNN: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestFacets(t *testing.T) {
	s := seedStore(t)

	facets, err := s.Facets(context.Background(), filter.Filters{})
	if err != nil {
		t.Fatalf("Facets: %v", err)
	}
	if facets.Categories["policy"] != 1 || facets.Categories["guide"] != 1 {
		t.Errorf("categories = %v", facets.Categories)
	}
	if facets.Tags["remote"] != 2 {
		t.Errorf("tags = %v", facets.Tags)
	}
	if facets.Months["2024-10"] != 2 || facets.Months["2024-09"] != 1 {
		t.Errorf("months = %v", facets.Months)
	}
}

func TestGetMultiSkipsMissing(t *testing.T) {
	s := seedStore(t)

	docs, err := s.GetMulti(context.Background(), []string{"doc-vpn", "missing", "doc-menu"})
	if err != nil {
		t.Fatalf("GetMulti: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != "doc-vpn" || docs[1].ID() != "doc-menu" {
		t.Errorf("docs = %v", docs)
	}
}

func TestGetAndDelete(t *testing.T) {
	s := seedStore(t)

	if _, err := s.Get(context.Background(), "doc-menu"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Delete(context.Background(), "doc-menu"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(context.Background(), "doc-menu"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := s.Delete(context.Background(), "doc-menu"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound on double delete, got %v", err)
	}
}

func TestBulkIndexOverwrites(t *testing.T) {
	s := seedStore(t)

	doc, err := document.New("doc-menu", "Updated Menu", "New meal options entirely.", "", "facilities", "office", nil, "author", time.Now(), "")
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}

	if err := s.BulkIndex(context.Background(), []document.Document{doc}); err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}

	got, err := s.Get(context.Background(), "doc-menu")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title() != "Updated Menu" {
		t.Errorf("title = %q", got.Title())
	}

	n, _ := s.Count(context.Background())
	if n != 3 {
		t.Errorf("count = %d", n)
	}
}

package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koralov/raggate/internal/db"
	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
)

func testDoc(t *testing.T) domdoc.Document {
	t.Helper()
	date := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	doc, err := domdoc.New(
		"doc-001", "VPN Setup Guide", "Step by step VPN configuration for remote employees.",
		"", "guide", "it",
		[]string{"vpn", "remote-access"}, "IT Team", date, "https://wiki.internal/vpn",
	)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc.WithEmbedding([]float32{0.1, 0.2, 0.3})
}

func TestIndex_BuildsHashFields(t *testing.T) {
	var gotKey string
	var gotFields map[string]string

	repo := New(&mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey = key
			gotFields = fields
			return nil
		},
	}, "raggate:")

	doc := testDoc(t)
	if err := repo.Index(context.Background(), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "raggate:doc:doc-001" {
		t.Errorf("key = %q, want raggate:doc:doc-001", gotKey)
	}
	if gotFields[fieldTitle] != "VPN Setup Guide" {
		t.Errorf("title = %q", gotFields[fieldTitle])
	}
	if gotFields[fieldTags] != "vpn,remote-access" {
		t.Errorf("tags = %q", gotFields[fieldTags])
	}
	if gotFields[fieldDateTS] != "1710496800" {
		t.Errorf("date_ts = %q", gotFields[fieldDateTS])
	}
	if gotFields[fieldMonth] != "2024-03" {
		t.Errorf("month = %q", gotFields[fieldMonth])
	}
	if len(gotFields[fieldVector]) != 12 {
		t.Errorf("vector bytes = %d, want 12", len(gotFields[fieldVector]))
	}
	// Summary falls back to a content excerpt when not provided.
	if gotFields[fieldSummary] == "" {
		t.Error("summary missing")
	}
}

func TestGet_RoundTrip(t *testing.T) {
	doc := testDoc(t)
	stored := buildHashFields(&doc)

	repo := New(&mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "raggate:doc:doc-001" {
				t.Errorf("key = %q", key)
			}
			return stored, nil
		},
	}, "raggate:")

	got, err := repo.Get(context.Background(), "doc-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ID() != doc.ID() || got.Title() != doc.Title() || got.Content() != doc.Content() {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if !got.Date().Equal(doc.Date()) {
		t.Errorf("date = %v, want %v", got.Date(), doc.Date())
	}
	if !got.HasTag("vpn") || !got.HasTag("remote-access") {
		t.Errorf("tags = %v", got.Tags())
	}
	if len(got.Embedding()) != 3 {
		t.Errorf("embedding len = %d, want 3", len(got.Embedding()))
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(&mockStore{
		hgetAllFn: func(_ context.Context, _ string) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}, "raggate:")

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("error = %v, want ErrDocumentNotFound", err)
	}
}

func TestBulkIndex_Pipelines(t *testing.T) {
	var gotItems []db.HashSetItem

	repo := New(&mockStore{
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			gotItems = items
			return nil
		},
	}, "raggate:")

	doc := testDoc(t)
	if err := repo.BulkIndex(context.Background(), []domdoc.Document{doc, doc}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotItems) != 2 {
		t.Fatalf("items = %d, want 2", len(gotItems))
	}
}

func TestGetMulti_SkipsMissing(t *testing.T) {
	doc := testDoc(t)
	stored := buildHashFields(&doc)

	repo := New(&mockStore{
		hgetAllMultiFn: func(_ context.Context, keys []string) ([]map[string]string, error) {
			return []map[string]string{stored, {}}, nil
		},
	}, "raggate:")

	docs, err := repo.GetMulti(context.Background(), []string{"doc-001", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "doc-001" {
		t.Errorf("docs = %d", len(docs))
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := New(&mockStore{}, "raggate:")

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("error = %v, want ErrDocumentNotFound", err)
	}
}

func TestSchema_Definition(t *testing.T) {
	def := Schema("enterprise_docs", "raggate:", 768, 16, 200)

	if def.Name != "enterprise_docs" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != "raggate:doc:" {
		t.Errorf("prefixes = %v", def.Prefixes)
	}

	byKey := make(map[string]db.IndexField)
	for _, f := range def.Fields {
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		byKey[key] = f
	}
	if byKey[fieldTitle].TextWeight != 3 {
		t.Errorf("title weight = %v", byKey[fieldTitle].TextWeight)
	}
	if byKey["tags_text"].TextWeight != 1.5 {
		t.Errorf("tags_text weight = %v", byKey["tags_text"].TextWeight)
	}
	if byKey[fieldVector].VectorDim != 768 {
		t.Errorf("vector dim = %d", byKey[fieldVector].VectorDim)
	}
}

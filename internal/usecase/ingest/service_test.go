package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
	domingest "github.com/koralov/raggate/internal/domain/ingest"
)

func TestIngestHappyPath(t *testing.T) {
	var indexed []domdoc.Document
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, docs []domdoc.Document) error {
			indexed = docs
			return nil
		},
	}

	items := []Input{
		{ID: "doc-1", Title: "First", Content: "Content of the first document."},
		{Title: "Second", Content: "Content of the second document.", Tags: []string{"a"}},
	}

	results := New(writer, constantEmbedder(4)).Ingest(context.Background(), items)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Status() != domingest.StatusOK {
			t.Errorf("result[%d] = %v: %v", i, r.Status(), r.Err())
		}
	}

	if results[0].ID() != "doc-1" {
		t.Errorf("caller id not preserved: %q", results[0].ID())
	}
	if results[1].ID() == "" {
		t.Error("missing id not generated")
	}

	if len(indexed) != 2 {
		t.Fatalf("expected 2 indexed docs, got %d", len(indexed))
	}
	for i := range indexed {
		if len(indexed[i].Embedding()) != 4 {
			t.Errorf("doc %d not embedded", i)
		}
		if indexed[i].Summary() == "" {
			t.Errorf("doc %d summary not derived", i)
		}
	}
}

func TestIngestInvalidItemsDoNotAbortBatch(t *testing.T) {
	var indexed []domdoc.Document
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, docs []domdoc.Document) error {
			indexed = docs
			return nil
		},
	}

	items := []Input{
		{ID: "bad-1", Title: "", Content: "No title present here."},
		{ID: "good", Title: "Fine", Content: "A perfectly valid document."},
		{ID: "bad-2", Title: "No content"},
	}

	results := New(writer, constantEmbedder(4)).Ingest(context.Background(), items)

	if results[0].Status() != domingest.StatusError || !errors.Is(results[0].Err(), domain.ErrInvalidRequest) {
		t.Errorf("result[0] = %v: %v", results[0].Status(), results[0].Err())
	}
	if results[1].Status() != domingest.StatusOK {
		t.Errorf("result[1] = %v: %v", results[1].Status(), results[1].Err())
	}
	if results[2].Status() != domingest.StatusError {
		t.Errorf("result[2] = %v", results[2].Status())
	}

	if len(indexed) != 1 || indexed[0].ID() != "good" {
		t.Errorf("indexed = %v", indexed)
	}
}

func TestIngestBatchSizeLimit(t *testing.T) {
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, _ []domdoc.Document) error {
			t.Fatal("bulk index must not be called")
			return nil
		},
	}

	items := make([]Input, 3)
	for i := range items {
		items[i] = Input{Title: "T", Content: "Some content."}
	}

	results := New(writer, constantEmbedder(4)).WithMaxBatchSize(2).Ingest(context.Background(), items)
	for i, r := range results {
		if r.Status() != domingest.StatusError || !errors.Is(r.Err(), domain.ErrInvalidRequest) {
			t.Errorf("result[%d] = %v: %v", i, r.Status(), r.Err())
		}
	}
}

func TestIngestEmbedFailureFailsPendingItems(t *testing.T) {
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, _ []domdoc.Document) error {
			t.Fatal("bulk index must not be called")
			return nil
		},
	}
	embed := &mockEmbedder{
		batchEmbedFn: func(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
			return domain.BatchEmbeddingResult{}, domain.ErrModelProviderError
		},
	}

	items := []Input{
		{ID: "doc-1", Title: "A", Content: "Content a."},
		{ID: "doc-2", Title: "B", Content: "Content b."},
	}

	results := New(writer, embed).Ingest(context.Background(), items)
	for i, r := range results {
		if r.Status() != domingest.StatusError || !errors.Is(r.Err(), domain.ErrModelProviderError) {
			t.Errorf("result[%d] = %v: %v", i, r.Status(), r.Err())
		}
	}
}

func TestIngestShortEmbeddingSlice(t *testing.T) {
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, _ []domdoc.Document) error {
			t.Fatal("bulk index must not be called")
			return nil
		},
	}
	embed := &mockEmbedder{
		batchEmbedFn: func(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
			return domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts)-1)}, nil
		},
	}

	items := []Input{
		{ID: "doc-1", Title: "A", Content: "Content a."},
		{ID: "doc-2", Title: "B", Content: "Content b."},
	}

	results := New(writer, embed).Ingest(context.Background(), items)
	for i, r := range results {
		if r.Status() != domingest.StatusError {
			t.Errorf("result[%d] = %v", i, r.Status())
		}
	}
}

func TestIngestBulkIndexFailure(t *testing.T) {
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, _ []domdoc.Document) error {
			return domain.ErrStoreUnavailable
		},
	}

	results := New(writer, constantEmbedder(4)).Ingest(context.Background(), []Input{
		{ID: "doc-1", Title: "A", Content: "Content a."},
	})
	if results[0].Status() != domingest.StatusError || !errors.Is(results[0].Err(), domain.ErrStoreUnavailable) {
		t.Errorf("result = %v: %v", results[0].Status(), results[0].Err())
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	results := New(&mockWriter{}, constantEmbedder(4)).Ingest(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestIngestDefaultsDate(t *testing.T) {
	var indexed []domdoc.Document
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, docs []domdoc.Document) error {
			indexed = docs
			return nil
		},
	}

	before := time.Now().UTC()
	New(writer, constantEmbedder(4)).Ingest(context.Background(), []Input{
		{ID: "doc-1", Title: "A", Content: "Content without a date."},
	})

	if len(indexed) != 1 || indexed[0].Date().Before(before.Add(-time.Second)) {
		t.Errorf("date not defaulted: %v", indexed)
	}
}

func TestSeedCorpus(t *testing.T) {
	var indexed []domdoc.Document
	writer := &mockWriter{
		bulkIndexFn: func(_ context.Context, docs []domdoc.Document) error {
			indexed = docs
			return nil
		},
	}

	if err := New(writer, constantEmbedder(4)).Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(indexed) != len(SeedCorpus()) {
		t.Fatalf("expected %d seeded docs, got %d", len(SeedCorpus()), len(indexed))
	}

	// Seed corpus is stable-id so reseeding overwrites instead of duplicating.
	seen := make(map[string]bool)
	for i := range indexed {
		id := indexed[i].ID()
		if seen[id] {
			t.Errorf("duplicate seed id %q", id)
		}
		seen[id] = true
	}
}

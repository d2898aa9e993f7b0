package ingest

import (
	"context"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
)

// DocumentWriter persists documents to the index.
type DocumentWriter interface {
	Index(ctx context.Context, doc *domdoc.Document) error
	BulkIndex(ctx context.Context, docs []domdoc.Document) error
}

// Embedder vectorizes document contents in batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

package ingest

import (
	"context"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
)

type mockWriter struct {
	indexFn     func(ctx context.Context, doc *domdoc.Document) error
	bulkIndexFn func(ctx context.Context, docs []domdoc.Document) error
}

func (m *mockWriter) Index(ctx context.Context, doc *domdoc.Document) error {
	return m.indexFn(ctx, doc)
}

func (m *mockWriter) BulkIndex(ctx context.Context, docs []domdoc.Document) error {
	return m.bulkIndexFn(ctx, docs)
}

type mockEmbedder struct {
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return m.batchEmbedFn(ctx, texts)
}

// constantEmbedder returns a fixed-dimension vector per input text.
func constantEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{
		batchEmbedFn: func(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = make([]float32, dims)
			}
			return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 7 * len(texts)}, nil
		},
	}
}

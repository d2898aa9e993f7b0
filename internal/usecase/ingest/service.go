package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
	domingest "github.com/koralov/raggate/internal/domain/ingest"
	"github.com/koralov/raggate/internal/logger"
)

// MaxBatchSize is the maximum number of documents per ingest request.
const MaxBatchSize = 100

// Input is one raw document submitted for ingestion.
type Input struct {
	ID         string
	Title      string
	Content    string
	Summary    string
	Category   string
	Department string
	Tags       []string
	Author     string
	Date       time.Time
	SourceURL  string
}

// Service validates, embeds and indexes incoming documents with
// per-item error reporting.
type Service struct {
	docs         DocumentWriter
	embed        Embedder
	maxBatchSize int
}

// New creates an ingest service.
func New(docs DocumentWriter, embed Embedder) *Service {
	return &Service{docs: docs, embed: embed, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Ingest processes a batch of documents: each is validated (missing
// ids get generated ones), contents are embedded in one batch call,
// and the valid set is bulk-indexed. Item failures never abort the
// rest of the batch; an embedding or indexing failure fails every
// still-pending item.
func (s *Service) Ingest(ctx context.Context, items []Input) []domingest.Result {
	results := make([]domingest.Result, len(items))

	if len(items) == 0 {
		return results
	}
	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = domingest.NewError(
				item.ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest),
			)
		}
		return results
	}

	valid := make([]domdoc.Document, 0, len(items))
	validIdx := make([]int, 0, len(items))

	for i := range items {
		doc, err := buildDocument(&items[i])
		if err != nil {
			results[i] = domingest.NewError(items[i].ID, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
			continue
		}
		valid = append(valid, doc)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	texts := make([]string, len(valid))
	for i := range valid {
		texts[i] = valid[i].Content()
	}

	emb, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		err = fmt.Errorf("batch embed: %w", err)
		for _, i := range validIdx {
			results[i] = domingest.NewError(items[i].ID, err)
		}
		return results
	}
	if len(emb.Embeddings) != len(valid) {
		err = fmt.Errorf("batch embed returned %d vectors for %d documents", len(emb.Embeddings), len(valid))
		for _, i := range validIdx {
			results[i] = domingest.NewError(items[i].ID, err)
		}
		return results
	}

	for i := range valid {
		valid[i] = valid[i].WithEmbedding(emb.Embeddings[i])
	}

	if err := s.docs.BulkIndex(ctx, valid); err != nil {
		err = fmt.Errorf("bulk index: %w", err)
		for _, i := range validIdx {
			results[i] = domingest.NewError(items[i].ID, err)
		}
		return results
	}

	for j, i := range validIdx {
		results[i] = domingest.NewOK(valid[j].ID())
	}

	logger.FromContext(ctx).Info("ingested documents",
		zap.Int("submitted", len(items)),
		zap.Int("indexed", len(valid)),
		zap.Int("tokens", emb.TotalTokens))

	return results
}

// buildDocument validates one input and assigns an id when missing.
func buildDocument(in *Input) (domdoc.Document, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return domdoc.New(
		id, in.Title, in.Content, in.Summary,
		in.Category, in.Department, in.Tags,
		in.Author, date, in.SourceURL,
	)
}

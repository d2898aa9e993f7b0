package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/koralov/raggate/internal/db"
	"github.com/koralov/raggate/internal/domain"
	domdoc "github.com/koralov/raggate/internal/domain/document"
)

// store is the consumer interface for document storage (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo stores documents as Redis hashes keyed <prefix>doc:<id>.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a document repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Index stores a single document.
func (r *Repo) Index(ctx context.Context, doc *domdoc.Document) error {
	key := r.docKey(doc.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(doc)); err != nil {
		return fmt.Errorf("index %s: %w", key, err)
	}
	return nil
}

// BulkIndex stores multiple documents in one pipelined round-trip.
func (r *Repo) BulkIndex(ctx context.Context, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		items[i] = db.HashSetItem{
			Key:    r.docKey(docs[i].ID()),
			Fields: buildHashFields(&docs[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("bulk index %d docs: %w", len(docs), err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get %s: %w", key, err)
	}
	// HGETALL on a missing key returns an empty map, not an error.
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m), nil
}

// GetMulti returns documents for the given IDs in one pipelined
// round-trip. Missing documents are skipped, not errors.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]domdoc.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get multi: %w", err)
	}

	docs := make([]domdoc.Document, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		docs = append(docs, parseHashFields(ids[i], m))
	}
	return docs, nil
}

// Delete removes a document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) docKey(id string) string {
	return r.keyPrefix + "doc:" + id
}

// Schema builds the FT index definition for the document corpus. Field
// weights drive lexical relevance: title matches count most, then
// summary, tags, and content. The tags hash field is indexed twice,
// as weighted TEXT for retrieval and as TAG for exact filtering.
func Schema(indexName, keyPrefix string, dims, m, efConstruct int) *db.IndexDefinition {
	return db.NewIndex(indexName).
		Prefix(keyPrefix + "doc:").
		TextWeighted(fieldTitle, 3).
		TextWeighted(fieldSummary, 2).
		Text(fieldContent).
		TextAs(fieldTags, "tags_text", 1.5).
		TagWithOpts(fieldTags, ",", false).
		Tag(fieldCategory).
		Tag(fieldDepartment).
		Tag(fieldMonth).
		Numeric(fieldDateTS).
		VectorHNSW(fieldVector, dims, db.DistanceCosine, m, efConstruct).
		MustBuild()
}

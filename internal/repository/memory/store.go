package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/document"
	"github.com/koralov/raggate/internal/domain/search/filter"
	"github.com/koralov/raggate/internal/domain/search/result"
)

// Field weights mirror the production index schema.
const (
	titleWeight   = 3.0
	summaryWeight = 2.0
	contentWeight = 1.0
	tagsWeight    = 1.5
	phraseBoost   = 2.0
)

const monthLayout = "2006-01"

// Store is an in-memory document store with deterministic lexical and
// vector retrieval. It backs mock mode and tests; it is not a cache in
// front of a real store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document.Document
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{docs: make(map[string]document.Document)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// SupportsTextSearch always reports true.
func (s *Store) SupportsTextSearch(_ context.Context) bool { return true }

// Index stores one document keyed by id.
func (s *Store) Index(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID()] = *doc
	return nil
}

// BulkIndex stores all documents; existing ids are overwritten.
func (s *Store) BulkIndex(_ context.Context, docs []document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range docs {
		s.docs[docs[i].ID()] = docs[i]
	}
	return nil
}

// Get returns one document by id.
func (s *Store) Get(_ context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("get %q: %w", id, domain.ErrDocumentNotFound)
	}
	return doc, nil
}

// GetMulti returns the documents for the given ids; missing ids are
// skipped, preserving request order for the rest.
func (s *Store) GetMulti(_ context.Context, ids []string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Delete removes a document by id.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, domain.ErrDocumentNotFound)
	}
	delete(s.docs, id)
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Lexical scores documents by weighted term frequency across title,
// summary, content and tags, with a phrase boost for the whole query.
// An empty query matches everything at score zero.
func (s *Store) Lexical(
	_ context.Context, query string, filters filter.Filters, topK int, withHighlights bool,
) ([]result.Hit, int, error) {
	terms := strings.Fields(strings.ToLower(query))
	phrase := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []result.Hit
	for id := range s.docs {
		doc := s.docs[id]
		if !filters.Matches(&doc) {
			continue
		}

		score := lexicalScore(&doc, terms, phrase)
		if score == 0 && len(terms) > 0 {
			continue
		}

		hit := result.Hit{ID: id, Score: score}
		if withHighlights {
			hit.Highlight = highlight(doc.Content(), terms)
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	total := len(hits)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, total, nil
}

// KNN returns the k nearest documents by cosine similarity. Documents
// without an embedding are skipped.
func (s *Store) KNN(
	_ context.Context, vector []float32, filters filter.Filters, k int,
) ([]result.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []result.Hit
	for id := range s.docs {
		doc := s.docs[id]
		if doc.Embedding() == nil || !filters.Matches(&doc) {
			continue
		}

		sim := cosineSimilarity(vector, doc.Embedding())
		if sim < 0 {
			sim = 0
		}
		hits = append(hits, result.Hit{ID: id, Score: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Facets counts category, department, tag and month buckets over the
// filtered document set.
func (s *Store) Facets(_ context.Context, filters filter.Filters) (result.Facets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facets := result.Facets{
		Categories:  make(map[string]int),
		Departments: make(map[string]int),
		Tags:        make(map[string]int),
		Months:      make(map[string]int),
	}

	for id := range s.docs {
		doc := s.docs[id]
		if !filters.Matches(&doc) {
			continue
		}
		if c := doc.Category(); c != "" {
			facets.Categories[c]++
		}
		if d := doc.Department(); d != "" {
			facets.Departments[d]++
		}
		for _, tag := range doc.Tags() {
			facets.Tags[tag]++
		}
		if !doc.Date().IsZero() {
			facets.Months[doc.Date().Format(monthLayout)]++
		}
	}
	return facets, nil
}

func lexicalScore(doc *document.Document, terms []string, phrase string) float64 {
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(doc.Title())
	summary := strings.ToLower(doc.Summary())
	content := strings.ToLower(doc.Content())
	tags := strings.ToLower(strings.Join(doc.Tags(), " "))

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += titleWeight
		}
		if strings.Contains(summary, term) {
			score += summaryWeight
		}
		if strings.Contains(content, term) {
			score += contentWeight
		}
		if strings.Contains(tags, term) {
			score += tagsWeight
		}
	}

	if len(terms) > 1 && (strings.Contains(title, phrase) || strings.Contains(content, phrase)) {
		score += phraseBoost
	}
	return score
}

// highlight wraps the first matched term occurrence in a short
// content fragment.
func highlight(content string, terms []string) string {
	lower := strings.ToLower(content)
	for _, term := range terms {
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		start := max(0, idx-40)
		end := min(len(content), idx+len(term)+40)
		return content[start:idx] + "<b>" + content[idx:idx+len(term)] + "</b>" + content[idx+len(term):end]
	}
	return ""
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

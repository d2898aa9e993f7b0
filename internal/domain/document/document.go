package document

import (
	"fmt"
	"strings"
	"time"
)

// SummaryLength is the number of content characters used when deriving a missing summary.
const SummaryLength = 200

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is the indexed document aggregate (immutable value object).
type Document struct {
	id         string
	title      string
	content    string
	summary    string
	category   string
	department string
	tags       []string
	author     string
	date       time.Time
	sourceURL  string
	embedding  []float32
}

// New validates and creates a Document.
// Title and content are required; a missing summary is derived from content.
func New(
	id, title, content, summary, category, department string,
	tags []string, author string, date time.Time, sourceURL string,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return Document{}, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if summary == "" {
		summary = DeriveSummary(content)
	}

	return Document{
		id:         id,
		title:      title,
		content:    content,
		summary:    summary,
		category:   category,
		department: department,
		tags:       cloneTags(tags),
		author:     author,
		date:       date,
		sourceURL:  sourceURL,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, content, summary, category, department string,
	tags []string, author string, date time.Time, sourceURL string,
	embedding []float32,
) Document {
	return Document{
		id: id, title: title, content: content, summary: summary,
		category: category, department: department, tags: tags,
		author: author, date: date, sourceURL: sourceURL, embedding: embedding,
	}
}

// DeriveSummary returns the leading content excerpt used as a summary fallback.
func DeriveSummary(content string) string {
	if len(content) <= SummaryLength {
		return content
	}
	return content[:SummaryLength]
}

// WithEmbedding returns a copy of the document with the embedding set.
func (d Document) WithEmbedding(vec []float32) Document {
	d.embedding = vec
	return d
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the full document text.
func (d *Document) Content() string { return d.content }

// Summary returns the document summary (derived when not supplied).
func (d *Document) Summary() string { return d.summary }

// Category returns the category facet value.
func (d *Document) Category() string { return d.category }

// Department returns the department facet value.
func (d *Document) Department() string { return d.department }

// Tags returns the tag set.
func (d *Document) Tags() []string { return d.tags }

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Author returns the document author.
func (d *Document) Author() string { return d.author }

// Date returns the document timestamp.
func (d *Document) Date() time.Time { return d.date }

// SourceURL returns the origin URL.
func (d *Document) SourceURL() string { return d.sourceURL }

// Embedding returns the dense vector, nil when not embedded yet.
func (d *Document) Embedding() []float32 { return d.embedding }

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

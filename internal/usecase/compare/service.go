package compare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/document"
)

const (
	keyPointTemperature = 0.3
	analysisTemperature = 0.5
	summaryTemperature  = 0.7
)

// Generator is the slice of the model provider the comparator needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.GenerationResult, error)
}

// Options tunes a comparison call. Zero value enables everything,
// matching the endpoint defaults.
type Options struct {
	IncludeMetadata      *bool
	HighlightDifferences *bool
	GenerateSummary      *bool
}

func (o Options) includeMetadata() bool { return o.IncludeMetadata == nil || *o.IncludeMetadata }

func (o Options) highlightDifferences() bool {
	return o.HighlightDifferences == nil || *o.HighlightDifferences
}

func (o Options) generateSummary() bool { return o.GenerateSummary == nil || *o.GenerateSummary }

// DocumentMetadata is the optional facet snapshot attached per document.
type DocumentMetadata struct {
	Category   string    `json:"category"`
	Department string    `json:"department"`
	Date       time.Time `json:"date"`
	Author     string    `json:"author"`
}

// DocumentSummary is one compared document with its extracted key points.
type DocumentSummary struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	KeyPoints []string          `json:"keyPoints"`
	Metadata  *DocumentMetadata `json:"metadata,omitempty"`
}

// Output is the comparison result.
type Output struct {
	Documents     []DocumentSummary `json:"documents"`
	Similarities  []string          `json:"similarities"`
	Differences   []string          `json:"differences"`
	UniqueAspects []string          `json:"uniqueAspects,omitempty"`
	Summary       string            `json:"summary,omitempty"`
}

// Service compares documents side by side: per-document key points,
// a cross-document similarity/difference analysis, and an optional
// executive summary.
type Service struct {
	gen Generator
}

// New creates a compare service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Compare analyzes two or more documents. Fewer than two is rejected
// before any model call.
func (s *Service) Compare(
	ctx context.Context, docs []document.Document, opts Options,
) (*Output, error) {
	if len(docs) < 2 {
		return nil, fmt.Errorf("%w: at least 2 documents required for comparison", domain.ErrInvalidRequest)
	}

	summaries, err := s.extractAll(ctx, docs, opts.includeMetadata())
	if err != nil {
		return nil, err
	}

	out := &Output{Documents: summaries, Similarities: []string{}, Differences: []string{}}

	if opts.highlightDifferences() {
		if err := s.analyzeDifferences(ctx, out); err != nil {
			return nil, err
		}
	}

	if opts.generateSummary() {
		summary, err := s.comparisonSummary(ctx, out)
		if err != nil {
			return nil, err
		}
		out.Summary = summary
	}

	return out, nil
}

// extractAll pulls key points for every document concurrently; the
// extractions are independent of each other.
func (s *Service) extractAll(
	ctx context.Context, docs []document.Document, withMetadata bool,
) ([]DocumentSummary, error) {
	summaries := make([]DocumentSummary, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range docs {
		g.Go(func() error {
			d := &docs[i]
			points, err := s.extractKeyPoints(gctx, d)
			if err != nil {
				return fmt.Errorf("key points for %s: %w", d.ID(), err)
			}

			summaries[i] = DocumentSummary{ID: d.ID(), Title: d.Title(), KeyPoints: points}
			if withMetadata {
				summaries[i].Metadata = &DocumentMetadata{
					Category:   d.Category(),
					Department: d.Department(),
					Date:       d.Date(),
					Author:     d.Author(),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) extractKeyPoints(ctx context.Context, d *document.Document) ([]string, error) {
	prompt := fmt.Sprintf(
		"Extract 5-7 key points from this document:\nTitle: %s\nContent: %s\n\nFormat as a bulleted list.",
		d.Title(), d.Content(),
	)

	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{Temperature: keyPointTemperature})
	if err != nil {
		return nil, err
	}
	return parseBullets(res.Text), nil
}

func (s *Service) analyzeDifferences(ctx context.Context, out *Output) error {
	var b strings.Builder
	b.WriteString("Compare these documents and identify similarities and differences:\n\n")
	for i, ds := range out.Documents {
		fmt.Fprintf(&b, "Document %d: %s\nKey Points:\n", i+1, ds.Title)
		for _, p := range ds.KeyPoints {
			b.WriteString("- " + p + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Provide:\n1. Common themes (similarities)\n2. Key differences\n3. Unique aspects of each document")

	res, err := s.gen.Generate(ctx, b.String(), domain.GenerateOptions{Temperature: analysisTemperature})
	if err != nil {
		return fmt.Errorf("difference analysis: %w", err)
	}

	out.Similarities = extractSection(res.Text, "similarities")
	out.Differences = extractSection(res.Text, "differences")
	out.UniqueAspects = extractSection(res.Text, "unique")
	return nil
}

func (s *Service) comparisonSummary(ctx context.Context, out *Output) (string, error) {
	var b strings.Builder
	b.WriteString("Generate a concise comparison summary for these documents:\n")
	for _, ds := range out.Documents {
		b.WriteString("- " + ds.Title + "\n")
	}
	b.WriteString("Similarities: " + strings.Join(out.Similarities, "; ") + "\n")
	b.WriteString("Differences: " + strings.Join(out.Differences, "; ") + "\n\n")
	b.WriteString("Provide a 2-3 sentence executive summary.")

	res, err := s.gen.Generate(ctx, b.String(), domain.GenerateOptions{Temperature: summaryTemperature})
	if err != nil {
		return "", fmt.Errorf("comparison summary: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// parseBullets keeps only bulleted lines, stripping the bullet.
func parseBullets(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "•") {
			points = append(points, strings.TrimSpace(strings.TrimLeft(trimmed, "-• ")))
		}
	}
	return points
}

// extractSection collects the bulleted lines following the first line
// mentioning keyword, stopping at the first blank line.
func extractSection(text, keyword string) []string {
	result := []string{}
	capturing := false

	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), keyword) {
			capturing = true
			continue
		}
		if !capturing {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "•") {
			result = append(result, strings.TrimSpace(strings.TrimLeft(trimmed, "-• ")))
		} else if trimmed == "" {
			break
		}
	}
	return result
}

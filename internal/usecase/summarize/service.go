package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/document"
)

// Summary styles.
const (
	StyleBrief         = "brief"
	StyleComprehensive = "comprehensive"
	StyleTechnical     = "technical"
	StyleExecutive     = "executive"
)

// Summary tones.
const (
	ToneFormal       = "formal"
	ToneCasual       = "casual"
	ToneProfessional = "professional"
)

const (
	defaultMaxWords = 300
	excerptLimit    = 800

	// Lower temperature for technical style trades fluency for accuracy.
	technicalTemperature = 0.3
	defaultTemperature   = 0.7
)

var sourceMarkerRe = regexp.MustCompile(`\[Source (\d+)\]`)

// Generator is the slice of the model provider the summarizer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.GenerationResult, error)
}

// Config carries deployment-level summarization defaults. Zero values
// fall back to the package constants.
type Config struct {
	MaxWords             int
	TechnicalTemperature float64
	DefaultTemperature   float64
}

func (c Config) withDefaults() Config {
	if c.MaxWords <= 0 {
		c.MaxWords = defaultMaxWords
	}
	if c.TechnicalTemperature <= 0 {
		c.TechnicalTemperature = technicalTemperature
	}
	if c.DefaultTemperature <= 0 {
		c.DefaultTemperature = defaultTemperature
	}
	return c
}

// Options tunes a single summarization call.
type Options struct {
	Style    string // brief | comprehensive | technical | executive
	Tone     string // formal | casual | professional
	MaxWords int
}

func (o Options) withDefaults(cfg Config) Options {
	switch o.Style {
	case StyleBrief, StyleComprehensive, StyleTechnical, StyleExecutive:
	default:
		o.Style = StyleComprehensive
	}
	switch o.Tone {
	case ToneFormal, ToneCasual, ToneProfessional:
	default:
		o.Tone = ToneProfessional
	}
	if o.MaxWords <= 0 {
		o.MaxWords = cfg.MaxWords
	}
	return o
}

// Metadata describes how a summary was produced.
type Metadata struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	Style          string        `json:"style"`
	Tone           string        `json:"tone"`
	GenerationTime time.Duration `json:"generationTimeMs"`
	SourceCount    int           `json:"sourceCount"`
}

// Output is the grounded summary with its provenance.
type Output struct {
	Summary         string
	SourceDocuments []document.Document
	Metadata        Metadata
}

// Service builds a source-attributed prompt over the given documents
// and asks the model for a summary grounded in them.
type Service struct {
	gen Generator
	cfg Config
}

// New creates a summarize service.
func New(gen Generator, cfg Config) *Service {
	return &Service{gen: gen, cfg: cfg.withDefaults()}
}

// Summarize generates a grounded summary of docs for the given query.
// Every [Source N] marker in the output is validated against the
// source list; out-of-range markers are rewritten, not dropped.
func (s *Service) Summarize(
	ctx context.Context, query string, docs []document.Document, opts Options,
) (*Output, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to summarize", domain.ErrInvalidRequest)
	}
	opts = opts.withDefaults(s.cfg)

	temperature := s.cfg.DefaultTemperature
	if opts.Style == StyleTechnical {
		temperature = s.cfg.TechnicalTemperature
	}

	prompt := buildPrompt(query, docs, opts)

	start := time.Now()
	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{
		Temperature: temperature,
		// Rough tokens-per-word ratio plus headroom for the source list.
		MaxTokens: opts.MaxWords*2 + 256,
	})
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return &Output{
		Summary:         validateMarkers(res.Text, len(docs)),
		SourceDocuments: docs,
		Metadata: Metadata{
			Model:          res.Model,
			Temperature:    temperature,
			Style:          opts.Style,
			Tone:           opts.Tone,
			GenerationTime: time.Since(start),
			SourceCount:    len(docs),
		},
	}, nil
}

// buildPrompt numbers each source with its metadata line and a bounded
// excerpt, then appends the style, tone and length instructions.
func buildPrompt(query string, docs []document.Document, opts Options) string {
	var b strings.Builder

	b.WriteString("You are a precise assistant that answers strictly from the sources below.\n\n")

	for i := range docs {
		d := &docs[i]
		fmt.Fprintf(&b, "[Source %d: %s — %s | %s | %s]\n%s\n\n",
			i+1, d.Title(), d.Category(), d.Author(), d.SourceURL(), excerpt(d))
	}

	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Instructions:\n")
	b.WriteString("- Answer only from the sources above; do not invent facts.\n")
	b.WriteString("- Cite every claim with its marker, e.g. [Source 1].\n")
	b.WriteString("- " + styleInstruction(opts.Style) + "\n")
	b.WriteString("- " + toneInstruction(opts.Tone) + "\n")
	fmt.Fprintf(&b, "- Keep the answer to roughly %d words.\n", opts.MaxWords)

	return b.String()
}

// excerpt prefers the stored summary; otherwise a bounded slice of
// content keeps the prompt from blowing the context window.
func excerpt(d *document.Document) string {
	if s := d.Summary(); s != "" {
		return s
	}
	c := d.Content()
	if len(c) > excerptLimit {
		return c[:excerptLimit]
	}
	return c
}

func styleInstruction(style string) string {
	switch style {
	case StyleBrief:
		return "Be brief: a few sentences covering only the most important points."
	case StyleTechnical:
		return "Be technical: preserve exact terms, figures, and procedural detail; prefer precision over readability."
	case StyleExecutive:
		return "Write an executive summary: lead with the conclusion, then key implications and recommended actions."
	default:
		return "Be comprehensive: cover all relevant points from the sources in a coherent narrative."
	}
}

func toneInstruction(tone string) string {
	switch tone {
	case ToneFormal:
		return "Use a formal register."
	case ToneCasual:
		return "Use a casual, approachable register."
	default:
		return "Use a professional register."
	}
}

// validateMarkers rewrites [Source N] markers whose N falls outside
// [1, sourceCount] so hallucinated references surface instead of
// passing as grounded.
func validateMarkers(text string, sourceCount int) string {
	return sourceMarkerRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(sourceMarkerRe.FindStringSubmatch(m)[1])
		if err != nil || n < 1 || n > sourceCount {
			return "[Invalid Reference]"
		}
		return m
	})
}

package analyze

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/domain/document"
)

const (
	contentWindow = 1000

	positiveThreshold = 0.3
	negativeThreshold = -0.3

	topTopicsLimit = 10

	analysisTemperature = 0.4
)

var (
	scoreRe      = regexp.MustCompile(`(?i)score[:\s]+(-?\d+\.?\d*)`)
	listedLineRe = regexp.MustCompile(`^[\d•\-]`)
	bulletTrimRe = regexp.MustCompile(`^[\d•\-.\s]+`)
)

// Generator is the slice of the model provider the analyzer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.GenerationResult, error)
}

// Options toggles analysis aspects. Zero value enables everything.
type Options struct {
	IncludeSentiment *bool
	IncludeEntities  *bool
	IncludeTopics    *bool
	IncludeInsights  *bool
}

func (o Options) sentiment() bool { return o.IncludeSentiment == nil || *o.IncludeSentiment }
func (o Options) entities() bool  { return o.IncludeEntities == nil || *o.IncludeEntities }
func (o Options) topics() bool    { return o.IncludeTopics == nil || *o.IncludeTopics }
func (o Options) insights() bool  { return o.IncludeInsights == nil || *o.IncludeInsights }

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Sentiment is a parsed sentiment verdict for one document.
type Sentiment struct {
	Score       float64 `json:"score"`
	Label       string  `json:"label"`
	Explanation string  `json:"explanation"`
}

// Entities groups extracted named entities by category.
type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	Technologies  []string `json:"technologies"`
	Products      []string `json:"products"`
}

// Topic is one detected theme.
type Topic struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// Insights carries the actionable findings for one document.
type Insights struct {
	KeyTakeaways    []string `json:"keyTakeaways"`
	Recommendations []string `json:"recommendations"`
	Implications    []string `json:"implications"`
	FullAnalysis    string   `json:"fullAnalysis"`
}

// DocumentAnalysis is the per-document analysis record.
type DocumentAnalysis struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Entities  *Entities  `json:"entities,omitempty"`
	Topics    []Topic    `json:"topics,omitempty"`
	Insights  *Insights  `json:"insights,omitempty"`
}

// TopicFrequency is an aggregate topic count across documents.
type TopicFrequency struct {
	Topic     string `json:"topic"`
	Frequency int    `json:"frequency"`
}

// SentimentDistribution buckets documents by sentiment label.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Aggregate rolls per-document analyses into corpus-level figures.
type Aggregate struct {
	TotalDocuments        int                   `json:"totalDocuments"`
	AverageSentiment      float64               `json:"averageSentiment"`
	TopTopics             []TopicFrequency      `json:"topTopics"`
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
}

// Output is the full analysis result.
type Output struct {
	Documents []DocumentAnalysis `json:"documents"`
	Aggregate Aggregate          `json:"aggregate"`
	Timestamp time.Time          `json:"timestamp"`
}

// Service runs deep document analysis: sentiment, entities, topics and
// insights, fanned out per aspect and per document, then aggregated.
type Service struct {
	gen Generator
}

// New creates an analyze service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Analyze processes the given documents. An empty list is rejected
// before any model call.
func (s *Service) Analyze(
	ctx context.Context, docs []document.Document, opts Options,
) (*Output, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to analyze", domain.ErrInvalidRequest)
	}

	analyses := make([]DocumentAnalysis, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range docs {
		g.Go(func() error {
			a, err := s.analyzeOne(gctx, &docs[i], opts)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", docs[i].ID(), err)
			}
			analyses[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Output{
		Documents: analyses,
		Aggregate: aggregate(analyses),
		Timestamp: time.Now().UTC(),
	}, nil
}

// analyzeOne fans out the enabled aspects concurrently; they are
// independent of each other and join before the record is assembled.
func (s *Service) analyzeOne(
	ctx context.Context, d *document.Document, opts Options,
) (DocumentAnalysis, error) {
	a := DocumentAnalysis{ID: d.ID(), Title: d.Title()}

	g, gctx := errgroup.WithContext(ctx)

	if opts.sentiment() {
		g.Go(func() error {
			sent, err := s.analyzeSentiment(gctx, d)
			if err != nil {
				return err
			}
			a.Sentiment = sent
			return nil
		})
	}
	if opts.entities() {
		g.Go(func() error {
			ents, err := s.extractEntities(gctx, d)
			if err != nil {
				return err
			}
			a.Entities = ents
			return nil
		})
	}
	if opts.topics() {
		g.Go(func() error {
			topics, err := s.extractTopics(gctx, d)
			if err != nil {
				return err
			}
			a.Topics = topics
			return nil
		})
	}
	if opts.insights() {
		g.Go(func() error {
			ins, err := s.generateInsights(gctx, d)
			if err != nil {
				return err
			}
			a.Insights = ins
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return DocumentAnalysis{}, err
	}
	return a, nil
}

func (s *Service) analyzeSentiment(ctx context.Context, d *document.Document) (*Sentiment, error) {
	prompt := fmt.Sprintf(
		"Analyze the sentiment of this document and provide a score from -1 (very negative) to 1 (very positive):\n\n"+
			"Title: %s\nContent: %s\n\n"+
			"Respond with:\n1. Sentiment score (number between -1 and 1)\n"+
			"2. Sentiment label (positive/negative/neutral)\n3. Brief explanation",
		d.Title(), bounded(d.Content()),
	)

	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{Temperature: analysisTemperature})
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	score := 0.0
	if m := scoreRe.FindStringSubmatch(res.Text); m != nil {
		if v, perr := strconv.ParseFloat(m[1], 64); perr == nil {
			score = v
		}
	}

	label := LabelNeutral
	switch {
	case score > positiveThreshold:
		label = LabelPositive
	case score < negativeThreshold:
		label = LabelNegative
	}

	return &Sentiment{Score: score, Label: label, Explanation: res.Text}, nil
}

func (s *Service) extractEntities(ctx context.Context, d *document.Document) (*Entities, error) {
	prompt := fmt.Sprintf(
		"Extract key entities from this document:\n\nTitle: %s\nContent: %s\n\n"+
			"List entities in these categories:\n- People\n- Organizations\n- Locations\n- Technologies\n- Products",
		d.Title(), bounded(d.Content()),
	)

	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{Temperature: analysisTemperature})
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}

	return &Entities{
		People:        extractCategory(res.Text, "people"),
		Organizations: extractCategory(res.Text, "organizations"),
		Locations:     extractCategory(res.Text, "locations"),
		Technologies:  extractCategory(res.Text, "technologies"),
		Products:      extractCategory(res.Text, "products"),
	}, nil
}

func (s *Service) extractTopics(ctx context.Context, d *document.Document) ([]Topic, error) {
	prompt := fmt.Sprintf(
		"Identify the main topics and themes in this document:\n\nTitle: %s\nContent: %s\n\n"+
			"List 5-7 main topics with confidence scores.",
		d.Title(), bounded(d.Content()),
	)

	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{Temperature: analysisTemperature})
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}

	var topics []Topic
	for _, line := range strings.Split(res.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !listedLineRe.MatchString(trimmed) {
			continue
		}
		cleaned := strings.TrimSpace(bulletTrimRe.ReplaceAllString(trimmed, ""))
		if cleaned == "" {
			continue
		}
		// The model is not asked for machine-readable confidences.
		topics = append(topics, Topic{Topic: cleaned, Confidence: 0.8})
	}
	return topics, nil
}

func (s *Service) generateInsights(ctx context.Context, d *document.Document) (*Insights, error) {
	prompt := fmt.Sprintf(
		"Generate actionable insights from this document:\n\nTitle: %s\nContent: %s\n\n"+
			"Provide:\n1. Key takeaways (3-5 points)\n2. Actionable recommendations\n3. Potential implications",
		d.Title(), bounded(d.Content()),
	)

	res, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{Temperature: analysisTemperature})
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}

	return &Insights{
		KeyTakeaways:    extractCategory(res.Text, "takeaways"),
		Recommendations: extractCategory(res.Text, "recommendations"),
		Implications:    extractCategory(res.Text, "implications"),
		FullAnalysis:    res.Text,
	}, nil
}

// aggregate averages sentiment, buckets the distribution, and ranks
// topics by cross-document frequency.
func aggregate(analyses []DocumentAnalysis) Aggregate {
	agg := Aggregate{TotalDocuments: len(analyses), TopTopics: []TopicFrequency{}}

	var sum float64
	var scored int
	counts := make(map[string]int)

	for i := range analyses {
		if s := analyses[i].Sentiment; s != nil {
			sum += s.Score
			scored++
			switch {
			case s.Score > positiveThreshold:
				agg.SentimentDistribution.Positive++
			case s.Score < negativeThreshold:
				agg.SentimentDistribution.Negative++
			default:
				agg.SentimentDistribution.Neutral++
			}
		}
		for _, t := range analyses[i].Topics {
			counts[t.Topic]++
		}
	}

	if scored > 0 {
		agg.AverageSentiment = sum / float64(scored)
	}

	for topic, n := range counts {
		agg.TopTopics = append(agg.TopTopics, TopicFrequency{Topic: topic, Frequency: n})
	}
	sort.SliceStable(agg.TopTopics, func(i, j int) bool {
		if agg.TopTopics[i].Frequency != agg.TopTopics[j].Frequency {
			return agg.TopTopics[i].Frequency > agg.TopTopics[j].Frequency
		}
		return agg.TopTopics[i].Topic < agg.TopTopics[j].Topic
	})
	if len(agg.TopTopics) > topTopicsLimit {
		agg.TopTopics = agg.TopTopics[:topTopicsLimit]
	}

	return agg
}

// extractCategory collects listed lines following the first line that
// mentions keyword, stopping at the first blank line after a match.
func extractCategory(text, keyword string) []string {
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
		if listedLineRe.MatchString(trimmed) {
			if item := strings.TrimSpace(bulletTrimRe.ReplaceAllString(trimmed, "")); item != "" {
				result = append(result, item)
			}
		} else if trimmed == "" && len(result) > 0 {
			break
		}
	}
	return result
}

func bounded(content string) string {
	if len(content) > contentWindow {
		return content[:contentWindow]
	}
	return content
}

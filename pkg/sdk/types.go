package raggate

import "time"

// Document is one corpus document as exchanged with the gateway.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Summary    string    `json:"summary,omitempty"`
	Category   string    `json:"category,omitempty"`
	Department string    `json:"department,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Author     string    `json:"author,omitempty"`
	Date       time.Time `json:"date"`
	SourceURL  string    `json:"sourceUrl,omitempty"`
}

// DateRange bounds document dates; either side may be nil (unbounded).
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// SearchFilters restricts a search. Kinds combine conjunctively;
// every requested tag must be present on a matching document.
type SearchFilters struct {
	DateRange   *DateRange `json:"dateRange,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Departments []string   `json:"departments,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// SearchOptions tunes a search call. Reranking defaults to enabled.
type SearchOptions struct {
	EnableReranking     *bool `json:"enableReranking,omitempty"`
	IncludeAggregations bool  `json:"includeAggregations,omitempty"`
	IncludeHighlights   bool  `json:"includeHighlights,omitempty"`
}

// SearchRequest is the POST /tool/search payload.
type SearchRequest struct {
	Query   string         `json:"query"`
	Filters *SearchFilters `json:"filters,omitempty"`
	TopK    int            `json:"topK,omitempty"`
	Options SearchOptions  `json:"options,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	Confidence    float64  `json:"confidence"`
	RerankScore   *float64 `json:"rerankScore,omitempty"`
	CombinedScore float64  `json:"combinedScore"`
	Document      Document `json:"document"`
	Highlights    []string `json:"highlights,omitempty"`
}

// Aggregations holds facet counts collected alongside a search.
type Aggregations struct {
	Categories  map[string]int `json:"categories"`
	Departments map[string]int `json:"departments"`
	Tags        map[string]int `json:"tags"`
	Months      map[string]int `json:"months"`
}

// SearchMetrics carries per-request search telemetry.
type SearchMetrics struct {
	TookMs int64 `json:"tookMs"`
}

// SearchResponse is the POST /tool/search result.
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	TotalHits     int            `json:"totalHits"`
	SearchType    string         `json:"searchType"`
	UsedReranking bool           `json:"usedReranking"`
	Aggregations  *Aggregations  `json:"aggregations,omitempty"`
	SearchMetrics SearchMetrics  `json:"searchMetrics"`
}

// DocumentsOf extracts the documents from search results, in rank
// order, for feeding into Summarize, Compare or Analyze.
func DocumentsOf(res *SearchResponse) []Document {
	if res == nil {
		return nil
	}
	docs := make([]Document, len(res.Results))
	for i := range res.Results {
		docs[i] = res.Results[i].Document
	}
	return docs
}

// SummarizeOptions tunes a summarization call.
type SummarizeOptions struct {
	Style    string `json:"style,omitempty"`    // brief | comprehensive | technical | executive
	Tone     string `json:"tone,omitempty"`     // formal | casual | professional
	MaxWords int    `json:"maxWords,omitempty"` // approximate word budget
}

// SummarizeRequest is the POST /tool/summarize payload.
type SummarizeRequest struct {
	Query     string           `json:"query"`
	Documents []Document       `json:"documents"`
	Options   SummarizeOptions `json:"options,omitempty"`
}

// Citation links a span of generated text back to a source document.
type Citation struct {
	SourceID  string  `json:"sourceId"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevanceScore"`
	Section   string  `json:"section,omitempty"`
}

// SummaryMetadata describes how a summary was produced.
type SummaryMetadata struct {
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	Style            string  `json:"style"`
	Tone             string  `json:"tone"`
	GenerationTimeMs int64   `json:"generationTimeMs"`
	SourceCount      int     `json:"sourceCount"`
}

// SummarizeResponse is the POST /tool/summarize result.
type SummarizeResponse struct {
	Summary         string          `json:"summary"`
	Citations       []Citation      `json:"citations"`
	SourceDocuments []Document      `json:"sourceDocuments"`
	Metadata        SummaryMetadata `json:"metadata"`
}

// CiteSource is one source document offered for citation extraction.
type CiteSource struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Section string `json:"section,omitempty"`
}

// CiteRequest is the POST /tool/cite payload.
type CiteRequest struct {
	SearchResults      []CiteSource `json:"searchResults"`
	GeneratedText      string       `json:"generatedText"`
	Style              string       `json:"style,omitempty"` // inline | footnote | endnote
	RequiredReferences int          `json:"requiredReferences,omitempty"`
}

// Verification is the citation coverage advisory for generated text.
type Verification struct {
	IsVerified       bool     `json:"isVerified"`
	CitationCount    int      `json:"citationCount"`
	MissingCitations bool     `json:"missingCitations"`
	Warnings         []string `json:"warnings"`
}

// CiteResponse is the POST /tool/cite result.
type CiteResponse struct {
	Citations    []Citation   `json:"citations"`
	Formatted    string       `json:"formatted"`
	CitedText    string       `json:"citedText"`
	Verification Verification `json:"verification"`
}

// CompareOptions tunes a comparison call. Nil fields default to true.
type CompareOptions struct {
	IncludeMetadata      *bool `json:"includeMetadata,omitempty"`
	HighlightDifferences *bool `json:"highlightDifferences,omitempty"`
	GenerateSummary      *bool `json:"generateSummary,omitempty"`
}

// CompareRequest is the POST /tool/compare payload.
type CompareRequest struct {
	Documents []Document     `json:"documents"`
	Options   CompareOptions `json:"options,omitempty"`
}

// ComparedDocumentMetadata is the facet snapshot attached per document.
type ComparedDocumentMetadata struct {
	Category   string    `json:"category"`
	Department string    `json:"department"`
	Date       time.Time `json:"date"`
	Author     string    `json:"author"`
}

// ComparedDocument is one compared document with its key points.
type ComparedDocument struct {
	ID        string                    `json:"id"`
	Title     string                    `json:"title"`
	KeyPoints []string                  `json:"keyPoints"`
	Metadata  *ComparedDocumentMetadata `json:"metadata,omitempty"`
}

// CompareResponse is the POST /tool/compare result.
type CompareResponse struct {
	Documents     []ComparedDocument `json:"documents"`
	Similarities  []string           `json:"similarities"`
	Differences   []string           `json:"differences"`
	UniqueAspects []string           `json:"uniqueAspects,omitempty"`
	Summary       string             `json:"summary,omitempty"`
}

// AnalyzeOptions toggles analysis aspects. Nil fields default to true.
type AnalyzeOptions struct {
	IncludeSentiment *bool `json:"includeSentiment,omitempty"`
	IncludeEntities  *bool `json:"includeEntities,omitempty"`
	IncludeTopics    *bool `json:"includeTopics,omitempty"`
	IncludeInsights  *bool `json:"includeInsights,omitempty"`
}

// AnalyzeRequest is the POST /tool/analyze payload.
type AnalyzeRequest struct {
	Documents []Document     `json:"documents"`
	Options   AnalyzeOptions `json:"options,omitempty"`
}

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

// AnalysisAggregate rolls per-document analyses into corpus figures.
type AnalysisAggregate struct {
	TotalDocuments        int                   `json:"totalDocuments"`
	AverageSentiment      float64               `json:"averageSentiment"`
	TopTopics             []TopicFrequency      `json:"topTopics"`
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
}

// AnalyzeResponse is the POST /tool/analyze result.
type AnalyzeResponse struct {
	Documents []DocumentAnalysis `json:"documents"`
	Aggregate AnalysisAggregate  `json:"aggregate"`
	Timestamp time.Time          `json:"timestamp"`
}

// IngestRequest is the POST /ingest payload.
type IngestRequest struct {
	Documents []Document `json:"documents"`
}

// IngestItemResult is the outcome for one submitted document.
type IngestItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok | error
	Error  string `json:"error,omitempty"`
}

// IngestResponse is the POST /ingest result.
type IngestResponse struct {
	Items     []IngestItemResult `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// HealthResponse is the GET /health result.
type HealthResponse struct {
	Status string            `json:"status"` // ok | degraded
	Checks map[string]string `json:"checks"`
}

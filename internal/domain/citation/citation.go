package citation

// Citation links a span of generated text back to a source document.
// Citations are transient: recomputed per response, never persisted.
type Citation struct {
	SourceID  string  `json:"sourceId"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevanceScore"`
	Section   string  `json:"section,omitempty"`
}

// Verification is the outcome of checking generated text for citation coverage.
type Verification struct {
	IsVerified       bool     `json:"isVerified"`
	CitationCount    int      `json:"citationCount"`
	MissingCitations bool     `json:"missingCitations"`
	Warnings         []string `json:"warnings"`
}

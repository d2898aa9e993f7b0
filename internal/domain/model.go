package domain

import "context"

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (GenerationResult, error)
}

// RerankScorer scores candidate texts for semantic relevance to a query.
// It returns one score per input text, order-aligned, in [0,1].
type RerankScorer interface {
	ScoreRelevance(ctx context.Context, query string, texts []string) ([]float64, error)
}

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// GenerationResult carries the generated text and token usage.
type GenerationResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Package mock provides a deterministic model provider for local
// development and tests: no network, stable outputs for stable inputs.
package mock

import (
	"context"
	"math"

	"github.com/koralov/raggate/internal/domain"
)

// ModelName is reported in generation metadata.
const ModelName = "mock-model"

const generatedPrefix = "MOCK GENERATED CONTENT: "

// Model is a no-network model provider. The embedding for a text is
// seeded by its character sum, so equal texts always embed equally and
// different texts almost always differ.
type Model struct {
	dimensions int
}

// NewModel creates a mock model with the given embedding dimensionality.
func NewModel(dimensions int) *Model {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &Model{dimensions: dimensions}
}

// Embed implements domain.Embedder.
func (m *Model) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{
		Embedding:    m.vector(text),
		PromptTokens: len(text) / 4,
		TotalTokens:  len(text) / 4,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (m *Model) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var tokens int
	for i, text := range texts {
		embeddings[i] = m.vector(text)
		tokens += len(text) / 4
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: tokens,
		TotalTokens:  tokens,
	}, nil
}

// Generate implements domain.Generator with a canned echo of the prompt.
func (m *Model) Generate(
	_ context.Context, prompt string, _ domain.GenerateOptions,
) (domain.GenerationResult, error) {
	excerpt := prompt
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return domain.GenerationResult{
		Text:             generatedPrefix + excerpt,
		Model:            ModelName,
		PromptTokens:     len(prompt) / 4,
		CompletionTokens: len(excerpt) / 4,
	}, nil
}

// ScoreRelevance implements domain.RerankScorer via embedding cosine.
func (m *Model) ScoreRelevance(ctx context.Context, query string, texts []string) ([]float64, error) {
	q := m.vector(query)
	scores := make([]float64, len(texts))
	for i, text := range texts {
		sim := cosine(q, m.vector(text))
		if sim < 0 {
			sim = 0
		}
		scores[i] = sim
	}
	return scores, nil
}

// HealthCheck always succeeds.
func (m *Model) HealthCheck(_ context.Context) error { return nil }

// vector derives a stable embedding from the text's character sum.
func (m *Model) vector(text string) []float32 {
	var seed int
	for _, r := range text {
		seed += int(r)
	}

	vec := make([]float32, m.dimensions)
	for i := range vec {
		vec[i] = float32((seed+i)%100) / 100
	}
	return vec
}

func cosine(a, b []float32) float64 {
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

package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/koralov/raggate/internal/domain"
	"github.com/koralov/raggate/internal/metrics"
)

// Generator produces free text via the OpenAI-compatible chat API.
type Generator struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	sink     metrics.Sink
	logger   *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Sink     metrics.Sink
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	sink := cfg.Sink
	if sink == nil {
		sink = metrics.Nop{}
	}

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		sink:     sink,
		logger:   cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(
	ctx context.Context, prompt string, opts domain.GenerateOptions,
) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.Temperature),
		User:        g.user,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.sink.GenerationRequest(g.provider, g.model, "error", duration, 0, 0)
		return domain.GenerationResult{}, parseAPIError("generation", err)
	}
	if len(resp.Choices) == 0 {
		g.sink.GenerationRequest(g.provider, g.model, "error", duration, 0, 0)
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	g.sink.GenerationRequest(
		g.provider, g.model, "success", duration,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens,
	)

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

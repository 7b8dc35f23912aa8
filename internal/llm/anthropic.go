package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/avvvet/toywonder-assistant/internal/prompts"
)

// LangchainGenerator sends the suggestion prompt to any langchaingo model
type LangchainGenerator struct {
	model        llms.Model
	name         string
	productNames []string
}

// NewAnthropicGenerator wires a langchaingo Anthropic client
func NewAnthropicGenerator(apiKey, model string, productNames []string) (*LangchainGenerator, error) {
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return NewLangchainGenerator(client, "anthropic", productNames), nil
}

func NewLangchainGenerator(model llms.Model, name string, productNames []string) *LangchainGenerator {
	return &LangchainGenerator{
		model:        model,
		name:         name,
		productNames: productNames,
	}
}

func (g *LangchainGenerator) Name() string {
	return g.name
}

func (g *LangchainGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := prompts.BuildSuggestionPrompt(req.Message, req.Domain, req.Audience, req.Locale, g.productNames)

	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithMaxTokens(defaultMaxTokens),
		llms.WithTemperature(defaultTemperature),
	)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", g.name, err)
	}
	return prompts.CleanReply(out), nil
}

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/avvvet/toywonder-assistant/internal/prompts"
)

type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	productNames []string
}

// NewOpenAIGenerator talks to the OpenAI chat API, or to any compatible
// endpoint when baseURL is set.
func NewOpenAIGenerator(apiKey, model, baseURL string, productNames []string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		productNames: productNames,
	}
}

func (g *OpenAIGenerator) Name() string {
	return "openai"
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := prompts.BuildSuggestionPrompt(req.Message, req.Domain, req.Audience, req.Locale, g.productNames)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return prompts.CleanReply(resp.Choices[0].Message.Content), nil
}

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/toywonder-assistant/internal/config"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/metrics"
)

// Request is one suggestion request. Domain and Audience are passed through
// to the prompt verbatim.
type Request struct {
	Message  string
	Domain   string
	Audience string
	Locale   string
}

// Generator produces a free-form assistant reply for a request
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

const (
	defaultMaxTokens   = 300
	defaultTemperature = 0.7
)

// New builds the generator selected by cfg.LLMProvider. productNames are
// offered to the model as candidates worth mentioning.
func New(cfg *config.Config, productNames []string, log logger.Logger) (Generator, error) {
	var (
		g   Generator
		err error
	)
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		g, err = NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, productNames)
	case config.ProviderOpenAI:
		g = NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, productNames)
	case config.ProviderStatic:
		g = NewStaticGenerator()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Suggestion generator ready", map[string]interface{}{
		"provider":   g.Name(),
		"rate_limit": cfg.LLMRateLimit,
	})
	return RateLimit(Instrument(g), cfg.LLMRateLimit, cfg.LLMBurst), nil
}

type instrumented struct {
	Generator
}

// Instrument records generator latency in metrics.GeneratorDuration
func Instrument(g Generator) Generator {
	return &instrumented{Generator: g}
}

func (i *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	defer func() {
		metrics.GeneratorDuration.WithLabelValues(i.Name()).Observe(time.Since(start).Seconds())
	}()
	return i.Generator.Generate(ctx, req)
}

package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limited struct {
	Generator
	limiter *rate.Limiter
}

// RateLimit caps calls to g at perMinute with the given burst. Callers wait
// for a token until their context ends.
func RateLimit(g Generator, perMinute, burst int) Generator {
	if perMinute <= 0 {
		return g
	}
	if burst < 1 {
		burst = 1
	}
	return &limited{
		Generator: g,
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

func (l *limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return l.Generator.Generate(ctx, req)
}

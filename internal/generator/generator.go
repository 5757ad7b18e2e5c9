package generator

import (
	"context"
	"fmt"
	"strings"
)

// Providers lists the accepted values of Config.Provider.
var Providers = []string{"openai", "gemini", "ollama", "openrouter", "none"}

// New builds the generator cfg selects, wrapped in a rate limiter when
// RequestsPerMinute is set. Provider "none" (or empty) returns nil: the
// caller then relies on the fallback alone.
func New(ctx context.Context, cfg Config) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", FallbackName:
		return nil, nil
	case "openai":
		gen, err = NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, firstModel(cfg.Models))
	case "gemini":
		gen, err = NewGeminiGenerator(ctx, cfg.APIKey, cfg.BaseURL, firstModel(cfg.Models), cfg.MaxTokens)
	case "ollama":
		gen = NewOllamaGenerator(cfg.BaseURL, cfg.Models)
	case "openrouter":
		or := NewOpenRouterGenerator(cfg.APIKey, cfg.BaseURL, cfg.Models)
		if cfg.MaxTokens > 0 {
			or.maxTokens = cfg.MaxTokens
		}
		gen = or
	default:
		return nil, fmt.Errorf("unknown generator provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		gen = NewRateLimited(gen, cfg.RequestsPerMinute, cfg.Burst)
	}
	return gen, nil
}

func firstModel(models []string) string {
	if len(models) == 0 {
		return ""
	}
	return models[0]
}

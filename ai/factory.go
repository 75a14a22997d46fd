package ai

import (
	"chat-board/contract"
	"chat-board/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
)

type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

type Options struct {
	Provider        Provider
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// NewGenerator returns a nil generator, and no error, when the provider has no API key.
func NewGenerator(ctx context.Context, opts Options, log *slog.Logger) (contract.Generator, error) {
	var (
		generator contract.Generator
		err       error
	)
	switch opts.Provider {
	case ProviderGemini, "":
		var g *GeminiGenerator
		if g, err = NewGeminiGenerator(ctx, opts.GeminiAPIKey, opts.Model); err == nil {
			generator = g
		}
	case ProviderAnthropic:
		var g *AnthropicGenerator
		if g, err = NewAnthropicGenerator(opts.AnthropicAPIKey, opts.Model); err == nil {
			generator = g
		}
	case ProviderOpenAI:
		var g *OpenAIGenerator
		if g, err = NewOpenAIGenerator(opts.OpenAIAPIKey, opts.Model); err == nil {
			generator = g
		}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownProvider, opts.Provider)
	}

	if goerrors.Is(err, errors.ErrMissingAPIKey) {
		log.Warn("No API key, AI assistant disabled", "provider", opts.Provider)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("AI assistant enabled", "provider", opts.Provider)
	return generator, nil
}

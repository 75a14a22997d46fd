package ai

import (
	"chat-board/errors"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGenerator_MissingKeyDisablesAssistant(t *testing.T) {
	for _, provider := range []Provider{ProviderGemini, ProviderAnthropic, ProviderOpenAI} {
		t.Run(string(provider), func(t *testing.T) {
			req := require.New(t)
			generator, err := NewGenerator(context.Background(), Options{Provider: provider}, slog.Default())
			req.NoError(err)
			req.Nil(generator)
		})
	}
}

func TestNewGenerator_KeyedProviders(t *testing.T) {
	req := require.New(t)

	generator, err := NewGenerator(context.Background(), Options{Provider: ProviderAnthropic, AnthropicAPIKey: "sk-test"}, slog.Default())
	req.NoError(err)
	req.IsType(&AnthropicGenerator{}, generator)

	generator, err = NewGenerator(context.Background(), Options{Provider: ProviderOpenAI, OpenAIAPIKey: "sk-test", Model: "gpt-test"}, slog.Default())
	req.NoError(err)
	req.Equal("gpt-test", generator.(*OpenAIGenerator).model)
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), Options{Provider: "skynet"}, slog.Default())
	require.ErrorIs(t, err, errors.ErrUnknownProvider)
}

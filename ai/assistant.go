// Package ai turns an AI_HELP request into a reply posted on the board.
// Suggest never fails: every problem ends up as one of two fixed messages.
package ai

import (
	"chat-board/contract"
	"chat-board/domain"
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	UnavailableMessage = "The AI assistant is not configured."
	FailureMessage     = "An error occurred while calling the AI assistant."

	DefaultTimeout = 30 * time.Second
)

type Assistant struct {
	generator contract.Generator
	timeout   time.Duration
	log       *slog.Logger
}

var _ contract.IAssistant = (*Assistant)(nil)

// NewAssistant accepts a nil generator, the assistant then answers UnavailableMessage.
func NewAssistant(generator contract.Generator, timeout time.Duration, log *slog.Logger) *Assistant {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Assistant{generator: generator, timeout: timeout, log: log}
}

func (a *Assistant) Suggest(ctx context.Context, history []domain.Message, prompt string) (reply string) {
	if a.generator == nil {
		return UnavailableMessage
	}

	defer func() {
		if r := recover(); r != nil {
			a.log.Error("AI generator panicked", "panic", r)
			reply = FailureMessage
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.Generate(ctx, BuildPrompt(history, prompt))
	if err != nil {
		a.log.Warn("AI generator failed", "error", err, "elapsed", time.Since(start))
		return FailureMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.log.Warn("AI generator returned an empty reply")
		return FailureMessage
	}
	a.log.Debug("AI reply generated", "elapsed", time.Since(start), "length", len(text))
	return text
}

package ai

import (
	"chat-board/domain"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

const (
	// historyWindow is how far back the context scan goes.
	historyWindow = 20
	// contextSize is the number of text lines kept from that window.
	contextSize = 10
)

const promptTemplate = `You are an assistant taking part in a group chat.
Here is the recent conversation, oldest first:
%s

A participant asks for help with the following:
%s
%s
Suggest a short, friendly message they could post next.`

// RecentContext renders the newest text entries of the last messages as "name: text" lines, oldest first.
// Images never reach the prompt.
func RecentContext(history []domain.Message) []string {
	window := history[max(0, len(history)-historyWindow):]
	texts := lo.Filter(window, func(m domain.Message, _ int) bool {
		text, ok := m.Text()
		return ok && strings.TrimSpace(text) != ""
	})
	texts = texts[max(0, len(texts)-contextSize):]
	return lo.Map(texts, func(m domain.Message, _ int) string {
		text, _ := m.Text()
		return fmt.Sprintf("%s: %s", m.Author, text)
	})
}

func BuildPrompt(history []domain.Message, prompt string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(RecentContext(history), "\n"), prompt, languageHint(prompt))
}

// languageHint asks for a reply in the language of the request when it is reliably detected.
func languageHint(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return ""
	}
	info := whatlanggo.Detect(prompt)
	if !info.IsReliable() {
		return ""
	}
	return fmt.Sprintf("Answer in %s.\n", info.Lang.String())
}

package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const censoredChar = '*'

func newTestModerator(t *testing.T, dictionary ...string) *Moderator {
	t.Helper()
	mod, err := NewModerator(dictionary, censoredChar, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return mod
}

func TestModerator_Censor(t *testing.T) {
	mod := newTestModerator(t, "badger", "snake", "mushroom")

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{"Clean chat line is untouched", "Anyone up for lunch?", "Anyone up for lunch?", nil},
		{"Empty line", "", "", nil},
		{"Punctuation only", "?!...", "?!...", nil},
		{"Single word", "you badger", "you ******", []string{"badger"}},
		{"Words come back in order of appearance", "a mushroom, a snake and a badger",
			"a ********, a ***** and a ******", []string{"mushroom", "snake", "badger"}},
		{"Repeated word is reported each time", "snake snake", "***** *****", []string{"snake", "snake"}},
		{"Obfuscated word keeps its noise masked", "sn.4.ke!", "*******!", []string{"snake"}},
		{"Uppercase is normalized in the report", "BADGER", "******", []string{"badger"}},
		{"Accented neighbours are kept", "café badger", "café ******", []string{"badger"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			// When a participant line goes through the moderator
			content, words := mod.Censor(tt.input)

			// Then only dictionary words are masked, rune for rune
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
			req.Equal(len([]rune(tt.input)), len([]rune(content)))
		})
	}
}

func TestModerator_DictionaryIsNormalized(t *testing.T) {
	req := require.New(t)

	// Given a dictionary with variants of one word and entries made only of noise
	mod := newTestModerator(t, "badger", "BADGER", "b4dg€r", "...", "", " - ")

	// When the word appears once
	content, words := mod.Censor("hello badger")

	// Then it is reported once, in its normalized form
	req.Equal("hello ******", content)
	req.Equal([]string{"badger"}, words)

	// And noise in the chat is never censored
	content, words = mod.Censor("hello ... - ")
	req.Equal("hello ... - ", content)
	req.Nil(words)
}

func TestModerator_OnlyNoiseDictionary(t *testing.T) {
	req := require.New(t)

	// Given nothing censorable
	mod := newTestModerator(t, "...", "   ", "--")

	// Then every line passes through
	content, words := mod.Censor("badger snake")
	req.Equal("badger snake", content)
	req.Nil(words)
}

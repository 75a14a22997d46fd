package moderation

import (
	"chat-board/errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)

	// Given two dictionaries sharing a word, with comments and Windows line endings
	fsys := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("# comment\r\nbadger\r\nsnake\r\n\r\n")},
		"censored/fr.txt":    {Data: []byte("blaireau\nbadger\n")},
		"censored/README.md": {Data: []byte("not a dictionary")},
	}

	// When they are loaded
	data, err := NewCensoredLoader(fsys).LoadAll("censored")

	// Then words are unique and languages come from file names
	req.NoError(err)
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_NoWords(t *testing.T) {
	fsys := fstest.MapFS{"censored/en.txt": {Data: []byte("\n# only a comment\n")}}
	_, err := NewCensoredLoader(fsys).LoadAll("censored")
	require.ErrorIs(t, err, errors.ErrEmptyWords)
}

func TestNewEmbeddedModerator(t *testing.T) {
	req := require.New(t)
	mod, err := NewEmbeddedModerator('#', slog.Default())
	req.NoError(err)

	content, words := mod.Censor("you are an 1d10t")
	req.Equal("you are an #####", content)
	req.Equal([]string{"idiot"}, words)
}

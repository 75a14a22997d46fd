package search

import (
	"chat-board/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func boardFixture() []domain.Message {
	now := time.Now()
	return []domain.Message{
		domain.JoinedNotice("Alice", now),
		domain.NewTextMessage("Alice", "The kitchen is on fire", now),
		domain.NewImageMessage("Alice", []byte{1, 2, 3}, "application/octet-stream", now),
		domain.NewTextMessage("Bob", "Call the fire brigade!", now),
		domain.NewTextMessage("Bob", "Lunch later?", now),
	}
}

func TestTranscriptIndex_Search(t *testing.T) {
	req := require.New(t)
	index, err := NewTranscriptIndex(slog.Default())
	req.NoError(err)
	defer index.Close()

	// Given a board with text, notices and an image
	req.NoError(index.Index(boardFixture()))

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"Matches in transcript order", "fire", []int{1, 3}},
		{"Case is ignored", "LUNCH", []int{4}},
		{"Notices are searchable", "joined", []int{0}},
		{"Nothing matches", "badger", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			// When the index is queried
			positions, err := index.Search(context.Background(), tt.query, 10)

			// Then the positions of the matching messages come back
			req.NoError(err)
			req.Equal(tt.want, positions)
		})
	}
}

func TestMatching(t *testing.T) {
	req := require.New(t)

	// When the board is filtered on a word
	matched, err := Matching(context.Background(), boardFixture(), "brigade", slog.Default())

	// Then only Bob's message is kept
	req.NoError(err)
	req.Len(matched, 1)
	req.Equal("Bob", matched[0].Author)

	// And an empty board yields nothing
	matched, err = Matching(context.Background(), nil, "fire", slog.Default())
	req.NoError(err)
	req.Empty(matched)
}

// Package search indexes transcript text for full-text lookups.
package search

import (
	"chat-board/domain"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/blugelabs/bluge"
)

const (
	idField     = "_id"
	textField   = "message"
	authorField = "username"
)

// TranscriptIndex is an in-memory bluge index keyed by transcript position.
// Image entries carry no text and are never indexed.
type TranscriptIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewTranscriptIndex(log *slog.Logger) (*TranscriptIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &TranscriptIndex{writer: writer, log: log}, nil
}

// Index adds messages in one batch, the position in the slice becomes the document id.
func (i *TranscriptIndex) Index(messages []domain.Message) error {
	batch := bluge.NewBatch()
	indexed := 0
	for seq, m := range messages {
		text, ok := m.Text()
		if !ok {
			continue
		}
		doc := bluge.NewDocument(strconv.Itoa(seq)).
			AddField(bluge.NewTextField(textField, text)).
			AddField(bluge.NewKeywordField(authorField, m.Author).StoreValue())
		batch.Update(doc.ID(), doc)
		indexed++
	}
	if err := i.writer.Batch(batch); err != nil {
		return fmt.Errorf("index transcript: %w", err)
	}
	i.log.Debug("Transcript indexed", "messages", len(messages), "indexed", indexed)
	return nil
}

// Search returns the positions of messages matching query, in transcript order.
func (i *TranscriptIndex) Search(ctx context.Context, query string, limit int) ([]int, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open bluge reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewTopNSearch(limit, bluge.NewMatchQuery(query).SetField(textField))
	it, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var positions []int
	match, err := it.Next()
	for err == nil && match != nil {
		var parseErr error
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field != idField {
				return true
			}
			var seq int
			seq, parseErr = strconv.Atoi(string(value))
			positions = append(positions, seq)
			return false
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if parseErr != nil {
			return nil, parseErr
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	slices.Sort(positions)
	return positions, nil
}

func (i *TranscriptIndex) Close() error {
	return i.writer.Close()
}

// Matching keeps the text messages matching query, in transcript order.
func Matching(ctx context.Context, messages []domain.Message, query string, log *slog.Logger) ([]domain.Message, error) {
	index, err := NewTranscriptIndex(log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = index.Close() }()

	if err := index.Index(messages); err != nil {
		return nil, err
	}
	positions, err := index.Search(ctx, query, max(len(messages), 1))
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Message, 0, len(positions))
	for _, seq := range positions {
		matched = append(matched, messages[seq])
	}
	return matched, nil
}

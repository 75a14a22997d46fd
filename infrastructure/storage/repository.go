//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"chat-board/domain"
	"chat-board/errors"
	"fmt"
	"log/slog"
)

type Backend string

const (
	BackendFile   Backend = "file"
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
)

// IMessageRepository persists the whole transcript.
// Load is called once at startup, Persist after every append with the full snapshot.
type IMessageRepository interface {
	Load() ([]domain.Message, error)
	Persist(snapshot []domain.Message) error
	Close() error
}

type Options struct {
	Backend        Backend
	TranscriptPath string
	BadgerPath     string
	SQLitePath     string
	// ReadOnly is honoured by the badger backend only.
	ReadOnly bool
}

// NewMessageRepository opens the backend named in opts.
func NewMessageRepository(opts Options, log *slog.Logger) (IMessageRepository, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewJSONRepository(opts.TranscriptPath, log), nil
	case BackendBadger:
		return OpenBadgerRepository(opts.BadgerPath, opts.ReadOnly, log)
	case BackendSQLite:
		return OpenSQLiteRepository(opts.SQLitePath, log)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, opts.Backend)
	}
}

// LoadOrEmpty never fails: a missing or unreadable transcript starts the board empty.
func LoadOrEmpty(repository IMessageRepository, log *slog.Logger) []domain.Message {
	messages, err := repository.Load()
	if err != nil {
		log.Warn("Unable to load transcript, starting empty", "error", err)
		return nil
	}
	log.Info("Transcript loaded", "messages", len(messages))
	return messages
}

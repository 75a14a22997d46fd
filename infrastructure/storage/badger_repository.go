package storage

import (
	"chat-board/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const messagePrefix = "msg:"

// BadgerRepository stores one key per message, "msg:{seq}" with a 19-digit
// zero padded sequence so the prefix scan returns the chronological order.
type BadgerRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu     sync.Mutex
	stored int
}

var _ IMessageRepository = (*BadgerRepository)(nil)

// OpenBadgerRepository opens path; a read-only handle bypasses the directory
// lock so a running board can be inspected.
func OpenBadgerRepository(path string, readOnly bool, log *slog.Logger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if readOnly {
		opts = opts.WithReadOnly(true).WithBypassLockGuard(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return NewBadgerRepository(db, log), nil
}

func NewBadgerRepository(db *badger.DB, log *slog.Logger) *BadgerRepository {
	return &BadgerRepository{db: db, log: log}
}

func messageKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%019d", messagePrefix, seq))
}

func (r *BadgerRepository) Load() ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.stored = len(messages)
	r.mu.Unlock()
	return messages, nil
}

// Persist writes only the suffix of the snapshot not stored yet.
func (r *BadgerRepository) Persist(snapshot []domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(snapshot) <= r.stored {
		return nil
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for seq := r.stored; seq < len(snapshot); seq++ {
		value, err := json.Marshal(snapshot[seq])
		if err != nil {
			return fmt.Errorf("encode message %d: %w", seq, err)
		}
		if err := wb.Set(messageKey(seq), value); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush messages: %w", err)
	}
	r.log.Debug("Messages stored", "from", r.stored, "to", len(snapshot))
	r.stored = len(snapshot)
	return nil
}

func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

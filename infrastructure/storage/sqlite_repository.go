package storage

import (
	"chat-board/domain"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	message TEXT,
	image_data TEXT,
	timestamp TEXT NOT NULL
);`

// SQLiteRepository stores one row per message, keyed by its position in the transcript.
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger

	mu     sync.Mutex
	stored int
}

var _ IMessageRepository = (*SQLiteRepository)(nil)

// row mirrors the wire shape so both columns are optional.
type row struct {
	Username  string  `json:"username"`
	Message   *string `json:"message,omitempty"`
	ImageData *string `json:"image_data,omitempty"`
	Timestamp string  `json:"timestamp"`
}

func OpenSQLiteRepository(path string, log *slog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteRepository{db: db, log: log}, nil
}

func (r *SQLiteRepository) Load() ([]domain.Message, error) {
	rows, err := r.db.Query(`SELECT username, message, image_data, timestamp FROM messages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			rec                row
			message, imageData sql.NullString
		)
		if err := rows.Scan(&rec.Username, &message, &imageData, &rec.Timestamp); err != nil {
			return nil, err
		}
		if message.Valid {
			rec.Message = &message.String
		}
		if imageData.Valid {
			rec.ImageData = &imageData.String
		}
		m, err := toMessage(rec)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.stored = len(messages)
	r.mu.Unlock()
	return messages, nil
}

// Persist inserts the missing rows in one transaction.
func (r *SQLiteRepository) Persist(snapshot []domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(snapshot) <= r.stored {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO messages (seq, username, message, image_data, timestamp) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq := r.stored; seq < len(snapshot); seq++ {
		rec, err := fromMessage(snapshot[seq])
		if err != nil {
			return fmt.Errorf("encode message %d: %w", seq, err)
		}
		if _, err := stmt.Exec(seq, rec.Username, rec.Message, rec.ImageData, rec.Timestamp); err != nil {
			return fmt.Errorf("insert message %d: %w", seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.stored = len(snapshot)
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func fromMessage(m domain.Message) (row, error) {
	var rec row
	raw, err := json.Marshal(m)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(raw, &rec)
	return rec, err
}

func toMessage(rec row) (domain.Message, error) {
	var m domain.Message
	raw, err := json.Marshal(rec)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(raw, &m)
	return m, err
}

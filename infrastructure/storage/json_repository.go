package storage

import (
	"bytes"
	"chat-board/domain"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// JSONRepository keeps the transcript as one indented JSON array,
// rewritten in full through a temporary file and a rename.
type JSONRepository struct {
	path string
	log  *slog.Logger
}

var _ IMessageRepository = (*JSONRepository)(nil)

func NewJSONRepository(path string, log *slog.Logger) *JSONRepository {
	return &JSONRepository{path: path, log: log}
}

func (r *JSONRepository) Load() ([]domain.Message, error) {
	raw, err := os.ReadFile(r.path)
	if goerrors.Is(err, fs.ErrNotExist) {
		r.log.Debug("No transcript file yet", "path", r.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var messages []domain.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return messages, nil
}

func (r *JSONRepository) Persist(snapshot []domain.Message) error {
	if snapshot == nil {
		snapshot = []domain.Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func (r *JSONRepository) Close() error {
	return nil
}

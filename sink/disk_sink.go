package sink

import (
	"chat-board/contract"
	"chat-board/domain/event"
	"chat-board/infrastructure/storage"
	"context"
	"fmt"
	"log/slog"
)

// DiskSink persists every snapshot published by the board.
type DiskSink struct {
	repository storage.IMessageRepository
	log        *slog.Logger
}

var _ contract.EventSink = DiskSink{}

func NewDiskSink(repository storage.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.BoardUpdated:
		if err := d.repository.Persist(evt.Messages); err != nil {
			return fmt.Errorf("persist transcript: %w", err)
		}
		return nil
	default:
		d.log.Debug(fmt.Sprintf("Not implemented event : %v", evt.EventName()))
		return nil
	}
}

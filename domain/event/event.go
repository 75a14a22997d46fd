package event

import (
	"chat-board/domain"
	"time"
)

const BoardUpdatedType = "BoardUpdated"

type DomainEvent interface {
	EventName() string
}

// BoardUpdated carries the full transcript right after a mutation.
type BoardUpdated struct {
	Messages []domain.Message
	At       time.Time
}

func (BoardUpdated) EventName() string {
	return BoardUpdatedType
}

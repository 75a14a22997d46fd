package domain

import "sync"

// Transcript is the ordered, append-only message log of the board.
// Insertion order is chronological order.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

func NewTranscript(backlog []Message) *Transcript {
	return &Transcript{messages: append([]Message(nil), backlog...)}
}

// Append adds a message and returns the new length.
func (t *Transcript) Append(message Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, message)
	return len(t.messages)
}

// Snapshot returns a copy of the whole transcript.
func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append(make([]Message, 0, len(t.messages)), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Package projection keeps the local view of the board on the client side.
// The server transcript is the only source of truth: the timeline never merges
// or de-duplicates, it only keeps the longest snapshot seen so far.
package projection

import (
	"chat-board/domain"
	"slices"
	"sync"
)

type Timeline struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Apply replaces the timeline with snapshot unless it is shorter than the current one.
// It reports whether the snapshot was kept.
func (t *Timeline) Apply(snapshot []domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(snapshot) < len(t.messages) {
		return false
	}
	t.messages = slices.Clone(snapshot)
	return true
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Since returns the messages after the first n.
func (t *Timeline) Since(n int) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n >= len(t.messages) {
		return nil
	}
	return slices.Clone(t.messages[max(n, 0):])
}

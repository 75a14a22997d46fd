package runtime

import (
	"chat-board/contract"
	"maps"
	"sync"
)

// Registry holds the outbound sink of every active session, keyed by session id.
// It does not own session lifetime: the session subscribes and unsubscribes itself through the Board.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.EventSink)}
}

// Subscribe registers a session sink, replacing any previous sink under the same id.
func (r *Registry) Subscribe(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

// Unsubscribe removes a session and reports whether it was registered.
func (r *Registry) Unsubscribe(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

// GetSinks returns a copy, safe to range over while sessions come and go.
func (r *Registry) GetSinks() map[string]contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.sessions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

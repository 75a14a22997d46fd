// Package runtime owns the shared board state and the fan-out of its updates.
// It holds no protocol logic: sessions talk to it through contract.IBoard.
package runtime

import (
	"chat-board/contract"
	"chat-board/domain"
	"chat-board/domain/event"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

const DefaultSinkTimeout = 2 * time.Second

// Board is the broadcast hub.
// One mutex serializes append, persist and fan-out, so every sink sees
// snapshots in the order appends completed and never a shorter one after a longer one.
type Board struct {
	mu             sync.Mutex
	log            *slog.Logger
	transcript     *domain.Transcript
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

var _ contract.IBoard = (*Board)(nil)

func NewBoard(log *slog.Logger, transcript *domain.Transcript, registry contract.IRegistry, sinkTimeout time.Duration) *Board {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &Board{
		log:         log,
		transcript:  transcript,
		registry:    registry,
		sinkTimeout: sinkTimeout,
	}
}

// Add registers permanent sinks, called in order before session sinks on every update.
// The disk sink goes first.
func (b *Board) Add(sinks ...contract.EventSink) *Board {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.permanentSinks = append(b.permanentSinks, sinks...)
	return b
}

func (b *Board) Snapshot() []domain.Message {
	return b.transcript.Snapshot()
}

// Members is the number of registered sessions.
func (b *Board) Members() int {
	return b.registry.Len()
}

func (b *Board) Len() int {
	return b.transcript.Len()
}

// Join registers the session sink then announces the newcomer, who receives that announcement too.
func (b *Board) Join(ctx context.Context, sessionID, name string, sink contract.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry.Subscribe(sessionID, sink)
	b.transcript.Append(domain.JoinedNotice(name, time.Now()))
	b.log.Info("Participant joined", "session_id", sessionID, "username", name)
	b.publish(ctx)
}

func (b *Board) Post(ctx context.Context, message domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transcript.Append(message)
	b.publish(ctx)
}

// Leave always records the departure, even when the sink was already evicted.
func (b *Board) Leave(ctx context.Context, sessionID, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registry.Unsubscribe(sessionID) {
		b.log.Debug("Session was already unsubscribed", "session_id", sessionID)
	}
	b.transcript.Append(domain.LeftNotice(name, time.Now()))
	b.log.Info("Participant left", "session_id", sessionID, "username", name)
	b.publish(ctx)
}

// publish must be called with b.mu held.
func (b *Board) publish(ctx context.Context) {
	// Departures still get persisted while the process shuts down.
	ctx = context.WithoutCancel(ctx)
	evt := event.BoardUpdated{Messages: b.transcript.Snapshot(), At: time.Now()}

	for _, s := range b.permanentSinks {
		if err := b.consume(ctx, s, evt); err != nil {
			b.log.Error("Permanent sink failed", "error", err)
		}
	}

	for sessionID, s := range b.registry.GetSinks() {
		if err := b.consume(ctx, s, evt); err != nil {
			b.log.Warn("Evicting session sink", "session_id", sessionID, "error", err)
			b.registry.Unsubscribe(sessionID)
			if closer, ok := s.(io.Closer); ok {
				_ = closer.Close()
			}
		}
	}
}

func (b *Board) consume(ctx context.Context, s contract.EventSink, evt event.DomainEvent) error {
	sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()
	return s.Consume(sinkCtx, evt)
}

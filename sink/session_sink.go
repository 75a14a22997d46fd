package sink

import (
	"chat-board/contract"
	"chat-board/domain/event"
	"chat-board/errors"
	"chat-board/protocol"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// SessionSink is the outbound queue of one session.
// Consume never blocks: the board calls it while holding its lock.
// Run is the write pump, the only goroutine writing BoardInfo frames to the connection.
type SessionSink struct {
	mu     sync.Mutex
	closed bool
	queue  chan event.DomainEvent
	conn   protocol.Conn
	log    *slog.Logger
	done   chan struct{}
}

var _ contract.EventSink = (*SessionSink)(nil)

func NewSessionSink(conn protocol.Conn, bufferSize int, log *slog.Logger) *SessionSink {
	return &SessionSink{
		queue: make(chan event.DomainEvent, bufferSize),
		conn:  conn,
		log:   log,
		done:  make(chan struct{}),
	}
}

func (s *SessionSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.queue <- e:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

// Close stops accepting events. Queued events are still written by Run.
func (s *SessionSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	return nil
}

// Run drains the queue until Close or ctx cancellation.
// A write failure closes the connection so the session read loop ends too.
func (s *SessionSink) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-s.queue:
			if !ok {
				return nil
			}
			if err := s.write(e); err != nil {
				s.log.Debug("Write pump stopped", "error", err)
				_ = s.conn.Close()
				return err
			}
		}
	}
}

// Done is closed once Run has returned.
func (s *SessionSink) Done() <-chan struct{} {
	return s.done
}

func (s *SessionSink) write(e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.BoardUpdated:
		envelope, err := protocol.NewBoardInfo(evt.Messages)
		if err != nil {
			return err
		}
		if err := s.conn.WriteEnvelope(envelope); err != nil {
			return fmt.Errorf("write board info: %w", err)
		}
		return nil
	default:
		s.log.Debug(fmt.Sprintf("Not implemented event : %v", evt.EventName()))
		return nil
	}
}

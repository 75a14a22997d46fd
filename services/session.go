// Package services drives one client connection through its lifecycle:
// greeting, name handshake, command dispatch and teardown.
package services

import (
	"chat-board/contract"
	"chat-board/domain"
	"chat-board/errors"
	"chat-board/protocol"
	"chat-board/sink"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type State int32

const (
	Connecting State = iota
	AwaitingName
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case AwaitingName:
		return "AwaitingName"
	case Active:
		return "Active"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const (
	DefaultBufferSize = 64
	MaxUsernameLength = 64

	// drainTimeout bounds how long teardown waits for the write pump.
	drainTimeout = 5 * time.Second
)

type Options struct {
	BufferSize int
	// Censor is applied to Send text when not nil.
	Censor contract.ICensor
}

type Session struct {
	id        string
	conn      protocol.Conn
	board     contract.IBoard
	assistant contract.IAssistant
	censor    contract.ICensor
	validate  *validator.Validate
	opts      Options
	log       *slog.Logger

	state     atomic.Int32
	name      string
	outbound  *sink.SessionSink
	closeOnce sync.Once
	connOnce  sync.Once
}

func NewSession(conn protocol.Conn, board contract.IBoard, assistant contract.IAssistant,
	validate *validator.Validate, opts Options, log *slog.Logger) *Session {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		board:     board,
		assistant: assistant,
		censor:    opts.Censor,
		validate:  validate,
		opts:      opts,
		log:       log.With("session_id", id, "remote_addr", conn.RemoteAddr()),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Name() string { return s.name }

// Run blocks until the session is Closed.
// It returns nil when the client ends the session or disconnects between frames.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close(ctx)

	if err := s.greet(); err != nil {
		return err
	}
	s.state.Store(int32(AwaitingName))

	if err := s.handshake(ctx); err != nil {
		s.log.Info("Handshake rejected", "error", err)
		return err
	}
	return s.serve(ctx)
}

// Close deregisters the session, records the departure once, drains the
// outbound queue and closes the transport. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		if s.outbound != nil {
			s.board.Leave(ctx, s.id, s.name)
			_ = s.outbound.Close()
			select {
			case <-s.outbound.Done():
			case <-time.After(drainTimeout):
				s.log.Warn("Write pump did not drain in time")
			}
		}
		s.closeConn()
		s.log.Debug("Session closed", "username", s.name)
	})
}

func (s *Session) closeConn() {
	s.connOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// greet sends ConnectionStart then the current board.
func (s *Session) greet() error {
	if err := s.conn.WriteEnvelope(protocol.Envelope{Command: protocol.ConnectionStart}); err != nil {
		return fmt.Errorf("send %s: %w", protocol.ConnectionStart, err)
	}
	boardInfo, err := protocol.NewBoardInfo(s.board.Snapshot())
	if err != nil {
		return err
	}
	if err := s.conn.WriteEnvelope(boardInfo); err != nil {
		return fmt.Errorf("send %s: %w", protocol.BoardInfo, err)
	}
	return nil
}

// handshake accepts exactly one UserName frame. Anything else closes the session unregistered.
func (s *Session) handshake(ctx context.Context) error {
	envelope, err := s.conn.ReadEnvelope()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrHandshakeRejected, err)
	}
	if envelope.Command != protocol.UserName {
		return fmt.Errorf("%w: unexpected command %q", errors.ErrHandshakeRejected, envelope.Command)
	}
	var name string
	if err := envelope.DecodePayload(&name); err != nil {
		return fmt.Errorf("%w: %w: %w", errors.ErrHandshakeRejected, errors.ErrMalformedPayload, err)
	}
	if err := s.validateName(name); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrHandshakeRejected, err)
	}
	s.name = name

	reply, err := protocol.NewEnvelope(protocol.NameReceived, name)
	if err != nil {
		return err
	}
	if err := s.conn.WriteEnvelope(reply); err != nil {
		return fmt.Errorf("send %s: %w", protocol.NameReceived, err)
	}

	s.outbound = sink.NewSessionSink(s.conn, s.opts.BufferSize, s.log)
	go s.pump(ctx)
	s.state.Store(int32(Active))
	s.board.Join(ctx, s.id, name, s.outbound)
	return nil
}

func (s *Session) validateName(name string) error {
	if err := s.validate.Var(name, fmt.Sprintf("required,max=%d", MaxUsernameLength)); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidUsername, err)
	}
	if domain.IsReservedName(name) {
		return fmt.Errorf("%w: %q is reserved", errors.ErrInvalidUsername, name)
	}
	return nil
}

// pump owns every write after registration.
// When it stops, for a write failure or an eviction, the transport is closed so serve returns.
func (s *Session) pump(ctx context.Context) {
	if err := s.outbound.Run(ctx); err != nil && !goerrors.Is(err, context.Canceled) {
		s.log.Debug("Outbound delivery failed", "error", err)
	}
	s.closeConn()
}

func (s *Session) serve(ctx context.Context) error {
	for {
		envelope, err := s.conn.ReadEnvelope()
		if err != nil {
			if goerrors.Is(err, io.EOF) {
				s.log.Debug("Peer disconnected", "username", s.name)
				return nil
			}
			return err
		}
		done, err := s.dispatch(ctx, envelope)
		if err != nil {
			s.log.Warn("Protocol fault", "command", envelope.Command, "error", err)
			return err
		}
		if done {
			return nil
		}
	}
}

// dispatch handles one Active command and reports whether the session should end.
func (s *Session) dispatch(ctx context.Context, envelope protocol.Envelope) (bool, error) {
	switch envelope.Command {
	case protocol.Send:
		// An absent payload posts an empty line, like AI_HELP without a prompt.
		text, err := optionalString(envelope)
		if err != nil {
			return false, err
		}
		if s.censor != nil {
			var words []string
			if text, words = s.censor.Censor(text); len(words) > 0 {
				s.log.Info("Message censored", "username", s.name, "words", len(words))
			}
		}
		s.board.Post(ctx, domain.NewTextMessage(s.name, text, time.Now()))

	case protocol.SendImage:
		var encoded string
		if err := decodeString(envelope, &encoded); err != nil {
			return false, err
		}
		data, mime, err := decodeImage(encoded)
		if err != nil {
			return false, fmt.Errorf("%w: %w", errors.ErrMalformedPayload, err)
		}
		if !mime.IsImage() {
			s.log.Debug("Storing upload of unrecognised type", "username", s.name, "mime", mime)
		}
		s.board.Post(ctx, domain.NewImageMessage(s.name, data, string(mime), time.Now()))

	case protocol.AIHelp:
		prompt, err := optionalString(envelope)
		if err != nil {
			return false, err
		}
		// The generator call happens outside the board lock, only this session waits.
		reply := s.assistant.Suggest(ctx, s.board.Snapshot(), prompt)
		s.board.Post(ctx, domain.NewTextMessage(domain.AssistantName, reply, time.Now()))

	case protocol.End:
		s.log.Debug("Session ended by peer", "username", s.name)
		return true, nil

	default:
		s.log.Debug("Ignoring unknown command", "command", envelope.Command)
	}
	return false, nil
}

func optionalString(envelope protocol.Envelope) (string, error) {
	var value string
	if !envelope.HasPayload() {
		return value, nil
	}
	err := decodeString(envelope, &value)
	return value, err
}

func decodeString(envelope protocol.Envelope, target *string) error {
	if err := envelope.DecodePayload(target); err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrMalformedPayload, envelope.Command, err)
	}
	return nil
}

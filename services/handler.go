package services

import (
	"chat-board/contract"
	"chat-board/errors"
	"chat-board/protocol"
	"context"
	goerrors "errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// SessionHandler starts a Session for every transport accepted by a listener.
type SessionHandler struct {
	board     contract.IBoard
	assistant contract.IAssistant
	validate  *validator.Validate
	opts      Options
	log       *slog.Logger
}

var _ contract.IConnectionHandler = (*SessionHandler)(nil)

func NewSessionHandler(board contract.IBoard, assistant contract.IAssistant, opts Options, log *slog.Logger) *SessionHandler {
	return &SessionHandler{
		board:     board,
		assistant: assistant,
		validate:  validator.New(),
		opts:      opts,
		log:       log,
	}
}

func (h *SessionHandler) Serve(ctx context.Context, conn protocol.Conn) error {
	session := NewSession(conn, h.board, h.assistant, h.validate, h.opts, h.log)
	err := session.Run(ctx)
	switch {
	case err == nil:
	case goerrors.Is(err, errors.ErrHandshakeRejected), goerrors.Is(err, errors.ErrMalformedPayload):
		h.log.Info("Session closed on protocol fault", "session_id", session.ID(), "error", err)
	default:
		h.log.Debug("Session closed", "session_id", session.ID(), "error", err)
	}
	return err
}

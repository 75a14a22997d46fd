package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Framing
	ErrMalformedFrame = fmt.Errorf("malformed frame")
	ErrFrameTooLarge  = fmt.Errorf("frame exceeds maximum size")

	// Session
	ErrHandshakeRejected = fmt.Errorf("handshake rejected")
	ErrInvalidUsername   = fmt.Errorf("invalid username")
	ErrMalformedPayload  = fmt.Errorf("malformed payload")
	ErrSinkFull          = fmt.Errorf("sink buffer is full")
	ErrSinkClosed        = fmt.Errorf("sink is closed")

	// Transcript
	ErrInvalidMessage = fmt.Errorf("message must carry exactly one of text or image")
	ErrUnknownBackend = fmt.Errorf("unknown store backend")

	// Assistant
	ErrUnknownProvider = fmt.Errorf("unknown AI provider")
	ErrMissingAPIKey   = fmt.Errorf("missing API key")
)

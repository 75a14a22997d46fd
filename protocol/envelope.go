// Package protocol implements the board wire format: JSON envelopes carried
// in length-prefixed frames over a stream, or one per WebSocket message.
package protocol

import (
	"chat-board/domain"
	"encoding/json"
	"fmt"
)

type Command string

const (
	// Server to client
	ConnectionStart Command = "ConnectionStart"
	NameReceived    Command = "NameReceived"
	BoardInfo       Command = "BoardInfo"

	// Client to server
	UserName  Command = "UserName"
	Send      Command = "Send"
	SendImage Command = "SendImage"
	AIHelp    Command = "AI_HELP"
	End       Command = "End"
)

type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload unless it is nil.
func NewEnvelope(command Command, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Command: command}, nil
	}
	raw, err := marshalNoEscape(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", command, err)
	}
	return Envelope{Command: command, Payload: raw}, nil
}

// HasPayload is false for an absent or JSON null payload.
func (e Envelope) HasPayload() bool {
	return len(e.Payload) > 0 && string(e.Payload) != "null"
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewBoardInfo never sends a null payload, an empty board is an empty array.
func NewBoardInfo(messages []domain.Message) (Envelope, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	return NewEnvelope(BoardInfo, messages)
}

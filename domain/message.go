// Package domain contains core concepts of the chat board.
// This file defines Message entries and their wire representation.
// Messages are immutable once appended to a Transcript.
package domain

import (
	"bytes"
	"chat-board/domain/mimetypes"
	"chat-board/errors"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// ServerName authors every system notice (joins, departures).
	ServerName = "Server"
	// AssistantName authors every AI generated reply.
	AssistantName = "AI Assistant"

	// TimestampLayout is the second-resolution layout used on the wire and on disk.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Body is the tagged content of a Message: Text, Image or Notice.
type Body interface {
	isBody()
}

// Text is a plain text body sent by a participant or the assistant.
type Text struct {
	Content string
}

// Image is an opaque image blob with its sniffed MIME type.
type Image struct {
	Data     []byte
	Encoding string
}

// Notice is a system announcement authored by ServerName.
type Notice struct {
	Content string
}

func (Text) isBody()   {}
func (Image) isBody()  {}
func (Notice) isBody() {}

// Message represents an immutable board entry.
type Message struct {
	Author    string
	Body      Body
	CreatedAt time.Time
}

func NewTextMessage(author, content string, at time.Time) Message {
	return Message{Author: author, Body: Text{Content: content}, CreatedAt: at.Truncate(time.Second)}
}

// NewImageMessage copies data so the caller cannot mutate an appended message.
func NewImageMessage(author string, data []byte, encoding string, at time.Time) Message {
	return Message{
		Author:    author,
		Body:      Image{Data: append([]byte(nil), data...), Encoding: encoding},
		CreatedAt: at.Truncate(time.Second),
	}
}

func NewNotice(content string, at time.Time) Message {
	return Message{Author: ServerName, Body: Notice{Content: content}, CreatedAt: at.Truncate(time.Second)}
}

func JoinedNotice(name string, at time.Time) Message {
	return NewNotice(fmt.Sprintf("%s has joined.", name), at)
}

func LeftNotice(name string, at time.Time) Message {
	return NewNotice(fmt.Sprintf("%s has left.", name), at)
}

// Text returns the textual content of text and notice bodies.
func (m Message) Text() (string, bool) {
	switch b := m.Body.(type) {
	case Text:
		return b.Content, true
	case Notice:
		return b.Content, true
	default:
		return "", false
	}
}

// IsReservedName reports whether name belongs to the server or the assistant.
func IsReservedName(name string) bool {
	return name == ServerName || name == AssistantName
}

type wireMessage struct {
	Username  string  `json:"username"`
	Message   *string `json:"message,omitempty"`
	ImageData *string `json:"image_data,omitempty"`
	Timestamp string  `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		Username:  m.Author,
		Timestamp: m.CreatedAt.Format(TimestampLayout),
	}
	switch b := m.Body.(type) {
	case Text:
		w.Message = &b.Content
	case Notice:
		w.Message = &b.Content
	case Image:
		encoded := base64.StdEncoding.EncodeToString(b.Data)
		w.ImageData = &encoded
	default:
		return nil, errors.ErrInvalidMessage
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON rebuilds the tagged body: a "Server" text entry is a Notice,
// an image entry gets its encoding sniffed back from the decoded bytes.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	at, err := time.ParseInLocation(TimestampLayout, w.Timestamp, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", w.Timestamp, err)
	}

	switch {
	case w.Message != nil && w.ImageData != nil, w.Message == nil && w.ImageData == nil:
		return errors.ErrInvalidMessage
	case w.Message != nil && w.Username == ServerName:
		*m = NewNotice(*w.Message, at)
	case w.Message != nil:
		*m = NewTextMessage(w.Username, *w.Message, at)
	default:
		raw, err := base64.StdEncoding.DecodeString(*w.ImageData)
		if err != nil {
			return fmt.Errorf("invalid image data: %w", err)
		}
		*m = Message{
			Author:    w.Username,
			Body:      Image{Data: raw, Encoding: string(mimetypes.Detect(raw))},
			CreatedAt: at,
		}
	}
	return nil
}

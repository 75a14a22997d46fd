// Package websocket carries board envelopes over WebSocket, one envelope per text message.
package websocket

import (
	"chat-board/errors"
	"chat-board/protocol"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// Conn adapts a gorilla connection to protocol.Conn.
type Conn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
}

var _ protocol.Conn = (*Conn)(nil)

func NewConn(ws *websocket.Conn, maxFrameSize uint32, writeTimeout time.Duration) *Conn {
	if maxFrameSize > 0 {
		ws.SetReadLimit(int64(maxFrameSize))
	}
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// ReadEnvelope maps a normal close to io.EOF, every other failure to errors.ErrMalformedFrame.
func (c *Conn) ReadEnvelope() (protocol.Envelope, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return protocol.Envelope{}, io.EOF
		}
		return protocol.Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err)
	}
	if messageType != websocket.TextMessage {
		return protocol.Envelope{}, fmt.Errorf("%w: unexpected message type %d", errors.ErrMalformedFrame, messageType)
	}
	var e protocol.Envelope
	if len(data) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err)
	}
	return e, nil
}

func (c *Conn) WriteEnvelope(e protocol.Envelope) error {
	body, err := protocol.Marshal(e)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, body)
}

// Close sends a close frame when possible, then closes the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

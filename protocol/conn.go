package protocol

import (
	"bufio"
	"net"
	"sync"
	"time"
)

// Conn is a bidirectional envelope transport owned by exactly one session.
type Conn interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(e Envelope) error
	Close() error
	RemoteAddr() string
}

// StreamConn speaks length-prefixed frames over a net.Conn.
type StreamConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeMu      sync.Mutex
	writeTimeout time.Duration
	maxFrameSize uint32
}

var _ Conn = (*StreamConn)(nil)

func NewStreamConn(conn net.Conn, maxFrameSize uint32, writeTimeout time.Duration) *StreamConn {
	return &StreamConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writeTimeout: writeTimeout,
		maxFrameSize: maxFrameSize,
	}
}

func (c *StreamConn) ReadEnvelope() (Envelope, error) {
	return Decode(c.reader, c.maxFrameSize)
}

func (c *StreamConn) WriteEnvelope(e Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return WriteFrame(c.conn, e)
}

func (c *StreamConn) Close() error {
	return c.conn.Close()
}

func (c *StreamConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

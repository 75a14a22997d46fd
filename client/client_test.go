package client

import (
	"chat-board/domain"
	"chat-board/errors"
	"chat-board/protocol"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedServer plays the server side of the handshake over loopback TCP.
type scriptedServer struct {
	t    *testing.T
	conn *protocol.StreamConn
}

func newLoopback(t *testing.T) (*Client, *scriptedServer) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	clientSide, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	serverSide, err := listener.Accept()
	require.NoError(t, err)
	c := New(protocol.NewStreamConn(clientSide, protocol.DefaultMaxFrameSize, time.Second), slog.Default())
	s := &scriptedServer{t: t, conn: protocol.NewStreamConn(serverSide, protocol.DefaultMaxFrameSize, time.Second)}
	t.Cleanup(func() {
		_ = c.Close()
		_ = s.conn.Close()
	})
	return c, s
}

func (s *scriptedServer) send(cmd protocol.Command, payload any) {
	e, err := protocol.NewEnvelope(cmd, payload)
	require.NoError(s.t, err)
	require.NoError(s.t, s.conn.WriteEnvelope(e))
}

func (s *scriptedServer) board(messages ...domain.Message) {
	e, err := protocol.NewBoardInfo(messages)
	require.NoError(s.t, err)
	require.NoError(s.t, s.conn.WriteEnvelope(e))
}

func (s *scriptedServer) read() protocol.Envelope {
	e, err := s.conn.ReadEnvelope()
	require.NoError(s.t, err)
	return e
}

func TestClient_JoinAndWaitFor(t *testing.T) {
	req := require.New(t)
	c, server := newLoopback(t)
	at := time.Now()
	joined := domain.JoinedNotice("Alice", at)

	scripted := make(chan struct{})
	go func() {
		defer close(scripted)
		server.send(protocol.ConnectionStart, nil)
		server.board()
		name := server.read()
		var got string
		_ = name.DecodePayload(&got)
		server.send(protocol.NameReceived, got)
		server.board(joined)
		sent := server.read()
		var text string
		_ = sent.DecodePayload(&text)
		server.board(joined, domain.NewTextMessage("Alice", text, at))
		// a late, shorter snapshot is ignored by the client
		server.board(joined)
	}()

	// When the client joins and sends a message
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.NoError(c.Join(ctx, "Alice"))
	req.Equal("Alice", c.Name())
	req.NoError(c.Send("hello"))

	// Then the broadcast carrying it is observed
	req.NoError(c.WaitFor(ctx, func(messages []domain.Message) bool { return len(messages) == 2 }))
	latest := c.Latest()
	text, ok := latest[1].Text()
	req.True(ok)
	req.Equal("hello", text)
	req.Len(c.Since(1), 1)

	<-scripted
	req.Len(c.Latest(), 2)
}

func TestClient_HandshakeRejected(t *testing.T) {
	req := require.New(t)
	c, server := newLoopback(t)

	go func() {
		server.send(protocol.ConnectionStart, nil)
		server.board()
		server.read()
		_ = server.conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Join(ctx, "Server")
	req.ErrorIs(err, errors.ErrHandshakeRejected)
}

func TestClient_WaitForEndsWithConnection(t *testing.T) {
	req := require.New(t)
	c, server := newLoopback(t)

	go func() {
		server.send(protocol.ConnectionStart, nil)
		server.read()
		server.send(protocol.NameReceived, "Bob")
		_ = server.conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.NoError(c.Join(ctx, "Bob"))

	// When the server goes away before the predicate holds
	err := c.WaitFor(ctx, func(messages []domain.Message) bool { return len(messages) > 0 })

	// Then WaitFor reports the closed connection
	req.ErrorIs(err, ErrClientClosed)
}

func TestClient_JoinHonoursContext(t *testing.T) {
	req := require.New(t)
	c, _ := newLoopback(t)

	// Given a server that never greets
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Then Join gives up with the context error
	err := c.Join(ctx, "Carol")
	req.ErrorIs(err, context.DeadlineExceeded)
}

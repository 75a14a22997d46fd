package tcp

import (
	"chat-board/protocol"
	"context"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echoHandler greets then echoes every envelope until the transport fails.
type echoHandler struct {
	served atomic.Int32
}

func (h *echoHandler) Serve(_ context.Context, conn protocol.Conn) error {
	h.served.Add(1)
	if err := conn.WriteEnvelope(protocol.Envelope{Command: protocol.ConnectionStart}); err != nil {
		return err
	}
	for {
		e, err := conn.ReadEnvelope()
		if err != nil {
			return err
		}
		if err := conn.WriteEnvelope(e); err != nil {
			return err
		}
	}
}

func startServer(t *testing.T, opts Options) (*Server, *echoHandler, chan error) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	handler := &echoHandler{}
	server := NewServer(listener, handler, opts, slog.Default())
	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()
	return server, handler, done
}

func dial(t *testing.T, server *Server) (*protocol.StreamConn, net.Conn) {
	t.Helper()
	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return protocol.NewStreamConn(conn, protocol.DefaultMaxFrameSize, time.Second), conn
}

func TestServer_ServesFramedConnections(t *testing.T) {
	req := require.New(t)
	server, _, done := startServer(t, Options{})
	client, _ := dial(t, server)
	defer client.Close()

	// When a client connects and sends an envelope
	greeting, err := client.ReadEnvelope()
	req.NoError(err)
	req.Equal(protocol.ConnectionStart, greeting.Command)
	req.NoError(client.WriteEnvelope(protocol.Envelope{Command: protocol.End}))

	// Then the handler answers over the framed stream
	echo, err := client.ReadEnvelope()
	req.NoError(err)
	req.Equal(protocol.End, echo.Command)

	// When the server stops
	server.Stop()

	// Then live connections are closed and Run returns
	_, err = client.ReadEnvelope()
	req.Error(err)
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(5 * time.Second):
		req.Fail("Run should return after Stop")
	}
}

func TestServer_ConnectionLimit(t *testing.T) {
	req := require.New(t)
	server, handler, _ := startServer(t, Options{MaxConnections: 1})
	defer server.Stop()

	// Given one connection already served
	first, _ := dial(t, server)
	defer first.Close()
	_, err := first.ReadEnvelope()
	req.NoError(err)

	// When a second client connects
	second, _ := dial(t, server)
	defer second.Close()

	// Then it is closed without being served
	_, err = second.ReadEnvelope()
	req.ErrorIs(err, io.EOF)
	req.Equal(int32(1), handler.served.Load())
	req.Equal(1, server.Len())
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	server := NewServer(listener, &echoHandler{}, Options{}, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(5 * time.Second):
		req.Fail("Run should return once the context is canceled")
	}
}

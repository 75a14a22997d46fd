package websocket

import (
	"chat-board/contract"
	"chat-board/protocol"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPath       = "/ws"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type Options struct {
	Path         string
	MaxFrameSize uint32
	WriteTimeout time.Duration
}

// Server upgrades HTTP requests on one path and runs a session per socket.
type Server struct {
	listener net.Listener
	handler  contract.IConnectionHandler
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

var _ contract.Worker = (*Server)(nil)

func NewServer(listener net.Listener, handler contract.IConnectionHandler, opts Options, log *slog.Logger) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	return &Server{
		listener: listener,
		handler:  handler,
		opts:     opts,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*Conn]struct{}),
	}
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.opts.Path, s.handleUpgrade)
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(s.listener)
	}()
	s.log.Info("WebSocket server listening", "addr", s.listener.Addr().String(), "path", s.opts.Path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		// Hijacked connections are not tracked by http.Server.
		err := httpServer.Shutdown(shutdownCtx)
		s.closeAll()
		s.wg.Wait()
		s.log.Info("WebSocket server stopped")
		return err
	case err := <-errChan:
		if goerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket server: %w", err)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Failed to upgrade WebSocket", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn := NewConn(ws, s.opts.MaxFrameSize, s.opts.WriteTimeout)
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	_ = s.handler.Serve(r.Context(), conn)
}

func (s *Server) track(conn *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// closeAll closes live sockets and refuses new ones.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}

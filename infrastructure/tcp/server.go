// Package tcp serves the framed protocol over a TCP listener.
package tcp

import (
	"chat-board/contract"
	"chat-board/protocol"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

type Options struct {
	// MaxConnections closes any connection above the limit right after accept. Zero means unlimited.
	MaxConnections int
	MaxFrameSize   uint32
	WriteTimeout   time.Duration
}

// Server is a supervised worker owning a pre-bound listener.
// Each accepted connection gets its own goroutine running the handler.
type Server struct {
	listener net.Listener
	handler  contract.IConnectionHandler
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	stopped  bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

var _ contract.Worker = (*Server)(nil)

func NewServer(listener net.Listener, handler contract.IConnectionHandler, opts Options, log *slog.Logger) *Server {
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	return &Server{
		listener: listener,
		handler:  handler,
		opts:     opts,
		log:      log,
		conns:    make(map[net.Conn]struct{}),
	}
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until ctx is canceled or Stop is called, then waits for every session.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	s.log.Info("TCP server listening", "addr", s.listener.Addr().String(), "max_connections", s.opts.MaxConnections)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if goerrors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				s.wg.Wait()
				s.log.Info("TCP server stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.track(conn) {
			s.log.Warn("Connection refused", "remote_addr", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}
		go s.serve(ctx, conn)
	}
}

// Stop closes the listener and every live connection, then waits for sessions to finish.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		_ = s.listener.Close()
		s.mu.Lock()
		s.stopped = true
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// Len is the number of live connections.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	s.log.Debug("Connection accepted", "remote_addr", conn.RemoteAddr().String())
	_ = s.handler.Serve(ctx, protocol.NewStreamConn(conn, s.opts.MaxFrameSize, s.opts.WriteTimeout))
}

// track registers conn for Stop, refusing it above the limit or once stopped.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if s.opts.MaxConnections > 0 && len(s.conns) >= s.opts.MaxConnections {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Package client speaks the board protocol from the participant side.
package client

import (
	"chat-board/domain"
	"chat-board/errors"
	wsconn "chat-board/infrastructure/websocket"
	"chat-board/projection"
	"chat-board/protocol"
	"context"
	"encoding/base64"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClientClosed = fmt.Errorf("client is closed")

type Options struct {
	MaxFrameSize uint32
	WriteTimeout time.Duration
}

type Client struct {
	conn     protocol.Conn
	log      *slog.Logger
	timeline *projection.Timeline

	mu      sync.Mutex
	name    string
	changed chan struct{}
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a framed TCP board at addr.
func Dial(ctx context.Context, addr string, opts Options, log *slog.Logger) (*Client, error) {
	opts = withDefaults(opts)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(protocol.NewStreamConn(conn, opts.MaxFrameSize, opts.WriteTimeout), log), nil
}

// DialWebSocket connects to a board WebSocket endpoint such as ws://host:port/ws.
func DialWebSocket(ctx context.Context, url string, opts Options, log *slog.Logger) (*Client, error) {
	opts = withDefaults(opts)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(wsconn.NewConn(ws, opts.MaxFrameSize, opts.WriteTimeout), log), nil
}

func New(conn protocol.Conn, log *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		log:      log,
		timeline: projection.NewTimeline(),
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func withDefaults(opts Options) Options {
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return opts
}

// Join waits for the greeting, sends name and returns once the server acknowledged it.
// Board updates are then received in the background.
func (c *Client) Join(ctx context.Context, name string) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	if err := c.expect(ctx, protocol.ConnectionStart); err != nil {
		return err
	}
	if err := c.write(protocol.UserName, name); err != nil {
		return err
	}
	if err := c.expect(ctx, protocol.NameReceived); err != nil {
		return err
	}
	if !stop() {
		return ctx.Err()
	}

	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	go c.readLoop()
	return nil
}

// expect reads until cmd arrives, applying board snapshots seen on the way.
func (c *Client) expect(ctx context.Context, cmd protocol.Command) error {
	for {
		e, err := c.conn.ReadEnvelope()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if goerrors.Is(err, io.EOF) && cmd == protocol.NameReceived {
				return errors.ErrHandshakeRejected
			}
			return fmt.Errorf("waiting for %s: %w", cmd, err)
		}
		switch e.Command {
		case cmd:
			return nil
		case protocol.BoardInfo:
			if err := c.apply(e); err != nil {
				return err
			}
		default:
			c.log.Debug("Ignoring envelope during handshake", "command", e.Command)
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		e, err := c.conn.ReadEnvelope()
		if err != nil {
			c.fail(err)
			return
		}
		if e.Command != protocol.BoardInfo {
			c.log.Debug("Ignoring envelope", "command", e.Command)
			continue
		}
		if err := c.apply(e); err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Client) apply(e protocol.Envelope) error {
	var messages []domain.Message
	if err := e.DecodePayload(&messages); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedPayload, err)
	}
	if !c.timeline.Apply(messages) {
		c.log.Debug("Stale board snapshot dropped", "length", len(messages))
		return nil
	}
	c.mu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
	return nil
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		if goerrors.Is(err, io.EOF) || goerrors.Is(err, net.ErrClosed) {
			err = ErrClientClosed
		}
		c.err = err
	}
}

func (c *Client) write(cmd protocol.Command, payload any) error {
	e, err := protocol.NewEnvelope(cmd, payload)
	if err != nil {
		return err
	}
	return c.conn.WriteEnvelope(e)
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) Send(text string) error {
	return c.write(protocol.Send, text)
}

func (c *Client) SendImage(data []byte) error {
	return c.write(protocol.SendImage, base64.StdEncoding.EncodeToString(data))
}

func (c *Client) AskAI(prompt string) error {
	return c.write(protocol.AIHelp, prompt)
}

// End asks the server to close the session.
func (c *Client) End() error {
	return c.write(protocol.End, nil)
}

// Latest returns the longest board snapshot received so far.
func (c *Client) Latest() []domain.Message {
	return c.timeline.Messages()
}

// Since returns the messages received after the first n.
func (c *Client) Since(n int) []domain.Message {
	return c.timeline.Since(n)
}

// WaitFor blocks until predicate holds for the latest snapshot, the connection ends or ctx is done.
func (c *Client) WaitFor(ctx context.Context, predicate func([]domain.Message) bool) error {
	for {
		c.mu.Lock()
		changed := c.changed
		c.mu.Unlock()

		if predicate(c.timeline.Messages()) {
			return nil
		}
		select {
		case <-changed:
		case <-c.done:
			if predicate(c.timeline.Messages()) {
				return nil
			}
			return c.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Done is closed when the background reader stops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClientClosed
	}
	return c.err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

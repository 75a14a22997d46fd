package e2e

import (
	"chat-board/client"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseBoardSuite struct {
	suite.Suite
	Config  Config
	timeout time.Duration
}

// SetupSuite loads the environment configuration and skips when no board is reachable
func (s *BaseBoardSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.BoardAddr == "" {
		s.T().Skip("BOARD_ADDR is not set, skipping end-to-end scenarios")
	}
	s.timeout, err = time.ParseDuration(s.Config.Timeout)
	s.Require().NoError(err)
}

func (s *BaseBoardSuite) header(name string) {
	h := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		h = color.New(color.BgBlack, color.FgGreen).Render(h)
	}
	s.T().Log(h)
}

// WithParticipant joins the board as name for the duration of fn.
func (s *BaseBoardSuite) WithParticipant(step, name string, fn func(ctx context.Context, c *client.Client)) {
	s.header(step)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	c, err := client.Dial(ctx, s.Config.BoardAddr, client.Options{}, slog.Default())
	s.Require().NoError(err, "Failed to connect to board at "+s.Config.BoardAddr)
	defer c.Close()
	s.Require().NoError(c.Join(ctx, name))

	fn(ctx, c)
}

// WithWebSocketParticipant is WithParticipant over the WebSocket endpoint.
func (s *BaseBoardSuite) WithWebSocketParticipant(step, name string, fn func(ctx context.Context, c *client.Client)) {
	if s.Config.WebSocketURL == "" {
		s.T().Skip("BOARD_WS_URL is not set")
	}
	s.header(step)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	c, err := client.DialWebSocket(ctx, s.Config.WebSocketURL, client.Options{}, slog.Default())
	s.Require().NoError(err, "Failed to connect to board at "+s.Config.WebSocketURL)
	defer c.Close()
	s.Require().NoError(c.Join(ctx, name))

	fn(ctx, c)
}

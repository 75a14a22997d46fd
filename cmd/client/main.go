package main

import (
	"bufio"
	"chat-board/client"
	"chat-board/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
// BOARD_ADDR is host:port for TCP or a ws:// URL for WebSocket.
type Config struct {
	ServerAddress string `env:"BOARD_ADDR,default=localhost:12345"`
	Username      string `env:"BOARD_USERNAME"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

const usage = "Commands: /ai <question>, /image <path>, /quit"

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := readLines(os.Stdin)
	name := config.Username
	if name == "" {
		fmt.Print("Enter your username: ")
		line, ok := <-lines
		if !ok {
			return exitOK, nil
		}
		name = strings.TrimSpace(line)
	}

	c, err := dial(ctx, config.ServerAddress, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()
	if err := c.Join(ctx, name); err != nil {
		return exitRuntime, fmt.Errorf("join as %q: %w", name, err)
	}
	fmt.Println(color.Green.Sprintf(">>> Connected to %s as %s. %s", config.ServerAddress, name, usage))

	go render(ctx, c, name)

	for {
		select {
		case <-ctx.Done():
			_ = c.End()
			return exitOK, nil
		case <-c.Done():
			if err := c.Err(); !errors.Is(err, client.ErrClientClosed) {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				_ = c.End()
				return exitOK, nil
			}
			quit, err := execute(c, strings.TrimSpace(line))
			if err != nil {
				fmt.Println(color.Red.Sprintf("!!! %v", err))
			}
			if quit {
				return exitOK, nil
			}
		}
	}
}

func dial(ctx context.Context, addr string, log *slog.Logger) (*client.Client, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return client.DialWebSocket(ctx, addr, client.Options{}, log)
	}
	return client.Dial(ctx, addr, client.Options{}, log)
}

// execute runs one input line and reports whether the client should stop.
func execute(c *client.Client, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, c.End()
	case strings.HasPrefix(line, "/ai "):
		return false, c.AskAI(strings.TrimSpace(strings.TrimPrefix(line, "/ai ")))
	case strings.HasPrefix(line, "/image "):
		data, err := os.ReadFile(strings.TrimSpace(strings.TrimPrefix(line, "/image ")))
		if err != nil {
			return false, err
		}
		return false, c.SendImage(data)
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command, %s", usage)
	default:
		return false, c.Send(line)
	}
}

// render prints every new board entry as snapshots arrive.
func render(ctx context.Context, c *client.Client, self string) {
	printed := 0
	for {
		err := c.WaitFor(ctx, func(messages []domain.Message) bool { return len(messages) > printed })
		if err != nil {
			return
		}
		for _, m := range c.Since(printed) {
			fmt.Println(format(m, self))
			printed++
		}
	}
}

func format(m domain.Message, self string) string {
	at := m.CreatedAt.Format("15:04:05")
	switch b := m.Body.(type) {
	case domain.Notice:
		return color.Yellow.Sprintf("[%s] *** %s", at, b.Content)
	case domain.Image:
		return fmt.Sprintf("[%s] %s sent an image (%s, %d bytes)", at, author(m.Author, self), b.Encoding, len(b.Data))
	case domain.Text:
		return fmt.Sprintf("[%s] %s: %s", at, author(m.Author, self), b.Content)
	default:
		return ""
	}
}

func author(name, self string) string {
	switch name {
	case self:
		return color.Green.Render(name)
	case domain.AssistantName:
		return color.Magenta.Render(name)
	default:
		return color.Cyan.Render(name)
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

package test

import (
	"chat-board/ai"
	"chat-board/client"
	"chat-board/contract"
	"chat-board/domain"
	"chat-board/errors"
	"chat-board/infrastructure/storage"
	"chat-board/infrastructure/tcp"
	"chat-board/mocks"
	"chat-board/runtime"
	"chat-board/services"
	"chat-board/sink"
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stack is a whole board process served over loopback TCP.
type stack struct {
	board      *runtime.Board
	repository storage.IMessageRepository
	server     *tcp.Server
	cancel     context.CancelFunc
	done       chan error
	stopOnce   sync.Once
}

func startStack(t *testing.T, transcriptPath string, generator contract.Generator) *stack {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	repository, err := storage.NewMessageRepository(storage.Options{
		Backend:        storage.BackendFile,
		TranscriptPath: transcriptPath,
	}, log)
	req.NoError(err)

	transcript := domain.NewTranscript(storage.LoadOrEmpty(repository, log))
	board := runtime.NewBoard(log, transcript, runtime.NewRegistry(), time.Second).
		Add(sink.NewDiskSink(repository, log))
	handler := services.NewSessionHandler(board, ai.NewAssistant(generator, time.Second, log), services.Options{}, log)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	s := &stack{
		board:      board,
		repository: repository,
		server:     tcp.NewServer(listener, handler, tcp.Options{WriteTimeout: time.Second}, log),
		cancel:     cancel,
		done:       make(chan error, 1),
	}
	go func() { s.done <- s.server.Run(ctx) }()
	t.Cleanup(s.stop)
	return s
}

// stop is idempotent: cleanup runs it again after an explicit restart.
func (s *stack) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		_ = s.repository.Close()
	})
}

func (s *stack) join(t *testing.T, name string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), s.server.Addr().String(), client.Options{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Join(ctx, name))
	return c
}

func waitFor(t *testing.T, c *client.Client, predicate func([]domain.Message) bool) []domain.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitFor(ctx, predicate))
	return c.Latest()
}

func contains(author, text string) func([]domain.Message) bool {
	return func(messages []domain.Message) bool {
		return lo.ContainsBy(messages, func(m domain.Message) bool {
			content, ok := m.Text()
			return ok && m.Author == author && content == text
		})
	}
}

func Test_Scenario_JoinLeave(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat_log.json")
	s := startStack(t, path, nil)

	// Given Alice and Bob on the board
	alice := s.join(t, "Alice")
	bob := s.join(t, "Bob")
	waitFor(t, alice, contains(domain.ServerName, "Bob has joined."))

	// When Alice talks and Bob leaves
	req.NoError(alice.Send("hello Bob"))
	waitFor(t, bob, contains("Alice", "hello Bob"))
	req.NoError(bob.End())

	// Then Alice sees the whole conversation in order
	messages := waitFor(t, alice, contains(domain.ServerName, "Bob has left."))
	texts := lo.Map(messages, func(m domain.Message, _ int) string {
		content, _ := m.Text()
		return m.Author + ": " + content
	})
	req.Equal([]string{
		"Server: Alice has joined.",
		"Server: Bob has joined.",
		"Alice: hello Bob",
		"Server: Bob has left.",
	}, texts)

	// And the transcript on disk matches the broadcast
	stored, err := storage.NewJSONRepository(path, slog.Default()).Load()
	req.NoError(err)
	req.Equal(messages, stored)
}

func Test_Scenario_AIFallback(t *testing.T) {
	req := require.New(t)
	s := startStack(t, filepath.Join(t.TempDir(), "chat_log.json"), nil)
	alice := s.join(t, "Alice")

	// When Alice asks for help without any provider configured
	req.NoError(alice.AskAI("how do I reset my password?"))

	// Then the assistant answers with the fixed fallback
	waitFor(t, alice, contains(domain.AssistantName, ai.UnavailableMessage))
}

func Test_Scenario_AIHelp(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), gomock.Cond(func(prompt any) bool {
			return strings.Contains(prompt.(string), "the printer is on fire")
		})).
		Return("  Call the fire brigade.  ", nil).
		Times(1)

	s := startStack(t, filepath.Join(t.TempDir(), "chat_log.json"), generator)
	alice := s.join(t, "Alice")
	req.NoError(alice.Send("the printer is on fire"))

	// When Alice asks the assistant
	req.NoError(alice.AskAI("what should I do?"))

	// Then the trimmed reply is broadcast after her message
	messages := waitFor(t, alice, contains(domain.AssistantName, "Call the fire brigade."))
	req.Equal(domain.AssistantName, messages[len(messages)-1].Author)
}

func Test_Scenario_ImpostorRejected(t *testing.T) {
	req := require.New(t)
	s := startStack(t, filepath.Join(t.TempDir(), "chat_log.json"), nil)
	alice := s.join(t, "Alice")

	// When an impostor is rejected during the handshake
	impostor, err := client.Dial(context.Background(), s.server.Addr().String(), client.Options{}, slog.Default())
	req.NoError(err)
	defer impostor.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.ErrorIs(impostor.Join(ctx, domain.ServerName), errors.ErrHandshakeRejected)

	// Then Alice keeps talking and the board never mentions the impostor
	req.NoError(alice.Send("still here"))
	messages := waitFor(t, alice, contains("Alice", "still here"))
	req.Len(messages, 2)
	req.Equal(1, s.board.Members())
}

func Test_Scenario_Convergence(t *testing.T) {
	const (
		clients  = 3
		messages = 10
	)
	req := require.New(t)
	s := startStack(t, filepath.Join(t.TempDir(), "chat_log.json"), nil)

	participants := make([]*client.Client, 0, clients)
	for i := range clients {
		participants = append(participants, s.join(t, fmt.Sprintf("user-%d", i)))
	}

	// When every participant posts concurrently
	var wg sync.WaitGroup
	for i, c := range participants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range messages {
				_ = c.Send(fmt.Sprintf("m-%d-%d", i, j))
			}
		}()
	}
	wg.Wait()

	// Then every participant converges on the same transcript
	expected := clients + clients*messages
	var reference []domain.Message
	for _, c := range participants {
		latest := waitFor(t, c, func(m []domain.Message) bool { return len(m) == expected })
		if reference == nil {
			reference = latest
			continue
		}
		req.Equal(reference, latest)
	}
	req.Equal(expected, s.board.Len())
}

func Test_Scenario_RestartRestoresBacklog(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "chat_log.json")

	// Given a first process where Alice talked then left
	first := startStack(t, path, nil)
	alice := first.join(t, "Alice")
	req.NoError(alice.Send("see you tomorrow"))
	req.NoError(alice.End())
	<-alice.Done()
	first.stop()

	// When the board restarts on the same transcript
	second := startStack(t, path, nil)
	bob := second.join(t, "Bob")

	// Then Bob receives the backlog before his own arrival
	messages := waitFor(t, bob, contains(domain.ServerName, "Bob has joined."))
	req.Len(messages, 4)
	text, _ := messages[1].Text()
	req.Equal("see you tomorrow", text)
}

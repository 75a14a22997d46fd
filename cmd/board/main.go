package main

import (
	"chat-board/ai"
	"chat-board/domain"
	"chat-board/infrastructure/storage"
	"chat-board/infrastructure/tcp"
	"chat-board/infrastructure/websocket"
	"chat-board/internal"
	"chat-board/moderation"
	"chat-board/observability"
	"chat-board/runtime"
	"chat-board/runtime/workers"
	"chat-board/services"
	"chat-board/sink"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Exit codes for the board process.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until SIGINT/SIGTERM and returns the exit code.
// Deferred cleanups run before main calls os.Exit.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	log, logCloser, err := observability.NewLogger(config.LogLevel, config.LogFile)
	if err != nil {
		return exitConfig, err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Transcript store
	repository, err := storage.NewMessageRepository(storage.Options{
		Backend:        storage.Backend(config.StoreBackend),
		TranscriptPath: config.TranscriptFilepath,
		BadgerPath:     config.BadgerFilepath,
		SQLitePath:     config.SQLiteFilepath,
	}, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("transcript store: %w", err)
	}
	defer func() {
		log.Info("Closing transcript store...")
		_ = repository.Close()
	}()
	transcript := domain.NewTranscript(storage.LoadOrEmpty(repository, log))

	// 3. Metrics
	meter, shutdownMetrics, err := observability.InitMetrics(config.MetricsFile, config.MetricInterval)
	if err != nil {
		return exitConfig, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = shutdownMetrics(shutdownCtx)
	}()
	telemetry, err := sink.NewTelemetrySink(meter)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Board: persist first, then telemetry, then sessions
	board := runtime.NewBoard(log, transcript, runtime.NewRegistry(), config.SinkTimeout).
		Add(sink.NewDiskSink(repository, log), telemetry)
	if err := observability.RegisterGauges(meter, board); err != nil {
		log.Warn("Board gauges unavailable", "error", err)
	}

	// 5. Assistant & moderation
	generator, err := ai.NewGenerator(ctx, ai.Options{
		Provider:        ai.Provider(config.AIProvider),
		Model:           config.AIModel,
		GeminiAPIKey:    config.GeminiAPIKey,
		AnthropicAPIKey: config.AnthropicAPIKey,
		OpenAIAPIKey:    config.OpenAIAPIKey,
	}, log)
	if err != nil {
		log.Warn("AI assistant disabled", "error", err)
		generator = nil
	}
	assistant := ai.NewAssistant(generator, config.AITimeout, log)

	sessionOpts := services.Options{BufferSize: config.ConnectionBufferSize}
	if config.ModerationEnabled {
		char, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return exitConfig, err
		}
		moderator, err := moderation.NewEmbeddedModerator(char, log)
		if err != nil {
			return exitRuntime, fmt.Errorf("moderation: %w", err)
		}
		sessionOpts.Censor = moderator
	}
	handler := services.NewSessionHandler(board, assistant, sessionOpts, log)

	// 6. Transports
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		tcp.NewServer(listener, handler, tcp.Options{
			MaxConnections: config.MaxConnections,
			MaxFrameSize:   uint32(config.MaxFrameSize),
			WriteTimeout:   config.WriteTimeout,
		}, log),
		workers.NewHealthMonitoringWorker(log, board, config.MetricInterval),
	)

	if config.WebSocketAddr != "" {
		wsListener, err := net.Listen("tcp", config.WebSocketAddr)
		if err != nil {
			_ = listener.Close()
			return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.WebSocketAddr, err)
		}
		sup.Add(websocket.NewServer(wsListener, handler, websocket.Options{
			Path:         config.WebSocketPath,
			MaxFrameSize: uint32(config.MaxFrameSize),
			WriteTimeout: config.WriteTimeout,
		}, log))
	}

	// 7. Serve until a signal arrives
	log.Info("Chat board started", "address", config.Address(), "backlog", board.Len(), "at", time.Now().UTC())
	sup.Run(ctx)
	log.Info("Program stopped cleanly", "messages", board.Len())
	return exitOK, nil
}

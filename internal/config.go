// Package internal holds the board process configuration.
package internal

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host          string `env:"HOST,default=0.0.0.0" validate:"required"`
	Port          int    `env:"PORT,default=12345" validate:"min=0,max=65535"`
	WebSocketAddr string `env:"WEBSOCKET_ADDR" validate:"omitempty,hostname_port"`
	WebSocketPath string `env:"WEBSOCKET_PATH,default=/ws" validate:"startswith=/"`

	LogLevel    string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	LogFile     string `env:"LOG_FILE"`
	MetricsFile string `env:"METRICS_FILE"`

	StoreBackend       string `env:"STORE_BACKEND,default=file" validate:"oneof=file badger sqlite"`
	TranscriptFilepath string `env:"TRANSCRIPT_FILEPATH,default=chat_log.json" validate:"required_if=StoreBackend file"`
	BadgerFilepath     string `env:"BADGER_FILEPATH,default=data/badger" validate:"required_if=StoreBackend badger"`
	SQLiteFilepath     string `env:"SQLITE_FILEPATH,default=data/chat.db" validate:"required_if=StoreBackend sqlite"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1,max=65536"`
	MaxFrameSize         int           `env:"MAX_FRAME_SIZE,default=16777216" validate:"min=1024,max=268435456"`
	MaxConnections       int           `env:"MAX_CONNECTIONS,default=0" validate:"min=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"min=0"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"min=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"min=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"min=0"`

	AIProvider      string        `env:"AI_PROVIDER,default=gemini" validate:"oneof=gemini anthropic openai"`
	AIModel         string        `env:"AI_MODEL"`
	AITimeout       time.Duration `env:"AI_TIMEOUT,default=30s" validate:"min=0"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=false"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*" validate:"required"`
}

// Load reads an optional .env file, then the environment, then validates the result.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is not an error: the environment alone is enough.
	_ = godotenv.Load(envFiles...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CharacterRune(config.CharReplacement); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Address is the TCP listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

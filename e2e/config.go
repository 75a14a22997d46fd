package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// BOARD_ADDR is the host:port of a running board; the suite is skipped when empty
	BoardAddr string `envconfig:"BOARD_ADDR"`
	// BOARD_WS_URL optionally points at the WebSocket endpoint of the same board
	WebSocketURL string `envconfig:"BOARD_WS_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_TIMEOUT bounds every step
	Timeout string `envconfig:"E2E_TIMEOUT" default:"10s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// Package observability builds the process logger and meter.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mama165/sdk-go/logs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns the sdk-go logger for level, or a JSON logger writing to
// stdout and a rotating file when logFile is set. The closer releases the file.
func NewLogger(level, logFile string) (*slog.Logger, io.Closer, error) {
	if logFile == "" {
		return logs.GetLoggerFromString(level), closerFunc(func() error { return nil }), nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	file := newRotatingFile(logFile)
	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, file), &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), file, nil
}

func newRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

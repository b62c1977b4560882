// Package logger provides a configured zerolog instance.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/ilindan-dev/local-notifier/internal/config"
	"github.com/rs/zerolog"
)

// NewLogger creates a new configured instance of zerolog.Logger.
// It reads the log level from the config and adds default fields like service name and caller.
func NewLogger(cfg *config.Config) (*zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil || cfg.Logger.Level == "" {
		// Default to info level if config is invalid or missing
		level = zerolog.InfoLevel
	}

	out, err := output(cfg.Logger.File)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(out).With().
		Timestamp().                       // Adds "time" field
		Str("service", "local-notifier"). // Adds "service" field for context
		Caller().                          // Adds "caller":"/path/to/file.go:line"
		Logger().
		Level(level) // Set the minimum log level

	return &logger, nil
}

// output picks the writer: pretty console output on stderr, plain JSON lines in a file.
func output(file string) (io.Writer, error) {
	if file == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr}, nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", file, err)
	}
	return f, nil
}

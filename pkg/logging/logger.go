// Package logging builds the zerolog root logger shared by the gateway.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the root logger with the given level and format.
// Unknown levels fall back to info; format "console" or "pretty" gets a
// human-readable writer, anything else emits JSON.
func NewLogger(level, format string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logger zerolog.Logger
	switch format {
	case "console", "pretty":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	default:
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}

// WithComponent returns a child logger tagged with a component field
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

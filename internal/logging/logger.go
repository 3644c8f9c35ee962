// Package logging builds the zerolog loggers used across firmscope.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config contains logger configuration.
type Config struct {
	// Level sets the logging level (trace, debug, info, warn, error).
	Level string
	// Pretty enables human-readable console output with colors.
	Pretty bool
	// Output sets the console writer (defaults to os.Stderr so reports
	// written to stdout stay clean).
	Output io.Writer
	// File, when set, receives every line as JSON in append mode.
	File string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: true,
		Output: os.Stderr,
	}
}

// ParseLevel maps a level name to a zerolog level. Unknown names select info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func console(cfg Config) io.Writer {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		return zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}
	return output
}

func build(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// New creates a console logger. cfg.File is ignored; use Open for file output.
func New(cfg Config) zerolog.Logger {
	return build(console(cfg), ParseLevel(cfg.Level))
}

// Open creates a logger that writes to the console and, when cfg.File is
// set, appends to that file as well. The returned closer releases the file.
func Open(cfg Config) (zerolog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return New(cfg), nopCloser{}, nil
	}

	//nolint:gosec // G304: log path is user configuration.
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return New(cfg), nopCloser{}, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
	}

	w := zerolog.MultiLevelWriter(console(cfg), f)
	return build(w, ParseLevel(cfg.Level)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WithComponent tags every event of logger with a component field.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// Logger returns a debug-level logger that writes through t.Log, so output
// only shows for failing or verbose tests.
func Logger(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: logWriter{t}, NoColor: true}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

type logWriter struct {
	t testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

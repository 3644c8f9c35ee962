package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logAll(logger zerolog.Logger) {
	logger.Trace().Msg("trace message")
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")
}

func TestNew_LevelHierarchy(t *testing.T) {
	order := []string{"debug", "info", "warn", "error"}

	for i, level := range order {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			logAll(New(Config{Level: level, Output: &buf}))
			output := buf.String()

			for j, other := range order {
				msg := other + " message"
				if j >= i {
					assert.Contains(t, output, msg)
				} else {
					assert.NotContains(t, output, msg)
				}
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logAll(New(Config{Level: "chatty", Output: &buf}))

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Level: "info", Output: &buf}), "pipeline")
	logger.Info().Msg("started")

	assert.Contains(t, buf.String(), `"component":"pipeline"`)
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})
	logger.Info().Str("file", "fw.bin").Msg("pretty message")

	output := buf.String()
	assert.Contains(t, output, "pretty message")
	assert.False(t, strings.HasPrefix(output, "{"), "pretty output is not JSON")
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firmscope.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier line\n"), 0o600))

	var console bytes.Buffer
	logger, closer, err := Open(Config{Level: "info", Pretty: true, Output: &console, File: path})
	require.NoError(t, err)
	logger.Info().Msg("to both")
	logger.Debug().Msg("filtered")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "earlier line\n"), "file is appended to")
	assert.Contains(t, content, `"message":"to both"`)
	assert.NotContains(t, content, "filtered")
	assert.Contains(t, console.String(), "to both")
}

func TestOpen_NoFile(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Open(Config{Level: "info", Output: &buf})
	require.NoError(t, err)
	logger.Info().Msg("console only")
	assert.NoError(t, closer.Close())
	assert.Contains(t, buf.String(), "console only")
}

func TestOpen_BadFile(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Open(Config{Level: "info", Output: &buf, File: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
	require.NotNil(t, closer)

	logger.Info().Msg("still usable")
	assert.Contains(t, buf.String(), "still usable")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, os.Stderr, cfg.Output)
}

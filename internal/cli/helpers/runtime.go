package helpers

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/firmscope/internal/config"
	"github.com/coral-mesh/firmscope/internal/logging"
	"github.com/coral-mesh/firmscope/internal/safe"
)

// Persistent flag names shared by every command.
const (
	ConfigFlag   = "config"
	LogLevelFlag = "log-level"
)

// Runtime bundles the resolved configuration and logger of one command run.
type Runtime struct {
	Config *config.Config
	Logger zerolog.Logger
	closer io.Closer
}

// Setup loads the layered configuration for cmd and opens the logger. The
// --log-level flag overrides the configured level.
func Setup(cmd *cobra.Command) (*Runtime, error) {
	var path string
	if f := cmd.Flag(ConfigFlag); f != nil {
		path = f.Value.String()
	}

	cfg, err := config.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flag(LogLevelFlag); f != nil && f.Changed {
		cfg.Log.Level = f.Value.String()
	}

	logger, closer, err := logging.Open(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
		File:   cfg.Log.File,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Continuing without log file")
	}

	return &Runtime{Config: cfg, Logger: logger, closer: closer}, nil
}

// Close releases the log file.
func (r *Runtime) Close() {
	safe.Close(r.closer, r.Logger, "Failed to close log file")
}

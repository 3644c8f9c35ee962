package config

import (
	"github.com/coral-mesh/firmscope/internal/collab/binwalk"
	"github.com/coral-mesh/firmscope/internal/constants"
	"github.com/coral-mesh/firmscope/internal/entropy"
	"github.com/coral-mesh/firmscope/internal/printable"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			WindowSize:       entropy.DefaultWindowSize,
			EntropyThreshold: entropy.DefaultThreshold,
			MinStringLength:  printable.DefaultMinLength,
			MaxFileSize:      constants.DefaultMaxFileSize,
			MaxInstructions:  constants.DefaultMaxInstructions,
		},
		Binwalk: BinwalkConfig{
			Path:    binwalk.DefaultPath,
			Timeout: constants.DefaultBinwalkTimeout,
		},
		Output: OutputConfig{
			Path:   constants.DefaultReportPath,
			Format: constants.DefaultOutputFormat,
		},
		Log: LogConfig{
			Level:  constants.DefaultLogLevel,
			File:   constants.DefaultLogFile,
			Pretty: true,
		},
	}
}

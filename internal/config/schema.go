// Package config provides configuration loading and management.
package config

import "time"

// Config is the firmscope configuration. Values are layered: defaults, then
// the YAML file, then FIRMSCOPE_* environment variables, then CLI flags.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Binwalk  BinwalkConfig  `yaml:"binwalk"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
}

// AnalysisConfig tunes the core analyses.
type AnalysisConfig struct {
	// WindowSize is the entropy window in bytes.
	WindowSize int `yaml:"window_size" env:"FIRMSCOPE_WINDOW_SIZE"`
	// EntropyThreshold marks windows strictly above it as compressed.
	EntropyThreshold float64 `yaml:"entropy_threshold" env:"FIRMSCOPE_ENTROPY_THRESHOLD"`
	MinStringLength  int     `yaml:"min_string_length" env:"FIRMSCOPE_MIN_STRING_LENGTH"`
	MaxFileSize      int64   `yaml:"max_file_size" env:"FIRMSCOPE_MAX_FILE_SIZE"`
	MaxInstructions  int     `yaml:"max_instructions" env:"FIRMSCOPE_MAX_INSTRUCTIONS"`
	// Arch forces the disassembly architecture (arm, armbe, arm64, x86, x86-64).
	Arch string `yaml:"arch,omitempty" env:"FIRMSCOPE_ARCH"`
}

// BinwalkConfig locates the external carving tool.
type BinwalkConfig struct {
	Path    string        `yaml:"path" env:"FIRMSCOPE_BINWALK_PATH"`
	Timeout time.Duration `yaml:"timeout" env:"FIRMSCOPE_BINWALK_TIMEOUT"`
}

// OutputConfig controls where the report goes.
type OutputConfig struct {
	Path   string `yaml:"path" env:"FIRMSCOPE_OUTPUT"`
	Format string `yaml:"format" env:"FIRMSCOPE_FORMAT"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" env:"FIRMSCOPE_LOG_LEVEL"`
	// File receives a copy of every log line; empty disables it.
	File   string `yaml:"file" env:"FIRMSCOPE_LOG_FILE"`
	Pretty bool   `yaml:"pretty" env:"FIRMSCOPE_LOG_PRETTY"`
}

// StoreConfig controls the report history database.
type StoreConfig struct {
	Enabled bool `yaml:"enabled" env:"FIRMSCOPE_STORE"`
	// Path is the directory holding the database; empty selects the
	// configuration directory.
	Path string `yaml:"path,omitempty" env:"FIRMSCOPE_STORE_PATH"`
}

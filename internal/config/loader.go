package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/firmscope/internal/constants"
)

// Loader resolves and reads the configuration file.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader. The base directory is resolved in this order:
//  1. FIRMSCOPE_CONFIG environment variable.
//  2. User home directory.
//  3. The system temp directory, for environments without a home.
func NewLoader() *Loader {
	if dir := os.Getenv(constants.ConfigDirEnv); dir != "" {
		return &Loader{baseDir: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: home}
	}
	return &Loader{baseDir: filepath.Join(os.TempDir(), "firmscope-fallback")}
}

// NewLoaderAt creates a loader rooted at baseDir.
func NewLoaderAt(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Dir returns the firmscope configuration directory.
func (l *Loader) Dir() string {
	return filepath.Join(l.baseDir, constants.DefaultDir)
}

// ConfigPath returns the default configuration file path.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.Dir(), constants.ConfigFile)
}

// Load reads the configuration. An empty path selects ConfigPath, which may
// be absent; an explicit path must exist. Defaults fill anything the file
// leaves out, and environment variables override the file.
func (l *Loader) Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = l.ConfigPath()
	}

	cfg := DefaultConfig()

	//nolint:gosec // G304: path comes from the user or the config directory.
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file: defaults only.
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = l.Dir()
	}

	return cfg, nil
}

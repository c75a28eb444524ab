// Package config loads the optional YAML settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/matrix-installer/internal/validate"
)

const (
	appName = "matrix-installer"

	defaultCLI         = "matrix"
	defaultStorageFile = "~/.config/" + appName + "/state.json"
)

// DefaultPath is where the settings file is looked up when --config is not given.
const DefaultPath = "~/.config/" + appName + "/config.yaml"

// Config holds user settings. Zero fields fall back to defaults.
type Config struct {
	// CLI is the matrix CLI binary, a name on PATH or a path.
	CLI string `yaml:"cli" validate:"required"`
	// Hub is used when a link carries no hub of its own.
	Hub         string `yaml:"hub" validate:"omitempty,hub_url"`
	StorageFile string `yaml:"storage_file" validate:"required"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CLI:         defaultCLI,
		StorageFile: defaultStorageFile,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	expanded, err := expandTilde(path)
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(expanded)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("no config at %s; using defaults", expanded)
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", expanded, err)
	}
	if cfg.CLI == "" {
		cfg.CLI = defaultCLI
	}
	if cfg.StorageFile == "" {
		cfg.StorageFile = defaultStorageFile
	}
	if err := validate.Struct(cfg); err != nil {
		return Default(), fmt.Errorf("invalid config %s: %w", expanded, err)
	}
	return cfg, nil
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

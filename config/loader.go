package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file.
	ProjectConfigFile = "scribe.yaml"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/scribe"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/scribe/config.yaml)
// 3. Project config (scribe.yaml in current or parent directories)
// 4. Environment (provider credentials only)
func (l *Loader) Load() (*Config, error) {
	return l.load(l.findProjectConfig())
}

// LoadProjectFile applies the same layering with an explicit project
// config file instead of the walked-up default. Used on hot reload, where
// the watched file is already known. Unlike Load, a file that fails to
// parse is an error rather than a skipped layer.
func (l *Loader) LoadProjectFile(path string) (*Config, error) {
	if _, err := LoadFromFile(path); err != nil {
		return nil, err
	}
	return l.load(path)
}

func (l *Loader) load(projectConfigPath string) (*Config, error) {
	cfg := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("loaded user config", slog.String("path", userConfigPath))
		cfg.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("loaded project config", slog.String("path", projectConfigPath))
			cfg.Merge(projectConfig)
		} else {
			l.logger.Warn("failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	}

	cfg.ResolveCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveCredentials fills provider API keys from the environment.
// This is the only place ambient environment state is read.
func (c *Config) ResolveCredentials() {
	for name, pc := range c.Providers {
		if pc.APIKeyEnv != "" {
			pc.APIKey = os.Getenv(pc.APIKeyEnv)
			c.Providers[name] = pc
		}
	}
}

// ProjectConfigPath returns the path of the project config file that
// Load would use, or "" when none exists.
func (l *Loader) ProjectConfigPath() string {
	return l.findProjectConfig()
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig walks up from the working directory looking for
// a scribe.yaml file.
func (l *Loader) findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

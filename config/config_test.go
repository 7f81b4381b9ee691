package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ollama", cfg.Extraction.Provider)
	assert.Equal(t, 5, cfg.Extraction.MaxContextEntities)
	assert.Equal(t, 3, cfg.Extraction.MaxContextDocuments)
	assert.Equal(t, 3*time.Minute, cfg.Extraction.Timeout)
	assert.Equal(t, 0.8, cfg.Governance.AutoCreateThreshold)
	assert.Equal(t, 4, cfg.Governance.HighAuthorityLevel)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers["anthropic"].APIKeyEnv)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"missing provider", func(c *Config) { c.Extraction.Provider = "" }, false},
		{"threshold above one", func(c *Config) { c.Governance.AutoCreateThreshold = 1.5 }, false},
		{"negative threshold", func(c *Config) { c.Governance.AutoCreateThreshold = -0.1 }, false},
		{"threshold at bounds", func(c *Config) { c.Governance.AutoCreateThreshold = 1.0 }, true},
		{"authority below one", func(c *Config) { c.Governance.HighAuthorityLevel = 0 }, false},
		{"zero timeout", func(c *Config) { c.Extraction.Timeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Merge(&Config{
		Extraction: ExtractionConfig{
			Provider: "anthropic",
			Timeout:  30 * time.Second,
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {Model: "claude-sonnet-4-20250514"},
			"ollama":    {BaseURL: "http://gpu-box:11434/v1"},
		},
		Governance: GovernanceConfig{AutoCreateThreshold: 0.9},
		NATS:       NATSConfig{URL: "nats://nats.internal:4222"},
	})

	assert.Equal(t, "anthropic", cfg.Extraction.Provider)
	assert.Equal(t, 30*time.Second, cfg.Extraction.Timeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5, cfg.Extraction.MaxContextEntities)
	assert.Equal(t, 4, cfg.Governance.HighAuthorityLevel)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Providers["anthropic"].Model)
	// Overlay merges per field, it does not replace the whole provider row.
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers["anthropic"].APIKeyEnv)
	assert.Equal(t, "http://gpu-box:11434/v1", cfg.Providers["ollama"].BaseURL)

	assert.Equal(t, 0.9, cfg.Governance.AutoCreateThreshold)
	assert.Equal(t, "nats://nats.internal:4222", cfg.NATS.URL)
}

func TestMergeNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(nil)
	assert.Equal(t, "ollama", cfg.Extraction.Provider)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
extraction:
  provider: openai
providers:
  openai:
    model: gpt-4o
governance:
  auto_create_threshold: 0.85
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Extraction.Provider)
	assert.Equal(t, "gpt-4o", cfg.Providers["openai"].Model)
	assert.Equal(t, 0.85, cfg.Governance.AutoCreateThreshold)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction: ["), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

// Package config provides configuration loading and management for scribe.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete scribe configuration.
type Config struct {
	Extraction ExtractionConfig          `yaml:"extraction"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Governance GovernanceConfig          `yaml:"governance"`
	NATS       NATSConfig                `yaml:"nats"`
	Graph      GraphConfig               `yaml:"graph"`
}

// ExtractionConfig configures the extraction pipeline.
type ExtractionConfig struct {
	// Provider is the default text-generation provider.
	Provider string `yaml:"provider"`
	// MaxContextEntities bounds related graph entities included in a prompt.
	MaxContextEntities int `yaml:"max_context_entities"`
	// MaxContextDocuments bounds reference documents included in a prompt.
	MaxContextDocuments int `yaml:"max_context_documents"`
	// Timeout is the maximum time to wait for a provider response.
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderConfig configures one text-generation provider.
type ProviderConfig struct {
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`
	// APIKey is the resolved credential. Populated by the loader, never
	// written back to disk.
	APIKey string `yaml:"-"`
}

// GovernanceConfig configures decision-engine defaults used when a project
// has no sidecar configuration of its own.
type GovernanceConfig struct {
	// AutoCreateThreshold is the global confidence floor for auto-creation.
	AutoCreateThreshold float64 `yaml:"auto_create_threshold"`
	// HighAuthorityLevel is the minimum authority for the global
	// confidence+authority auto-create rule.
	HighAuthorityLevel int `yaml:"high_authority_level"`
	// DetectionTypes lists the entity types extraction should look for.
	DetectionTypes []string `yaml:"detection_types"`
}

// NATSConfig configures the proposal-store connection.
type NATSConfig struct {
	// URL is the NATS server URL.
	URL string `yaml:"url"`
}

// GraphConfig configures the knowledge-graph connection.
type GraphConfig struct {
	// URI is the bolt URI of the graph database.
	URI string `yaml:"uri"`
	// User and Password are the basic-auth credentials.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Provider:            "ollama",
			MaxContextEntities:  5,
			MaxContextDocuments: 3,
			Timeout:             3 * time.Minute,
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKeyEnv: "ANTHROPIC_API_KEY"},
			"openai":    {APIKeyEnv: "OPENAI_API_KEY"},
			"ollama":    {BaseURL: "http://localhost:11434/v1"},
		},
		Governance: GovernanceConfig{
			AutoCreateThreshold: 0.8,
			HighAuthorityLevel:  4,
			DetectionTypes:      []string{"decision", "risk", "task", "action_item"},
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Graph: GraphConfig{
			URI: "bolt://localhost:7687",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Extraction.Provider == "" {
		return fmt.Errorf("extraction.provider is required")
	}
	if c.Governance.AutoCreateThreshold < 0 || c.Governance.AutoCreateThreshold > 1 {
		return fmt.Errorf("governance.auto_create_threshold must be in [0,1], got %v", c.Governance.AutoCreateThreshold)
	}
	if c.Governance.HighAuthorityLevel < 1 {
		return fmt.Errorf("governance.high_authority_level must be >= 1")
	}
	if c.Extraction.Timeout <= 0 {
		return fmt.Errorf("extraction.timeout must be positive")
	}
	return nil
}

// Merge overlays non-zero fields from other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Extraction.Provider != "" {
		c.Extraction.Provider = other.Extraction.Provider
	}
	if other.Extraction.MaxContextEntities > 0 {
		c.Extraction.MaxContextEntities = other.Extraction.MaxContextEntities
	}
	if other.Extraction.MaxContextDocuments > 0 {
		c.Extraction.MaxContextDocuments = other.Extraction.MaxContextDocuments
	}
	if other.Extraction.Timeout > 0 {
		c.Extraction.Timeout = other.Extraction.Timeout
	}
	for name, pc := range other.Providers {
		base := c.Providers[name]
		if pc.Model != "" {
			base.Model = pc.Model
		}
		if pc.BaseURL != "" {
			base.BaseURL = pc.BaseURL
		}
		if pc.APIKeyEnv != "" {
			base.APIKeyEnv = pc.APIKeyEnv
		}
		if c.Providers == nil {
			c.Providers = map[string]ProviderConfig{}
		}
		c.Providers[name] = base
	}
	if other.Governance.AutoCreateThreshold > 0 {
		c.Governance.AutoCreateThreshold = other.Governance.AutoCreateThreshold
	}
	if other.Governance.HighAuthorityLevel > 0 {
		c.Governance.HighAuthorityLevel = other.Governance.HighAuthorityLevel
	}
	if len(other.Governance.DetectionTypes) > 0 {
		c.Governance.DetectionTypes = other.Governance.DetectionTypes
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.Graph.URI != "" {
		c.Graph.URI = other.Graph.URI
	}
	if other.Graph.User != "" {
		c.Graph.User = other.Graph.User
	}
	if other.Graph.Password != "" {
		c.Graph.Password = other.Graph.Password
	}
}

// LoadFromFile reads a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Package config loads and validates docsentinel's TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the complete docsentinel configuration.
type Config struct {
	Repo      RepoConfig      `toml:"repo"`
	Patterns  PatternsConfig  `toml:"patterns"`
	Drift     DriftConfig     `toml:"drift"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
}

// RepoConfig locates the repository being scanned.
type RepoConfig struct {
	// Path is the repository root (auto-detected from the working
	// directory's git metadata when empty).
	Path string `toml:"path"`
}

// PatternsConfig classifies walked paths.
type PatternsConfig struct {
	// DocPatterns are globs classifying a path as documentation.
	DocPatterns []string `toml:"doc_patterns"`
	// CodePatterns are globs classifying a path as code.
	CodePatterns []string `toml:"code_patterns"`
	// IgnorePatterns are globs excluded before either classification.
	IgnorePatterns []string `toml:"ignore_patterns"`
	// Languages lists the enabled language tags. A code file whose
	// extension maps to a language not in this list is treated as
	// ignored rather than attempted and warned about.
	Languages []string `toml:"languages"`
}

// DriftConfig tunes the soft-rule thresholds.
type DriftConfig struct {
	// SimilarityThreshold is the minimum code-to-doc cosine similarity
	// below which LowSimilarity fires. Range [0, 1].
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	// TopK bounds how many nearest doc chunks a soft rule considers.
	TopK int `toml:"top_k"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "mock", "local-http", "openai-shape".
	Provider string `toml:"provider"`
	// Endpoint is the provider's base URL (ignored for "mock").
	Endpoint string `toml:"endpoint"`
	// Model is the provider-specific model identifier.
	Model string `toml:"model"`
	// APIKey is used only by the openai-shape provider.
	APIKey string `toml:"api_key"`
	// Dimension must stay consistent across a store's lifetime; changing
	// it invalidates every cached embedding.
	Dimension int `toml:"dimension"`
}

// LLMConfig configures the optional enrichment collaborator.
type LLMConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// DefaultConfig returns a Config with the defaults named in the
// configuration contract.
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{Path: ""},
		Patterns: PatternsConfig{
			DocPatterns:    []string{"**/*.md", "**/*.mdx"},
			CodePatterns:   []string{"**/*.go", "**/*.rs", "**/*.py", "**/*.java"},
			IgnorePatterns: []string{"**/vendor/**", "**/node_modules/**", "**/.git/**"},
			Languages:      []string{"java", "python"},
		},
		Drift: DriftConfig{
			SimilarityThreshold: 0.7,
			TopK:                5,
		},
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Endpoint:  "http://localhost:11434",
			Dimension: 32,
		},
		LLM: LLMConfig{
			Temperature: 0.2,
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Drift.SimilarityThreshold < 0 || c.Drift.SimilarityThreshold > 1 {
		return fmt.Errorf("drift.similarity_threshold must be between 0 and 1")
	}
	if c.Drift.TopK < 0 {
		return fmt.Errorf("drift.top_k must not be negative")
	}
	switch c.Embedding.Provider {
	case "mock", "local-http", "openai-shape":
	default:
		return fmt.Errorf("embedding.provider must be one of mock, local-http, openai-shape, got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	return nil
}

// LoadFromFile reads and parses a TOML configuration file, merging it onto
// DefaultConfig so unset keys fall back to defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration as TOML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Merge overlays non-zero fields from other onto c, other taking precedence.
// Used by the loader to layer one configuration file over another.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	if len(other.Patterns.DocPatterns) > 0 {
		c.Patterns.DocPatterns = other.Patterns.DocPatterns
	}
	if len(other.Patterns.CodePatterns) > 0 {
		c.Patterns.CodePatterns = other.Patterns.CodePatterns
	}
	if len(other.Patterns.IgnorePatterns) > 0 {
		c.Patterns.IgnorePatterns = other.Patterns.IgnorePatterns
	}
	if len(other.Patterns.Languages) > 0 {
		c.Patterns.Languages = other.Patterns.Languages
	}

	if other.Drift.SimilarityThreshold != 0 {
		c.Drift.SimilarityThreshold = other.Drift.SimilarityThreshold
	}
	if other.Drift.TopK != 0 {
		c.Drift.TopK = other.Drift.TopK
	}

	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Endpoint != "" {
		c.Embedding.Endpoint = other.Embedding.Endpoint
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.APIKey != "" {
		c.Embedding.APIKey = other.Embedding.APIKey
	}
	if other.Embedding.Dimension != 0 {
		c.Embedding.Dimension = other.Embedding.Dimension
	}

	if other.LLM.Endpoint != "" {
		c.LLM.Endpoint = other.LLM.Endpoint
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.MaxTokens != 0 {
		c.LLM.MaxTokens = other.LLM.MaxTokens
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
}

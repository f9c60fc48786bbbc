package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine-level tunables. The similarity floor and the
// auto-group threshold are product knobs, not correctness requirements;
// both ship with conservative defaults and can be overridden per deployment
// via YAML file or environment variables.
type Config struct {
	// SimilarityFloor is the minimum cosine similarity (0.0-1.0) for a task
	// to count as a candidate. Default: 0.80.
	SimilarityFloor float64 `yaml:"similarity_floor"`

	// AutoGroupThreshold is the score above which a SingleTarget match is
	// grouped without asking the user. Must be >= SimilarityFloor.
	// Default: 0.95.
	AutoGroupThreshold float64 `yaml:"auto_group_threshold"`

	// TopK is the maximum number of candidates surfaced per detection run.
	// Default: 10.
	TopK int `yaml:"top_k"`

	// MinDescriptionLength is the minimum description length (in runes) to
	// attempt detection. Very short text lacks semantic content to compare.
	// Default: 10.
	MinDescriptionLength int `yaml:"min_description_length"`

	// Workers is the number of concurrent detection workers. Default: 2.
	Workers int `yaml:"workers"`

	// QueueSize is the detection queue capacity. Enqueueing never blocks
	// task creation; a full queue falls back to the resume scan. Default: 256.
	QueueSize int `yaml:"queue_size"`

	// MaxResolveRetries bounds re-classification attempts when a group write
	// loses an optimistic-concurrency race. Default: 3.
	MaxResolveRetries int `yaml:"max_resolve_retries"`

	// Provider configures the embedding provider client.
	Provider ProviderConfig `yaml:"provider"`

	// Namer configures optional AI group-title suggestions.
	Namer NamerConfig `yaml:"namer"`

	// DBPath is the SQLite database file path. Default: ".groupthink/engine.db".
	// Special value ":memory:" creates an in-memory database (useful for tests).
	DBPath string `yaml:"db_path"`
}

// ProviderConfig holds embedding provider settings
type ProviderConfig struct {
	// Model is the embedding model name. Default: "nomic-embed-text".
	Model string `yaml:"model"`

	// MaxInputRunes truncates descriptions before they are sent to the
	// provider. Default: 8000.
	MaxInputRunes int `yaml:"max_input_runes"`

	// MaxRetries is the number of retries after the initial attempt for
	// transient provider failures. Rejections are never retried. Default: 2.
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff is the first retry delay. Default: 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the exponential backoff. Default: 15s.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// RequestTimeout bounds a single embed call. Default: 30s.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RequestsPerMinute rate-limits provider calls. 0 = unlimited. Default: 120.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxConcurrentCalls caps in-flight provider calls. 0 = unlimited. Default: 4.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
}

// NamerConfig holds AI group-title suggestion settings
type NamerConfig struct {
	// Enabled turns AI title suggestions on. When off (or when no API key is
	// configured) groups get the deterministic fallback name. Default: false.
	Enabled bool `yaml:"enabled"`

	// Model is the Anthropic model used for title suggestions.
	Model string `yaml:"model"`

	// RequestTimeout bounds a single suggestion call. Default: 15s.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns the default engine configuration
//
// Defaults are chosen to be conservative: a high similarity floor keeps
// false suggestions rare, and an even higher auto-group threshold means the
// engine only groups without asking when the match is near-certain.
func DefaultConfig() Config {
	return Config{
		SimilarityFloor:      0.80,
		AutoGroupThreshold:   0.95,
		TopK:                 10,
		MinDescriptionLength: 10,
		Workers:              2,
		QueueSize:            256,
		MaxResolveRetries:    3,
		Provider: ProviderConfig{
			Model:              "nomic-embed-text",
			MaxInputRunes:      8000,
			MaxRetries:         2,
			InitialBackoff:     1 * time.Second,
			MaxBackoff:         15 * time.Second,
			RequestTimeout:     30 * time.Second,
			RequestsPerMinute:  120,
			MaxConcurrentCalls: 4,
		},
		Namer: NamerConfig{
			Enabled:        false,
			Model:          "claude-3-5-haiku-20241022",
			RequestTimeout: 15 * time.Second,
		},
		DBPath: ".groupthink/engine.db",
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.SimilarityFloor < 0.0 || c.SimilarityFloor > 1.0 {
		return fmt.Errorf("similarity_floor must be between 0.0 and 1.0 (got %.2f)", c.SimilarityFloor)
	}
	if c.AutoGroupThreshold < 0.0 || c.AutoGroupThreshold > 1.0 {
		return fmt.Errorf("auto_group_threshold must be between 0.0 and 1.0 (got %.2f)", c.AutoGroupThreshold)
	}
	if c.AutoGroupThreshold < c.SimilarityFloor {
		return fmt.Errorf("auto_group_threshold (%.2f) cannot be below similarity_floor (%.2f)",
			c.AutoGroupThreshold, c.SimilarityFloor)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive (got %d)", c.TopK)
	}
	if c.TopK > 100 {
		return fmt.Errorf("top_k too large (got %d, max 100)", c.TopK)
	}
	if c.MinDescriptionLength < 0 {
		return fmt.Errorf("min_description_length cannot be negative (got %d)", c.MinDescriptionLength)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive (got %d)", c.Workers)
	}
	if c.Workers > 64 {
		return fmt.Errorf("workers too large (got %d, max 64)", c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive (got %d)", c.QueueSize)
	}
	if c.MaxResolveRetries < 0 {
		return fmt.Errorf("max_resolve_retries cannot be negative (got %d)", c.MaxResolveRetries)
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Namer.Validate(); err != nil {
		return fmt.Errorf("namer: %w", err)
	}
	return nil
}

// Validate checks if the provider configuration has valid values
func (p ProviderConfig) Validate() error {
	if p.Model == "" {
		return fmt.Errorf("model is required")
	}
	if p.MaxInputRunes <= 0 {
		return fmt.Errorf("max_input_runes must be positive (got %d)", p.MaxInputRunes)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", p.MaxRetries)
	}
	if p.MaxRetries > 10 {
		return fmt.Errorf("max_retries too large (got %d, max 10)", p.MaxRetries)
	}
	if p.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive (got %v)", p.InitialBackoff)
	}
	if p.MaxBackoff < p.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) cannot be below initial_backoff (%v)", p.MaxBackoff, p.InitialBackoff)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %v)", p.RequestTimeout)
	}
	if p.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request_timeout too large (got %v, max 5 minutes)", p.RequestTimeout)
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative (got %d)", p.RequestsPerMinute)
	}
	if p.MaxConcurrentCalls < 0 {
		return fmt.Errorf("max_concurrent_calls cannot be negative (got %d)", p.MaxConcurrentCalls)
	}
	return nil
}

// Validate checks if the namer configuration has valid values
func (n NamerConfig) Validate() error {
	if n.Enabled && n.Model == "" {
		return fmt.Errorf("model is required when namer is enabled")
	}
	if n.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %v)", n.RequestTimeout)
	}
	return nil
}

// LoadFile reads a YAML config file over the defaults. A missing file is not
// an error; the defaults stand.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

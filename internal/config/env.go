package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - GROUPTHINK_SIMILARITY_FLOOR: Minimum cosine similarity for a candidate (default: 0.80)
//   - GROUPTHINK_AUTO_GROUP_THRESHOLD: Score above which grouping is automatic (default: 0.95)
//   - GROUPTHINK_TOP_K: Maximum candidates per detection run (default: 10)
//   - GROUPTHINK_MIN_DESCRIPTION_LENGTH: Minimum description length for detection (default: 10)
//   - GROUPTHINK_WORKERS: Concurrent detection workers (default: 2)
//   - GROUPTHINK_QUEUE_SIZE: Detection queue capacity (default: 256)
//   - GROUPTHINK_MAX_RESOLVE_RETRIES: Re-classification attempts on write conflicts (default: 3)
//   - GROUPTHINK_EMBED_MODEL: Embedding model name (default: nomic-embed-text)
//   - GROUPTHINK_EMBED_MAX_INPUT_RUNES: Truncation length for provider input (default: 8000)
//   - GROUPTHINK_EMBED_MAX_RETRIES: Retries for transient provider failures (default: 2)
//   - GROUPTHINK_EMBED_TIMEOUT_SECS: Per-call provider timeout in seconds (default: 30)
//   - GROUPTHINK_EMBED_RPM: Provider requests per minute, 0 = unlimited (default: 120)
//   - GROUPTHINK_EMBED_MAX_CONCURRENT: In-flight provider call cap (default: 4)
//   - GROUPTHINK_NAMER_ENABLED: Enable AI group-title suggestions (default: false)
//   - GROUPTHINK_NAMER_MODEL: Anthropic model for title suggestions
//   - GROUPTHINK_DB_PATH: SQLite database path (default: .groupthink/engine.db)
//
// Returns an error if any environment variable has an invalid value.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvFloat("GROUPTHINK_SIMILARITY_FLOOR", &cfg.SimilarityFloor); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("GROUPTHINK_AUTO_GROUP_THRESHOLD", &cfg.AutoGroupThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_TOP_K", &cfg.TopK); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_MIN_DESCRIPTION_LENGTH", &cfg.MinDescriptionLength); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_WORKERS", &cfg.Workers); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_QUEUE_SIZE", &cfg.QueueSize); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_MAX_RESOLVE_RETRIES", &cfg.MaxResolveRetries); err != nil {
		return cfg, err
	}
	if err := parseEnvString("GROUPTHINK_EMBED_MODEL", &cfg.Provider.Model); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_EMBED_MAX_INPUT_RUNES", &cfg.Provider.MaxInputRunes); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_EMBED_MAX_RETRIES", &cfg.Provider.MaxRetries); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("GROUPTHINK_EMBED_TIMEOUT_SECS", &cfg.Provider.RequestTimeout, time.Second); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_EMBED_RPM", &cfg.Provider.RequestsPerMinute); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("GROUPTHINK_EMBED_MAX_CONCURRENT", &cfg.Provider.MaxConcurrentCalls); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("GROUPTHINK_NAMER_ENABLED", &cfg.Namer.Enabled); err != nil {
		return cfg, err
	}
	if err := parseEnvString("GROUPTHINK_NAMER_MODEL", &cfg.Namer.Model); err != nil {
		return cfg, err
	}
	if err := parseEnvString("GROUPTHINK_DB_PATH", &cfg.DBPath); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// parseEnvString reads a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration from an environment variable. The
// multiplier converts the numeric value to a duration (e.g. time.Second
// for values given in seconds).
func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}

package backtrack

import (
	"math"
	"time"
)

// Config controls the backtracking engine.
//
// Example:
//
//	config := backtrack.DefaultConfig()
//	config.MatchTimeout = 50 * time.Millisecond
//	factory, err := backtrack.New(config)
type Config struct {
	// MatchTimeout bounds a single pattern search. A search that runs out of
	// time fails with scanner.ErrMatchTimeout instead of hanging the
	// tokenizer on catastrophic backtracking.
	// Default: 1s. Zero disables the limit.
	MatchTimeout time.Duration

	// IgnoreCase compiles every pattern case-insensitively.
	// Default: false
	IgnoreCase bool

	// MaxPatterns limits the number of patterns per scanner.
	// Default: 65535
	MaxPatterns int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MatchTimeout: time.Second,
		MaxPatterns:  math.MaxUint16,
	}
}

// Validate checks if the configuration is valid.
//
// Valid ranges:
//   - MatchTimeout: >= 0
//   - MaxPatterns: 1 to 1,000,000
func (c Config) Validate() error {
	if c.MatchTimeout < 0 {
		return &ConfigError{
			Field:   "MatchTimeout",
			Message: "must not be negative",
		}
	}
	if c.MaxPatterns < 1 || c.MaxPatterns > 1_000_000 {
		return &ConfigError{
			Field:   "MaxPatterns",
			Message: "must be between 1 and 1,000,000",
		}
	}
	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "backtrack: invalid config: " + e.Field + ": " + e.Message
}

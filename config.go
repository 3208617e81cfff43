package tmscan

import (
	"log/slog"

	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
	"github.com/coregx/tmscan/scanner/backtrack"
)

// Config controls how a List compiles its patterns.
//
// Example:
//
//	config := tmscan.DefaultConfig()
//	config.Factory = linear.MustNew(linear.DefaultConfig())
//	list, err := tmscan.New(config)
type Config struct {
	// Factory builds scanners from resolved pattern sources.
	// Default: backtracking engine with backtrack.DefaultConfig()
	Factory scanner.Factory

	// Arena holds the pattern sources referenced by the list.
	// When nil, New creates a private arena.
	Arena *pattern.Arena

	// Logger receives debug records for compilations and invalidations.
	// When nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultConfig returns a configuration using the backtracking engine and a
// private arena.
func DefaultConfig() Config {
	return Config{
		Factory: backtrack.MustNew(backtrack.DefaultConfig()),
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Factory == nil {
		return &ConfigError{
			Field:   "Factory",
			Message: "must not be nil",
		}
	}
	return nil
}

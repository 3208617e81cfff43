package linear

import (
	"github.com/coregx/coregex/literal"
	"github.com/coregx/coregex/meta"
)

// Config controls the linear-time engine.
//
// Example:
//
//	config := linear.DefaultConfig()
//	config.Engine.MaxDFAStates = 50000
//	factory, err := linear.New(config)
type Config struct {
	// Engine is the coregex meta-engine configuration used for every
	// pattern.
	// Default: meta.DefaultConfig()
	Engine meta.Config

	// LiteralFastPath indexes patterns that match a finite set of literals
	// (keywords, operators, keyword alternations such as if|else|while) in a
	// single Aho-Corasick automaton, so they are searched in one pass.
	// Default: true
	LiteralFastPath bool

	// MinLiterals is the number of literals a scanner needs before the
	// automaton is built. Below it literal patterns are searched like any
	// other pattern.
	// Default: 2
	MinLiterals int

	// Extractor bounds the literal sets considered by the fast path. A
	// pattern whose set hits MaxLiterals, or has a literal of
	// MaxLiteralLen bytes, is searched with its engine instead.
	// Default: literal.DefaultConfig()
	Extractor literal.ExtractorConfig
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:          meta.DefaultConfig(),
		LiteralFastPath: true,
		MinLiterals:     2,
		Extractor:       literal.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.LiteralFastPath && c.MinLiterals < 1 {
		return &ConfigError{
			Field:   "MinLiterals",
			Message: "must be at least 1",
		}
	}
	if c.LiteralFastPath && (c.Extractor.MaxLiterals < 1 || c.Extractor.MaxLiteralLen < 1) {
		return &ConfigError{
			Field:   "Extractor",
			Message: "MaxLiterals and MaxLiteralLen must be at least 1",
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
	return "linear: invalid config: " + e.Field + ": " + e.Message
}

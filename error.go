package tmscan

import (
	"errors"
	"fmt"

	"github.com/coregx/tmscan/pattern"
)

// ErrIndexOutOfRange indicates SetSource was called with an index outside
// the list
var ErrIndexOutOfRange = errors.New("tmscan: index out of range")

// IndexError reports an out-of-range pattern index.
type IndexError struct {
	Index int
	Len   int
}

// Error implements the error interface
func (e *IndexError) Error() string {
	return fmt.Sprintf("tmscan: index %d out of range [0, %d)", e.Index, e.Len)
}

// Unwrap returns ErrIndexOutOfRange
func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// CompileError is returned by List.Compile when the scanner factory fails.
//
// Index, RuleID and Pattern identify the offending pattern when the factory
// reported it; otherwise Index is -1. errors.Is reaches
// scanner.ErrInvalidPattern or scanner.ErrResource through Err.
type CompileError struct {
	State   AnchorState
	Index   int
	RuleID  pattern.RuleID
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("tmscan: compile %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("tmscan: compile %s: rule %d (pattern %d %q): %v",
		e.State, e.RuleID, e.Index, e.Pattern, e.Err)
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "tmscan: invalid config: " + e.Field + ": " + e.Message
}

package scanner

import (
	"errors"
	"fmt"
)

// Scanner errors
var (
	// ErrInvalidPattern indicates a pattern is not valid syntax for the engine
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrResource indicates the engine could not build a scanner for reasons
	// unrelated to pattern syntax (limits, allocation). A later retry may succeed.
	ErrResource = errors.New("scanner resource failure")

	// ErrMatchTimeout indicates a search exceeded the engine's time budget
	ErrMatchTimeout = errors.New("match timeout")
)

// PatternError reports which pattern of a list could not be compiled.
type PatternError struct {
	// Index is the position of the pattern in the list handed to the
	// Factory, or -1 when the failure is not tied to one pattern.
	Index   int
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *PatternError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("scanner: %v", e.Err)
	}
	return fmt.Sprintf("scanner: pattern %d %q: %v", e.Index, e.Pattern, e.Err)
}

// Unwrap returns the underlying error
func (e *PatternError) Unwrap() error {
	return e.Err
}

// InvalidPattern returns a *PatternError classified as ErrInvalidPattern.
func InvalidPattern(index int, pattern string, cause error) *PatternError {
	return &PatternError{Index: index, Pattern: pattern, Err: &classified{kind: ErrInvalidPattern, cause: cause}}
}

// ResourceFailure returns a *PatternError classified as ErrResource.
func ResourceFailure(index int, pattern string, cause error) *PatternError {
	return &PatternError{Index: index, Pattern: pattern, Err: &classified{kind: ErrResource, cause: cause}}
}

// classified ties an engine error to one of the sentinel kinds so callers
// can use errors.Is on the kind and errors.As on the engine error.
type classified struct {
	kind  error
	cause error
}

func (c *classified) Error() string {
	if c.cause == nil {
		return c.kind.Error()
	}
	return c.kind.Error() + ": " + c.cause.Error()
}

func (c *classified) Unwrap() []error {
	if c.cause == nil {
		return []error{c.kind}
	}
	return []error{c.kind, c.cause}
}

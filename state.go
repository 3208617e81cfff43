package tmscan

import (
	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
)

// AnchorState selects one of the cache slots of a List.
//
// Plain is used while no pattern of the list has an anchor; the other four
// states are the combinations of "\A may match" and "\G may match".
type AnchorState uint8

const (
	Plain AnchorState = iota
	A0G0
	A0G1
	A1G0
	A1G1

	numStates
)

// StateFor returns the anchored state for an (allowA, allowG) pair.
func StateFor(allowA, allowG bool) AnchorState {
	s := A0G0
	if allowA {
		s += 2
	}
	if allowG {
		s++
	}
	return s
}

// AllowA reports whether \A may match in state s.
func (s AnchorState) AllowA() bool {
	return s == A1G0 || s == A1G1
}

// AllowG reports whether \G may match in state s.
func (s AnchorState) AllowG() bool {
	return s == A0G1 || s == A1G1
}

// String returns the state name.
func (s AnchorState) String() string {
	switch s {
	case Plain:
		return "plain"
	case A0G0:
		return "A0_G0"
	case A0G1:
		return "A0_G1"
	case A1G0:
		return "A1_G0"
	case A1G1:
		return "A1_G1"
	default:
		return "invalid"
	}
}

// CompiledRule is the immutable result of List.Compile: a scanner and the
// rule of every pattern index it can report.
type CompiledRule struct {
	Scanner scanner.Scanner

	// RuleIDs has one entry per pattern, in the order of the list at
	// compile time.
	RuleIDs []pattern.RuleID

	// State is the cache slot this result was compiled for.
	State AnchorState
}

// RuleID maps a pattern index reported by the scanner to its rule.
func (c *CompiledRule) RuleID(index int) pattern.RuleID {
	return c.RuleIDs[index]
}

// FindNextMatch runs the scanner on line from byte offset at and resolves
// the winning pattern to its rule. A nil match means no pattern matched.
func (c *CompiledRule) FindNextMatch(line *scanner.Line, at int) (*scanner.Match, pattern.RuleID, error) {
	m, err := c.Scanner.FindNextMatch(line, at)
	if err != nil || m == nil {
		return nil, 0, err
	}
	return m, c.RuleIDs[m.Index], nil
}

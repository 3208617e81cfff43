// Package scanner defines the boundary between the pattern cache and the
// regex engine that actually searches a line of text.
//
// A Factory compiles an ordered list of pattern strings into a Scanner. A
// Scanner reports, for a line and a start offset, which of its patterns
// matches soonest:
//   - the match with the smallest start offset wins
//   - ties on the start offset go to the lowest pattern index
//
// Two engines are provided in subpackages:
//   - backtrack: Oniguruma-like backtracking engine (lookbehind,
//     back-references, native \A and \G)
//   - linear: linear-time engine with a literal fast path, for grammars
//     restricted to RE2 syntax
//
// Offsets are byte offsets into Line.Text throughout the package.
package scanner

// Registry is the rule registry of the grammar being compiled.
//
// The cache never inspects it; it is handed unchanged to the Factory so an
// engine that needs to resolve nested rule references can do so.
type Registry interface{}

// Factory compiles ordered pattern sources into a reusable Scanner.
//
// The returned Scanner reports pattern indices in the order of patterns.
// Compilation failures are reported as *PatternError wrapping
// ErrInvalidPattern or ErrResource.
type Factory interface {
	NewScanner(reg Registry, patterns []string) (Scanner, error)
}

// Scanner is a compiled multi-pattern matcher.
//
// Implementations in this module are immutable after construction and safe
// for concurrent use.
type Scanner interface {
	// FindNextMatch searches line starting at byte offset at.
	// It returns nil, nil when no pattern matches.
	FindNextMatch(line *Line, at int) (*Match, error)

	// NumPatterns returns the number of patterns the scanner was built from.
	NumPatterns() int
}

// Range is a half-open byte range [Start, End) in a line.
// An unmatched capture group is reported as Range{-1, -1}.
type Range struct {
	Start int
	End   int
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	if r.Start < 0 {
		return 0
	}
	return r.End - r.Start
}

// Matched reports whether the range belongs to a participating group.
func (r Range) Matched() bool {
	return r.Start >= 0
}

// Match is the winning pattern of a FindNextMatch call.
type Match struct {
	// Index is the position of the winning pattern in the compiled list.
	Index int

	// Captures holds the whole match at index 0 followed by every capture
	// group of the winning pattern.
	Captures []Range
}

// Start returns the start offset of the whole match.
func (m *Match) Start() int {
	return m.Captures[0].Start
}

// End returns the end offset of the whole match.
func (m *Match) End() int {
	return m.Captures[0].End
}

// Better reports whether a candidate match of pattern index at start should
// replace m as the current winner.
func (m *Match) Better(start, index int) bool {
	if m == nil {
		return true
	}
	s := m.Start()
	return start < s || (start == s && index < m.Index)
}

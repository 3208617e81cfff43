// Package backtrack implements scanner.Factory with a backtracking regex
// engine (github.com/dlclark/regexp2).
//
// The engine's syntax is close to the Oniguruma dialect TextMate grammars are
// written in: lookbehind, possessive and atomic groups, back-references and
// the anchors \A (start of the line) and \G (the offset passed to
// FindNextMatch) are supported natively.
//
// regexp2 works on runes, so offsets are converted through scanner.Line,
// which computes its rune view once per line.
package backtrack

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/coregx/tmscan/scanner"
)

// Factory compiles pattern lists into backtracking scanners.
type Factory struct {
	config Config
}

// New creates a Factory with the given configuration.
func New(config Config) (*Factory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Factory{config: config}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(config Config) *Factory {
	f, err := New(config)
	if err != nil {
		panic(err)
	}
	return f
}

// NewScanner implements scanner.Factory. The registry is not used.
func (f *Factory) NewScanner(_ scanner.Registry, patterns []string) (scanner.Scanner, error) {
	if len(patterns) > f.config.MaxPatterns {
		return nil, scanner.ResourceFailure(-1, "",
			fmt.Errorf("%d patterns exceed limit %d", len(patterns), f.config.MaxPatterns))
	}

	opts := regexp2.None
	if f.config.IgnoreCase {
		opts |= regexp2.IgnoreCase
	}

	res := make([]*regexp2.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp2.Compile(p, opts)
		if err != nil {
			return nil, scanner.InvalidPattern(i, p, err)
		}
		if f.config.MatchTimeout > 0 {
			re.MatchTimeout = f.config.MatchTimeout
		}
		res[i] = re
	}
	return &Scanner{res: res}, nil
}

// Scanner is a compiled list of backtracking patterns.
type Scanner struct {
	res []*regexp2.Regexp
}

// NumPatterns implements scanner.Scanner.
func (s *Scanner) NumPatterns() int {
	return len(s.res)
}

// FindNextMatch implements scanner.Scanner.
//
// Every pattern is searched from at; the earliest match wins and ties go to
// the lower index. The search stops early once a pattern matches exactly at
// at, since no later pattern can beat it.
func (s *Scanner) FindNextMatch(line *scanner.Line, at int) (*scanner.Match, error) {
	if at < 0 || at > line.Len() {
		return nil, nil
	}
	runes := line.Runes()
	runeAt := line.RuneOffset(at)

	var best *scanner.Match
	for i, re := range s.res {
		m, err := re.FindRunesMatchStartingAt(runes, runeAt)
		if err != nil {
			return nil, fmt.Errorf("backtrack: pattern %d %q: %w: %v", i, re.String(), scanner.ErrMatchTimeout, err)
		}
		if m == nil {
			continue
		}
		start := line.ByteOffset(m.Index)
		if !best.Better(start, i) {
			continue
		}
		best = &scanner.Match{Index: i, Captures: captures(line, m)}
		if start == at {
			break
		}
	}
	return best, nil
}

func captures(line *scanner.Line, m *regexp2.Match) []scanner.Range {
	groups := m.Groups()
	out := make([]scanner.Range, len(groups))
	for i := range groups {
		g := &groups[i]
		if len(g.Captures) == 0 {
			out[i] = scanner.Range{Start: -1, End: -1}
			continue
		}
		out[i] = scanner.Range{
			Start: line.ByteOffset(g.Index),
			End:   line.ByteOffset(g.Index + g.Length),
		}
	}
	return out
}

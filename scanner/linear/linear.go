// Package linear implements scanner.Factory with the coregex meta-engine.
//
// Every pattern is compiled into its own meta.Engine and searched with
// FindAt, which keeps the full line as left context, so ^, \A and \b see
// the real start of the line rather than the search offset. Searches run in
// time linear in the line length; grammars that rely on lookaround or
// back-references need the backtrack package instead.
//
// Two additions make the engine usable for TextMate patterns:
//   - \G is not RE2 syntax. A pattern using it is compiled twice: with \G
//     turned into \A for searches from offset 0 (where both coincide), and
//     with \G turned into \A and \A made impossible for searches from a
//     later offset, which then run on the line suffix. Assertions at the
//     very start of such a suffix search do not see the text before it.
//   - Patterns whose matches are a finite set of literals (keywords,
//     operators, keyword alternations) are indexed in one Aho-Corasick
//     automaton, so the earliest of them is found in a single pass instead
//     of one search per pattern.
package linear

import (
	"bytes"
	"errors"
	"regexp/syntax"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/coregex/literal"
	"github.com/coregx/coregex/meta"

	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
)

// Factory compiles pattern lists into linear-time scanners.
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

// program is one compiled pattern.
type program struct {
	// full searches the whole line; \G was rewritten to \A
	full *meta.Engine

	// suffix is set only for patterns using \G and searches line[at:]
	// for at > 0; \G became \A and the original \A can no longer match
	suffix *meta.Engine

	// literals is the exact set of strings the pattern matches, when it is
	// finite; such patterns are indexed in the automaton
	literals [][]byte
}

// NewScanner implements scanner.Factory. The registry is not used.
func (f *Factory) NewScanner(_ scanner.Registry, patterns []string) (scanner.Scanner, error) {
	s := &Scanner{progs: make([]program, len(patterns))}

	for i, p := range patterns {
		prog, err := f.compile(p)
		if err != nil {
			return nil, classify(i, p, err)
		}
		s.progs[i] = prog
		for _, lit := range prog.literals {
			s.lits = append(s.lits, lit)
			s.owner = append(s.owner, i)
			s.maxLen = max(s.maxLen, len(lit))
		}
	}

	if len(s.lits) > 0 && len(s.lits) >= f.config.MinLiterals {
		if auto, err := ahocorasick.NewBuilder().AddPatterns(s.lits).Build(); err == nil {
			s.auto = auto
		}
	}
	if s.auto == nil {
		s.lits, s.owner, s.maxLen = nil, nil, 0
	}
	return s, nil
}

func (f *Factory) compile(p string) (program, error) {
	var prog program

	usesG := false
	full := pattern.RewriteAnchors(p, func(anchor byte) (string, bool) {
		if anchor != 'G' {
			return "", false
		}
		usesG = true
		return `\A`, true
	})

	engine, err := meta.CompileWithConfig(full, f.config.Engine)
	if err != nil {
		return prog, err
	}
	prog.full = engine

	if usesG {
		suffix := pattern.RewriteAnchors(p, func(anchor byte) (string, bool) {
			if anchor == 'G' {
				return `\A`, true
			}
			return pattern.Impossible, true
		})
		if prog.suffix, err = meta.CompileWithConfig(suffix, f.config.Engine); err != nil {
			return prog, err
		}
		return prog, nil
	}

	if f.config.LiteralFastPath {
		prog.literals = literalSet(p, f.config.Extractor)
	}
	return prog, nil
}

// literalSet returns the exact set of strings p matches, or nil when p
// matches anything else or the set was cut short by the extractor limits.
func literalSet(p string, config literal.ExtractorConfig) [][]byte {
	re, err := syntax.Parse(p, syntax.Perl)
	if err != nil {
		return nil
	}
	re = re.Simplify()
	if !literalOnly(re) {
		return nil
	}

	seq := literal.New(config).ExtractPrefixes(re)
	if !seq.IsFinite() || !seq.AllComplete() || seq.Len() >= config.MaxLiterals {
		return nil
	}
	lits := make([][]byte, seq.Len())
	for i := range lits {
		b := seq.Get(i).Bytes
		if len(b) == 0 || len(b) >= config.MaxLiteralLen {
			return nil
		}
		lits[i] = b
	}
	return lits
}

// literalOnly reports whether re is built from case-sensitive literals,
// character classes, concatenation, alternation and groups only. Anchors,
// assertions and repetition are rejected since the extractor drops them.
func literalOnly(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpLiteral:
		return re.Flags&syntax.FoldCase == 0
	case syntax.OpCharClass:
		return true
	case syntax.OpConcat, syntax.OpAlternate, syntax.OpCapture:
		for _, sub := range re.Sub {
			if !literalOnly(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// classify maps engine errors onto the scanner error kinds: syntax errors
// are invalid patterns, everything else (size and depth limits) is a
// resource failure.
func classify(index int, p string, err error) error {
	var syntaxErr *syntax.Error
	if errors.As(err, &syntaxErr) {
		return scanner.InvalidPattern(index, p, err)
	}
	return scanner.ResourceFailure(index, p, err)
}

// Scanner is a compiled list of linear-time patterns.
type Scanner struct {
	progs []program

	// auto indexes lits; owner[id] is the pattern of automaton pattern id.
	// lits is ordered by owner, so the first literal found at a position
	// belongs to the lowest pattern index.
	auto   *ahocorasick.Automaton
	lits   [][]byte
	owner  []int
	maxLen int
}

// NumPatterns implements scanner.Scanner.
func (s *Scanner) NumPatterns() int {
	return len(s.progs)
}

// FindNextMatch implements scanner.Scanner.
//
// The earliest match wins; ties go to the lower pattern index. Only the
// winner's capture groups are computed.
func (s *Scanner) FindNextMatch(line *scanner.Line, at int) (*scanner.Match, error) {
	haystack := line.Bytes()
	if at < 0 || at > len(haystack) {
		return nil, nil
	}

	bestIndex, bestStart := -1, 0
	better := func(start, index int) bool {
		return bestIndex < 0 || start < bestStart || (start == bestStart && index < bestIndex)
	}

	if s.auto != nil && at < len(haystack) {
		if start, index, ok := s.earliestLiteral(haystack, at); ok {
			bestIndex, bestStart = index, start
		}
	}

	for i := range s.progs {
		if bestIndex >= 0 && bestStart == at && i > bestIndex {
			break
		}
		p := &s.progs[i]
		if s.auto != nil && p.literals != nil {
			continue
		}
		start, ok := p.locate(haystack, at)
		if ok && better(start, i) {
			bestIndex, bestStart = i, start
		}
	}

	if bestIndex < 0 {
		return nil, nil
	}
	return &scanner.Match{
		Index:    bestIndex,
		Captures: s.progs[bestIndex].captures(haystack, at, bestStart),
	}, nil
}

// earliestLiteral returns the smallest start of any indexed literal at or
// after at, and the lowest pattern index among the literals starting there.
//
// The automaton reports the occurrence that ends first. Every occurrence
// starting at or after at ends no earlier, so the earliest start lies
// between that end minus the longest literal and the reported start.
func (s *Scanner) earliestLiteral(haystack []byte, at int) (start, index int, ok bool) {
	m := s.auto.Find(haystack, at)
	if m == nil {
		return 0, 0, false
	}
	for q := max(at, m.End-s.maxLen); q <= m.Start; q++ {
		for id, lit := range s.lits {
			if bytes.HasPrefix(haystack[q:], lit) {
				return q, s.owner[id], true
			}
		}
	}
	return m.Start, s.owner[m.PatternID], true
}

func (p *program) locate(haystack []byte, at int) (int, bool) {
	if p.suffix != nil && at > 0 {
		m := p.suffix.FindAt(haystack[at:], 0)
		if m == nil {
			return 0, false
		}
		return m.Start() + at, true
	}
	m := p.full.FindAt(haystack, at)
	if m == nil {
		return 0, false
	}
	return m.Start(), true
}

func (p *program) captures(haystack []byte, at, start int) []scanner.Range {
	engine, offset, input := p.full, 0, haystack
	if p.suffix != nil && at > 0 {
		engine, offset, input = p.suffix, at, haystack[at:]
		at = 0
	}

	m := engine.FindSubmatchAt(input, at)
	if m == nil {
		return []scanner.Range{{Start: start, End: start}}
	}
	n := m.NumCaptures()
	out := make([]scanner.Range, n)
	for i := 0; i < n; i++ {
		idx := m.GroupIndex(i)
		if len(idx) < 2 || idx[0] < 0 {
			out[i] = scanner.Range{Start: -1, End: -1}
			continue
		}
		out[i] = scanner.Range{Start: idx[0] + offset, End: idx[1] + offset}
	}
	return out
}

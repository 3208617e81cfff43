// Package pattern implements the regex sources of grammar rules.
//
// A Source is the text of one rule pattern together with the rule it belongs
// to. It knows whether the text uses the TextMate anchors \A (start of line)
// and \G (start of the current scan) and rewrites them for a given anchor
// state, and it substitutes back-references to a previous match (\0, \1,
// ...) with the escaped captured text.
//
// Sources live in an Arena and are addressed by a stable ID, so that every
// holder of an ID observes the same text after a mutation.
package pattern

import (
	"strings"

	"github.com/coregx/coregex"
	"github.com/coregx/tmscan/scanner"
)

// RuleID identifies the grammar rule a pattern belongs to.
type RuleID int

// Impossible is substituted for an anchor that is not allowed to match.
// U+FFFF is a noncharacter and never occurs in tokenized text, so the
// rewritten pattern keeps its structure while the branch cannot match.
const Impossible = "\uFFFF"

// Source is the regex text of one rule pattern.
//
// The derived flags always reflect the current text. A Source is not safe
// for concurrent mutation.
type Source struct {
	ruleID  RuleID
	text    string
	version uint64

	// generation of the owning arena, nil for a standalone Source
	generation *uint64

	hasAnchor         bool
	hasBackReferences bool

	// resolved memoises ResolveAnchors per anchor state; nil until first use
	resolved *[4]string
}

// NewSource creates a Source for rule id with the given text.
func NewSource(id RuleID, text string) *Source {
	s := &Source{ruleID: id}
	s.setText(text)
	return s
}

// RuleID returns the identifier of the owning rule.
func (s *Source) RuleID() RuleID {
	return s.ruleID
}

// Text returns the current regex text.
func (s *Source) Text() string {
	return s.text
}

// HasAnchor reports whether the text contains an unescaped \A or \G.
func (s *Source) HasAnchor() bool {
	return s.hasAnchor
}

// HasBackReferences reports whether the text refers to captures of a
// previous match with \N, where \0 is the whole match.
func (s *Source) HasBackReferences() bool {
	return s.hasBackReferences
}

// Version increases every time the text actually changes.
func (s *Source) Version() uint64 {
	return s.version
}

// SetText replaces the text and reports whether it changed.
func (s *Source) SetText(text string) bool {
	if text == s.text {
		return false
	}
	s.setText(text)
	s.version++
	if s.generation != nil {
		*s.generation++
	}
	return true
}

func (s *Source) setText(text string) {
	s.text = text
	s.resolved = nil
	s.hasAnchor, s.hasBackReferences = scanEscapes(text)
}

// ResolveAnchors returns the text with every anchor that is not allowed in
// the given state replaced by Impossible. Allowed anchors are kept. Without
// anchors the text is returned unchanged.
func (s *Source) ResolveAnchors(allowA, allowG bool) string {
	if !s.hasAnchor {
		return s.text
	}
	key := 0
	if allowA {
		key |= 2
	}
	if allowG {
		key |= 1
	}
	if s.resolved == nil {
		s.resolved = new([4]string)
		for i := range s.resolved {
			a, g := i&2 != 0, i&1 != 0
			s.resolved[i] = RewriteAnchors(s.text, func(anchor byte) (string, bool) {
				if (anchor == 'A' && a) || (anchor == 'G' && g) {
					return "", false
				}
				return Impossible, true
			})
		}
	}
	return s.resolved[key]
}

// ResolveBackReferences returns the text with every back-reference \N
// replaced by the regex-escaped text of capture N of a previous match on
// line. References to missing or unmatched captures become empty.
func (s *Source) ResolveBackReferences(line string, captures []scanner.Range) string {
	if !s.hasBackReferences {
		return s.text
	}

	var b strings.Builder
	b.Grow(len(s.text))
	for i := 0; i < len(s.text); i++ {
		c := s.text[i]
		if c != '\\' || i+1 >= len(s.text) {
			b.WriteByte(c)
			continue
		}
		n := s.text[i+1]
		if n < '0' || n > '9' {
			b.WriteByte(c)
			b.WriteByte(n)
			i++
			continue
		}

		j := i + 1
		group := 0
		for j < len(s.text) && s.text[j] >= '0' && s.text[j] <= '9' {
			group = group*10 + int(s.text[j]-'0')
			j++
		}
		if group < len(captures) && captures[group].Matched() {
			r := captures[group]
			if r.End <= len(line) {
				b.WriteString(EscapeLiteral(line[r.Start:r.End]))
			}
		}
		i = j - 1
	}
	return b.String()
}

// extendedEscaper escapes what QuoteMeta leaves alone but is still special
// in free-spacing (?x) patterns or inside character classes.
var extendedEscaper = strings.NewReplacer(
	" ", `\ `,
	"\t", "\\\t",
	"\n", "\\\n",
	"\v", "\\\v",
	"\f", "\\\f",
	"\r", "\\\r",
	"#", `\#`,
	"-", `\-`,
	",", `\,`,
)

// EscapeLiteral returns text escaped so that it matches itself in any
// pattern, including (?x) patterns and character classes.
func EscapeLiteral(text string) string {
	return extendedEscaper.Replace(coregex.QuoteMeta(text))
}

// RewriteAnchors calls fn for every unescaped \A and \G in text and, when
// fn returns true, replaces the two-byte anchor token with the returned
// string. Escaped backslashes are skipped so \\A is left alone.
func RewriteAnchors(text string, fn func(anchor byte) (string, bool)) string {
	var b *strings.Builder
	last := 0
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '\\' {
			continue
		}
		n := text[i+1]
		if n == 'A' || n == 'G' {
			if repl, ok := fn(n); ok {
				if b == nil {
					b = &strings.Builder{}
					b.Grow(len(text))
				}
				b.WriteString(text[last:i])
				b.WriteString(repl)
				last = i + 2
			}
		}
		i++
	}
	if b == nil {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// scanEscapes reports whether text contains anchor tokens and
// back-references, honouring escaped backslashes.
func scanEscapes(text string) (anchor, backRef bool) {
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '\\' {
			continue
		}
		switch n := text[i+1]; {
		case n == 'A' || n == 'G':
			anchor = true
		case n >= '0' && n <= '9':
			backRef = true
		}
		i++
	}
	return anchor, backRef
}

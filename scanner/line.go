package scanner

import (
	"unicode/utf8"
)

// Line is one line of text handed to scanners.
//
// Engines working on bytes use Bytes; engines working on runes use Runes and
// the offset conversions. Both views are computed lazily and once, so a
// tokenizer should create one Line per line of input and reuse it for every
// scanner call on that line.
//
// A Line is not safe for concurrent first use of its lazy views.
type Line struct {
	text  string
	bytes []byte
	runes []rune

	// runeStart[i] is the byte offset of rune i; the extra last entry is
	// len(text).
	runeStart []int

	// ascii is set when byte and rune offsets coincide.
	ascii bool
	ready bool
}

// NewLine creates a Line for text.
func NewLine(text string) *Line {
	return &Line{text: text}
}

// Text returns the line text.
func (l *Line) Text() string {
	return l.text
}

// Len returns the length of the line in bytes.
func (l *Line) Len() int {
	return len(l.text)
}

// Bytes returns the line as a byte slice. The slice must not be modified.
func (l *Line) Bytes() []byte {
	if l.bytes == nil {
		l.bytes = []byte(l.text)
	}
	return l.bytes
}

// Runes returns the line decoded into runes. Invalid UTF-8 bytes decode to
// utf8.RuneError, one rune per byte. The slice must not be modified.
func (l *Line) Runes() []rune {
	l.index()
	return l.runes
}

// RuneOffset converts a byte offset into a rune offset.
// Offsets inside a multi-byte sequence round down to the start of the rune.
func (l *Line) RuneOffset(byteOffset int) int {
	l.index()
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(l.text) {
		return len(l.runes)
	}
	if l.ascii {
		return byteOffset
	}

	lo, hi := 0, len(l.runes)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if l.runeStart[mid] <= byteOffset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// ByteOffset converts a rune offset into a byte offset.
func (l *Line) ByteOffset(runeOffset int) int {
	l.index()
	if runeOffset <= 0 {
		return 0
	}
	if runeOffset >= len(l.runes) {
		return len(l.text)
	}
	if l.ascii {
		return runeOffset
	}
	return l.runeStart[runeOffset]
}

func (l *Line) index() {
	if l.ready {
		return
	}
	l.ready = true

	n := utf8.RuneCountInString(l.text)
	l.runes = make([]rune, 0, n)
	l.ascii = n == len(l.text)
	if l.ascii {
		for i := 0; i < len(l.text); i++ {
			c := l.text[i]
			if c >= utf8.RuneSelf {
				l.runes = append(l.runes, utf8.RuneError)
				continue
			}
			l.runes = append(l.runes, rune(c))
		}
		return
	}

	l.runeStart = make([]int, 0, n+1)
	for i := 0; i < len(l.text); {
		r, size := utf8.DecodeRuneInString(l.text[i:])
		l.runes = append(l.runes, r)
		l.runeStart = append(l.runeStart, i)
		i += size
	}
	l.runeStart = append(l.runeStart, len(l.text))
}

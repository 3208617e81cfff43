package pattern

import "fmt"

// ID is the stable handle of a Source inside an Arena.
type ID int

// Arena owns Sources and hands out IDs for them.
//
// Holders store IDs rather than pointers; a text change made through any
// holder is seen by all of them. IDs are never reused.
type Arena struct {
	sources []*Source

	// generation counts text changes of any source in the arena
	generation uint64
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add registers a new Source for rule and returns its ID.
func (a *Arena) Add(rule RuleID, text string) ID {
	s := NewSource(rule, text)
	s.generation = &a.generation
	a.sources = append(a.sources, s)
	return ID(len(a.sources) - 1)
}

// Generation increases whenever the text of any of the arena's sources
// changes. Holders compare it to skip per-source version checks.
func (a *Arena) Generation() uint64 {
	return a.generation
}

// Get returns the Source for id. It panics if id was not issued by a.
func (a *Arena) Get(id ID) *Source {
	if id < 0 || int(id) >= len(a.sources) {
		panic(fmt.Sprintf("pattern: unknown source id %d", id))
	}
	return a.sources[id]
}

// Len returns the number of Sources in the arena.
func (a *Arena) Len() int {
	return len(a.sources)
}

// Package tmscan compiles the alternative patterns of a TextMate grammar
// rule into one multi-pattern scanner and caches the result per anchor
// state.
//
// TextMate patterns may use two positional anchors: \A matches only at the
// start of the line and \G only where the previous match ended. Whether they
// can match depends on where the tokenizer currently is, so a rule whose
// patterns use anchors needs up to four compiled scanners, one per
// (allowA, allowG) combination. Rules without anchors need exactly one.
//
// Basic usage:
//
//	list, err := tmscan.New(tmscan.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	list.Push(list.Arena().Add(1, `\bfunc\b`))
//	list.Push(list.Arena().Add(2, `\G\s*\(`))
//
//	rule, err := list.Compile(nil, false, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	line := scanner.NewLine("func (x int)")
//	m, ruleID, err := rule.FindNextMatch(line, 4)
//
// A List is meant to be used by one goroutine at a time. Compiled scanners
// are immutable and may be shared.
package tmscan

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
)

// List is the ordered set of pattern sources of one grammar rule together
// with its compiled scanners.
//
// Order matters: it is the tie-break priority of the scanner and the index
// space of CompiledRule.RuleIDs.
type List struct {
	arena   *pattern.Arena
	factory scanner.Factory
	logger  *slog.Logger

	items []pattern.ID

	// versions[i] is the version of items[i] the cache was built against;
	// generation is the arena generation they were all last checked at
	versions   []uint64
	generation uint64

	hasAnchors bool
	cache      [numStates]*CompiledRule

	stats Stats
}

// New creates an empty List.
func New(config Config) (*List, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	arena := config.Arena
	if arena == nil {
		arena = pattern.NewArena()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &List{
		arena:   arena,
		factory: config.Factory,
		logger:  logger,
	}, nil
}

// NewList creates an empty List over arena using factory.
// It panics if factory is nil.
func NewList(arena *pattern.Arena, factory scanner.Factory) *List {
	l, err := New(Config{Factory: factory, Arena: arena})
	if err != nil {
		panic(err)
	}
	return l
}

// Arena returns the arena the list's sources live in.
func (l *List) Arena() *pattern.Arena {
	return l.arena
}

// Push appends a source with the lowest priority.
func (l *List) Push(id pattern.ID) {
	src := l.arena.Get(id)
	l.items = append(l.items, id)
	l.versions = append(l.versions, src.Version())
	l.hasAnchors = l.hasAnchors || src.HasAnchor()
	l.invalidateAll("push")
}

// Unshift prepends a source with the highest priority.
func (l *List) Unshift(id pattern.ID) {
	src := l.arena.Get(id)
	l.items = append(l.items, 0)
	copy(l.items[1:], l.items)
	l.items[0] = id
	l.versions = append(l.versions, 0)
	copy(l.versions[1:], l.versions)
	l.versions[0] = src.Version()
	l.hasAnchors = l.hasAnchors || src.HasAnchor()
	l.invalidateAll("unshift")
}

// Len returns the number of sources in the list.
func (l *List) Len() int {
	return len(l.items)
}

// HasAnchors reports whether any source uses \A or \G.
func (l *List) HasAnchors() bool {
	return l.hasAnchors
}

// Source returns the source at index.
func (l *List) Source(index int) (*pattern.Source, error) {
	if index < 0 || index >= len(l.items) {
		return nil, &IndexError{Index: index, Len: len(l.items)}
	}
	return l.arena.Get(l.items[index]), nil
}

// Sources returns the current text of every source, in order.
func (l *List) Sources() []string {
	texts := make([]string, len(l.items))
	for i, id := range l.items {
		texts[i] = l.arena.Get(id).Text()
	}
	return texts
}

// SetSource replaces the text of the source at index.
//
// Setting the text it already has is a no-op and keeps every compiled
// scanner. Any real change drops all of them.
func (l *List) SetSource(index int, text string) error {
	src, err := l.Source(index)
	if err != nil {
		return err
	}
	if src.Text() == text {
		return nil
	}

	l.invalidateAll("set source")
	src.SetText(text)
	l.refresh()
	return nil
}

// Compile returns the scanner for the given anchor state, compiling it on
// first use.
//
// allowA is true when the scan position is at the start of the line, allowG
// when it is where the previous match ended. Both are ignored while no
// source has an anchor. reg is passed to the scanner factory unchanged.
//
// On failure nothing is cached, so a later call after the source was fixed
// compiles again.
func (l *List) Compile(reg scanner.Registry, allowA, allowG bool) (*CompiledRule, error) {
	l.checkVersions()

	state := Plain
	if l.hasAnchors {
		state = StateFor(allowA, allowG)
	}
	if c := l.cache[state]; c != nil {
		atomic.AddUint64(&l.stats.CacheHits, 1)
		return c, nil
	}

	c, err := l.compile(reg, state)
	if err != nil {
		return nil, err
	}
	l.cache[state] = c
	return c, nil
}

// CompileAll compiles every slot relevant to the current sources: the
// plain slot without anchors, the four anchored slots otherwise.
// Errors of individual slots are joined.
func (l *List) CompileAll(reg scanner.Registry) error {
	l.checkVersions()
	if !l.hasAnchors {
		_, err := l.Compile(reg, false, false)
		return err
	}

	var errs []error
	for _, s := range []AnchorState{A0G0, A0G1, A1G0, A1G1} {
		if _, err := l.Compile(reg, s.AllowA(), s.AllowG()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cached returns the compiled rule held in slot s, or nil.
func (l *List) Cached(s AnchorState) *CompiledRule {
	if s >= numStates {
		return nil
	}
	return l.cache[s]
}

func (l *List) compile(reg scanner.Registry, state AnchorState) (*CompiledRule, error) {
	patterns := make([]string, len(l.items))
	ruleIDs := make([]pattern.RuleID, len(l.items))
	for i, id := range l.items {
		src := l.arena.Get(id)
		if state == Plain {
			patterns[i] = src.Text()
		} else {
			patterns[i] = src.ResolveAnchors(state.AllowA(), state.AllowG())
		}
		ruleIDs[i] = src.RuleID()
	}

	sc, err := l.factory.NewScanner(reg, patterns)
	if err != nil {
		atomic.AddUint64(&l.stats.CompileErrors, 1)
		cerr := &CompileError{State: state, Index: -1, Err: err}
		var perr *scanner.PatternError
		if errors.As(err, &perr) && perr.Index >= 0 && perr.Index < len(patterns) {
			cerr.Index = perr.Index
			cerr.RuleID = ruleIDs[perr.Index]
			cerr.Pattern = patterns[perr.Index]
		}
		l.logger.Debug("scanner compile failed",
			slog.String("state", state.String()),
			slog.Int("index", cerr.Index),
			slog.Any("error", err))
		return nil, cerr
	}

	atomic.AddUint64(&l.stats.Compiles, 1)
	l.logger.Debug("scanner compiled",
		slog.String("state", state.String()),
		slog.Int("patterns", len(patterns)))
	return &CompiledRule{Scanner: sc, RuleIDs: ruleIDs, State: state}, nil
}

// invalidateAll drops every cache slot. It is the only place slots are
// cleared.
func (l *List) invalidateAll(reason string) {
	warm := false
	for i := range l.cache {
		if l.cache[i] != nil {
			warm = true
			l.cache[i] = nil
		}
	}
	if warm {
		atomic.AddUint64(&l.stats.Invalidations, 1)
		l.logger.Debug("scanner cache invalidated", slog.String("reason", reason))
	}
}

// checkVersions detects text changes made through the arena (or another
// list sharing a source) since the cache was built. While the arena
// generation is unchanged no source can have changed.
func (l *List) checkVersions() {
	gen := l.arena.Generation()
	if gen == l.generation {
		return
	}
	for i, id := range l.items {
		if l.arena.Get(id).Version() != l.versions[i] {
			l.invalidateAll("source changed")
			l.refresh()
			return
		}
	}
	l.generation = gen
}

// refresh recomputes hasAnchors over all items and records their versions.
func (l *List) refresh() {
	l.generation = l.arena.Generation()
	l.hasAnchors = false
	for i, id := range l.items {
		src := l.arena.Get(id)
		l.versions[i] = src.Version()
		l.hasAnchors = l.hasAnchors || src.HasAnchor()
	}
}

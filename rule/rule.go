// Package rule is a minimal grammar-rule layer on top of tmscan.
//
// Rules own the pattern lists the tokenizer compiles at every step:
//   - MatchRule matches a single pattern
//   - IncludeOnlyRule groups the patterns of other rules
//   - BeginEndRule opens a region with its begin pattern; inside the region
//     its end pattern competes with the nested patterns, and back-references
//     in the end pattern refer to the captures of the begin match
//
// Each rule builds its list once and reuses it; only the end pattern of a
// BeginEndRule is rewritten per region, through List.SetSource.
package rule

import (
	"fmt"
	"log/slog"

	"github.com/coregx/tmscan"
	"github.com/coregx/tmscan/internal/ruleset"
	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
)

// Rule is a grammar rule whose patterns can be compiled into a scanner.
type Rule interface {
	// ID returns the rule identifier reported by compiled scanners.
	ID() pattern.RuleID

	// Name returns the scope name of the rule.
	Name() string

	// Compile returns the scanner for the patterns the tokenizer tries while
	// this rule is on top of the stack. endText is the end pattern with
	// resolved back-references; it is ignored by rules without an end.
	Compile(reg *Registry, endText string, allowA, allowG bool) (*tmscan.CompiledRule, error)

	// collect adds the patterns this rule contributes to an enclosing list.
	collect(reg *Registry, list *tmscan.List, visiting *ruleset.Set)
}

// Registry owns the rules of a grammar and the arena of their patterns.
// It is passed as the scanner.Registry to every compilation.
type Registry struct {
	config tmscan.Config
	rules  []Rule

	// guard holds the include path of the current collection; reused
	guard *ruleset.Set
}

var _ scanner.Registry = (*Registry)(nil)

// NewRegistry creates an empty registry. Lists created for its rules use
// config; a nil config.Arena is replaced by a registry-wide arena.
func NewRegistry(config tmscan.Config) (*Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Arena == nil {
		config.Arena = pattern.NewArena()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	// Rule IDs start at 1; 0 means "no rule".
	return &Registry{config: config, rules: []Rule{nil}}, nil
}

// Arena returns the arena holding the patterns of every rule.
func (r *Registry) Arena() *pattern.Arena {
	return r.config.Arena
}

// Rule returns the rule with the given identifier, or nil.
func (r *Registry) Rule(id pattern.RuleID) Rule {
	if id <= 0 || int(id) >= len(r.rules) {
		return nil
	}
	return r.rules[id]
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules) - 1
}

func (r *Registry) nextID() pattern.RuleID {
	return pattern.RuleID(len(r.rules))
}

// visiting returns the registry's cycle guard, emptied. Collections do not
// nest, so one guard serves every rule.
func (r *Registry) visiting() *ruleset.Set {
	if r.guard == nil {
		r.guard = ruleset.New(len(r.rules))
	}
	r.guard.Clear()
	return r.guard
}

func (r *Registry) register(rule Rule) {
	r.rules = append(r.rules, rule)
}

func (r *Registry) newList() *tmscan.List {
	list, err := tmscan.New(r.config)
	if err != nil {
		// config was validated by NewRegistry
		panic(err)
	}
	return list
}

// AddMatch registers a rule matching a single pattern.
func (r *Registry) AddMatch(name, match string) *MatchRule {
	id := r.nextID()
	rule := &MatchRule{
		id:    id,
		name:  name,
		match: r.config.Arena.Add(id, match),
	}
	r.register(rule)
	return rule
}

// AddIncludeOnly registers a rule grouping the patterns of other rules.
// Children may be registered later; they are resolved at compile time.
func (r *Registry) AddIncludeOnly(name string, children ...pattern.RuleID) *IncludeOnlyRule {
	rule := &IncludeOnlyRule{
		id:       r.nextID(),
		name:     name,
		children: children,
	}
	r.register(rule)
	return rule
}

// AddBeginEnd registers a region rule. When applyEndPatternLast is set the
// end pattern has the lowest priority inside the region instead of the
// highest.
func (r *Registry) AddBeginEnd(name, begin, end string, applyEndPatternLast bool, children ...pattern.RuleID) *BeginEndRule {
	id := r.nextID()
	rule := &BeginEndRule{
		id:                  id,
		name:                name,
		begin:               r.config.Arena.Add(id, begin),
		end:                 r.config.Arena.Add(id, end),
		applyEndPatternLast: applyEndPatternLast,
		children:            children,
	}
	r.register(rule)
	return rule
}

func (r *Registry) collectChildren(children []pattern.RuleID, list *tmscan.List, visiting *ruleset.Set) {
	for _, id := range children {
		child := r.Rule(id)
		if child == nil {
			r.config.Logger.Debug("unknown rule reference", slog.Int("rule", int(id)))
			continue
		}
		child.collect(r, list, visiting)
	}
}

// MatchRule matches a single pattern.
type MatchRule struct {
	id    pattern.RuleID
	name  string
	match pattern.ID
	list  *tmscan.List
}

// ID implements Rule.
func (m *MatchRule) ID() pattern.RuleID { return m.id }

// Name implements Rule.
func (m *MatchRule) Name() string { return m.name }

func (m *MatchRule) collect(_ *Registry, list *tmscan.List, _ *ruleset.Set) {
	list.Push(m.match)
}

// Compile implements Rule.
func (m *MatchRule) Compile(reg *Registry, _ string, allowA, allowG bool) (*tmscan.CompiledRule, error) {
	if m.list == nil {
		m.list = reg.newList()
		m.collect(reg, m.list, nil)
	}
	return m.list.Compile(reg, allowA, allowG)
}

// IncludeOnlyRule contributes the patterns of its children.
type IncludeOnlyRule struct {
	id       pattern.RuleID
	name     string
	children []pattern.RuleID
	list     *tmscan.List
}

// ID implements Rule.
func (i *IncludeOnlyRule) ID() pattern.RuleID { return i.id }

// Name implements Rule.
func (i *IncludeOnlyRule) Name() string { return i.name }

// Include appends a child rule. It must be called before the first Compile.
func (i *IncludeOnlyRule) Include(id pattern.RuleID) {
	i.children = append(i.children, id)
}

func (i *IncludeOnlyRule) collect(reg *Registry, list *tmscan.List, visiting *ruleset.Set) {
	if !visiting.Insert(i.id) {
		reg.config.Logger.Debug("include cycle",
			slog.Int("rule", int(i.id)),
			slog.Any("path", visiting.Values()))
		return
	}
	reg.collectChildren(i.children, list, visiting)
	visiting.Remove(i.id)
}

// Compile implements Rule.
func (i *IncludeOnlyRule) Compile(reg *Registry, _ string, allowA, allowG bool) (*tmscan.CompiledRule, error) {
	if i.list == nil {
		i.list = reg.newList()
		i.collect(reg, i.list, reg.visiting())
	}
	return i.list.Compile(reg, allowA, allowG)
}

// BeginEndRule is a region delimited by a begin and an end pattern.
type BeginEndRule struct {
	id                  pattern.RuleID
	name                string
	begin               pattern.ID
	end                 pattern.ID
	applyEndPatternLast bool
	children            []pattern.RuleID
	list                *tmscan.List
}

// ID implements Rule.
func (b *BeginEndRule) ID() pattern.RuleID { return b.id }

// Name implements Rule.
func (b *BeginEndRule) Name() string { return b.name }

// Include appends a child rule. It must be called before the first Compile.
func (b *BeginEndRule) Include(id pattern.RuleID) {
	b.children = append(b.children, id)
}

// EndHasBackReferences reports whether the end pattern refers to captures
// of the begin match.
func (b *BeginEndRule) EndHasBackReferences(reg *Registry) bool {
	return reg.Arena().Get(b.end).HasBackReferences()
}

// ResolveEnd returns the end pattern with back-references replaced by the
// captures of the begin match on line.
func (b *BeginEndRule) ResolveEnd(reg *Registry, line string, captures []scanner.Range) string {
	return reg.Arena().Get(b.end).ResolveBackReferences(line, captures)
}

// The enclosing list only sees the begin pattern.
func (b *BeginEndRule) collect(_ *Registry, list *tmscan.List, _ *ruleset.Set) {
	list.Push(b.begin)
}

// Compile implements Rule. The end pattern is placed first (or last with
// applyEndPatternLast); when it has back-references endText replaces it.
func (b *BeginEndRule) Compile(reg *Registry, endText string, allowA, allowG bool) (*tmscan.CompiledRule, error) {
	if b.list == nil {
		b.list = reg.newList()
		reg.collectChildren(b.children, b.list, reg.visiting())

		// The list gets its own copy of the end pattern so rewriting it
		// for one region leaves the rule's end untouched.
		endCopy := reg.Arena().Add(b.id, reg.Arena().Get(b.end).Text())
		if b.applyEndPatternLast {
			b.list.Push(endCopy)
		} else {
			b.list.Unshift(endCopy)
		}
	}

	if b.EndHasBackReferences(reg) {
		index := 0
		if b.applyEndPatternLast {
			index = b.list.Len() - 1
		}
		if err := b.list.SetSource(index, endText); err != nil {
			return nil, fmt.Errorf("rule %d %q: %w", b.id, b.name, err)
		}
	}
	return b.list.Compile(reg, allowA, allowG)
}

package tmscan

import (
	"errors"
	"slices"
	"testing"

	"github.com/coregx/tmscan/pattern"
	"github.com/coregx/tmscan/scanner"
)

// recordingFactory records every pattern list it compiles and fails for
// patterns listed in fail.
type recordingFactory struct {
	calls [][]string
	fail  map[string]error
}

func (f *recordingFactory) NewScanner(_ scanner.Registry, patterns []string) (scanner.Scanner, error) {
	for i, p := range patterns {
		if err, ok := f.fail[p]; ok {
			return nil, scanner.InvalidPattern(i, p, err)
		}
	}
	f.calls = append(f.calls, slices.Clone(patterns))
	return &stubScanner{n: len(patterns)}, nil
}

func (f *recordingFactory) last() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type stubScanner struct{ n int }

func (s *stubScanner) FindNextMatch(*scanner.Line, int) (*scanner.Match, error) { return nil, nil }
func (s *stubScanner) NumPatterns() int { return s.n }

func newTestList(t *testing.T, texts ...string) (*List, *recordingFactory) {
	t.Helper()
	f := &recordingFactory{}
	l, err := New(Config{Factory: f})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for i, text := range texts {
		l.Push(l.Arena().Add(pattern.RuleID(i+1), text))
	}
	return l, f
}

func mustCompile(t *testing.T, l *List, allowA, allowG bool) *CompiledRule {
	t.Helper()
	c, err := l.Compile(nil, allowA, allowG)
	if err != nil {
		t.Fatalf("Compile(%v, %v) error: %v", allowA, allowG, err)
	}
	return c
}

func TestCompilePlainIsStable(t *testing.T) {
	l, f := newTestList(t, "foo", "bar")

	first := mustCompile(t, l, false, false)
	for _, s := range []AnchorState{A0G0, A0G1, A1G0, A1G1} {
		got := mustCompile(t, l, s.AllowA(), s.AllowG())
		if got != first {
			t.Errorf("Compile(%s) returned a different result without mutation", s)
		}
	}

	if len(f.calls) != 1 {
		t.Errorf("factory calls = %d, want 1", len(f.calls))
	}
	if first.State != Plain {
		t.Errorf("State = %s, want plain", first.State)
	}
	for _, s := range []AnchorState{A0G0, A0G1, A1G0, A1G1} {
		if l.Cached(s) != nil {
			t.Errorf("anchored slot %s populated for an anchor-free list", s)
		}
	}
}

func TestCompileAnchorStatesAreIndependent(t *testing.T) {
	l, f := newTestList(t, `\Gfoo`, "bar")

	a1g0 := mustCompile(t, l, true, false)
	if got := l.Cached(A0G1); got != nil {
		t.Fatalf("compiling A1_G0 populated A0_G1")
	}
	a0g1 := mustCompile(t, l, false, true)

	if a1g0 == a0g1 {
		t.Errorf("A1_G0 and A0_G1 share a compiled result")
	}
	if l.Cached(A1G0) != a1g0 {
		t.Errorf("compiling A0_G1 altered the A1_G0 slot")
	}
	if l.Cached(A0G0) != nil || l.Cached(A1G1) != nil || l.Cached(Plain) != nil {
		t.Errorf("unrequested slots were populated")
	}

	if again := mustCompile(t, l, true, false); again != a1g0 {
		t.Errorf("second A1_G0 compile did not hit the cache")
	}
	if len(f.calls) != 2 {
		t.Errorf("factory calls = %d, want 2", len(f.calls))
	}
}

func TestSetSourceInvalidatesEverySlot(t *testing.T) {
	t.Run("anchored", func(t *testing.T) {
		l, f := newTestList(t, `\Gfoo`, "bar")
		if err := l.CompileAll(nil); err != nil {
			t.Fatalf("CompileAll() error: %v", err)
		}
		before := map[AnchorState]*CompiledRule{}
		for _, s := range []AnchorState{A0G0, A0G1, A1G0, A1G1} {
			before[s] = l.Cached(s)
		}
		if len(f.calls) != 4 {
			t.Fatalf("factory calls = %d, want 4", len(f.calls))
		}

		if err := l.SetSource(1, `\Abaz`); err != nil {
			t.Fatalf("SetSource() error: %v", err)
		}
		for s := Plain; s < numStates; s++ {
			if l.Cached(s) != nil {
				t.Errorf("slot %s survived SetSource", s)
			}
		}

		for s, old := range before {
			got := mustCompile(t, l, s.AllowA(), s.AllowG())
			if got == old {
				t.Errorf("Compile(%s) returned a result from before the mutation", s)
			}
			if slices.Contains(f.last(), "bar") {
				t.Errorf("Compile(%s) used stale text: %q", s, f.last())
			}
		}
		if len(f.calls) != 8 {
			t.Errorf("factory calls = %d, want 8", len(f.calls))
		}
	})

	t.Run("plain", func(t *testing.T) {
		l, f := newTestList(t, "foo")
		old := mustCompile(t, l, false, false)

		if err := l.SetSource(0, "bar"); err != nil {
			t.Fatalf("SetSource() error: %v", err)
		}
		got := mustCompile(t, l, false, false)
		if got == old {
			t.Errorf("plain slot not recompiled after SetSource")
		}
		if want := []string{"bar"}; !slices.Equal(f.last(), want) {
			t.Errorf("compiled %q, want %q", f.last(), want)
		}
	})
}

func TestSetSourceSameTextKeepsCache(t *testing.T) {
	l, f := newTestList(t, `\Gfoo`, "bar")
	warm := mustCompile(t, l, false, true)

	if err := l.SetSource(0, `\Gfoo`); err != nil {
		t.Fatalf("SetSource() error: %v", err)
	}
	if got := mustCompile(t, l, false, true); got != warm {
		t.Errorf("identical SetSource dropped the cache")
	}
	if len(f.calls) != 1 {
		t.Errorf("factory calls = %d, want 1", len(f.calls))
	}
	if st := l.Stats(); st.Invalidations != 0 {
		t.Errorf("Invalidations = %d, want 0", st.Invalidations)
	}
}

func TestOrderPreservation(t *testing.T) {
	f := &recordingFactory{}
	l, err := New(Config{Factory: f})
	if err != nil {
		t.Fatal(err)
	}
	arena := l.Arena()
	l.Push(arena.Add(10, "a"))
	l.Push(arena.Add(20, "b"))
	l.Push(arena.Add(30, "c"))
	l.Unshift(arena.Add(40, "d"))

	c := mustCompile(t, l, false, false)

	if want := []pattern.RuleID{40, 10, 20, 30}; !slices.Equal(c.RuleIDs, want) {
		t.Errorf("RuleIDs = %v, want %v", c.RuleIDs, want)
	}
	if want := []string{"d", "a", "b", "c"}; !slices.Equal(f.last(), want) {
		t.Errorf("patterns = %q, want %q", f.last(), want)
	}
	if got := c.RuleID(0); got != 40 {
		t.Errorf("RuleID(0) = %d, want 40", got)
	}
}

func TestAnchorResolutionLeavesAnchorFreeItems(t *testing.T) {
	l, f := newTestList(t, "foo", `\Gbar`)

	mustCompile(t, l, true, true)
	all := f.last()
	mustCompile(t, l, false, false)
	none := f.last()

	if all[0] != "foo" || none[0] != "foo" {
		t.Errorf("anchor-free item rewritten: %q / %q", all[0], none[0])
	}
	if all[1] == none[1] {
		t.Errorf("anchored item identical across states: %q", all[1])
	}
	if all[1] != `\Gbar` {
		t.Errorf("allowed \\G rewritten: %q", all[1])
	}
	if want := pattern.Impossible + "bar"; none[1] != want {
		t.Errorf("disallowed \\G = %q, want %q", none[1], want)
	}
}

func TestCompileErrorLeavesSlotEmpty(t *testing.T) {
	l, f := newTestList(t, "ok", "(")
	f.fail = map[string]error{"(": errors.New("missing closing )")}

	_, err := l.Compile(nil, false, false)
	if err == nil {
		t.Fatal("Compile() succeeded with an invalid pattern")
	}

	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %T is not *CompileError", err)
	}
	if cerr.Index != 1 || cerr.RuleID != 2 || cerr.Pattern != "(" {
		t.Errorf("CompileError = {Index: %d, RuleID: %d, Pattern: %q}, want {1, 2, \"(\"}",
			cerr.Index, cerr.RuleID, cerr.Pattern)
	}
	if !errors.Is(err, scanner.ErrInvalidPattern) {
		t.Errorf("errors.Is(err, ErrInvalidPattern) = false for %v", err)
	}
	if l.Cached(Plain) != nil {
		t.Errorf("failed compile poisoned the plain slot")
	}

	if err := l.SetSource(1, `\(`); err != nil {
		t.Fatalf("SetSource() error: %v", err)
	}
	c := mustCompile(t, l, false, false)
	if c == nil || l.Cached(Plain) != c {
		t.Errorf("retry after fix did not populate the slot")
	}
	if st := l.Stats(); st.CompileErrors != 1 || st.Compiles != 1 {
		t.Errorf("Stats = %+v, want 1 error and 1 compile", st)
	}
}

func TestSetSourceOutOfRange(t *testing.T) {
	l, _ := newTestList(t, "a", "b")

	for _, index := range []int{-1, 2, 100} {
		err := l.SetSource(index, "x")
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SetSource(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
	if got := l.Sources(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Sources() = %q after failed SetSource", got)
	}
}

func TestPushAndUnshiftBustCache(t *testing.T) {
	l, f := newTestList(t, "a")
	old := mustCompile(t, l, false, false)

	l.Push(l.Arena().Add(2, "b"))
	c := mustCompile(t, l, false, false)
	if c == old || len(c.RuleIDs) != 2 {
		t.Fatalf("Push did not invalidate the plain slot")
	}

	l.Unshift(l.Arena().Add(3, `\Ac`))
	if !l.HasAnchors() {
		t.Fatalf("HasAnchors() = false after unshifting an anchored source")
	}
	c = mustCompile(t, l, true, false)
	if want := []string{`\Ac`, "a", "b"}; !slices.Equal(f.last(), want) {
		t.Errorf("patterns = %q, want %q", f.last(), want)
	}
	if want := []pattern.RuleID{3, 1, 2}; !slices.Equal(c.RuleIDs, want) {
		t.Errorf("RuleIDs = %v, want %v", c.RuleIDs, want)
	}
}

func TestArenaMutationIsDetected(t *testing.T) {
	l, f := newTestList(t, "foo")
	old := mustCompile(t, l, false, false)

	src, err := l.Source(0)
	if err != nil {
		t.Fatal(err)
	}
	src.SetText(`\Gqux`)

	c := mustCompile(t, l, false, true)
	if c == old {
		t.Fatalf("mutation through the arena returned a stale scanner")
	}
	if !l.HasAnchors() {
		t.Errorf("HasAnchors() not recomputed after arena mutation")
	}
	if want := []string{`\Gqux`}; !slices.Equal(f.last(), want) {
		t.Errorf("patterns = %q, want %q", f.last(), want)
	}
}

func TestUnrelatedArenaMutationKeepsCache(t *testing.T) {
	l, f := newTestList(t, "foo")
	other := l.Arena().Add(9, "bar")
	old := mustCompile(t, l, false, false)

	l.Arena().Get(other).SetText("qux")
	if c := mustCompile(t, l, false, false); c != old {
		t.Errorf("change to a source outside the list dropped the cache")
	}
	if len(f.calls) != 1 {
		t.Errorf("factory calls = %d, want 1", len(f.calls))
	}
	if got := l.Stats().Invalidations; got != 0 {
		t.Errorf("Invalidations = %d, want 0", got)
	}
}

func TestSetSourceRecomputesAnchors(t *testing.T) {
	l, f := newTestList(t, `\Gfoo`)
	if !l.HasAnchors() {
		t.Fatal("HasAnchors() = false")
	}

	if err := l.SetSource(0, "foo"); err != nil {
		t.Fatal(err)
	}
	if l.HasAnchors() {
		t.Errorf("HasAnchors() = true after removing the only anchor")
	}
	c := mustCompile(t, l, true, true)
	if c.State != Plain {
		t.Errorf("State = %s, want plain", c.State)
	}
	if len(f.calls) != 1 {
		t.Errorf("factory calls = %d, want 1", len(f.calls))
	}
}

func TestCompileAllJoinsErrors(t *testing.T) {
	l, f := newTestList(t, `\Ax`, `\G(`)
	f.fail = map[string]error{
		`\G(`:                    errors.New("bad"),
		pattern.Impossible + "(": errors.New("bad"),
	}

	err := l.CompileAll(nil)
	if err == nil {
		t.Fatal("CompileAll() succeeded")
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %T does not contain *CompileError", err)
	}
	if cerr.Index != 1 {
		t.Errorf("Index = %d, want 1", cerr.Index)
	}
	for s := Plain; s < numStates; s++ {
		if l.Cached(s) != nil {
			t.Errorf("slot %s populated despite failure", s)
		}
	}
}

func TestStats(t *testing.T) {
	l, _ := newTestList(t, "a")
	mustCompile(t, l, false, false)
	mustCompile(t, l, false, false)
	mustCompile(t, l, true, true)
	if err := l.SetSource(0, "b"); err != nil {
		t.Fatal(err)
	}

	want := Stats{Compiles: 1, CacheHits: 2, Invalidations: 1}
	if got := l.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	l.ResetStats()
	if got := l.Stats(); got != (Stats{}) {
		t.Errorf("Stats() after reset = %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{})
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "Factory" {
		t.Errorf("New(Config{}) error = %v, want ConfigError on Factory", err)
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestStateFor(t *testing.T) {
	tests := []struct {
		allowA, allowG bool
		want           AnchorState
	}{
		{false, false, A0G0},
		{false, true, A0G1},
		{true, false, A1G0},
		{true, true, A1G1},
	}
	for _, tt := range tests {
		got := StateFor(tt.allowA, tt.allowG)
		if got != tt.want {
			t.Errorf("StateFor(%v, %v) = %s, want %s", tt.allowA, tt.allowG, got, tt.want)
		}
		if got.AllowA() != tt.allowA || got.AllowG() != tt.allowG {
			t.Errorf("%s round-trips to (%v, %v)", got, got.AllowA(), got.AllowG())
		}
	}
}

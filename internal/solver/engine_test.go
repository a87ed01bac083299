package solver

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ibis/internal/solution"
)

// =============================================================================
// Planning scenarios
// =============================================================================

func TestSolve_CapabilityCombinations(t *testing.T) {
	b := newProblem(t).planning().
		capability("write", "read").
		node("p_a", "a", "write", "Unit").
		node("p_b", "b", "write", "Unit").
		node("p_c", "c", "write", "Unit").
		node("p_out", "out", "read", "Unit")

	res := b.solve(nil)

	var sources []string
	for _, r := range res.Reports {
		var names []string
		for _, e := range r.Edges {
			names = append(names, b.in.String(e.From))
		}
		sort.Strings(names)
		sources = append(sources, strings.Join(names, ""))
	}
	sort.Strings(sources)
	assert.Equal(t, []string{"", "a", "ab", "abc", "ac", "b", "bc", "c"}, sources)
	assert.Equal(t, 8, res.NumUnchecked)
	assert.Equal(t, 8, res.NumValid)
	assert.Equal(t, 8, res.NumSelected)
}

func TestSolve_TwoNodeGraph(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char")

	res := b.solve(nil)

	assert.Equal(t, []string{"", "a -> b", "a -> b, b -> a", "b -> a"}, b.solutionStrings(res))
}

func TestSolve_TypedEdges(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char").
		node("p_c", "c", "any", "Int")

	res := b.solve(nil)

	assert.Equal(t, []string{"", "a -> b", "a -> b, b -> a", "b -> a"}, b.solutionStrings(res))
}

func TestSolve_AllDirectedGraphsOnFourNodes(t *testing.T) {
	if testing.Short() {
		t.Skip("enumerates 4096 solutions")
	}
	b := newProblem(t).planning().capability("any", "any")
	for _, n := range []string{"a", "b", "c", "d"} {
		b.node("p_"+n, n, "any", "Char")
	}

	res := b.solve(nil)

	assert.Equal(t, 4096, res.NumSelected)
	assert.Equal(t, 4096, b.store.Count())
}

func TestSolve_TransitiveSubtypingWithZeroLoss(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		subtype("plato", "man").
		subtype("socretes", "man").
		subtype("man", "mortal").
		node("p_a", "socretes", "any", "socretes").
		node("p_b", "plato", "any", "plato").
		node("p_c", "man", "any", "man").
		node("p_out", "mortal", "any", "mortal")

	res := b.solve(intPtr(0))

	assert.Equal(t,
		[]string{"man -> mortal, plato -> man, plato -> mortal, socretes -> man, socretes -> mortal"},
		b.solutionStrings(res))
	assert.Equal(t, 32, res.NumUnchecked)
}

func TestSolve_Loss(t *testing.T) {
	build := func() *problemBuilder {
		return newProblem(t).planning().
			capability("any", "any").
			node("p_a", "a", "any", "Char").
			node("p_b", "b", "any", "Char")
	}

	tests := []struct {
		name string
		loss *int
		want int
	}{
		{"no loss filter", nil, 4},
		{"maximal only", intPtr(0), 1},
		{"one edge short", intPtr(1), 3},
		{"loss beyond max keeps all", intPtr(10), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := build().solve(tt.loss)
			assert.Equal(t, tt.want, res.NumSelected)
			assert.Equal(t, 4, res.NumUnchecked)
		})
	}
}

// =============================================================================
// Claims, checks and trust
// =============================================================================

func TestSolve_ChecksAndClaims(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		subtype("Int", "Number").
		subtype("Int", "Serializable").
		subtype("String", "Serializable").
		subtype("Number", "Or(Number, String)").
		subtype("String", "Or(Number, String)").
		lessPrivate("public", "private").
		trust("b", "private").
		claim("a", "private").
		check("e", "public").
		check("d", "public").
		node("p_a", "a", "any", "Int").
		node("p_b", "b", "any", "Number").
		node("p_c", "c", "any", "String").
		node("p_de", "d", "any", "Serializable").
		node("p_de", "e", "any", "Or(Number, String)")

	res := b.solve(nil)

	want := []string{
		"",
		"a -> b",
		"a -> b, b -> e",
		"a -> b, b -> e, c -> d",
		"a -> b, b -> e, c -> d, c -> e",
		"a -> b, b -> e, c -> e",
		"a -> b, c -> d",
		"a -> b, c -> d, c -> e",
		"a -> b, c -> e",
		"b -> e",
		"b -> e, c -> d",
		"b -> e, c -> d, c -> e",
		"b -> e, c -> e",
		"c -> d",
		"c -> d, c -> e",
		"c -> e",
	}
	if diff := cmp.Diff(want, b.solutionStrings(res)); diff != "" {
		t.Errorf("solutions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 64, res.NumUnchecked)
	assert.Equal(t, 16, res.NumValid)
}

func TestSolve_LeakDetected(t *testing.T) {
	b := newProblem(t).
		capability("any", "any").
		lessPrivate("public", "private").
		claim("a", "private").
		check("b", "public").
		node("p_a", "a", "any", "Data").
		node("p_b", "b", "any", "Data").
		seed([2]string{"a", "b"})

	res := b.solve(nil)

	require.Len(t, res.Reports, 1, "checking mode keeps invalid solutions")
	fb := res.Reports[0].Feedback
	assert.False(t, fb.Valid())
	assert.Equal(t, []Leak{{
		Node:     b.ent("b"),
		Expected: b.ent("public"),
		Source:   b.ent("a"),
		Found:    b.ent("private"),
	}}, fb.Leaks)
	assert.Contains(t, fb.HasTags, HasTag{Source: b.ent("a"), Node: b.ent("b"), Tag: b.ent("private")})
	assert.Equal(t, 0, res.NumValid)
}

func TestSolve_TrustStopsPropagation(t *testing.T) {
	b := newProblem(t).
		capability("any", "any").
		lessPrivate("public", "private").
		claim("a", "private").
		check("b", "public").
		check("c", "public").
		trust("b", "private").
		node("p_a", "a", "any", "Data").
		node("p_b", "b", "any", "Data").
		node("p_c", "c", "any", "Data").
		seed([2]string{"a", "b"}, [2]string{"b", "c"})

	res := b.solve(nil)

	require.Len(t, res.Reports, 1)
	fb := res.Reports[0].Feedback
	assert.True(t, fb.Valid())
	assert.Empty(t, fb.Leaks)
	assert.Equal(t, []HasTag{{Source: b.ent("a"), Node: b.ent("a"), Tag: b.ent("private")}}, fb.HasTags)
}

func TestSolve_TagsCrossParticleHandles(t *testing.T) {
	b := newProblem(t).
		capability("any", "any").
		lessPrivate("public", "private").
		claim("a", "private").
		check("e", "public").
		node("p_a", "a", "any", "Data").
		node("p_de", "d", "any", "Data").
		node("p_de", "e", "any", "Data").
		seed([2]string{"a", "d"})

	res := b.solve(nil)

	require.Len(t, res.Reports, 1)
	leaks := res.Reports[0].Feedback.Leaks
	require.Len(t, leaks, 1)
	assert.Equal(t, b.ent("e"), leaks[0].Node)
	assert.Equal(t, b.ent("a"), leaks[0].Source)
}

func TestSolve_PlanningRejectsLeaks(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		lessPrivate("public", "private").
		claim("a", "private").
		check("b", "public").
		node("p_a", "a", "any", "Data").
		node("p_b", "b", "any", "Data")

	res := b.solve(nil)

	assert.Equal(t, []string{"", "b -> a"}, b.solutionStrings(res))
	assert.Equal(t, 4, res.NumUnchecked)
	assert.Equal(t, 2, res.NumValid)
}

// =============================================================================
// Checking mode edge errors
// =============================================================================

func TestSolve_TypeAndCapabilityErrors(t *testing.T) {
	b := newProblem(t).
		capability("write", "read").
		subtype("Int", "Number").
		node("p_a", "a", "read", "Number").
		node("p_b", "b", "write", "Int").
		seed([2]string{"a", "b"})

	res := b.solve(nil)

	require.Len(t, res.Reports, 1)
	fb := res.Reports[0].Feedback
	assert.Equal(t, []TypeError{{
		From: b.ent("a"), FromType: b.ent("Number"),
		To: b.ent("b"), ToType: b.ent("Int"),
	}}, fb.TypeErrors)
	assert.Equal(t, []CapabilityError{{
		From: b.ent("a"), FromCap: b.ent("read"),
		To: b.ent("b"), ToCap: b.ent("write"),
	}}, fb.CapabilityErrors)
}

func TestSolve_CheckingKeepsSeedsAsGiven(t *testing.T) {
	b := newProblem(t).
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char").
		seed([2]string{"a", "b"}).
		seed([2]string{"a", "b"})

	res := b.solve(nil)

	assert.Equal(t, []string{"a -> b"}, b.solutionStrings(res))
	assert.Equal(t, 1, res.NumUnchecked)
}

func TestSolve_EmptyProblem(t *testing.T) {
	b := newProblem(t)

	res := b.solve(nil)

	require.Len(t, res.Reports, 1)
	assert.Equal(t, solution.Empty, res.Reports[0].Solution)
	assert.True(t, res.Reports[0].Feedback.Valid())
}

// =============================================================================
// Runtime errors
// =============================================================================

func TestSolve_UnknownNode(t *testing.T) {
	b := newProblem(t).
		node("p_a", "a", "any", "Char").
		seed([2]string{"a", "ghost"})

	_, err := b.engine().Solve(context.Background(), b.p, nil)
	require.Error(t, err)
	assert.True(t, IsUnknownNodeError(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestSolve_QuotaExceeded(t *testing.T) {
	b := newProblem(t).planning().capability("any", "any")
	for _, n := range []string{"a", "b", "c"} {
		b.node("p_"+n, n, "any", "Char")
	}

	_, err := b.engine(WithMaxSolutions(10)).Solve(context.Background(), b.p, nil)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}

func TestSolve_Cancelled(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.engine().Solve(ctx, b.p, nil)
	require.Error(t, err)
	assert.True(t, IsCancelledError(err))
}

func TestSolve_CyclicLabelsHitClosureLimit(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		subtype("T", "l: T").
		node("p_a", "a", "any", "T")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := b.engine(WithMaxTypes(128)).Solve(ctx, b.p, nil)
	require.Error(t, err)
	assert.True(t, IsClosureLimitError(err), "got %v", err)
}

func TestDedupeSorted(t *testing.T) {
	tests := []struct {
		name string
		in   []solution.ID
		want []solution.ID
	}{
		{"empty", nil, []solution.ID{}},
		{"single", []solution.ID{4}, []solution.ID{4}},
		{"descending with repeats", []solution.ID{9, 3, 9, 1, 3}, []solution.ID{1, 3, 9}},
		{"already sorted", []solution.ID{0, 1, 2}, []solution.ID{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedupeSorted(tt.in))
		})
	}
}

// =============================================================================
// Determinism, lineage and metrics
// =============================================================================

func TestSolve_ParallelMatchesSequential(t *testing.T) {
	build := func() *problemBuilder {
		return newProblem(t).planning().
			capability("any", "any").
			lessPrivate("public", "private").
			claim("a", "private").
			check("c", "public").
			node("p_a", "a", "any", "Char").
			node("p_b", "b", "any", "Char").
			node("p_c", "c", "any", "Char")
	}

	seq := build()
	par := build()
	resSeq := seq.solve(nil)
	resPar := par.solve(nil, WithParallelism(4))

	assert.Equal(t, seq.solutionStrings(resSeq), par.solutionStrings(resPar))
	require.Len(t, resPar.Reports, len(resSeq.Reports))
	for i := range resSeq.Reports {
		assert.Equal(t, resSeq.Reports[i].Solution, resPar.Reports[i].Solution)
		assert.Equal(t, resSeq.Reports[i].Feedback, resPar.Reports[i].Feedback)
	}
}

func TestSolve_Ancestors(t *testing.T) {
	b := newProblem(t).planning().
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char")

	res := b.solve(intPtr(0))

	require.Len(t, res.Reports, 1)
	full := res.Reports[0]
	assert.Len(t, full.Ancestors, 2, "both single-edge solutions lead to the full graph")
	for _, parent := range full.Ancestors {
		assert.Equal(t, 1, b.store.Len(parent))
	}
}

func TestSolve_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	b := newProblem(t).planning().
		capability("any", "any").
		node("p_a", "a", "any", "Char").
		node("p_b", "b", "any", "Char")

	b.solve(nil, WithMetrics(m))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.solves.WithLabelValues("planning", "ok")))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.solutions.WithLabelValues("unchecked")))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.solutions.WithLabelValues("selected")))
	assert.Greater(t, promtest.ToFloat64(m.closureTypes), 0.0)
}

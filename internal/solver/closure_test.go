package solver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ibis/internal/intern"
)

// =============================================================================
// Basic relations
// =============================================================================

func TestClosure_ReflexiveAndUniversal(t *testing.T) {
	b := newProblem(t)
	c := b.closure("Man", "List(Man)")

	for _, text := range []string{"Man", "List(Man)", "List"} {
		x := b.ent(text)
		assert.True(t, c.Known(x), text)
		assert.True(t, c.Subtype(x, x), "%s <= %s", text, text)
		assert.True(t, c.Subtype(x, b.ent("*")), "%s <= *", text)
	}
	assert.False(t, c.Subtype(b.ent("*"), b.ent("Man")))
}

func TestClosure_Transitive(t *testing.T) {
	b := newProblem(t).
		subtype("socrates", "man").
		subtype("man", "mortal")
	c := b.closure()

	assert.True(t, c.Subtype(b.ent("socrates"), b.ent("mortal")))
	assert.False(t, c.Subtype(b.ent("mortal"), b.ent("socrates")))
	assert.ElementsMatch(t,
		[]intern.Entity{b.ent("socrates"), b.ent("man")},
		c.Subtypes(b.ent("man")))
}

func TestClosure_SupertypesSorted(t *testing.T) {
	b := newProblem(t).
		subtype("Int", "Number").
		subtype("Int", "Serializable")
	c := b.closure()

	sup := c.Supertypes(b.ent("Int"))
	require.Len(t, sup, 4) // Int, Number, Serializable, *
	for i := 1; i < len(sup); i++ {
		assert.Less(t, sup[i-1], sup[i])
	}
}

// =============================================================================
// Products and unions
// =============================================================================

func TestClosure_ProductDuality(t *testing.T) {
	b := newProblem(t).
		subtype("Man", "Mortal").
		subtype("Man", "Human")
	c := b.closure("{Human, Mortal}")

	prod := b.ent("{Human, Mortal}")
	assert.True(t, c.Subtype(prod, b.ent("Human")))
	assert.True(t, c.Subtype(prod, b.ent("Mortal")))
	assert.True(t, c.Subtype(b.ent("Man"), prod), "meet of supertypes")
	assert.False(t, c.Subtype(prod, b.ent("Man")))
}

func TestClosure_ProductOfProducts(t *testing.T) {
	b := newProblem(t)
	c := b.closure(
		"ibis.ProductType(A, ibis.ProductType(B, C))",
		"ibis.ProductType(ibis.ProductType(A, C), B)",
	)

	abc := b.ent("ibis.ProductType(A, ibis.ProductType(B, C))")
	acb := b.ent("ibis.ProductType(ibis.ProductType(A, C), B)")
	assert.True(t, c.Subtype(abc, acb))
	assert.True(t, c.Subtype(acb, abc))
	assert.Equal(t, abc, b.ent("{A, B, C}"), "sugar nests to the right")
}

func TestClosure_UnionDuality(t *testing.T) {
	b := newProblem(t).
		subtype("TallMan", "Man").
		subtype("ShortMan", "Man")
	c := b.closure("ibis.UnionType(TallMan, ShortMan)")

	u := b.ent("ibis.UnionType(TallMan, ShortMan)")
	assert.True(t, c.Subtype(b.ent("TallMan"), u))
	assert.True(t, c.Subtype(b.ent("ShortMan"), u))
	assert.True(t, c.Subtype(u, b.ent("Man")), "join of subtypes")
	assert.False(t, c.Subtype(u, b.ent("TallMan")))
}

func TestClosure_UnionWithSupertype(t *testing.T) {
	b := newProblem(t).subtype("Man", "Mortal")
	c := b.closure("ibis.UnionType(Man, Mortal)")

	u := b.ent("ibis.UnionType(Man, Mortal)")
	assert.True(t, c.Subtype(b.ent("Man"), u))
	assert.False(t, c.Subtype(u, b.ent("Man")))
	assert.True(t, c.Subtype(u, b.ent("Mortal")))
}

// =============================================================================
// Labels and generics
// =============================================================================

func TestClosure_LabelledCovariance(t *testing.T) {
	b := newProblem(t).subtype("Man", "Mortal")
	c := b.closure("name: Man")

	labelled := b.ent("name: Man")
	assert.True(t, c.Subtype(labelled, b.ent("Man")))
	assert.True(t, c.Subtype(labelled, b.ent("name: Mortal")))
	assert.True(t, c.Subtype(labelled, b.ent("Mortal")))
	assert.False(t, c.Subtype(b.ent("Man"), labelled))
}

func TestClosure_GenericInstantiation(t *testing.T) {
	b := newProblem(t).
		subtype("Man", "Mortal").
		subtype("List", "Iterable").
		subtype("Iterable", "ibis.GenericType").
		subtype("Iterable", "ibis.InductiveType")
	c := b.closure("List(Man)", "List(Mortal)", "Iterable(Mortal)", "List(*)")

	listMan := b.ent("List(Man)")
	assert.True(t, c.Subtype(listMan, b.ent("List(Mortal)")))
	assert.True(t, c.Subtype(listMan, b.ent("Iterable(Mortal)")))
	assert.True(t, c.Subtype(listMan, b.ent("List(*)")))
	assert.False(t, c.Subtype(b.ent("List(*)"), listMan))
	assert.False(t, c.Subtype(b.ent("Iterable(Mortal)"), listMan))
}

func TestClosure_GenericsAreNotAbstractable(t *testing.T) {
	b := newProblem(t).
		subtype("Man", "Mortal").
		subtype("List", "Iterable").
		subtype("Iterable", "ibis.GenericType").
		subtype("Iterable", "ibis.InductiveType")
	c := b.closure("List(Man)", "List")

	assert.False(t, c.Subtype(b.ent("List(Man)"), b.ent("List")))
	assert.False(t, c.Subtype(b.ent("List"), b.ent("List(Man)")))
}

func TestClosure_NonGenericApplicationsNeedFacts(t *testing.T) {
	b := newProblem(t).
		subtype("Man", "Mortal").
		subtype("List", "Iterable")
	c := b.closure("List(Man)", "Iterable(Mortal)")

	assert.False(t, c.Subtype(b.ent("List(Man)"), b.ent("Iterable(Mortal)")))
}

// =============================================================================
// Bounds and stats
// =============================================================================

func TestClosure_LimitOnCyclicLabels(t *testing.T) {
	b := newProblem(t).subtype("T", "l: T")

	_, err := NewClosure(context.Background(), b.in, ClosureInput{Subtypes: b.p.Subtypes}, 64)
	require.Error(t, err)
	assert.True(t, IsClosureLimitError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "64", re.Details["max_types"])
}

func TestClosure_DefaultBoundStopsCyclicLabels(t *testing.T) {
	b := newProblem(t).subtype("T", "l: T")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	_, err := NewClosure(ctx, b.in, ClosureInput{Subtypes: b.p.Subtypes}, 0)
	require.Error(t, err)
	assert.True(t, IsClosureLimitError(err), "got %v", err)
	assert.False(t, IsCancelledError(err))
	assert.Less(t, time.Since(start), 10*time.Second)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, fmt.Sprintf("%d", DefaultMaxTypes), re.Details["max_types"])
}

func TestClosure_TypeBoundFiresMidRound(t *testing.T) {
	b := newProblem(t)

	// List(Man) is seeded; its head and argument join in the first round.
	_, err := NewClosure(context.Background(), b.in, ClosureInput{
		Types: []intern.Entity{b.ent("List(Man)")},
	}, 2)
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeClosureLimit, re.Code)
	assert.Equal(t, "3", re.Details["types"])
	assert.Equal(t, "2", re.Details["max_types"])
}

func TestClosure_Cancelled(t *testing.T) {
	tests := []struct {
		name string
		b    *problemBuilder
	}{
		{"acyclic", newProblem(t).subtype("A", "B")},
		{"cyclic labels", newProblem(t).subtype("T", "l: T")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := NewClosure(ctx, tt.b.in, ClosureInput{Subtypes: tt.b.p.Subtypes}, 0)
			require.Error(t, err)
			assert.True(t, IsCancelledError(err), "got %v", err)
		})
	}
}

func TestClosure_Stats(t *testing.T) {
	b := newProblem(t).subtype("A", "B")
	c := b.closure()

	stats := c.Stats()
	assert.Equal(t, 3, stats.Types) // A, B, *
	// A<=A, B<=B, *<=*, A<=B, A<=*, B<=*
	assert.Equal(t, 6, stats.Facts)
	assert.Greater(t, stats.Rounds, 0)
}

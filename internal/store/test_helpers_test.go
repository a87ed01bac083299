package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with two solutions, one of them leaking.
func createTestRun(id string) RunRecord {
	loss := 1
	return RunRecord{
		ID:            id,
		InputDigest:   "input-digest",
		Planning:      true,
		Loss:          &loss,
		NumUnchecked:  4,
		NumSolutions:  1,
		NumSelected:   2,
		Warnings:      []string{"Unknown flag 'x' set to: true"},
		SolverVersion: ir.SolverVersion,
		Solutions: []recipe.Recipe{
			{
				Digest: "sol-1",
				Edges:  []recipe.Pair{{A: "a", B: "b"}},
				Feedback: recipe.Feedback{
					HasTags: []recipe.HasTag{{Source: "a", Node: "a", Tag: "private"}},
				},
			},
			{
				Digest: "sol-2",
				Edges:  []recipe.Pair{{A: "a", B: "b"}, {A: "a", B: "c"}},
				Feedback: recipe.Feedback{
					HasTags: []recipe.HasTag{
						{Source: "a", Node: "a", Tag: "private"},
						{Source: "a", Node: "c", Tag: "private"},
					},
					Leaks:            []recipe.Leak{{Node: "c", Expected: "public", Source: "a", Found: "private"}},
					TypeErrors:       []recipe.TypeError{{From: "a", FromType: "Number", To: "c", ToType: "Int"}},
					CapabilityErrors: []recipe.CapabilityError{{From: "a", FromCap: "read", To: "c", ToCap: "write"}},
				},
			},
		},
	}
}

package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func sampleResult() *Result {
	r := NewResult()
	r.Solutions = []string{"", "a -> b", "a -> b, b -> c"}
	r.Leaks = []string{"c expects public but gets private from a"}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantFail  bool
	}{
		{"solutions exact", Assertion{Type: AssertSolutions, Solutions: []string{"b -> c,a->b", "a -> b", ""}}, false},
		{"solutions missing one", Assertion{Type: AssertSolutions, Solutions: []string{"", "a -> b"}}, true},
		{"solutions extra", Assertion{Type: AssertSolutions, Solutions: []string{"", "a -> b", "a -> b, b -> c", "c -> a"}}, true},
		{"solution count", Assertion{Type: AssertSolutionCount, Count: intPtr(3)}, false},
		{"solution count wrong", Assertion{Type: AssertSolutionCount, Count: intPtr(2)}, true},
		{"leak count", Assertion{Type: AssertLeakCount, Count: intPtr(1)}, false},
		{"leak count wrong", Assertion{Type: AssertLeakCount, Count: intPtr(0)}, true},
		{"contains", Assertion{Type: AssertContainsSolution, Solution: strPtr("b -> c, a -> b")}, false},
		{"contains empty", Assertion{Type: AssertContainsSolution, Solution: strPtr("")}, false},
		{"contains absent", Assertion{Type: AssertContainsSolution, Solution: strPtr("c -> a")}, true},
		{"unknown type", Assertion{Type: "final_state"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if tt.wantFail {
				assert.Len(t, errs, 1)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:      AssertSolutionCount,
		Expected:  "2 solutions",
		Actual:    "1 solutions",
		Solutions: []string{""},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: solution_count")
	assert.Contains(t, msg, "Expected: 2 solutions")
	assert.Contains(t, msg, "Actual: 1 solutions")
	assert.Contains(t, msg, "[1] (no edges)")
}

func TestNormalizeSolution(t *testing.T) {
	assert.Equal(t, "", normalizeSolution("  "))
	assert.Equal(t, "a -> b, b -> c", normalizeSolution("b->c ,  a ->b"))
}

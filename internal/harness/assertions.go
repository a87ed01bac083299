package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It carries the selected Solutions to help debug the failure.
type AssertionError struct {
	Type      string   // Assertion type for categorization
	Expected  string   // Human-readable expected outcome
	Actual    string   // Human-readable actual outcome
	Solutions []string // Selected Solutions for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSelected solutions:\n")
	for i, s := range e.Solutions {
		if s == "" {
			s = "(no edges)"
		}
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, s)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. An empty slice means all assertions passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSolutions:
			err = assertSolutions(result, a)
		case AssertSolutionCount:
			err = assertSolutionCount(result, a)
		case AssertLeakCount:
			err = assertLeakCount(result, a)
		case AssertContainsSolution:
			err = assertContainsSolution(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

// assertSolutions checks the selected Solutions are exactly the listed set.
// Edges inside each listed Solution may come in any order.
func assertSolutions(result *Result, a Assertion) error {
	want := make([]string, 0, len(a.Solutions))
	for _, s := range a.Solutions {
		want = append(want, normalizeSolution(s))
	}
	sort.Strings(want)

	if strings.Join(want, "\n") == strings.Join(result.Solutions, "\n") && len(want) == len(result.Solutions) {
		return nil
	}
	return &AssertionError{
		Type:      AssertSolutions,
		Expected:  quoteAll(want),
		Actual:    quoteAll(result.Solutions),
		Solutions: result.Solutions,
	}
}

func assertSolutionCount(result *Result, a Assertion) error {
	if len(result.Solutions) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:      AssertSolutionCount,
		Expected:  fmt.Sprintf("%d solutions", *a.Count),
		Actual:    fmt.Sprintf("%d solutions", len(result.Solutions)),
		Solutions: result.Solutions,
	}
}

func assertLeakCount(result *Result, a Assertion) error {
	if len(result.Leaks) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:      AssertLeakCount,
		Expected:  fmt.Sprintf("%d leaks", *a.Count),
		Actual:    fmt.Sprintf("%d leaks %s", len(result.Leaks), quoteAll(result.Leaks)),
		Solutions: result.Solutions,
	}
}

func assertContainsSolution(result *Result, a Assertion) error {
	want := normalizeSolution(*a.Solution)
	for _, s := range result.Solutions {
		if s == want {
			return nil
		}
	}
	return &AssertionError{
		Type:      AssertContainsSolution,
		Expected:  fmt.Sprintf("solution %q", want),
		Actual:    "not among the selected solutions",
		Solutions: result.Solutions,
	}
}

// normalizeSolution sorts the edges of a joined edge string and collapses
// whitespace around arrows.
func normalizeSolution(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	parts := strings.Split(s, ",")
	edges := make([]string, 0, len(parts))
	for _, p := range parts {
		from, to, ok := strings.Cut(p, "->")
		if !ok {
			edges = append(edges, strings.TrimSpace(p))
			continue
		}
		edges = append(edges, strings.TrimSpace(from)+" -> "+strings.TrimSpace(to))
	}
	sort.Strings(edges)
	return strings.Join(edges, ", ")
}

func quoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

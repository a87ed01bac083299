package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ibis/internal/ir"
)

// Snapshot captures the archived outcome of a scenario.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	NumUnchecked int
	NumSolutions int
	NumSelected  int
	Solutions    []string
	Leaks        []string
	Warnings     []string
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		NumUnchecked: result.NumUnchecked,
		NumSolutions: result.NumSolutions,
		NumSelected:  result.NumSelected,
		Solutions:    result.Solutions,
		Leaks:        result.Leaks,
		Warnings:     result.Warnings,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only handles maps, slices and primitives.
func (s Snapshot) toCanonicalMap() map[string]any {
	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"num_unchecked": s.NumUnchecked,
		"num_solutions": s.NumSolutions,
		"num_selected":  s.NumSelected,
		"solutions":     nonNil(s.Solutions),
		"leaks":         nonNil(s.Leaks),
	}
	if len(s.Warnings) > 0 {
		m["warnings"] = s.Warnings
	}
	return m
}

// MarshalCanonical renders the snapshot as golden file content.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

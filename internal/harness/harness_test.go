package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../../testdata/scenarios"

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Scenario files
// =============================================================================

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join(scenarioDir, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{
		"create_edges",
		"checking_reports_leaks",
		"tagged_type_checked_graphs",
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, loadTestScenario(t, name)))
		})
	}
}

// =============================================================================
// Run
// =============================================================================

func TestRun_ArchivesRun(t *testing.T) {
	result, err := Run(loadTestScenario(t, "checking_reports_leaks"))
	require.NoError(t, err)

	assert.Equal(t, "scenario-0001", result.RunID)
	assert.Equal(t, 1, result.NumUnchecked)
	assert.Equal(t, 0, result.NumSolutions)
	assert.Equal(t, 1, result.NumSelected)
	assert.Equal(t, []string{"b expects public but gets private from a"}, result.Leaks)
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s := loadTestScenario(t, "create_edges")
	s.Assertions = []Assertion{{Type: AssertSolutionCount, Count: intPtr(1)}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "4 solutions")
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "tagged_type_checked_graphs")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_WarningsReachArchive(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: warn
description: "unknown flags are archived as warnings"
input:
  flags:
    mystery: 3
assertions:
  - type: solutions
    solutions: [""]
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"Unknown flag 'mystery' set to: 3"}, result.Warnings)
}

func TestRun_SolveError(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: broken
description: "edges must name declared nodes"
input:
  recipes:
    - edges: [[a, ghost]]
assertions:
  - type: solution_count
    count: 0
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to solve")
}

// =============================================================================
// Snapshots
// =============================================================================

func TestSnapshot_Canonical(t *testing.T) {
	r := NewResult()
	r.NumUnchecked = 2
	r.Solutions = []string{"a -> b"}

	data, err := NewSnapshot("s", r).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"leaks":[],"num_selected":0,"num_solutions":0,"num_unchecked":2,"scenario_name":"s","solutions":["a -> b"]}`,
		string(data))

	r.Warnings = []string{"w"}
	data, err = NewSnapshot("s", r).MarshalCanonical()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"warnings":["w"]`)
}

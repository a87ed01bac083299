package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/store"
	"github.com/roach88/ibis/internal/testutil"
)

// Harness solves scenarios and archives each run in its own store.
type Harness struct {
	store  *store.Store
	runIDs store.RunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory archive with sequential run IDs,
// so results are reproducible.
//
// Execution flow:
// 1. Decode the scenario's recipe document
// 2. Solve it with the scenario's loss and planning overrides
// 3. Archive the run and read it back
// 4. Evaluate assertions against the archived run
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewSequentialRunIDGenerator("scenario"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := scenario.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}

	out, err := recipe.Solve(ctx, doc, recipe.Options{
		Loss:     scenario.Loss,
		Planning: scenario.Planning,
		Logger:   h.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to solve: %w", err)
	}

	planning := doc.Flags.Planning()
	if scenario.Planning != nil {
		planning = *scenario.Planning
	}
	rec, err := store.NewRunRecord(h.runIDs.Generate(), doc, out, planning, scenario.Loss)
	if err != nil {
		return nil, fmt.Errorf("failed to build run record: %w", err)
	}
	if _, err := h.store.WriteRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to archive run: %w", err)
	}
	archived, err := h.store.ReadRun(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived run: %w", err)
	}

	result := resultFromRun(archived)
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// resultFromRun renders an archived run.
func resultFromRun(run store.RunRecord) *Result {
	result := NewResult()
	result.RunID = run.ID
	result.NumUnchecked = run.NumUnchecked
	result.NumSolutions = run.NumSolutions
	result.NumSelected = run.NumSelected
	result.Warnings = run.Warnings

	for _, sol := range run.Solutions {
		result.Solutions = append(result.Solutions, strings.Join(recipe.EdgeStrings(sol), ", "))
		for _, l := range sol.Leaks {
			result.Leaks = append(result.Leaks, formatLeak(l))
		}
	}
	sort.Strings(result.Solutions)
	sort.Strings(result.Leaks)
	return result
}

func formatLeak(l recipe.Leak) string {
	return fmt.Sprintf("%s expects %s but gets %s from %s", l.Node, l.Expected, l.Found, l.Source)
}

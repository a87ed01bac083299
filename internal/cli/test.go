package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ibis/internal/harness"
)

// Golden file states reported per scenario.
const (
	GoldenNone     = "none"
	GoldenMatched  = "matched"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool
	Filter   string
	Parallel int
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name" yaml:"name"`
	File   string   `json:"file" yaml:"file"`
	Pass   bool     `json:"pass" yaml:"pass"`
	Golden string   `json:"golden" yaml:"golden"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// TestResult summarizes a scenario directory.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios" yaml:"scenarios"`
	Passed    int              `json:"passed" yaml:"passed"`
	Failed    int              `json:"failed" yaml:"failed"`
	Total     int              `json:"total" yaml:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run solve scenarios",
		Long: `Run every scenario file (*.yaml, *.yml) below a directory.

A scenario names a recipe document, solve options and assertions on the
selected solutions. When golden/<name>.golden exists next to a scenario,
the run's snapshot must reproduce it byte for byte; --update rewrites it.

Exit status is 0 when every scenario passes, 1 when any fails and 2 when
the directory cannot be read.

Examples:
  ibis test ./testdata/scenarios
  ibis test ./testdata/scenarios --filter 'tagged_*'
  ibis test ./testdata/scenarios --update --parallel 4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files from the current results")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "scenarios run at once")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Parallel < 1 {
		return invalidFlag(formatter, fmt.Sprintf("--parallel must be at least 1, got %d", opts.Parallel))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	results := make([]ScenarioResult, len(files))
	var g errgroup.Group
	g.SetLimit(opts.Parallel)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = runScenario(file, opts.Update)
			return nil
		})
	}
	_ = g.Wait()

	summary := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if formatter.Structured() {
		return outputTestStructured(formatter, summary)
	}
	return outputTestText(formatter, summary)
}

// findScenarioFiles lists scenario files below dir in lexical order. A
// non-empty filter is matched against the file name without extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario loads, runs and snapshots one scenario file.
func runScenario(file string, update bool) ScenarioResult {
	out := ScenarioResult{Name: filepath.Base(file), File: file, Golden: GoldenNone}
	fail := func(format string, args ...any) ScenarioResult {
		out.Errors = append(out.Errors, fmt.Sprintf(format, args...))
		return out
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	out.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	snapshot, err := harness.NewSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		return fail("failed to snapshot result: %v", err)
	}

	out.Errors = result.Errors
	golden := goldenFilePath(file)
	switch want, err := os.ReadFile(golden); {
	case update:
		if err := writeGoldenFile(golden, snapshot); err != nil {
			return fail("failed to update golden file: %v", err)
		}
		out.Golden = GoldenUpdated
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fail("failed to read golden file: %v", err)
	case bytes.Equal(want, snapshot):
		out.Golden = GoldenMatched
	default:
		out.Golden = GoldenMismatch
		out.Errors = append(out.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}

	out.Pass = len(out.Errors) == 0
	return out
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(filepath.Dir(file), "golden", name+".golden")
}

func writeGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

func outputTestStructured(formatter *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total),
		}
	}
	if err := formatter.Respond(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, r := range result.Scenarios {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s", mark, r.Name)
		if r.Golden != GoldenNone {
			fmt.Fprintf(w, " (golden %s)", r.Golden)
		}
		fmt.Fprintln(w)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
		formatter.VerboseLog("%s: %s", r.Name, r.File)
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

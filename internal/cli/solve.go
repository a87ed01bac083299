package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/solver"
	"github.com/roach88/ibis/internal/store"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	InputFormat  string
	Loss         int
	All          bool
	Planning     bool
	Ancestors    bool
	Archive      string
	MaxSolutions int
	Parallel     int
	MetricsFile  string
	Out          string

	// RunIDs allows overriding the archive run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// SolveOutput is the structured payload of a solve.
type SolveOutput struct {
	Solutions []string         `json:"solutions" yaml:"solutions"`
	Document  *recipe.Document `json:"document" yaml:"document"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve [document]",
		Short: "Check a recipe or explore its solutions",
		Long: `Solve a recipe document.

In checking mode every recipe's edges are analyzed as given. In planning
mode ibis also proposes every type- and capability-correct edge and keeps
the graphs without leaks or errors. By default only the best solutions
(those with the most edges) are reported; --loss widens the selection and
--all reports every solution.

The document is read from a .json, .yaml or .cue file, a CUE package
directory, or stdin ("-", JSON unless --input-format says otherwise).

Examples:
  ibis solve recipe.json
  ibis solve recipe.cue --planning --all
  cat recipe.yaml | ibis solve - --input-format yaml --format json
  ibis solve recipe.json --archive ./runs.db --out solved.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := stdinPath
			if len(args) == 1 {
				path = args[0]
			}
			return runSolve(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "document format (json|yaml|cue), default by extension")
	cmd.Flags().IntVar(&opts.Loss, "loss", 0, "keep solutions within this many edges of the largest")
	cmd.Flags().BoolVar(&opts.All, "all", false, "report every solution regardless of size")
	cmd.Flags().BoolVar(&opts.Planning, "planning", false, "override the document's planning flag")
	cmd.Flags().BoolVar(&opts.Ancestors, "ancestors", false, "report the solutions each solution was built from")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "record the run in this SQLite archive")
	cmd.Flags().IntVar(&opts.MaxSolutions, "max-solutions", 0, "fail when planning produces more solutions (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", solver.DefaultParallelism, "goroutines analyzing solutions")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write solver metrics in Prometheus text format")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the solved document to this file (format by extension)")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Loss < 0 {
		return invalidFlag(formatter, fmt.Sprintf("--loss must be non-negative, got %d", opts.Loss))
	}
	if opts.Parallel < 1 {
		return invalidFlag(formatter, fmt.Sprintf("--parallel must be at least 1, got %d", opts.Parallel))
	}

	doc, err := readDocument(path, opts.InputFormat, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read document", err)
	}
	formatter.VerboseLog("Loaded %d recipe(s) from %s", len(doc.Recipes), path)

	var loss *int
	if !opts.All {
		loss = &opts.Loss
	}
	planning := doc.Flags.Planning()
	var planningOverride *bool
	if cmd.Flags().Changed("planning") {
		planning = opts.Planning
		planningOverride = &opts.Planning
	}

	engineOpts := []solver.EngineOption{solver.WithParallelism(opts.Parallel)}
	if opts.MaxSolutions > 0 {
		engineOpts = append(engineOpts, solver.WithMaxSolutions(opts.MaxSolutions))
	}
	var registry *prometheus.Registry
	if opts.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		engineOpts = append(engineOpts, solver.WithMetrics(solver.NewMetrics(registry)))
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, solveErr := recipe.Solve(ctx, doc, recipe.Options{
		Loss:      loss,
		Planning:  planningOverride,
		Ancestors: opts.Ancestors,
		Logger:    logger,
		Engine:    engineOpts,
	})

	// Metrics cover failed solves too.
	if registry != nil {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			logger.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}
	if solveErr != nil {
		return formatter.Fail(ExitFailure, "solve failed", solveErr)
	}

	var runID string
	if opts.Archive != "" {
		if runID, err = archiveRun(ctx, opts, doc, out, planning, loss); err != nil {
			return formatter.Fail(ExitCommandError, "failed to archive run", err)
		}
		logger.Info("run archived", "run_id", runID, "archive", opts.Archive)
	}

	if opts.Out != "" {
		if err := writeDocument(out, opts.Out); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": writing output file", err)
		}
	}

	return outputSolve(formatter, out, runID, opts.Out)
}

func invalidFlag(formatter *OutputFormatter, message string) error {
	_ = formatter.Error(ErrCodeInvalidFlag, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeInvalidFlag, message))
}

func archiveRun(ctx context.Context, opts *SolveOptions, in, out *recipe.Document, planning bool, loss *int) (string, error) {
	st, err := store.Open(opts.Archive)
	if err != nil {
		return "", err
	}
	defer st.Close()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = store.UUIDv7Generator{}
	}
	rec, err := store.NewRunRecord(runIDs.Generate(), in, out, planning, loss)
	if err != nil {
		return "", err
	}
	if _, err := st.WriteRun(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// writeDocument encodes doc in the format named by path's extension.
func writeDocument(doc *recipe.Document, path string) error {
	format, err := recipe.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := recipe.Encode(doc, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func outputSolve(formatter *OutputFormatter, out *recipe.Document, runID, outFile string) error {
	if formatter.Structured() {
		return formatter.Respond(CLIResponse{
			Status: "ok",
			Data:   SolveOutput{Solutions: recipe.Solutions(out), Document: out},
			RunID:  runID,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %d unchecked, %d valid, %d selected\n",
		out.NumUnchecked, out.NumSolutions, out.NumSelected)
	for _, warning := range out.Warnings {
		fmt.Fprintf(w, "! %s\n", warning)
	}
	fmt.Fprintln(w)

	for i, r := range out.Recipes {
		edges := strings.Join(recipe.EdgeStrings(r), ", ")
		if edges == "" {
			edges = "(no edges)"
		}
		mark := "✓"
		if !r.Valid() {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s Solution %d: %s\n", mark, i+1, edges)
		for _, l := range r.Leaks {
			fmt.Fprintf(w, "    leak: %s expects %s but gets %s from %s\n", l.Node, l.Expected, l.Found, l.Source)
		}
		for _, e := range r.TypeErrors {
			fmt.Fprintf(w, "    type error: %s (%s) -> %s (%s)\n", e.From, e.FromType, e.To, e.ToType)
		}
		for _, e := range r.CapabilityErrors {
			fmt.Fprintf(w, "    capability error: %s (%s) -> %s (%s)\n", e.From, e.FromCap, e.To, e.ToCap)
		}
	}

	if runID != "" {
		fmt.Fprintf(w, "\nArchived run %s\n", runID)
	}
	if outFile != "" {
		fmt.Fprintf(w, "Wrote solved document to %s\n", filepath.Clean(outFile))
	}
	return nil
}

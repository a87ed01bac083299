package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/store"
)

// ArchiveOptions holds flags for the archive commands.
type ArchiveOptions struct {
	*RootOptions
	Database string
}

// RunSummary is one archived run without its solutions.
type RunSummary struct {
	ID            string   `json:"id" yaml:"id"`
	Seq           int64    `json:"seq" yaml:"seq"`
	InputDigest   string   `json:"input_digest" yaml:"input_digest"`
	Planning      bool     `json:"planning" yaml:"planning"`
	Loss          *int     `json:"loss,omitempty" yaml:"loss,omitempty"`
	NumUnchecked  int      `json:"num_unchecked" yaml:"num_unchecked"`
	NumSolutions  int      `json:"num_solutions" yaml:"num_solutions"`
	NumSelected   int      `json:"num_selected" yaml:"num_selected"`
	Warnings      []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	SolverVersion string   `json:"solver_version" yaml:"solver_version"`
}

// RunDetail is an archived run with its selected solutions.
type RunDetail struct {
	RunSummary `yaml:",inline"`
	Solutions  []recipe.Recipe `json:"solutions" yaml:"solutions"`
}

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived solve runs",
		Long: `Inspect runs recorded with "ibis solve --archive".

Examples:
  ibis archive list --db ./runs.db
  ibis archive show 0190b6f2-... --db ./runs.db --format yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite archive (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List archived runs in order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one archived run with its solutions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveShow(opts, args[0], cmd)
		},
	})

	return cmd
}

func runArchiveList(opts *ArchiveOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.OpenExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open archive", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}

	if formatter.Structured() {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs archived.")
		return nil
	}
	for _, s := range summaries {
		mode := "checking"
		if s.Planning {
			mode = "planning"
		}
		fmt.Fprintf(w, "%4d  %s  %s  loss=%s  %d unchecked, %d valid, %d selected\n",
			s.Seq, s.ID, mode, formatLoss(s.Loss), s.NumUnchecked, s.NumSolutions, s.NumSelected)
	}
	return nil
}

func runArchiveShow(opts *ArchiveOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.OpenExisting(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open archive", err)
	}
	defer st.Close()

	run, err := st.ReadRun(context.Background(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read run", err)
	}

	detail := RunDetail{RunSummary: summarize(run), Solutions: run.Solutions}
	if detail.Solutions == nil {
		detail.Solutions = []recipe.Recipe{}
	}
	if formatter.Structured() {
		return formatter.Success(detail)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", detail.ID, detail.Seq)
	fmt.Fprintf(w, "  input digest:   %s\n", detail.InputDigest)
	fmt.Fprintf(w, "  planning:       %t\n", detail.Planning)
	fmt.Fprintf(w, "  loss:           %s\n", formatLoss(detail.Loss))
	fmt.Fprintf(w, "  solver version: %s\n", detail.SolverVersion)
	fmt.Fprintf(w, "  solutions:      %d unchecked, %d valid, %d selected\n",
		detail.NumUnchecked, detail.NumSolutions, detail.NumSelected)
	for _, warning := range detail.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
	fmt.Fprintln(w)
	for i, sol := range detail.Solutions {
		edges := strings.Join(recipe.EdgeStrings(sol), ", ")
		if edges == "" {
			edges = "(no edges)"
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, edges)
		fmt.Fprintf(w, "   digest: %s\n", sol.Digest)
		if n := len(sol.Leaks) + len(sol.TypeErrors) + len(sol.CapabilityErrors); n > 0 {
			fmt.Fprintf(w, "   %d leak(s), %d type error(s), %d capability error(s)\n",
				len(sol.Leaks), len(sol.TypeErrors), len(sol.CapabilityErrors))
		}
	}
	return nil
}

func summarize(r store.RunRecord) RunSummary {
	return RunSummary{
		ID:            r.ID,
		Seq:           r.Seq,
		InputDigest:   r.InputDigest,
		Planning:      r.Planning,
		Loss:          r.Loss,
		NumUnchecked:  r.NumUnchecked,
		NumSolutions:  r.NumSolutions,
		NumSelected:   r.NumSelected,
		Warnings:      r.Warnings,
		SolverVersion: r.SolverVersion,
	}
}

func formatLoss(loss *int) string {
	if loss == nil {
		return "all"
	}
	return fmt.Sprint(*loss)
}

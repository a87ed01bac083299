package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/solver"
)

// SubtypeOptions holds flags for the subtype command.
type SubtypeOptions struct {
	*RootOptions
	Document    string
	InputFormat string
	MaxTypes    int
}

// SubtypeResult reports how two types relate under a closure.
type SubtypeResult struct {
	Sub        string `json:"sub" yaml:"sub"`
	Super      string `json:"super" yaml:"super"`
	Subtype    bool   `json:"subtype" yaml:"subtype"`
	Compatible bool   `json:"compatible" yaml:"compatible"`
}

// SupertypesResult lists every supertype of a type.
type SupertypesResult struct {
	Type       string       `json:"type" yaml:"type"`
	Supertypes []string     `json:"supertypes" yaml:"supertypes"`
	Stats      ClosureStats `json:"stats" yaml:"stats"`
}

// ClosureStats mirrors solver.ClosureStats for output.
type ClosureStats struct {
	Types  int `json:"types" yaml:"types"`
	Facts  int `json:"facts" yaml:"facts"`
	Rounds int `json:"rounds" yaml:"rounds"`
}

// NewSubtypeCommand creates the subtype command.
func NewSubtypeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubtypeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "subtype <type> [supertype]",
		Short: "Query the subtype closure",
		Long: `Query the subtype closure of a document's declarations.

With two types, reports whether the first is a subtype of the second and
whether data of the first may flow into a sink of the second (capabilities
included). With one type, lists all of its supertypes.

Subtype and capability declarations, and the node types, come from --doc;
without it only structural rules apply.

Examples:
  ibis subtype 'List(Man)' 'Iterable(Mortal)' --doc recipe.json
  ibis subtype 'read Int' 'read Number' --doc recipe.cue
  ibis subtype '{Man, Mortal}' --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubtype(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Document, "doc", "", "recipe document with subtypes and capabilities")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "document format (json|yaml|cue), default by extension")
	cmd.Flags().IntVar(&opts.MaxTypes, "max-types", solver.DefaultMaxTypes, "bound on the number of known types")

	return cmd
}

func runSubtype(opts *SubtypeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc := &recipe.Document{}
	if opts.Document != "" {
		var err error
		if doc, err = readDocument(opts.Document, opts.InputFormat, cmd.InOrStdin()); err != nil {
			return formatter.Fail(ExitCommandError, "failed to read document", err)
		}
	}

	in := intern.New()
	queried := make([]intern.Entity, len(args))
	for i, text := range args {
		e, err := in.Intern(text)
		if err != nil {
			return formatter.Fail(ExitCommandError, "invalid type", err)
		}
		queried[i] = e
	}

	input, err := closureInput(in, doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid document", err)
	}
	input.Types = append(input.Types, queried...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	closure, err := solver.NewClosure(ctx, in, input, opts.MaxTypes)
	if err != nil {
		return formatter.Fail(ExitFailure, "closure failed", err)
	}
	stats := closure.Stats()
	formatter.VerboseLog("Closure: %d types, %d facts, %d rounds", stats.Types, stats.Facts, stats.Rounds)

	if len(queried) == 1 {
		result := SupertypesResult{
			Type:       in.String(queried[0]),
			Supertypes: []string{},
			Stats:      ClosureStats(stats),
		}
		for _, s := range closure.Supertypes(queried[0]) {
			result.Supertypes = append(result.Supertypes, in.String(s))
		}
		return outputSupertypes(formatter, result)
	}

	result := SubtypeResult{
		Sub:        in.String(queried[0]),
		Super:      in.String(queried[1]),
		Subtype:    closure.Subtype(queried[0], queried[1]),
		Compatible: closure.Compatible(queried[0], queried[1]),
	}
	return outputSubtype(formatter, result)
}

// closureInput interns a document's declarations. Node types are known
// both bare and wrapped in their capability.
func closureInput(in *intern.Interner, doc *recipe.Document) (solver.ClosureInput, error) {
	var input solver.ClosureInput
	pairs := func(field string, rows []recipe.Pair) ([]solver.Pair, error) {
		out := make([]solver.Pair, 0, len(rows))
		for _, r := range rows {
			a, err := in.Intern(r.A)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			b, err := in.Intern(r.B)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			out = append(out, solver.Pair{A: a, B: b})
		}
		return out, nil
	}

	var err error
	if input.Subtypes, err = pairs("subtypes", doc.Subtypes); err != nil {
		return input, err
	}
	if input.Capabilities, err = pairs("capabilities", doc.Capabilities); err != nil {
		return input, err
	}

	nodes := append([]recipe.Node(nil), doc.Nodes...)
	for _, r := range doc.Recipes {
		nodes = append(nodes, r.Nodes...)
	}
	for _, n := range nodes {
		t, err := in.Intern(n.Type)
		if err != nil {
			return input, fmt.Errorf("node %s type: %w", n.Handle, err)
		}
		c, err := in.Intern(n.Capability)
		if err != nil {
			return input, fmt.Errorf("node %s capability: %w", n.Handle, err)
		}
		input.Types = append(input.Types, t, in.Apply(ir.WithCapability, c, t))
	}
	return input, nil
}

func outputSubtype(formatter *OutputFormatter, result SubtypeResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Subtype {
		fmt.Fprintf(w, "✓ %s <= %s\n", result.Sub, result.Super)
	} else {
		fmt.Fprintf(w, "✗ %s is not a subtype of %s\n", result.Sub, result.Super)
	}
	if result.Compatible {
		fmt.Fprintf(w, "✓ %s may flow into %s\n", result.Sub, result.Super)
	} else {
		fmt.Fprintf(w, "✗ %s may not flow into %s\n", result.Sub, result.Super)
	}
	return nil
}

func outputSupertypes(formatter *OutputFormatter, result SupertypesResult) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Supertypes of %s:\n", result.Type)
	for _, s := range result.Supertypes {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "\n%d known types, %d facts, %d rounds\n",
		result.Stats.Types, result.Stats.Facts, result.Stats.Rounds)
	return nil
}

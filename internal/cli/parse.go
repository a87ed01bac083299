package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ibis/internal/ir"
)

// ParseResult describes one parsed type.
type ParseResult struct {
	Input        string   `json:"input" yaml:"input"`
	Canonical    string   `json:"canonical" yaml:"canonical"`
	Constructor  string   `json:"constructor" yaml:"constructor"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Subterms     []string `json:"subterms" yaml:"subterms"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <type>...",
		Short: "Parse type text into canonical form",
		Long: `Parse one or more types and print their canonical form.

Sugar is expanded: "{A, B}" is a product, "name: T" a label, "read T" a
capability wrapper, "T +private" adds a tag and "*" is the universal type.
Subterms are listed bottom-up, arguments before the types that hold them.

Examples:
  ibis parse '{Man, Mortal}'
  ibis parse 'read List(ibis.UnionType(Int, String))' --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	results := make([]ParseResult, 0, len(args))
	for _, text := range args {
		result, err := parseType(text)
		if err != nil {
			return formatter.Fail(ExitFailure, "invalid type", err)
		}
		results = append(results, result)
	}

	if formatter.Structured() {
		return formatter.Success(results)
	}

	w := formatter.Writer
	for _, r := range results {
		fmt.Fprintf(w, "%s\n", r.Canonical)
		if opts.Verbose {
			fmt.Fprintf(w, "  constructor: %s\n", r.Constructor)
			if len(r.Capabilities) > 0 {
				fmt.Fprintf(w, "  capabilities: %s\n", strings.Join(r.Capabilities, ", "))
			}
			fmt.Fprintf(w, "  subterms: %s\n", strings.Join(r.Subterms, "; "))
		}
	}
	return nil
}

// parseType parses text and collects its distinct subterms.
func parseType(text string) (ParseResult, error) {
	var subterms []string
	seen := make(map[string]struct{})
	t, err := ir.ParseTypeFunc(text, func(_ string, sub ir.Type) {
		s := sub.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		subterms = append(subterms, s)
	})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{
		Input:        text,
		Canonical:    t.String(),
		Constructor:  t.Name,
		Capabilities: t.Capabilities(),
		Subterms:     subterms,
	}, nil
}

package recipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/solution"
	"github.com/roach88/ibis/internal/solver"
)

// Options configures Solve.
type Options struct {
	// Loss keeps only Solutions within Loss edges of the largest one.
	// Nil keeps every Solution.
	Loss *int

	// Planning overrides the document's planning flag when non-nil.
	Planning *bool

	// Ancestors records Solution lineage in the output.
	Ancestors bool

	Logger *slog.Logger

	// Engine passes further options to the solver.
	Engine []solver.EngineOption
}

// Solve runs the solver over doc and returns the result document.
//
// Facts of every recipe and of the shared recipe are pooled into one
// Problem; every recipe's edges become a seed Solution, and so do the shared
// edges when there are any. The result keeps doc's configuration; its
// recipes are the selected Solutions with their Feedback, and its shared
// recipe lists every node together with the warnings of the run.
func Solve(ctx context.Context, doc *Document, opts Options) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var storeOpts []solution.StoreOption
	if opts.Ancestors {
		storeOpts = append(storeOpts, solution.WithAncestors())
	}
	in := intern.New()
	store := solution.NewStore(storeOpts...)

	warnings := doc.Flags.Warnings()
	for _, w := range warnings {
		logger.Warn(w)
	}

	b := &problemBuilder{in: in, store: store}
	problem, err := b.build(doc)
	if err != nil {
		return nil, err
	}
	problem.Planning = doc.Flags.Planning()
	if opts.Planning != nil {
		problem.Planning = *opts.Planning
	}

	engineOpts := append([]solver.EngineOption{solver.WithLogger(logger)}, opts.Engine...)
	res, err := solver.New(in, store, engineOpts...).Solve(ctx, problem, opts.Loss)
	if err != nil {
		return nil, err
	}

	out := &Document{
		Config:       doc.Config,
		Recipe:       doc.Recipe,
		NumUnchecked: res.NumUnchecked,
		NumSolutions: res.NumValid,
		NumSelected:  res.NumSelected,
	}
	shared := out.Shared()
	shared.Feedback = Feedback{}
	shared.Nodes = append([]Node(nil), doc.Nodes...)
	for _, r := range doc.Recipes {
		shared.Nodes = append(shared.Nodes, r.Nodes...)
	}
	shared.Warnings = append(append([]string(nil), doc.Warnings...), warnings...)

	out.Recipes = make([]Recipe, 0, len(res.Reports))
	for _, rep := range res.Reports {
		out.Recipes = append(out.Recipes, b.recipeFor(rep))
	}
	return out, nil
}

// problemBuilder interns document rows into solver facts.
type problemBuilder struct {
	in    *intern.Interner
	store *solution.Store
}

func (b *problemBuilder) build(doc *Document) (solver.Problem, error) {
	var p solver.Problem
	var err error

	if p.Subtypes, err = b.pairs("subtypes", doc.Subtypes); err != nil {
		return p, err
	}
	if p.Capabilities, err = b.pairs("capabilities", doc.Capabilities); err != nil {
		return p, err
	}
	if p.LessPrivateThan, err = b.pairs("less_private_than", doc.LessPrivateThan); err != nil {
		return p, err
	}

	recipes := doc.Recipes
	if len(recipes) == 0 {
		recipes = []Recipe{{}}
	}
	for i, r := range recipes {
		seed, err := b.addRecipe(&p, fmt.Sprintf("recipes[%d]", i), r)
		if err != nil {
			return p, err
		}
		p.Seeds = append(p.Seeds, seed)
	}
	seed, err := b.addRecipe(&p, "shared", doc.Recipe)
	if err != nil {
		return p, err
	}
	if len(doc.Edges) > 0 {
		p.Seeds = append(p.Seeds, seed)
	}
	return p, nil
}

// addRecipe pools r's facts into p and returns r's edge set.
func (b *problemBuilder) addRecipe(p *solver.Problem, where string, r Recipe) (solution.ID, error) {
	for _, n := range r.Nodes {
		node, err := b.node(n)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", where, err)
		}
		p.Nodes = append(p.Nodes, node)
	}

	claims, err := b.tagged(where+".claims", r.Claims)
	if err != nil {
		return 0, err
	}
	checks, err := b.tagged(where+".checks", r.Checks)
	if err != nil {
		return 0, err
	}
	trusted, err := b.tagged(where+".trusted_to_remove_tag", r.Trusted)
	if err != nil {
		return 0, err
	}
	p.Claims = append(p.Claims, claims...)
	p.Checks = append(p.Checks, checks...)
	p.Trusted = append(p.Trusted, trusted...)

	edges, err := b.pairs(where+".edges", r.Edges)
	if err != nil {
		return 0, err
	}
	se := make([]solution.Edge, 0, len(edges))
	for _, e := range edges {
		se = append(se, solution.Edge{From: e.A, To: e.B})
	}
	return b.store.FromEdges(se), nil
}

func (b *problemBuilder) intern(field, text string) (intern.Entity, error) {
	e, err := b.in.Intern(text)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return e, nil
}

func (b *problemBuilder) node(n Node) (solver.Node, error) {
	var out solver.Node
	var err error
	if out.Particle, err = b.intern("node particle", n.Particle); err != nil {
		return out, err
	}
	if out.Handle, err = b.intern("node handle", n.Handle); err != nil {
		return out, err
	}
	if out.Capability, err = b.intern(fmt.Sprintf("node %s capability", n.Handle), n.Capability); err != nil {
		return out, err
	}
	if out.Type, err = b.intern(fmt.Sprintf("node %s type", n.Handle), n.Type); err != nil {
		return out, err
	}
	return out, nil
}

func (b *problemBuilder) pairs(field string, rows []Pair) ([]solver.Pair, error) {
	out := make([]solver.Pair, 0, len(rows))
	for _, r := range rows {
		a, err := b.intern(field, r.A)
		if err != nil {
			return nil, err
		}
		c, err := b.intern(field, r.B)
		if err != nil {
			return nil, err
		}
		out = append(out, solver.Pair{A: a, B: c})
	}
	return out, nil
}

func (b *problemBuilder) tagged(field string, rows []Pair) ([]solver.Tagged, error) {
	pairs, err := b.pairs(field, rows)
	if err != nil {
		return nil, err
	}
	out := make([]solver.Tagged, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, solver.Tagged{Node: p.A, Tag: p.B})
	}
	return out, nil
}

// recipeFor renders a solver report with entity names.
func (b *problemBuilder) recipeFor(rep solver.Report) Recipe {
	name := b.in.String
	r := Recipe{Digest: b.store.Digest(rep.Solution)}
	for _, e := range rep.Edges {
		r.Edges = append(r.Edges, Pair{A: name(e.From), B: name(e.To)})
	}
	for _, a := range rep.Ancestors {
		r.Ancestors = append(r.Ancestors, b.store.Digest(a))
	}

	fb := rep.Feedback
	for _, h := range fb.HasTags {
		r.HasTags = append(r.HasTags, HasTag{Source: name(h.Source), Node: name(h.Node), Tag: name(h.Tag)})
	}
	for _, l := range fb.Leaks {
		r.Leaks = append(r.Leaks, Leak{
			Node:     name(l.Node),
			Expected: name(l.Expected),
			Source:   name(l.Source),
			Found:    name(l.Found),
		})
	}
	for _, e := range fb.TypeErrors {
		r.TypeErrors = append(r.TypeErrors, TypeError{
			From:     name(e.From),
			FromType: name(e.FromType),
			To:       name(e.To),
			ToType:   name(e.ToType),
		})
	}
	for _, e := range fb.CapabilityErrors {
		r.CapabilityErrors = append(r.CapabilityErrors, CapabilityError{
			From:    name(e.From),
			FromCap: name(e.FromCap),
			To:      name(e.To),
			ToCap:   name(e.ToCap),
		})
	}
	return r
}

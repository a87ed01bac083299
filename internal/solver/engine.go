package solver

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/solution"
)

// DefaultParallelism analyzes Solutions on the calling goroutine.
const DefaultParallelism = 1

// nodeType caches a node's declared data type and its capability-wrapped
// form WithCapability(capability, type).
type nodeType struct {
	data intern.Entity
	full intern.Entity
}

// Engine runs solves against a shared Interner and Solution Store.
//
// Thread-safety model:
//   - Solve may be called from several goroutines; the interner and the
//     store serialize their own writers
//   - Options must not be changed after New returns
type Engine struct {
	in           *intern.Interner
	store        *solution.Store
	logger       *slog.Logger
	maxSolutions int
	maxTypes     int
	parallelism  int
	metrics      *Metrics
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSolutions bounds how many Solutions generation may produce.
//
// Default: unlimited. Use WithMaxSolutions(10000) when inputs are untrusted;
// a solve that exceeds the bound fails with a QuotaExceededError.
func WithMaxSolutions(n int) EngineOption {
	return func(e *Engine) {
		e.maxSolutions = n
	}
}

// WithMaxTypes bounds the size of the type closure.
// Default: DefaultMaxTypes.
func WithMaxTypes(n int) EngineOption {
	return func(e *Engine) {
		e.maxTypes = n
	}
}

// WithParallelism sets how many goroutines analyze Solutions.
// Default: DefaultParallelism. Output order does not depend on it.
func WithParallelism(n int) EngineOption {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithMetrics records solve metrics on m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine over the given interner and store.
func New(in *intern.Interner, store *solution.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		in:          in,
		store:       store,
		maxTypes:    DefaultMaxTypes,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Result is the outcome of one solve.
type Result struct {
	// Reports are the selected Solutions with their Feedback, in ascending
	// Solution order.
	Reports []Report

	NumUnchecked int // Solutions seeded or generated
	NumValid     int // Solutions without policy violations
	NumSelected  int // len(Reports)

	Closure *Closure
}

// Solve runs closure, generation, analysis and selection for p.
//
// With planning, seeds grow by every admissible edge and only valid
// Solutions are selected. Without planning, seeds are analyzed as given and
// returned with their Feedback whether valid or not. loss, when non-nil,
// then keeps only Solutions within *loss edges of the largest one.
func (e *Engine) Solve(ctx context.Context, p Problem, loss *int) (res *Result, err error) {
	start := time.Now()
	defer func() {
		e.metrics.recordSolve(p.Planning, err)
		e.metrics.observePhase("total", start)
	}()

	seeds := p.Seeds
	if len(seeds) == 0 {
		seeds = []solution.ID{e.store.Empty()}
	}
	if err := e.validateSeeds(p.Nodes, seeds); err != nil {
		return nil, err
	}

	types := make([]nodeType, len(p.Nodes))
	known := make([]intern.Entity, len(p.Nodes))
	for i, n := range p.Nodes {
		full := e.in.Apply(ir.WithCapability, n.Capability, n.Type)
		types[i] = nodeType{data: n.Type, full: full}
		known[i] = full
	}

	phase := time.Now()
	closure, err := NewClosure(ctx, e.in, ClosureInput{
		Subtypes:     p.Subtypes,
		Capabilities: p.Capabilities,
		Types:        known,
	}, e.maxTypes)
	if err != nil {
		return nil, err
	}
	stats := closure.Stats()
	e.metrics.recordClosure(stats)
	e.metrics.observePhase("closure", phase)
	e.logger.Debug("closure computed",
		"types", stats.Types,
		"facts", stats.Facts,
		"rounds", stats.Rounds)

	phase = time.Now()
	sols := seeds
	if p.Planning {
		g := &generator{
			store: e.store,
			quota: NewSolutionQuota(e.maxSolutions),
			edges: admissibleEdges(closure, p.Nodes, types),
		}
		var rounds int
		sols, rounds, err = g.run(ctx, seeds)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("solutions generated",
			"admissible_edges", len(g.edges),
			"solutions", len(sols),
			"rounds", rounds)
	} else {
		sols = dedupeSorted(seeds)
	}
	e.metrics.observePhase("generate", phase)

	phase = time.Now()
	reports, err := analyzeAll(ctx, newAnalyzer(closure, &p, types), e.store, sols, e.parallelism)
	if err != nil {
		return nil, err
	}
	e.metrics.observePhase("analyze", phase)

	numValid := 0
	for _, r := range reports {
		if r.Feedback.Valid() {
			numValid++
		}
	}

	var selected []Report
	if p.Planning {
		selected = Select(reports, loss)
	} else {
		selected = SelectAll(reports, loss)
	}

	res = &Result{
		Reports:      selected,
		NumUnchecked: len(reports),
		NumValid:     numValid,
		NumSelected:  len(selected),
		Closure:      closure,
	}
	e.metrics.recordSolutions(res.NumUnchecked, res.NumValid, res.NumSelected)
	e.logger.Info("solve complete",
		"planning", p.Planning,
		"nodes", len(p.Nodes),
		"unchecked", res.NumUnchecked,
		"valid", res.NumValid,
		"selected", res.NumSelected,
		"duration", time.Since(start))
	return res, nil
}

// validateSeeds rejects seed edges whose endpoints are not declared nodes.
func (e *Engine) validateSeeds(nodes []Node, seeds []solution.ID) error {
	declared := make(map[intern.Entity]struct{}, len(nodes))
	for _, n := range nodes {
		declared[n.Handle] = struct{}{}
	}
	for _, s := range seeds {
		for _, edge := range e.store.Edges(s) {
			for _, h := range []intern.Entity{edge.From, edge.To} {
				if _, ok := declared[h]; !ok {
					return NewUnknownNodeError(e.in.String(h))
				}
			}
		}
	}
	return nil
}

func dedupeSorted(ids []solution.ID) []solution.ID {
	seen := make(map[solution.ID]struct{}, len(ids))
	out := make([]solution.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

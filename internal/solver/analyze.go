package solver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ibis/internal/solution"
)

// analyzeAll derives Feedback for every Solution in sols.
//
// Solutions are independent, so with parallelism > 1 they are analyzed
// concurrently; results keep the order of sols regardless. The analyzer and
// the store are only read here.
func analyzeAll(
	ctx context.Context,
	a *analyzer,
	store *solution.Store,
	sols []solution.ID,
	parallelism int,
) ([]Report, error) {
	reports := make([]Report, len(sols))
	build := func(i int) {
		sol := sols[i]
		edges := store.Edges(sol)
		reports[i] = Report{
			Solution:  sol,
			Edges:     edges,
			Feedback:  a.analyze(edges),
			Ancestors: store.Ancestors(sol),
		}
	}

	if parallelism <= 1 {
		for i := range sols {
			if err := ctx.Err(); err != nil {
				return nil, NewCancelledError(err)
			}
			build(i)
		}
		return reports, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range sols {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return NewCancelledError(err)
			}
			build(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

package solver

import (
	"context"
	"sort"

	"github.com/roach88/ibis/internal/solution"
)

// generator grows seed Solutions by single admissible edges until no new
// Solution appears.
type generator struct {
	store *solution.Store
	quota *SolutionQuota
	edges []solution.Edge
}

// admissibleEdges lists every (from, to) node pair with from != to whose
// capability-wrapped types are compatible, sorted and without duplicates.
func admissibleEdges(c *Closure, nodes []Node, fullTypes []nodeType) []solution.Edge {
	seen := make(map[solution.Edge]struct{})
	var edges []solution.Edge
	for i, from := range nodes {
		for j, to := range nodes {
			if from.Handle == to.Handle {
				continue
			}
			e := solution.Edge{From: from.Handle, To: to.Handle}
			if _, ok := seen[e]; ok {
				continue
			}
			if c.Compatible(fullTypes[i].full, fullTypes[j].full) {
				seen[e] = struct{}{}
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// run explores breadth first from seeds. It returns every reachable
// Solution in ascending ID order and the number of rounds taken.
func (g *generator) run(ctx context.Context, seeds []solution.ID) ([]solution.ID, int, error) {
	seen := make(map[solution.ID]struct{})
	var all, frontier []solution.ID
	for _, s := range seeds {
		if _, ok := seen[s]; ok {
			continue
		}
		if err := g.quota.Check(); err != nil {
			return nil, 0, err
		}
		seen[s] = struct{}{}
		all = append(all, s)
		frontier = append(frontier, s)
	}

	rounds := 0
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, rounds, NewCancelledError(err)
		}
		rounds++
		var next []solution.ID
		for _, parent := range frontier {
			for _, e := range g.edges {
				if g.store.HasEdge(parent, e.From, e.To) {
					continue
				}
				child := g.store.AddEdge(parent, e.From, e.To)
				if _, ok := seen[child]; ok {
					continue
				}
				if err := g.quota.Check(); err != nil {
					return nil, rounds, err
				}
				seen[child] = struct{}{}
				all = append(all, child)
				next = append(next, child)
			}
		}
		frontier = next
	}

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all, rounds, nil
}

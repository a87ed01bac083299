package solver

import (
	"sort"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/solution"
)

// analyzer computes per-Solution Feedback. It holds only read-only indexes
// built once per solve, so one analyzer may serve many goroutines.
type analyzer struct {
	closure *Closure
	nodes   []Node
	types   []nodeType

	byHandle       map[intern.Entity][]int
	particleOf     map[intern.Entity][]intern.Entity
	particleHandle map[intern.Entity][]intern.Entity
	trusted        map[Tagged]struct{}
	claims         []Tagged
	checks         map[intern.Entity][]intern.Entity
	lessPrivate    map[intern.Entity]set
}

func newAnalyzer(c *Closure, p *Problem, types []nodeType) *analyzer {
	a := &analyzer{
		closure:        c,
		nodes:          p.Nodes,
		types:          types,
		byHandle:       make(map[intern.Entity][]int),
		particleOf:     make(map[intern.Entity][]intern.Entity),
		particleHandle: make(map[intern.Entity][]intern.Entity),
		trusted:        make(map[Tagged]struct{}),
		claims:         p.Claims,
		checks:         make(map[intern.Entity][]intern.Entity),
		lessPrivate:    make(map[intern.Entity]set),
	}
	for i, n := range p.Nodes {
		a.byHandle[n.Handle] = append(a.byHandle[n.Handle], i)
		a.particleOf[n.Handle] = appendUnique(a.particleOf[n.Handle], n.Particle)
		a.particleHandle[n.Particle] = appendUnique(a.particleHandle[n.Particle], n.Handle)
	}
	for _, t := range p.Trusted {
		a.trusted[t] = struct{}{}
	}
	for _, ch := range p.Checks {
		a.checks[ch.Node] = appendUnique(a.checks[ch.Node], ch.Tag)
	}
	for _, lp := range p.LessPrivateThan {
		if a.lessPrivate[lp.A] == nil {
			a.lessPrivate[lp.A] = make(set)
		}
		a.lessPrivate[lp.A][lp.B] = struct{}{}
	}
	return a
}

func appendUnique(list []intern.Entity, e intern.Entity) []intern.Entity {
	for _, x := range list {
		if x == e {
			return list
		}
	}
	return append(list, e)
}

func (a *analyzer) isTrusted(node, tag intern.Entity) bool {
	_, ok := a.trusted[Tagged{Node: node, Tag: tag}]
	return ok
}

// analyze derives the Feedback of sol. It never fails.
func (a *analyzer) analyze(edges []solution.Edge) Feedback {
	var fb Feedback
	fb.HasTags = a.propagate(edges)
	fb.Leaks = a.leaks(fb.HasTags)
	fb.TypeErrors, fb.CapabilityErrors = a.edgeErrors(edges)
	return fb
}

// propagate runs the tag fixpoint: claims seed tags, which then move along
// edges and across the handles of one particle unless the receiving node is
// trusted to remove the tag.
func (a *analyzer) propagate(edges []solution.Edge) []HasTag {
	downstream := make(map[intern.Entity][]intern.Entity)
	for _, e := range edges {
		downstream[e.From] = append(downstream[e.From], e.To)
	}

	seen := make(map[HasTag]struct{})
	var work []HasTag
	add := func(h HasTag) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		work = append(work, h)
	}
	for _, cl := range a.claims {
		add(HasTag{Source: cl.Node, Node: cl.Node, Tag: cl.Tag})
	}

	for len(work) > 0 {
		h := work[len(work)-1]
		work = work[:len(work)-1]
		for _, down := range downstream[h.Node] {
			if !a.isTrusted(down, h.Tag) {
				add(HasTag{Source: h.Source, Node: down, Tag: h.Tag})
			}
		}
		for _, particle := range a.particleOf[h.Node] {
			for _, peer := range a.particleHandle[particle] {
				if peer != h.Node && !a.isTrusted(peer, h.Tag) {
					add(HasTag{Source: h.Source, Node: peer, Tag: h.Tag})
				}
			}
		}
	}

	out := make([]HasTag, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Source != y.Source {
			return x.Source < y.Source
		}
		if x.Node != y.Node {
			return x.Node < y.Node
		}
		return x.Tag < y.Tag
	})
	return out
}

// leaks reports every checked node carrying a tag declared more private
// than the one its check expects.
func (a *analyzer) leaks(tags []HasTag) []Leak {
	var out []Leak
	for _, h := range tags {
		for _, expected := range a.checks[h.Node] {
			if a.lessPrivate[expected].has(h.Tag) {
				out = append(out, Leak{Node: h.Node, Expected: expected, Source: h.Source, Found: h.Tag})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.Node != y.Node {
			return x.Node < y.Node
		}
		if x.Expected != y.Expected {
			return x.Expected < y.Expected
		}
		if x.Source != y.Source {
			return x.Source < y.Source
		}
		return x.Found < y.Found
	})
	return out
}

// edgeErrors checks every edge for data-type and capability compatibility.
// Edges are sorted, so the output is too.
func (a *analyzer) edgeErrors(edges []solution.Edge) ([]TypeError, []CapabilityError) {
	var typeErrs []TypeError
	var capErrs []CapabilityError
	for _, e := range edges {
		for _, i := range a.byHandle[e.From] {
			for _, j := range a.byHandle[e.To] {
				from, to := a.types[i], a.types[j]
				if !a.closure.CapabilityAdmits(from.full, to.full) {
					capErrs = append(capErrs, CapabilityError{
						From:    e.From,
						FromCap: a.nodes[i].Capability,
						To:      e.To,
						ToCap:   a.nodes[j].Capability,
					})
				}
				if !a.closure.DataSubtype(from.full, to.full) {
					typeErrs = append(typeErrs, TypeError{
						From:     e.From,
						FromType: a.nodes[i].Type,
						To:       e.To,
						ToType:   a.nodes[j].Type,
					})
				}
			}
		}
	}
	return typeErrs, capErrs
}

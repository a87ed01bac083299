package solver

import (
	"context"
	"sort"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/ir"
)

// DefaultMaxTypes bounds the number of known types the closure may create.
// Labelled covariance mints new types; a cyclic declaration such as
// Subtype(T, l: T) would otherwise never reach a fixpoint.
const DefaultMaxTypes = 4096

// factsPerType scales the type bound into a bound on Subtype facts. A
// cyclic chain of n labelled types carries about n*n/2 facts, so the fact
// bound is the one that stops it.
const factsPerType = 8

// cancelCheckInterval is the number of events processed between context
// checks.
const cancelCheckInterval = 1024

type set map[intern.Entity]struct{}

func (s set) has(e intern.Entity) bool {
	_, ok := s[e]
	return ok
}

func (s set) sorted() []intern.Entity {
	out := make([]intern.Entity, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type eventKind uint8

const (
	eventKnown eventKind = iota
	eventSubtype
)

type event struct {
	kind eventKind
	x, y intern.Entity
}

// ClosureStats summarizes a computed closure.
type ClosureStats struct {
	Types  int // known types
	Facts  int // Subtype pairs
	Rounds int // semi-naive rounds until fixpoint
}

// Closure is the fixpoint of the Subtype and KnownType relations for one
// solve, together with the declared capability relation.
//
// Evaluation is semi-naive: every newly derived fact enters the relation
// immediately (so duplicates are dropped at once) and is queued as a delta
// for the next round. Processing a delta joins it against the full relation,
// so each derivation fires when the last of its premises is processed.
// Rounds repeat until a round derives nothing new.
type Closure struct {
	in *intern.Interner

	universal intern.Entity
	generic   intern.Entity
	inductive intern.Entity

	known map[intern.Entity]struct{}
	sup   map[intern.Entity]set
	sub   map[intern.Entity]set
	caps  map[intern.Entity]set

	productsByArg   map[intern.Entity][]intern.Entity
	unionsByArg     map[intern.Entity][]intern.Entity
	labelledByInner map[intern.Entity][]intern.Entity
	appsByHead      map[intern.Entity][]intern.Entity
	appsByArg       map[intern.Entity][]intern.Entity
	unaryApps       []intern.Entity

	next     []event
	facts    int
	rounds   int
	maxTypes int
	maxFacts int
	err      error
}

// ClosureInput is the declared input of the closure.
type ClosureInput struct {
	Subtypes     []Pair
	Capabilities []Pair
	// Types seeds KnownType; node types, with and without their capability
	// wrapper, belong here.
	Types []intern.Entity
}

// NewClosure computes the closure of input to a fixpoint.
// It returns a *RuntimeError with ErrCodeClosureLimit as soon as more than
// maxTypes types become known or more than factsPerType*maxTypes Subtype
// facts are derived; maxTypes <= 0 selects DefaultMaxTypes. Cancelling ctx
// stops the computation with ErrCodeCancelled.
func NewClosure(ctx context.Context, in *intern.Interner, input ClosureInput, maxTypes int) (*Closure, error) {
	if maxTypes <= 0 {
		maxTypes = DefaultMaxTypes
	}
	c := &Closure{
		in:              in,
		universal:       in.Named(ir.UniversalType),
		generic:         in.Named(ir.GenericType),
		inductive:       in.Named(ir.InductiveType),
		known:           make(map[intern.Entity]struct{}),
		sup:             make(map[intern.Entity]set),
		sub:             make(map[intern.Entity]set),
		caps:            make(map[intern.Entity]set),
		productsByArg:   make(map[intern.Entity][]intern.Entity),
		unionsByArg:     make(map[intern.Entity][]intern.Entity),
		labelledByInner: make(map[intern.Entity][]intern.Entity),
		appsByHead:      make(map[intern.Entity][]intern.Entity),
		appsByArg:       make(map[intern.Entity][]intern.Entity),
		maxTypes:        maxTypes,
		maxFacts:        factsPerType * maxTypes,
	}
	if err := ctx.Err(); err != nil {
		return nil, NewCancelledError(err)
	}

	for _, p := range input.Capabilities {
		if c.caps[p.A] == nil {
			c.caps[p.A] = make(set)
		}
		c.caps[p.A][p.B] = struct{}{}
	}
	for _, t := range input.Types {
		c.addKnown(t)
	}
	for _, p := range input.Subtypes {
		c.addSubtype(p.A, p.B)
	}

	steps := 0
	for len(c.next) > 0 && c.err == nil {
		delta := c.next
		c.next = nil
		c.rounds++
		for _, ev := range delta {
			if c.err != nil {
				break
			}
			if steps++; steps%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, NewCancelledError(err)
				}
			}
			switch ev.kind {
			case eventKnown:
				c.onKnown(ev.x)
			case eventSubtype:
				c.onSubtype(ev.x, ev.y)
			}
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c, nil
}

// addKnown and addSubtype record the first bound violation in c.err and
// become no-ops afterwards, so a runaway round unwinds quickly.
func (c *Closure) addKnown(t intern.Entity) {
	if c.err != nil {
		return
	}
	if _, ok := c.known[t]; ok {
		return
	}
	c.known[t] = struct{}{}
	if len(c.known) > c.maxTypes {
		c.err = NewClosureLimitError(len(c.known), c.maxTypes)
		return
	}
	c.next = append(c.next, event{kind: eventKnown, x: t})
}

func (c *Closure) addSubtype(x, y intern.Entity) {
	if c.err != nil {
		return
	}
	s := c.sup[x]
	if s == nil {
		s = make(set)
		c.sup[x] = s
	}
	if s.has(y) {
		return
	}
	s[y] = struct{}{}
	b := c.sub[y]
	if b == nil {
		b = make(set)
		c.sub[y] = b
	}
	b[x] = struct{}{}
	c.facts++
	if c.facts > c.maxFacts {
		c.err = NewFactLimitError(c.facts, c.maxFacts, c.maxTypes)
		return
	}
	c.addKnown(x)
	c.addKnown(y)
	c.next = append(c.next, event{kind: eventSubtype, x: x, y: y})
}

// onKnown applies every rule with a KnownType premise on t.
func (c *Closure) onKnown(t intern.Entity) {
	in := c.in
	c.addKnown(in.Bare(t))
	args := in.Args(t)
	for _, a := range args {
		c.addKnown(a)
	}
	c.addSubtype(t, t)
	c.addSubtype(t, c.universal)

	name := in.Name(t)
	switch {
	case name == ir.ProductType && len(args) == 2:
		a, b := args[0], args[1]
		c.productsByArg[a] = append(c.productsByArg[a], t)
		if b != a {
			c.productsByArg[b] = append(c.productsByArg[b], t)
		}
		c.addSubtype(t, a)
		c.addSubtype(t, b)
		for _, x := range c.sub[a].sorted() {
			if c.sub[b].has(x) {
				c.addSubtype(x, t)
			}
		}
	case name == ir.UnionType && len(args) == 2:
		a, b := args[0], args[1]
		c.unionsByArg[a] = append(c.unionsByArg[a], t)
		if b != a {
			c.unionsByArg[b] = append(c.unionsByArg[b], t)
		}
		c.addSubtype(a, t)
		c.addSubtype(b, t)
		for _, x := range c.sup[a].sorted() {
			if c.sup[b].has(x) {
				c.addSubtype(t, x)
			}
		}
	case name == ir.Labelled && len(args) == 2:
		label, inner := args[0], args[1]
		c.labelledByInner[inner] = append(c.labelledByInner[inner], t)
		c.addSubtype(t, inner)
		for _, s := range c.sup[inner].sorted() {
			c.addSubtype(t, in.Apply(ir.Labelled, label, s))
		}
	case len(args) == 1:
		head := in.Bare(t)
		c.appsByHead[head] = append(c.appsByHead[head], t)
		c.appsByArg[args[0]] = append(c.appsByArg[args[0]], t)
		c.unaryApps = append(c.unaryApps, t)
		for _, v := range c.unaryApps {
			c.tryGeneric(t, v)
			c.tryGeneric(v, t)
		}
	}
}

// onSubtype applies every rule with a Subtype premise on (x, y).
func (c *Closure) onSubtype(x, y intern.Entity) {
	// Transitivity, both directions.
	for _, z := range c.sup[y].sorted() {
		c.addSubtype(x, z)
	}
	for _, w := range c.sub[x].sorted() {
		c.addSubtype(w, y)
	}

	// Product meet: x <= a and x <= b gives x <= {a, b}.
	for _, p := range c.productsByArg[y] {
		a, b := c.in.Arg(p, 0), c.in.Arg(p, 1)
		if c.sup[x].has(a) && c.sup[x].has(b) {
			c.addSubtype(x, p)
		}
	}

	// Union join: a <= y and b <= y gives Union(a, b) <= y.
	for _, u := range c.unionsByArg[x] {
		a, b := c.in.Arg(u, 0), c.in.Arg(u, 1)
		if c.sup[a].has(y) && c.sup[b].has(y) {
			c.addSubtype(u, y)
		}
	}

	// Labelled covariance.
	for _, l := range c.labelledByInner[x] {
		c.addSubtype(l, c.in.Apply(ir.Labelled, c.in.Arg(l, 0), y))
	}

	// Generic instantiation.
	if y == c.generic || y == c.inductive {
		for _, u := range c.appsByHead[x] {
			for _, v := range c.unaryApps {
				c.tryGeneric(u, v)
				c.tryGeneric(v, u)
			}
		}
	}
	for _, u := range c.appsByHead[x] {
		for _, v := range c.appsByHead[y] {
			c.tryGeneric(u, v)
		}
	}
	for _, u := range c.appsByArg[x] {
		for _, v := range c.appsByArg[y] {
			c.tryGeneric(u, v)
		}
	}
}

// tryGeneric derives u <= v for known unary applications u = g(a) and
// v = h(b) when both constructors are generic and inductive, g <= h and a <= b.
func (c *Closure) tryGeneric(u, v intern.Entity) {
	if c.sup[u].has(v) {
		return
	}
	g, h := c.in.Bare(u), c.in.Bare(v)
	if !c.isGeneric(g) || !c.isGeneric(h) {
		return
	}
	if !c.sup[g].has(h) || !c.sup[c.in.Arg(u, 0)].has(c.in.Arg(v, 0)) {
		return
	}
	c.addSubtype(u, v)
}

func (c *Closure) isGeneric(g intern.Entity) bool {
	return c.sup[g].has(c.generic) && c.sup[g].has(c.inductive)
}

// Subtype reports whether x <= y.
func (c *Closure) Subtype(x, y intern.Entity) bool {
	return c.sup[x].has(y)
}

// Known reports whether t is a known type.
func (c *Closure) Known(t intern.Entity) bool {
	_, ok := c.known[t]
	return ok
}

// Supertypes returns every y with x <= y, in ascending handle order.
func (c *Closure) Supertypes(x intern.Entity) []intern.Entity {
	return c.sup[x].sorted()
}

// Subtypes returns every x with x <= y, in ascending handle order.
func (c *Closure) Subtypes(y intern.Entity) []intern.Entity {
	return c.sub[y].sorted()
}

// Stats returns the size of the closure.
func (c *Closure) Stats() ClosureStats {
	return ClosureStats{Types: len(c.known), Facts: c.facts, Rounds: c.rounds}
}

package solver

import (
	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/solution"
)

// Node is one data handle of a particle with its capability and data type.
type Node struct {
	Particle   intern.Entity
	Handle     intern.Entity
	Capability intern.Entity
	Type       intern.Entity
}

// Pair is a binary input relation row: Subtype(sub, super),
// Capability(from, to) or LessPrivateThan(tag, tag).
type Pair struct {
	A intern.Entity
	B intern.Entity
}

// Tagged attaches a tag to a node handle. Claims, checks and trust
// declarations all share this shape.
type Tagged struct {
	Node intern.Entity
	Tag  intern.Entity
}

// Problem is the full input of one solve.
type Problem struct {
	Planning        bool
	Nodes           []Node
	Subtypes        []Pair
	Capabilities    []Pair
	LessPrivateThan []Pair
	Claims          []Tagged
	Checks          []Tagged
	Trusted         []Tagged

	// Seeds are the starting Solutions. An empty slice means a single
	// empty Solution.
	Seeds []solution.ID
}

// HasTag records that node carries tag, originally claimed at source.
type HasTag struct {
	Source intern.Entity
	Node   intern.Entity
	Tag    intern.Entity
}

// Leak records that node, checked against Expected, carries the more
// private tag Found that originated at Source.
type Leak struct {
	Node     intern.Entity
	Expected intern.Entity
	Source   intern.Entity
	Found    intern.Entity
}

// TypeError records an edge whose source data type is not a subtype of the
// destination data type.
type TypeError struct {
	From     intern.Entity
	FromType intern.Entity
	To       intern.Entity
	ToType   intern.Entity
}

// CapabilityError records an edge whose source capability is not admitted
// by any capability of the destination.
type CapabilityError struct {
	From    intern.Entity
	FromCap intern.Entity
	To      intern.Entity
	ToCap   intern.Entity
}

// Feedback is the analysis output attached to one Solution.
type Feedback struct {
	HasTags          []HasTag
	Leaks            []Leak
	TypeErrors       []TypeError
	CapabilityErrors []CapabilityError
}

// Valid reports whether the Solution carries no policy violation.
func (f Feedback) Valid() bool {
	return len(f.Leaks) == 0 && len(f.TypeErrors) == 0 && len(f.CapabilityErrors) == 0
}

// Report is one analyzed Solution.
type Report struct {
	Solution  solution.ID
	Edges     []solution.Edge
	Feedback  Feedback
	Ancestors []solution.ID
}

// NumEdges returns the edge count used by loss filtering.
func (r Report) NumEdges() int {
	return len(r.Edges)
}

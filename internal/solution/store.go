// Package solution provides the content-addressed store of candidate edge sets.
//
// A Solution is an immutable set of directed edges between node handles.
// Solutions are identified by their edge set: adding an edge never mutates
// an existing Solution, it looks up or allocates the Solution whose edges are
// the parent's edges plus the new one. ID 0 is always the empty Solution.
//
// Thread-safety: Store is safe for concurrent use. IDs are never reused and
// edge sets are never modified after creation, so readers may hold on to the
// slices returned by Edges.
package solution

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/ir"
)

// ID identifies a Solution within one Store.
type ID uint32

// Empty is the ID of the empty Solution.
const Empty ID = 0

// Edge is a directed edge between two node handles.
type Edge struct {
	From intern.Entity
	To   intern.Entity
}

func (e Edge) less(o Edge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	return e.To < o.To
}

// Store is the arena of edge sets plus the reverse index keyed by the
// canonical digest of each set.
type Store struct {
	mu        sync.RWMutex
	sets      [][]Edge
	digests   []string
	byDigest  map[string]ID
	ancestors map[ID]map[ID]struct{} // nil unless lineage tracking is on
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithAncestors records, for each Solution, the parents it was derived from.
// Lineage is diagnostic only.
func WithAncestors() StoreOption {
	return func(s *Store) {
		s.ancestors = make(map[ID]map[ID]struct{})
	}
}

// NewStore creates a Store holding only the empty Solution.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{byDigest: make(map[string]ID)}
	for _, opt := range opts {
		opt(s)
	}
	s.allocLocked(nil)
	return s
}

// Empty returns the ID of the empty Solution.
func (s *Store) Empty() ID {
	return Empty
}

// AddEdge returns the Solution whose edges are sol's edges plus (from, to).
// If the edge is already present sol itself is returned.
func (s *Store) AddEdge(sol ID, from, to intern.Entity) ID {
	edge := Edge{From: from, To: to}

	s.mu.RLock()
	parent := s.edgesLocked(sol)
	i := sort.Search(len(parent), func(i int) bool { return !parent[i].less(edge) })
	if i < len(parent) && parent[i] == edge {
		s.mu.RUnlock()
		return sol
	}
	child := make([]Edge, 0, len(parent)+1)
	child = append(child, parent[:i]...)
	child = append(child, edge)
	child = append(child, parent[i:]...)
	s.mu.RUnlock()

	digest := digestOf(child)

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byDigest[digest]
	if !ok {
		id = s.allocLocked(child)
	}
	if s.ancestors != nil {
		parents := s.ancestors[id]
		if parents == nil {
			parents = make(map[ID]struct{})
			s.ancestors[id] = parents
		}
		parents[sol] = struct{}{}
	}
	return id
}

// FromEdges returns the Solution holding exactly the given edges.
// Duplicates are ignored and order does not matter.
func (s *Store) FromEdges(edges []Edge) ID {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].less(sorted[j]) })
	uniq := sorted[:0]
	for i, e := range sorted {
		if i == 0 || e != sorted[i-1] {
			uniq = append(uniq, e)
		}
	}
	if len(uniq) == 0 {
		return Empty
	}

	digest := digestOf(uniq)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byDigest[digest]; ok {
		return id
	}
	owned := make([]Edge, len(uniq))
	copy(owned, uniq)
	return s.allocLocked(owned)
}

func (s *Store) allocLocked(edges []Edge) ID {
	digest := digestOf(edges)
	id := ID(len(s.sets))
	s.sets = append(s.sets, edges)
	s.digests = append(s.digests, digest)
	s.byDigest[digest] = id
	return id
}

func (s *Store) edgesLocked(sol ID) []Edge {
	if int(sol) >= len(s.sets) {
		panic(fmt.Sprintf("solution: unknown solution %d", sol))
	}
	return s.sets[sol]
}

// Edges returns the edges of sol sorted by (from, to).
// The returned slice must not be modified.
func (s *Store) Edges(sol ID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesLocked(sol)
}

// HasEdge reports whether sol contains (from, to).
func (s *Store) HasEdge(sol ID, from, to intern.Entity) bool {
	edges := s.Edges(sol)
	edge := Edge{From: from, To: to}
	i := sort.Search(len(edges), func(i int) bool { return !edges[i].less(edge) })
	return i < len(edges) && edges[i] == edge
}

// Len returns the number of edges in sol.
func (s *Store) Len(sol ID) int {
	return len(s.Edges(sol))
}

// Count returns the number of distinct Solutions in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// Digest returns the content address of sol.
func (s *Store) Digest(sol ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.edgesLocked(sol)
	return s.digests[sol]
}

// Ancestors returns the Solutions sol was derived from, in ascending order.
// It returns nil when the store was created without WithAncestors.
func (s *Store) Ancestors(sol ID) []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ancestors == nil {
		return nil
	}
	out := make([]ID, 0, len(s.ancestors[sol]))
	for p := range s.ancestors[sol] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Format renders sol as "from -> to" pairs using names for the node handles.
func (s *Store) Format(sol ID, name func(intern.Entity) string) string {
	edges := s.Edges(sol)
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = name(e.From) + " -> " + name(e.To)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func digestOf(edges []Edge) string {
	pairs := make([]ir.Edge, len(edges))
	for i, e := range edges {
		pairs[i] = ir.Edge{From: uint32(e.From), To: uint32(e.To)}
	}
	return ir.EdgeSetDigest(pairs)
}

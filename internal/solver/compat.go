package solver

import (
	"github.com/roach88/ibis/internal/intern"
	"github.com/roach88/ibis/internal/ir"
)

// capabilityLayers splits t into its leading capability names and the
// stripped inner type.
func (c *Closure) capabilityLayers(t intern.Entity) ([]intern.Entity, intern.Entity) {
	var caps []intern.Entity
	for c.in.Is(t, ir.WithCapability) && c.in.NumArgs(t) == 2 {
		caps = append(caps, c.in.Arg(t, 0))
		t = c.in.Arg(t, 1)
	}
	return caps, t
}

// HasCapability returns every capability carried by t, outermost first.
func (c *Closure) HasCapability(t intern.Entity) []intern.Entity {
	caps, _ := c.capabilityLayers(t)
	return caps
}

// Admits reports whether a source holding capability from may write into a
// sink holding capability to: some declared Capability(x, y) exists with
// from <= x and to <= y.
func (c *Closure) Admits(from, to intern.Entity) bool {
	for _, x := range c.Supertypes(from) {
		for y := range c.caps[x] {
			if c.Subtype(to, y) {
				return true
			}
		}
	}
	return false
}

// CapabilityAdmits reports whether every capability of x is admitted by
// some capability of y. A type without capabilities is admitted anywhere.
func (c *Closure) CapabilityAdmits(x, y intern.Entity) bool {
	xCaps, _ := c.capabilityLayers(x)
	if len(xCaps) == 0 {
		return true
	}
	yCaps, _ := c.capabilityLayers(y)
	for _, xc := range xCaps {
		ok := false
		for _, yc := range yCaps {
			if c.Admits(xc, yc) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// DataSubtype reports whether x <= y once leading capabilities are removed
// from both sides.
func (c *Closure) DataSubtype(x, y intern.Entity) bool {
	_, xs := c.capabilityLayers(x)
	_, ys := c.capabilityLayers(y)
	return c.Subtype(xs, ys)
}

// Compatible reports whether data of type x may flow into a sink of type y.
//
// Without capabilities on either side this is plain subtyping. Each
// capability on x must be admitted by a capability of y, after which x's
// wrapper is peeled; capabilities on y alone are ignored.
func (c *Closure) Compatible(x, y intern.Entity) bool {
	return c.CapabilityAdmits(x, y) && c.DataSubtype(x, y)
}

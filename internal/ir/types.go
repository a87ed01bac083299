package ir

import (
	"strings"
)

// Built-in type constructors. Every other name is a user-defined atom or
// generic constructor.
const (
	WithCapability = "ibis.WithCapability" // WithCapability(cap, inner)
	ProductType    = "ibis.ProductType"    // ProductType(a, b)
	UnionType      = "ibis.UnionType"      // UnionType(a, b)
	Labelled       = "ibis.Labelled"       // Labelled(label, inner)
	GenericType    = "ibis.GenericType"    // marker supertype of generic constructors
	InductiveType  = "ibis.InductiveType"  // marker supertype of inductive constructors
	AddTag         = "ibis.AddTag"         // AddTag(inner, tag)
	RemoveTag      = "ibis.RemoveTag"      // RemoveTag(inner, tag)
	UniversalType  = "ibis.UniversalType"  // top of the subtype lattice, written "*"
)

// UniversalSymbol is the surface syntax for UniversalType.
const UniversalSymbol = "*"

// Type is a structural type tree.
//
// A Type with no Args is an atom (or a bare generic constructor). Two Types
// are the same type exactly when Equal reports true; the interner relies on
// this to hand out one handle per structure.
type Type struct {
	Name string
	Args []Type
}

// Named returns an atom with the given name.
func Named(name string) Type {
	return Type{Name: name}
}

// Apply returns the application of constructor name to args.
func Apply(name string, args ...Type) Type {
	if len(args) == 0 {
		return Type{Name: name}
	}
	cp := make([]Type, len(args))
	copy(cp, args)
	return Type{Name: name, Args: cp}
}

// Universal returns the top type.
func Universal() Type {
	return Type{Name: UniversalType}
}

// Capable wraps inner with a capability layer.
func Capable(capability string, inner Type) Type {
	return Apply(WithCapability, Named(capability), inner)
}

// Product returns the right-nested product of parts.
// A single part is returned unchanged.
func Product(parts ...Type) Type {
	switch len(parts) {
	case 0:
		return Type{}
	case 1:
		return parts[0]
	}
	return Apply(ProductType, parts[0], Product(parts[1:]...))
}

// Union returns the union of a and b.
func Union(a, b Type) Type {
	return Apply(UnionType, a, b)
}

// Label returns inner labelled with label.
func Label(label string, inner Type) Type {
	return Apply(Labelled, Named(label), inner)
}

// Is reports whether t is an application of constructor name.
func (t Type) Is(name string) bool {
	return t.Name == name
}

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool {
	return t.Name == "" && len(t.Args) == 0
}

// Bare returns the constructor of t with its arguments dropped.
func (t Type) Bare() Type {
	return Type{Name: t.Name}
}

// Equal reports structural equality.
func (t Type) Equal(other Type) bool {
	if t.Name != other.Name || len(t.Args) != len(other.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// StripCapabilities removes every leading WithCapability layer.
func (t Type) StripCapabilities() Type {
	for t.Is(WithCapability) && len(t.Args) == 2 {
		t = t.Args[1]
	}
	return t
}

// Capabilities returns the capability names of the leading WithCapability
// layers, outermost first.
func (t Type) Capabilities() []string {
	var caps []string
	for t.Is(WithCapability) && len(t.Args) == 2 {
		caps = append(caps, t.Args[0].String())
		t = t.Args[1]
	}
	return caps
}

// String renders t in the surface syntax accepted by ParseType.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) write(b *strings.Builder) {
	switch {
	case t.Name == UniversalType && len(t.Args) == 0:
		b.WriteString(UniversalSymbol)
	case t.Name == WithCapability && len(t.Args) == 2 && t.Args[0].isWord():
		t.Args[0].write(b)
		b.WriteByte(' ')
		t.Args[1].write(b)
	case t.Name == Labelled && len(t.Args) == 2 && t.Args[0].isAtom():
		t.Args[0].write(b)
		b.WriteString(": ")
		t.Args[1].write(b)
	case (t.Name == AddTag || t.Name == RemoveTag) && len(t.Args) == 2 && t.Args[1].isWord():
		inner := t.Args[0]
		if inner.prefixSugared() {
			b.WriteByte('(')
			inner.write(b)
			b.WriteByte(')')
		} else {
			inner.write(b)
		}
		if t.Name == AddTag {
			b.WriteString(" +")
		} else {
			b.WriteString(" -")
		}
		b.WriteString(t.Args[1].Name)
	case t.Name == ProductType && len(t.Args) == 2:
		b.WriteByte('{')
		t.Args[0].write(b)
		rest := t.Args[1]
		for rest.Name == ProductType && len(rest.Args) == 2 {
			b.WriteString(", ")
			rest.Args[0].write(b)
			rest = rest.Args[1]
		}
		b.WriteString(", ")
		rest.write(b)
		b.WriteByte('}')
	default:
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('(')
			for i, arg := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				arg.write(b)
			}
			b.WriteByte(')')
		}
	}
}

func (t Type) isAtom() bool {
	return len(t.Args) == 0 && t.Name != "" && t.Name != UniversalType
}

func (t Type) isWord() bool {
	return len(t.Args) == 0 && isCapWord(t.Name)
}

// prefixSugared reports whether t renders with a prefix form that would
// swallow a trailing tag.
func (t Type) prefixSugared() bool {
	return (t.Name == WithCapability && len(t.Args) == 2 && t.Args[0].isWord()) ||
		(t.Name == Labelled && len(t.Args) == 2 && t.Args[0].isAtom())
}

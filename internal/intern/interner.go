// Package intern maps structural types to compact Entity handles.
//
// The Interner owns every canonical Type used during a solve. Structurally
// equal trees always receive the same Entity, whether they came from text
// or from programmatic construction, so the solver can compare types by
// handle equality alone.
//
// Thread-safety: all methods are safe for concurrent use. Lookups that miss
// take the write lock and re-check before inserting, so the check-then-insert
// is a single critical section.
package intern

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/roach88/ibis/internal/ir"
)

// Entity is an opaque handle for an interned Type.
// Two Entities are equal iff their Types are structurally equal.
type Entity uint32

// entry is the canonical form of one interned type: its constructor name and
// the handles of its arguments.
type entry struct {
	name string
	args []Entity
}

// entryKey identifies an entry in the reverse index. The name and the
// argument handles live in separate fields and every handle takes exactly
// four bytes, so no name can impersonate an application.
type entryKey struct {
	name string
	args string
}

func (e entry) key() entryKey {
	if len(e.args) == 0 {
		return entryKey{name: e.name}
	}
	buf := make([]byte, 4*len(e.args))
	for i, a := range e.args {
		binary.BigEndian.PutUint32(buf[4*i:], uint32(a))
	}
	return entryKey{name: e.name, args: string(buf)}
}

// Interner is the arena of canonical types plus its reverse index and the
// parse cache keyed by exact substring.
type Interner struct {
	mu      sync.RWMutex
	entries []entry
	byKey   map[entryKey]Entity
	byText  map[string]Entity
}

// New creates an empty Interner.
func New() *Interner {
	return &Interner{
		byKey:  make(map[entryKey]Entity),
		byText: make(map[string]Entity),
	}
}

// Intern parses text and returns the canonical handle for the resulting type.
//
// Every substring that covers a subtree is cached, so repeated substructures
// share handles and re-interning the same text is a map lookup. A parse error
// leaves the interner untouched.
func (in *Interner) Intern(text string) (Entity, error) {
	in.mu.RLock()
	e, ok := in.byText[text]
	in.mu.RUnlock()
	if ok {
		return e, nil
	}

	type span struct {
		text string
		ty   ir.Type
	}
	var spans []span
	ty, err := ir.ParseTypeFunc(text, func(sub string, t ir.Type) {
		spans = append(spans, span{text: sub, ty: t})
	})
	if err != nil {
		return 0, fmt.Errorf("intern: %w", err)
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range spans {
		if _, ok := in.byText[s.text]; !ok {
			in.byText[s.text] = in.insertLocked(s.ty)
		}
	}
	e = in.insertLocked(ty)
	in.byText[text] = e
	return e, nil
}

// MustIntern is like Intern but panics on error.
// Use only in tests or when inputs are known to be valid.
func (in *Interner) MustIntern(text string) Entity {
	e, err := in.Intern(text)
	if err != nil {
		panic(err)
	}
	return e
}

// ByType returns the canonical handle for a programmatically built type.
func (in *Interner) ByType(t ir.Type) Entity {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.insertLocked(t)
}

// Apply returns the handle of constructor name applied to already interned
// arguments.
func (in *Interner) Apply(name string, args ...Entity) Entity {
	cp := make([]Entity, len(args))
	copy(cp, args)
	en := entry{name: name, args: cp}
	k := en.key()

	in.mu.RLock()
	e, ok := in.byKey[k]
	in.mu.RUnlock()
	if ok {
		return e
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	return in.addLocked(en, k)
}

// Named returns the handle of an argument-less type.
func (in *Interner) Named(name string) Entity {
	return in.Apply(name)
}

// insertLocked canonicalizes t bottom-up. Caller holds the write lock.
func (in *Interner) insertLocked(t ir.Type) Entity {
	args := make([]Entity, len(t.Args))
	for i, a := range t.Args {
		args[i] = in.insertLocked(a)
	}
	en := entry{name: t.Name, args: args}
	return in.addLocked(en, en.key())
}

func (in *Interner) addLocked(en entry, k entryKey) Entity {
	if e, ok := in.byKey[k]; ok {
		return e
	}
	e := Entity(len(in.entries))
	in.entries = append(in.entries, en)
	in.byKey[k] = e
	return e
}

func (in *Interner) get(e Entity) entry {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(e) >= len(in.entries) {
		panic(fmt.Sprintf("intern: unknown entity %d", e))
	}
	return in.entries[e]
}

// Type rebuilds the structural tree for e.
func (in *Interner) Type(e Entity) ir.Type {
	en := in.get(e)
	t := ir.Type{Name: en.name}
	if len(en.args) > 0 {
		t.Args = make([]ir.Type, len(en.args))
		for i, a := range en.args {
			t.Args[i] = in.Type(a)
		}
	}
	return t
}

// String renders e in the surface syntax.
func (in *Interner) String(e Entity) string {
	return in.Type(e).String()
}

// Name returns the constructor name of e.
func (in *Interner) Name(e Entity) string {
	return in.get(e).name
}

// Args returns the argument handles of e.
func (in *Interner) Args(e Entity) []Entity {
	en := in.get(e)
	out := make([]Entity, len(en.args))
	copy(out, en.args)
	return out
}

// NumArgs returns the number of arguments of e.
func (in *Interner) NumArgs(e Entity) int {
	return len(in.get(e).args)
}

// Arg returns argument i of e. It panics if e has no such argument.
func (in *Interner) Arg(e Entity, i int) Entity {
	en := in.get(e)
	if i < 0 || i >= len(en.args) {
		panic(fmt.Sprintf("intern: entity %d (%s) has no argument %d", e, en.name, i))
	}
	return en.args[i]
}

// Bare returns the handle of e's constructor with the arguments dropped.
func (in *Interner) Bare(e Entity) Entity {
	en := in.get(e)
	if len(en.args) == 0 {
		return e
	}
	return in.Named(en.name)
}

// Is reports whether e is an application of constructor name.
func (in *Interner) Is(e Entity, name string) bool {
	return in.get(e).name == name
}

// Len returns the number of distinct interned types.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.entries)
}

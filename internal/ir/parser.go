package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports malformed type text.
type ParseError struct {
	Input  string // full text being parsed
	Offset int    // byte offset of the failure
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse type %q at offset %d: %s", e.Input, e.Offset, e.Reason)
}

// IsParseError returns true if err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// SubtreeFunc observes every subtree produced while parsing together with the
// exact substring it covers (leading and trailing whitespace removed).
// Subtrees are reported bottom-up: arguments before the types that hold them.
type SubtreeFunc func(text string, t Type)

// ParseType parses the surface syntax of a type.
//
// Grammar (whitespace is allowed between tokens):
//
//	type     := primary tag* ;
//	primary  := "(" type ")"
//	          | "{" type ("," type)* "}"     right-nested ProductType
//	          | name ":" type                Labelled(name, type)
//	          | capword ws+ type             WithCapability(capword, type)
//	          | name ("(" [type ("," type)*] ")")? ;
//	tag      := ("+" | "-") capword ;        AddTag / RemoveTag
//	capword  := [a-z_]+ ;
//	name     := any run of characters except ( ) { } , : and whitespace.
//
// The name "*" denotes UniversalType.
func ParseType(text string) (Type, error) {
	return ParseTypeFunc(text, nil)
}

// MustParseType is like ParseType but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseType(text string) Type {
	t, err := ParseType(text)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTypeFunc parses text and reports every subtree to visit.
// On error visit may already have observed subtrees of the valid prefix;
// callers that cache must stage those until the parse succeeds.
func ParseTypeFunc(text string, visit SubtreeFunc) (Type, error) {
	p := &parser{input: text, visit: visit}
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Type{}, p.errorf("unexpected trailing input %q", p.input[p.pos:])
	}
	return t, nil
}

type parser struct {
	input string
	pos   int
	visit SubtreeFunc
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Input: p.input, Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) emit(start int, t Type) Type {
	if p.visit != nil {
		p.visit(strings.TrimSpace(p.input[start:p.pos]), t)
	}
	return t
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.input) {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.input[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) parseType() (Type, error) {
	p.skipSpace()
	start := p.pos
	t, err := p.parsePrimary()
	if err != nil {
		return Type{}, err
	}
	for {
		save := p.pos
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			p.pos = save
			break
		}
		p.pos++
		word := p.capWord()
		if word == "" {
			p.pos = save
			break
		}
		ctor := AddTag
		if op == '-' {
			ctor = RemoveTag
		}
		t = p.emit(start, Apply(ctor, t, Named(word)))
	}
	return t, nil
}

func (p *parser) parsePrimary() (Type, error) {
	start := p.pos
	switch p.peek() {
	case 0:
		return Type{}, p.errorf("expected a type, got end of input")
	case '(':
		p.pos++
		t, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		if err := p.expect(')'); err != nil {
			return Type{}, err
		}
		return p.emit(start, t), nil
	case '{':
		p.pos++
		parts, err := p.parseList('}')
		if err != nil {
			return Type{}, err
		}
		if len(parts) == 0 {
			return Type{}, p.errorf("product type requires at least one member")
		}
		return p.emit(start, Product(parts...)), nil
	case ')', '}', ',', ':':
		return Type{}, p.errorf("unexpected %q", p.input[p.pos])
	}

	// label: T
	if name := p.name(); name != "" {
		p.skipSpace()
		if p.peek() == ':' {
			p.pos++
			inner, err := p.parseType()
			if err != nil {
				return Type{}, err
			}
			label := p.atom(name)
			return p.emit(start, Apply(Labelled, label, inner)), nil
		}
	}
	p.pos = start

	// cap T
	if word := p.capWord(); word != "" && p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		afterWord := p.pos
		p.skipSpace()
		if startsType(p.peek()) {
			inner, err := p.parseType()
			if err != nil {
				return Type{}, err
			}
			capType := Named(word)
			if p.visit != nil {
				p.visit(word, capType)
			}
			return p.emit(start, Apply(WithCapability, capType, inner)), nil
		}
		p.pos = afterWord
	}
	p.pos = start

	// Name or Name(args)
	name := p.name()
	if name == "" {
		return Type{}, p.errorf("expected a type name")
	}
	save := p.pos
	p.skipSpace()
	if p.peek() != '(' {
		p.pos = save
		return p.atom(name), nil
	}
	p.pos++
	args, err := p.parseList(')')
	if err != nil {
		return Type{}, err
	}
	return p.emit(start, Apply(canonicalName(name), args...)), nil
}

// parseList parses a comma separated, possibly empty, list of types up to
// and including the closing delimiter.
func (p *parser) parseList(closer byte) ([]Type, error) {
	var items []Type
	p.skipSpace()
	if p.peek() == closer {
		p.pos++
		return items, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		items = append(items, t)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return items, nil
		case 0:
			return nil, p.errorf("expected %q, got end of input", closer)
		default:
			return nil, p.errorf("expected ',' or %q, got %q", closer, p.input[p.pos])
		}
	}
}

func (p *parser) atom(name string) Type {
	t := Named(canonicalName(name))
	if p.visit != nil {
		p.visit(name, t)
	}
	return t
}

func (p *parser) name() string {
	start := p.pos
	for p.pos < len(p.input) && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) capWord() string {
	start := p.pos
	for p.pos < len(p.input) && isLowerChar(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func canonicalName(name string) string {
	if name == UniversalSymbol {
		return UniversalType
	}
	return name
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	switch c {
	case '(', ')', '{', '}', ',', ':':
		return false
	}
	return !isSpace(c)
}

func isLowerChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || c == '_'
}

func startsType(c byte) bool {
	return c == '(' || c == '{' || (c != 0 && isNameChar(c))
}

func isCapWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLowerChar(s[i]) {
			return false
		}
	}
	return true
}

// Package typeexpr interprets the declarative type expressions used by schema
// catalogs ("string", "Sequence[Person]", "Union[File, Dataset]", ...).
//
// Expressions are parsed into an explicit recursive descriptor and checked
// against values by a conformance visitor. No host reflection is involved.
package typeexpr

import "strings"

// Kind identifies an expression node type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindSequence
	KindOptional
	KindUnion
	KindLiteral
	KindEntityRef
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindSequence:
		return "sequence"
	case KindOptional:
		return "optional"
	case KindUnion:
		return "union"
	case KindLiteral:
		return "literal"
	case KindEntityRef:
		return "entity"
	default:
		return "unknown"
	}
}

// Primitive names.
const (
	Boolean = "boolean"
	String  = "string"
	Integer = "integer"
	Float   = "float"
	Any     = "any"
)

// Expr is the root descriptor interface.
type Expr interface {
	Kind() Kind
	// String renders the canonical expression text; Parse(e.String()) yields an
	// equivalent descriptor.
	String() string
}

// Primitive represents boolean/string/integer/float/any.
type Primitive struct {
	Name string
}

func (p *Primitive) Kind() Kind     { return KindPrimitive }
func (p *Primitive) String() string { return p.Name }

// Sequence represents a homogeneous list of Elem.
type Sequence struct {
	Elem Expr
}

func (s *Sequence) Kind() Kind     { return KindSequence }
func (s *Sequence) String() string { return "Sequence[" + s.Elem.String() + "]" }

// Optional accepts a missing (nil) value or Inner.
type Optional struct {
	Inner Expr
}

func (o *Optional) Kind() Kind     { return KindOptional }
func (o *Optional) String() string { return "Optional[" + o.Inner.String() + "]" }

// Union accepts any one of Variants; the first conforming variant wins.
type Union struct {
	Variants []Expr
}

func (u *Union) Kind() Kind { return KindUnion }
func (u *Union) String() string {
	parts := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		parts[i] = v.String()
	}
	return "Union[" + strings.Join(parts, ", ") + "]"
}

// Literal accepts exactly one of the allowed string values.
type Literal struct {
	Values []string
}

func (l *Literal) Kind() Kind { return KindLiteral }
func (l *Literal) String() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = quote(v)
	}
	return "Literal[" + strings.Join(parts, ", ") + "]"
}

// Allows reports whether s is one of the literal values.
func (l *Literal) Allows(s string) bool {
	for _, v := range l.Values {
		if v == s {
			return true
		}
	}
	return false
}

// EntityRef references an entity kind by name. The name is resolved against
// the owning domain catalog first, then the base catalog.
type EntityRef struct {
	Name string
}

func (r *EntityRef) Kind() Kind     { return KindEntityRef }
func (r *EntityRef) String() string { return r.Name }

func quote(s string) string {
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

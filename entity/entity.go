// Package entity implements the unit of a crate: a property bag with a fixed
// identity, typed by a Kind that ties it to a domain catalog.
//
// Property values are scalars (string, bool, int64, float64), sequences
// ([]any) or references to other entities. A reference is either a live
// *Entity owned by the same crate or a Ref carrying only the target id.
// Entities never own each other, so reference cycles need no special care.
package entity

import (
	"fmt"
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/typeexpr"
)

// Entity is one node of a crate.
type Entity struct {
	kind    *Kind
	id      string
	context string

	keys  []string
	props map[string]any
}

var _ niidg.Identifier = (*Entity)(nil)

// New returns an entity of kind k. Entities of a non-base domain carry the
// context URL of their domain built from niidg.ContextSource.
func New(k *Kind, id string) *Entity {
	e := &Entity{kind: k, id: id, props: map[string]any{}}
	if k.Domain != niidg.BaseDomain || k.Category != Default {
		repo, ref := niidg.ContextSource()
		e.context = ContextURL(repo, ref, k.Domain)
	}
	return e
}

// ID returns the immutable @id.
func (e *Entity) ID() string { return e.id }

// Type returns the serialized @type.
func (e *Entity) Type() string { return e.kind.JSONType() }

// Domain returns the domain of the entity's kind.
func (e *Entity) Domain() string { return e.kind.Domain }

// Kind returns the kind descriptor.
func (e *Entity) Kind() *Kind { return e.kind }

// Context returns the @context URL. Root and metadata entities have none.
func (e *Entity) Context() string { return e.context }

// SetContext replaces the @context URL, as decoding does.
func (e *Entity) SetContext(ctx string) { e.context = ctx }

// InstanceOf reports whether the entity's kind is k or refines it.
func (e *Entity) InstanceOf(k typeexpr.KindID) bool {
	if e == nil || e.kind == nil {
		return false
	}
	return e.kind.Is(k)
}

// Get returns the value of a property.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

// GetString returns a string property; ok is false when absent or not a string.
func (e *Entity) GetString(name string) (string, bool) {
	s, ok := e.props[name].(string)
	return s, ok
}

// Has reports whether a property is set.
func (e *Entity) Has(name string) bool {
	_, ok := e.props[name]
	return ok
}

// Set assigns a property, keeping the position of an existing key. Go numeric
// and slice types are normalized to the value model.
//
// Set panics when name is @id, @type or @context: identity is fixed by New
// and the context by SetContext, so such a call is a programming error.
func (e *Entity) Set(name string, v any) {
	switch name {
	case "@id", "@type", "@context":
		panic("entity: " + name + " is not a settable property")
	}
	if _, ok := e.props[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.props[name] = normalize(v)
}

// With sets a property and returns e for chaining.
func (e *Entity) With(name string, v any) *Entity {
	e.Set(name, v)
	return e
}

// Delete removes a property. Deleting an absent property is a no-op.
func (e *Entity) Delete(name string) {
	if _, ok := e.props[name]; !ok {
		return
	}
	delete(e.props, name)
	for i, k := range e.keys {
		if k == name {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the property names in assignment order.
func (e *Entity) Keys() []string { return append([]string(nil), e.keys...) }

// Entities returns the live entities referenced by a property holding a
// single reference or a sequence of them. Unresolved Refs are skipped.
func (e *Entity) Entities(name string) []*Entity {
	var out []*Entity
	switch v := e.props[name].(type) {
	case *Entity:
		out = append(out, v)
	case []any:
		for _, it := range v {
			if x, ok := it.(*Entity); ok {
				out = append(out, x)
			}
		}
	}
	return out
}

func (e *Entity) String() string {
	if e == nil {
		return "<nil entity>"
	}
	return fmt.Sprintf("<%s.%s %s>", e.Domain(), e.Type(), e.id)
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case []*Entity:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	case []Ref:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	default:
		return v
	}
}

// Ref is an id-only reference to an entity that is not part of the graph,
// or that could not be resolved while decoding.
type Ref struct {
	ID string
}

func (r Ref) String() string { return `{"@id": "` + r.ID + `"}` }

// IDOf returns the id carried by a reference value.
func IDOf(v any) (string, bool) {
	switch t := v.(type) {
	case *Entity:
		if t == nil {
			return "", false
		}
		return t.id, true
	case Ref:
		return t.ID, true
	case *Ref:
		if t == nil {
			return "", false
		}
		return t.ID, true
	default:
		return "", false
	}
}

// SameRef reports whether two reference values point at the same id.
func SameRef(a, b any) bool {
	ia, ok := IDOf(a)
	if !ok {
		return false
	}
	ib, ok := IDOf(b)
	return ok && ia == ib
}

// hasReservedPrefix reports graph-control keys that catalogs never declare.
func hasReservedPrefix(name string) bool { return strings.HasPrefix(name, "@") }

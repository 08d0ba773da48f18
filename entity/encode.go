package entity

import (
	"github.com/goccy/go-json"

	"github.com/reoring/niidg/internal/jsonld"
)

// Encode checks the structure of e and returns its node with every entity
// reference collapsed to {"@id": id}. An invalid entity is refused with the
// error of CheckStructure.
func (e *Entity) Encode() (*jsonld.Object, error) {
	if err := e.CheckStructure(); err != nil {
		return nil, err
	}
	return e.Node(), nil
}

// Node returns the serialized form of e without checking it. Keys are
// ordered @id, @type, @context, then properties in assignment order.
func (e *Entity) Node() *jsonld.Object {
	o := jsonld.NewObject()
	o.Set("@id", e.id)
	o.Set("@type", e.Type())
	if e.context != "" {
		o.Set("@context", e.context)
	}
	for _, k := range e.keys {
		o.Set(k, collapse(e.props[k]))
	}
	return o
}

// MarshalJSON implements json.Marshaler via Encode.
func (e *Entity) MarshalJSON() ([]byte, error) {
	o, err := e.Encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(o)
}

func collapse(v any) any {
	if id, ok := IDOf(v); ok {
		ref := jsonld.NewObject()
		ref.Set("@id", id)
		return ref
	}
	if seq, ok := v.([]any); ok {
		out := make([]any, len(seq))
		for i, it := range seq {
			out[i] = collapse(it)
		}
		return out
	}
	return v
}

package catalog

import (
	"fmt"

	"github.com/reoring/niidg/jsonschema"
	"github.com/reoring/niidg/typeexpr"
)

// JSONSchema projects the contract of one entity kind onto a JSON Schema
// describing its serialized node. Entity-valued properties become id-only
// references.
func JSONSchema(domain, kind string) (*jsonschema.Schema, error) {
	s, err := Load(domain)
	if err != nil {
		return nil, err
	}
	d, ok := s.Entity(kind)
	if !ok {
		return nil, fmt.Errorf("catalog: %s has no entity %s", domain, kind)
	}
	out := &jsonschema.Schema{
		Schema:      jsonschema.Draft,
		ID:          domain + "/" + kind,
		Title:       kind,
		Type:        "object",
		Description: d.Description,
		Properties: map[string]*jsonschema.Schema{
			"@id":      {Type: "string"},
			"@type":    {Type: "string"},
			"@context": {Type: "string", Format: "uri"},
		},
		Required:             []string{"@id", "@type"},
		AdditionalProperties: false,
	}
	for _, p := range d.props {
		ps := project(p.Expected)
		if p.Description != "" && ps.Description == "" {
			ps.Description = p.Description
		}
		out.Properties[p.Name] = ps
		if p.Required {
			out.Required = append(out.Required, p.Name)
		}
	}
	return out, nil
}

func project(e typeexpr.Expr) *jsonschema.Schema {
	switch t := e.(type) {
	case *typeexpr.Primitive:
		switch t.Name {
		case typeexpr.String:
			return &jsonschema.Schema{Type: "string"}
		case typeexpr.Boolean:
			return &jsonschema.Schema{Type: "boolean"}
		case typeexpr.Integer:
			return &jsonschema.Schema{Type: "integer"}
		case typeexpr.Float:
			return &jsonschema.Schema{Type: "number"}
		default:
			return &jsonschema.Schema{}
		}
	case *typeexpr.Sequence:
		return &jsonschema.Schema{Type: "array", Items: project(t.Elem)}
	case *typeexpr.Optional:
		return jsonschema.Nullable(project(t.Inner))
	case *typeexpr.Union:
		u := &jsonschema.Schema{}
		for _, v := range t.Variants {
			u.AnyOf = append(u.AnyOf, project(v))
		}
		return u
	case *typeexpr.Literal:
		enum := make([]any, len(t.Values))
		for i, v := range t.Values {
			enum[i] = v
		}
		return &jsonschema.Schema{Type: "string", Enum: enum}
	case *typeexpr.EntityRef:
		r := jsonschema.Ref()
		r.Description = "Reference to a " + t.Name + " entity."
		return r
	default:
		return &jsonschema.Schema{}
	}
}

package jsonschema

// Draft is the dialect URI stamped on exported root documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a minimal JSON Schema representation used for catalog export.
// Only the keywords a property contract can produce are modelled.
type Schema struct {
	// Root
	Schema string `json:"$schema,omitempty"`
	ID     string `json:"$id,omitempty"`
	Title  string `json:"title,omitempty"`

	// Core
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty"`

	// Union
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// Ref returns the schema of an id-only node reference, the serialized form of
// an entity-valued property.
func Ref() *Schema {
	return &Schema{
		Type:                 "object",
		Properties:           map[string]*Schema{"@id": {Type: "string"}},
		Required:             []string{"@id"},
		AdditionalProperties: false,
	}
}

// Nullable widens s to also accept null.
func Nullable(s *Schema) *Schema {
	return &Schema{AnyOf: []*Schema{s, {Type: "null"}}}
}

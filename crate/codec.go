package crate

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/internal/jsonld"
	"github.com/reoring/niidg/schema/base"
)

// ErrDocument is wrapped by every decoding failure caused by the shape of
// the document.
var ErrDocument = errors.New("crate: invalid document")

func docErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDocument}, args...)...)
}

// Encode checks the crate and returns its document. Duplicates fail first
// with a *niidg.CrateError; otherwise every structural violation of every
// entity is returned in one *niidg.CrateCheckPropsError.
func (c *Crate) Encode() (*jsonld.Object, error) {
	if err := c.CheckDuplicates(); err != nil {
		return nil, err
	}
	if err := c.CheckProps(); err != nil {
		return nil, err
	}
	all := c.All()
	graph := make([]any, 0, len(all))
	for _, e := range all {
		graph = append(graph, e.Node())
	}
	doc := jsonld.NewObject()
	doc.Set("@context", niidg.ROCrateContext)
	doc.Set("@graph", graph)
	return doc, nil
}

// MarshalJSON implements json.Marshaler via Encode.
func (c *Crate) MarshalJSON() ([]byte, error) {
	doc, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Dump writes the indented document to path.
func (c *Crate) Dump(path string) error {
	b, err := c.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return fmt.Errorf("crate: indent: %w", err)
	}
	buf.WriteByte('\n')
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("crate: dump: %w", err)
	}
	return nil
}

// Load reads and decodes the document at path.
func Load(path string, opts ...Option) (*Crate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crate: load: %w", err)
	}
	return Parse(b, opts...)
}

// Parse decodes a JSON document. Duplicate object keys are rejected.
func Parse(data []byte, opts ...Option) (*Crate, error) {
	v, err := jsonld.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	doc, ok := v.(*jsonld.Object)
	if !ok {
		return nil, docErr("top level is not an object")
	}
	return Decode(doc, opts...)
}

// Decode builds a crate from a decoded document. The root and the metadata
// descriptor are recognized by their fixed id and type. Every other node is
// built by the kind its @context domain registers under its @type. Id-only
// references are then resolved against the crate, preferring an entity of
// the referencing domain, then of base. References to entities outside the
// crate stay entity.Ref values. The root's hasPart is rebuilt from the data
// entities in document order.
func Decode(doc *jsonld.Object, opts ...Option) (*Crate, error) {
	if ctx, _ := doc.String("@context"); ctx != niidg.ROCrateContext {
		return nil, docErr("@context MUST be %s", niidg.ROCrateContext)
	}
	raw, ok := doc.Get("@graph")
	nodes, isSeq := raw.([]any)
	if !ok || !isSeq {
		return nil, docErr("@graph MUST be an array")
	}
	c := newCrate(opts)
	for i, n := range nodes {
		node, ok := n.(*jsonld.Object)
		if !ok {
			return nil, docErr("@graph[%d] is not an object", i)
		}
		if err := c.decodeNode(node); err != nil {
			return nil, fmt.Errorf("@graph[%d]: %w", i, err)
		}
	}
	if c.root == nil {
		return nil, docErr("no root data entity %q", niidg.RootID)
	}
	if c.metadata == nil {
		return nil, docErr("no metadata descriptor %q", niidg.MetadataID)
	}
	for _, e := range c.All() {
		c.resolve(e)
	}
	// hasPart mirrors the data entities by position, not by id.
	c.syncParts()
	return c, nil
}

func (c *Crate) decodeNode(node *jsonld.Object) error {
	id, ok := node.String("@id")
	if !ok {
		return docErr("@id MUST be a string")
	}
	typ, ok := node.String("@type")
	if !ok {
		return docErr("@type of %s MUST be a string", id)
	}
	ctx, hasCtx := node.String("@context")

	var e *entity.Entity
	switch {
	case id == niidg.RootID && typ == niidg.RootType:
		if c.root != nil {
			return docErr("more than one root data entity")
		}
		e = entity.New(base.RootDataEntity, id)
		c.root = e
	case id == niidg.MetadataID && typ == niidg.MetadataType:
		if c.metadata != nil {
			return docErr("more than one metadata descriptor")
		}
		e = entity.New(base.ROCrateMetadata, id)
		c.metadata = e
	default:
		if !hasCtx {
			return docErr("@context of %s is missing", id)
		}
		ref, err := entity.ParseContext(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDocument, err)
		}
		if !ref.Compatible() {
			c.logger.Warn("context version is not compatible", "id", id, "context", ctx, "supported", niidg.ContextVersion)
		}
		k, ok := lookupKind(ref.Domain, typ)
		if !ok {
			return docErr("unknown kind %s in domain %s", typ, ref.Domain)
		}
		e = entity.New(k, id)
		switch k.Category {
		case entity.Data:
			c.data = append(c.data, e)
		case entity.Contextual:
			c.contextual = append(c.contextual, e)
		default:
			return fmt.Errorf("%w: %s is %s", ErrUnclassified, e, k.Category)
		}
	}
	if hasCtx {
		e.SetContext(ctx)
	}
	for _, key := range node.Keys() {
		switch key {
		case "@id", "@type", "@context":
			continue
		}
		v, _ := node.Get(key)
		e.Set(key, fromJSON(v))
	}
	return nil
}

// lookupKind finds the kind decoding a @type, by name first and then by the
// serialized type of kinds whose name differs.
func lookupKind(domain, typ string) (*entity.Kind, bool) {
	if k, ok := entity.Lookup(domain, typ); ok && k.Category != entity.Default {
		return k, true
	}
	for _, k := range entity.Kinds(domain) {
		if k.Category != entity.Default && k.JSONType() == typ {
			return k, true
		}
	}
	return nil, false
}

// fromJSON turns decoded JSON into the entity value model: {"@id": x} becomes
// a Ref and other objects become maps.
func fromJSON(v any) any {
	switch t := v.(type) {
	case *jsonld.Object:
		if id, ok := t.String("@id"); ok && t.Len() == 1 {
			return entity.Ref{ID: id}
		}
		m := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			x, _ := t.Get(k)
			m[k] = fromJSON(x)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = fromJSON(t[i])
		}
		return out
	default:
		return v
	}
}

func (c *Crate) resolve(e *entity.Entity) {
	for _, key := range e.Keys() {
		v, _ := e.Get(key)
		switch t := v.(type) {
		case entity.Ref:
			if target := c.target(e, t.ID); target != nil {
				e.Set(key, target)
			}
		case []any:
			changed := false
			out := make([]any, len(t))
			for i, it := range t {
				out[i] = it
				if ref, ok := it.(entity.Ref); ok {
					if target := c.target(e, ref.ID); target != nil {
						out[i] = target
						changed = true
					}
				}
			}
			if changed {
				e.Set(key, out)
			}
		}
	}
}

// target picks the entity a reference from e resolves to.
func (c *Crate) target(e *entity.Entity, id string) *entity.Entity {
	cands := c.GetByID(id)
	if len(cands) == 0 {
		return nil
	}
	for _, want := range []string{e.Domain(), niidg.BaseDomain} {
		for _, cand := range cands {
			if cand.Domain() == want {
				return cand
			}
		}
	}
	return cands[0]
}

package entity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/catalog"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
)

const testCatalog = `
Thing:
  props:
    name: {expected_type: str, required: Required.}
    size: {expected_type: int, required: Optional.}
    owner: {expected_type: Person, required: Optional.}
    parts: {expected_type: "List[Part]", required: Optional.}
    homepage: {expected_type: str, required: Optional.}
Part:
  props:
    name: {expected_type: str, required: Required.}
SubPart:
  props:
    name: {expected_type: str, required: Required.}
Broken:
  props:
    link: {expected_type: Nowhere, required: Optional.}
`

var (
	thingKind, partKind, subPartKind, brokenKind *entity.Kind
	// basePerson stands in for the base Person kind without registering it.
	basePerson = &entity.Kind{Domain: "base", Name: "Person", Category: entity.Contextual}
)

func init() {
	if err := catalog.Register("enttest", []byte(testCatalog)); err != nil {
		panic(err)
	}
	thingKind = entity.Register(&entity.Kind{
		Domain: "enttest", Name: "Thing", Category: entity.Contextual,
		Formats: map[string]check.Func{"homepage": check.URL},
		Structure: func(e *entity.Entity, errs *niidg.EntityError) {
			if n, ok := e.GetString("name"); ok && n == "forbidden" {
				errs.Add("name", "The value MUST NOT be 'forbidden'.")
			}
		},
		Validate: func(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
			if e.Has("size") {
				errs.Add("size", "size is governed")
			}
			if e.Has("homepage") {
				return &niidg.GovernanceError{Property: "homepage", Message: "homepage not reachable"}
			}
			if e.Has("owner") {
				return niidg.Unexpected(errors.New("probe exploded"))
			}
			return nil
		},
	})
	partKind = entity.Register(&entity.Kind{Domain: "enttest", Name: "Part", Category: entity.Data})
	subPartKind = entity.Register(&entity.Kind{Domain: "enttest", Name: "SubPart", Type: "Part", Category: entity.Data, Parent: partKind})
	brokenKind = entity.Register(&entity.Kind{Domain: "enttest", Name: "Broken", Category: entity.Contextual})
}

func issueCodes(t *testing.T, err error) map[string]string {
	t.Helper()
	ee, ok := niidg.AsEntityError(err)
	require.True(t, ok, "expected EntityError, got %v", err)
	out := map[string]string{}
	for _, it := range ee.Issues() {
		out[it.Property] = it.Code
	}
	return out
}

func TestProperties(t *testing.T) {
	e := entity.New(thingKind, "#thing")
	e.Set("name", "x")
	e.Set("size", 3)
	e.Set("parts", []*entity.Entity{entity.New(partKind, "a.txt")})
	e.Set("name", "y")

	assert.Equal(t, []string{"name", "size", "parts"}, e.Keys())
	v, _ := e.Get("size")
	assert.Equal(t, int64(3), v)
	v, _ = e.Get("parts")
	assert.IsType(t, []any{}, v)
	s, _ := e.GetString("name")
	assert.Equal(t, "y", s)

	e.Delete("size")
	e.Delete("missing")
	assert.False(t, e.Has("size"))
	assert.Equal(t, []string{"name", "parts"}, e.Keys())

	assert.Panics(t, func() { e.Set("@id", "other") })
	assert.Panics(t, func() { e.Set("@type", "Other") })
	assert.Panics(t, func() { e.Set("@context", "https://example.org") })
	assert.Equal(t, "#thing", e.ID())
	assert.Equal(t, "<enttest.Thing #thing>", e.String())
}

func TestCheckStructure_UnexpectedProperty(t *testing.T) {
	e := entity.New(thingKind, "#thing").With("name", "ok").With("colour", "red")
	assert.Equal(t, map[string]string{"colour": niidg.CodeUnknownKey}, issueCodes(t, e.CheckStructure()))

	e.Delete("colour")
	assert.NoError(t, e.CheckStructure())
}

func TestCheckStructure_Required(t *testing.T) {
	e := entity.New(thingKind, "#thing")
	assert.Equal(t, map[string]string{"name": niidg.CodeRequired}, issueCodes(t, e.CheckStructure()))

	e.Set("name", "ok")
	assert.NoError(t, e.CheckStructure())
}

func TestCheckStructure_Accumulates(t *testing.T) {
	e := entity.New(thingKind, "#thing").With("colour", "red").With("size", "big").With("homepage", "not a url")
	codes := issueCodes(t, e.CheckStructure())
	assert.Equal(t, map[string]string{
		"colour":   niidg.CodeUnknownKey,
		"name":     niidg.CodeRequired,
		"size":     niidg.CodeInvalidType,
		"homepage": niidg.CodeInvalidFormat,
	}, codes)

	ee, _ := niidg.AsEntityError(e.CheckStructure())
	assert.Contains(t, ee.Message("size"), "integer")
}

func TestCheckStructure_KindRule(t *testing.T) {
	e := entity.New(thingKind, "#thing").With("name", "forbidden")
	ee, ok := niidg.AsEntityError(e.CheckStructure())
	require.True(t, ok)
	assert.Equal(t, "The value MUST NOT be 'forbidden'.", ee.Message("name"))
}

func TestCheckStructure_References(t *testing.T) {
	person := entity.New(basePerson, "https://orcid.org/0000-0001-2345-6789")
	part := entity.New(partKind, "a.txt")
	sub := entity.New(subPartKind, "b.txt")

	e := entity.New(thingKind, "#thing").With("name", "ok").With("owner", person).With("parts", []any{part, sub})
	require.NoError(t, e.CheckStructure())

	e.Set("owner", part)
	assert.Equal(t, map[string]string{"owner": niidg.CodeInvalidType}, issueCodes(t, e.CheckStructure()))

	e.Set("owner", entity.Ref{ID: person.ID()})
	assert.Equal(t, map[string]string{"owner": niidg.CodeInvalidType}, issueCodes(t, e.CheckStructure()))
}

func TestCheckStructure_Unresolved(t *testing.T) {
	e := entity.New(brokenKind, "#b").With("link", "x")
	ee, ok := niidg.AsEntityError(e.CheckStructure())
	require.True(t, ok)
	assert.Contains(t, ee.Message("link"), "Nowhere")
}

func TestInstanceOf(t *testing.T) {
	sub := entity.New(subPartKind, "b.txt")
	assert.True(t, sub.InstanceOf(partKind.ID()))
	assert.True(t, sub.InstanceOf(subPartKind.ID()))
	assert.False(t, sub.InstanceOf(thingKind.ID()))

	var nilEntity *entity.Entity
	assert.False(t, nilEntity.InstanceOf(partKind.ID()))
}

func TestEncode(t *testing.T) {
	person := entity.New(basePerson, "https://orcid.org/0000-0001-2345-6789")
	e := entity.New(thingKind, "#thing").
		With("name", "ok").
		With("owner", person).
		With("parts", []any{entity.New(partKind, "a.txt"), entity.New(subPartKind, "b.txt")})

	o, err := e.Encode()
	require.NoError(t, err)
	assert.Equal(t, []string{"@id", "@type", "@context", "name", "owner", "parts"}, o.Keys())

	b, err := json.Marshal(e)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, map[string]any{"@id": person.ID()}, got["owner"])
	assert.Equal(t, []any{map[string]any{"@id": "a.txt"}, map[string]any{"@id": "b.txt"}}, got["parts"])
	assert.Equal(t, "Thing", got["@type"])
}

func TestEncode_RefusesIDOnlyReference(t *testing.T) {
	e := entity.New(thingKind, "#thing").
		With("name", "ok").
		With("parts", []any{entity.New(partKind, "a.txt"), entity.Ref{ID: "b.txt"}})

	_, err := e.Encode()
	ee, ok := niidg.AsEntityError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []string{"parts"}, ee.Properties())
	assert.Contains(t, ee.Message("parts"), "at [1]")
}

func TestEncode_RefusesInvalid(t *testing.T) {
	e := entity.New(thingKind, "#thing").With("colour", "red")
	_, err := e.Encode()
	_, ok := niidg.AsEntityError(err)
	assert.True(t, ok)

	_, err = json.Marshal(e)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	e := entity.New(thingKind, "#thing").With("name", "ok")
	assert.NoError(t, e.Validate(context.Background(), nil))

	e.Set("size", 1)
	e.Set("homepage", "https://example.com")
	ee, ok := niidg.AsEntityError(e.Validate(context.Background(), nil))
	require.True(t, ok)
	assert.Equal(t, []string{"size", "homepage"}, ee.Properties())

	e.Delete("homepage")
	e.Set("owner", entity.Ref{ID: "x"})
	var ue *niidg.UnexpectedError
	assert.ErrorAs(t, e.Validate(context.Background(), nil), &ue)
}

func TestRegistry(t *testing.T) {
	k, ok := entity.Lookup("enttest", "SubPart")
	require.True(t, ok)
	assert.Same(t, subPartKind, k)
	assert.Equal(t, "Part", k.JSONType())

	_, ok = entity.Lookup("enttest", "Nope")
	assert.False(t, ok)

	assert.Len(t, entity.Kinds("enttest"), 4)
	assert.Panics(t, func() { entity.Register(&entity.Kind{Domain: "enttest", Name: "Part"}) })
	assert.Panics(t, func() { entity.Register(&entity.Kind{Domain: "enttest", Name: "Undeclared"}) })
}

func TestContext(t *testing.T) {
	u := entity.ContextURL("ascade/nii_dg", "feature/ctx", "cao")
	assert.Equal(t, "https://raw.githubusercontent.com/ascade/nii_dg/feature/ctx/schema/context/cao.jsonld", u)

	ref, err := entity.ParseContext(u)
	require.NoError(t, err)
	assert.Equal(t, entity.ContextRef{Repo: "ascade/nii_dg", Ref: "feature/ctx", Domain: "cao"}, ref)
	assert.Nil(t, ref.Version())
	assert.True(t, ref.Compatible())

	tagged, err := entity.ParseContext(entity.ContextURL("ascade/nii_dg", "v1.2.0", "amed"))
	require.NoError(t, err)
	require.NotNil(t, tagged.Version())
	assert.True(t, tagged.Compatible())

	major, err := entity.ParseContext(entity.ContextURL("ascade/nii_dg", "v2.0.0", "amed"))
	require.NoError(t, err)
	assert.False(t, major.Compatible())

	for _, bad := range []string{
		"https://w3id.org/ro/crate/1.1/context",
		"https://raw.githubusercontent.com/ascade/schema/context/cao.jsonld",
		"https://raw.githubusercontent.com/ascade/nii_dg/main/schema/context/cao.json",
	} {
		_, err := entity.ParseContext(bad)
		assert.Error(t, err, bad)
	}

	e := entity.New(thingKind, "#thing")
	assert.Equal(t, "enttest", mustParse(t, e.Context()).Domain)
}

func mustParse(t *testing.T, s string) entity.ContextRef {
	t.Helper()
	ref, err := entity.ParseContext(s)
	require.NoError(t, err)
	return ref
}

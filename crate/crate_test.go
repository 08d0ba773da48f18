package crate_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/crate"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/internal/jsonld"
	"github.com/reoring/niidg/probe"
	"github.com/reoring/niidg/schema/base"
	"github.com/reoring/niidg/schema/cao"
	"github.com/reoring/niidg/schema/ginfork"
)

const (
	rorID   = "https://ror.org/04ksd4g47"
	orcidID = "https://orcid.org/0000-0002-1825-0097"
)

func fakeProber() probe.Prober {
	return probe.Func(func(_ context.Context, url string) (*probe.Response, error) {
		if strings.HasPrefix(url, probe.RORAPI) {
			return &probe.Response{StatusCode: 200, Body: []byte(`{"name":"National Institute of Informatics","aliases":["NII"]}`)}, nil
		}
		return &probe.Response{StatusCode: 200}, nil
	})
}

type fixture struct {
	crate  *crate.Crate
	org    *entity.Entity
	person *entity.Entity
	dmp    *entity.Entity
	meta   *entity.Entity
	file   *entity.Entity
}

// newFixture builds a complete cao crate in which every entity is valid.
func newFixture(t *testing.T, opts ...crate.Option) fixture {
	t.Helper()
	c := crate.New(opts...)
	c.Root().Set("name", "example research project")

	org := base.NewOrganization(rorID).With("name", "National Institute of Informatics")
	c.Root().Set("funder", []*entity.Entity{org})

	person := cao.NewPerson(orcidID).
		With("name", "Josiah Carberry").
		With("affiliation", org)

	dmp := cao.NewDMP(1).
		With("name", "example data").
		With("description", "Data collected by the example project.").
		With("keyword", "informatics").
		With("accessRights", cao.MetadataOnlyAccess).
		With("creator", []*entity.Entity{person})

	meta := cao.NewDMPMetadata().
		With("about", c.Root()).
		With("funder", org).
		With("keyword", "informatics").
		With("hasPart", []*entity.Entity{dmp})

	file := cao.NewFile("file_1.txt").
		With("name", "file_1.txt").
		With("contentSize", "1560B").
		With("dmpDataNumber", dmp).
		With("sdDatePublished", "2023-01-01")

	require.NoError(t, c.Add(org, person, dmp, meta, file))
	return fixture{crate: c, org: org, person: person, dmp: dmp, meta: meta, file: file}
}

func graphOf(t *testing.T, doc *jsonld.Object) []*jsonld.Object {
	t.Helper()
	v, ok := doc.Get("@graph")
	require.True(t, ok)
	seq, ok := v.([]any)
	require.True(t, ok)
	out := make([]*jsonld.Object, len(seq))
	for i, n := range seq {
		out[i], ok = n.(*jsonld.Object)
		require.True(t, ok)
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, crate.WithProber(fakeProber()))

	doc, err := f.crate.Encode()
	require.NoError(t, err)
	ctx, _ := doc.String("@context")
	assert.Equal(t, niidg.ROCrateContext, ctx)

	nodes := graphOf(t, doc)
	// root, metadata descriptor, file, organization, person, DMP, DMP metadata
	require.Len(t, nodes, 7)
	id, _ := nodes[0].String("@id")
	assert.Equal(t, niidg.RootID, id)

	parts, ok := nodes[0].Get("hasPart")
	require.True(t, ok)
	seq := parts.([]any)
	require.Len(t, seq, 1)
	ref := seq[0].(*jsonld.Object)
	assert.Equal(t, []string{"@id"}, ref.Keys())
	refID, _ := ref.String("@id")
	assert.Equal(t, "file_1.txt", refID)

	require.NoError(t, f.crate.Validate(context.Background()))
}

func TestValidate_Offline(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.crate.Validate(context.Background()))
}

func TestValidate_Aggregates(t *testing.T) {
	f := newFixture(t, crate.WithProber(fakeProber()))
	f.file.Delete("sdDatePublished")
	f.org.Set("name", "Unknown Institute")

	err := f.crate.Validate(context.Background())
	ve, ok := niidg.AsCrateValidationError(err)
	require.True(t, ok, "got %v", err)
	require.Len(t, ve.Errors(), 2)

	fe, ok := ve.For(f.file)
	require.True(t, ok)
	assert.Equal(t, []string{"sdDatePublished"}, fe.Properties())
	oe, ok := ve.For(f.org)
	require.True(t, ok)
	assert.Contains(t, oe.Message("name"), "National Institute of Informatics")
}

func TestValidate_PropagatesTransportFailure(t *testing.T) {
	broken := probe.Func(func(context.Context, string) (*probe.Response, error) {
		return nil, errors.New("connection refused")
	})
	f := newFixture(t, crate.WithProber(broken))

	err := f.crate.Validate(context.Background())
	var ue *niidg.UnexpectedError
	require.ErrorAs(t, err, &ue)
	_, isAgg := niidg.AsCrateValidationError(err)
	assert.False(t, isAgg)
}

func TestValidate_NotFoundIsGovernance(t *testing.T) {
	p := probe.Func(func(_ context.Context, url string) (*probe.Response, error) {
		if url == orcidID {
			return &probe.Response{StatusCode: 404}, nil
		}
		return fakeProber().Fetch(context.Background(), url)
	})
	f := newFixture(t, crate.WithProber(p))

	err := f.crate.Validate(context.Background())
	ve, ok := niidg.AsCrateValidationError(err)
	require.True(t, ok, "got %v", err)
	pe, ok := ve.For(f.person)
	require.True(t, ok)
	assert.Equal(t, []string{"@id"}, pe.Properties())
	assert.Equal(t, niidg.CodeDependencyUnavailable, pe.Issues()[0].Code)
}

func TestAddRemove(t *testing.T) {
	c := crate.New()
	a := base.NewFile("a.txt")
	b := base.NewFile("b.txt")
	org := base.NewOrganization("https://example.org/")

	require.NoError(t, c.Add(a, b, org))
	assert.Equal(t, []*entity.Entity{a, b}, c.Root().Entities("hasPart"))
	assert.Len(t, c.All(), 5)

	require.NoError(t, c.Remove(a))
	assert.Equal(t, []*entity.Entity{b}, c.Root().Entities("hasPart"))

	require.NoError(t, c.Remove(b, org))
	assert.False(t, c.Root().Has("hasPart"))
	assert.Len(t, c.All(), 2)

	require.ErrorIs(t, c.Remove(a), crate.ErrNotFound)
	require.ErrorIs(t, c.Remove(c.Root()), crate.ErrFixed)
	require.ErrorIs(t, c.Remove(c.Metadata()), crate.ErrFixed)
}

func TestAdd_Unclassified(t *testing.T) {
	c := crate.New()
	odd := entity.New(&entity.Kind{Domain: niidg.BaseDomain, Name: "File"}, "odd.txt")
	ok := base.NewFile("ok.txt")

	require.ErrorIs(t, c.Add(ok, odd), crate.ErrUnclassified)
	assert.Len(t, c.All(), 2, "nothing is added when one entity is rejected")
	require.ErrorIs(t, c.Add(base.NewRoot()), crate.ErrUnclassified)
}

func TestLookups(t *testing.T) {
	f := newFixture(t)
	c := f.crate

	assert.Equal(t, []*entity.Entity{f.file}, c.GetByID("file_1.txt"))
	assert.Empty(t, c.GetByID("missing"))
	assert.Equal(t, []*entity.Entity{f.dmp}, c.GetByType("DMP"))
	assert.Equal(t, []*entity.Entity{f.file}, c.GetByKind(cao.File))
	// cao.File refines base.File
	assert.Equal(t, []*entity.Entity{f.file}, c.GetByKind(base.File))
	assert.Equal(t, []*entity.Entity{f.person}, c.GetByKind(base.Person))
}

func TestCheckDuplicates(t *testing.T) {
	c := crate.New()
	require.NoError(t, c.Add(base.NewFile("same.txt"), cao.NewFile("same.txt")))
	require.NoError(t, c.CheckDuplicates(), "same id under two contexts is legal")

	require.NoError(t, c.Add(base.NewFile("same.txt")))
	err := c.CheckDuplicates()
	var ce *niidg.CrateError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "same.txt")

	_, err = c.Encode()
	require.ErrorAs(t, err, &ce)
}

func TestCheckProps_DoesNotShortCircuit(t *testing.T) {
	f := newFixture(t)
	f.file.Set("colour", "blue")
	f.file.Delete("contentSize")
	f.person.Delete("name")

	err := f.crate.CheckProps()
	pe, ok := niidg.AsCrateCheckPropsError(err)
	require.True(t, ok, "got %v", err)
	require.Len(t, pe.Errors(), 2)

	fe, ok := pe.For(f.file)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"colour", "contentSize"}, fe.Properties())
	assert.Equal(t, "Unexpected property.", fe.Message("colour"))
	assert.Equal(t, "This property is required, but not found.", fe.Message("contentSize"))

	_, err = f.crate.Encode()
	_, ok = niidg.AsCrateCheckPropsError(err)
	assert.True(t, ok)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	data, err := json.Marshal(f.crate)
	require.NoError(t, err)

	got, err := crate.Parse(data)
	require.NoError(t, err)

	type triple struct{ id, typ, domain string }
	triples := func(c *crate.Crate) []triple {
		var out []triple
		for _, e := range c.All() {
			out = append(out, triple{e.ID(), e.Type(), e.Domain()})
		}
		return out
	}
	assert.Equal(t, triples(f.crate), triples(got))

	file := got.GetByID("file_1.txt")[0]
	assert.Same(t, cao.File, file.Kind())
	assert.Equal(t, f.file.Context(), file.Context())
	v, _ := file.Get("dmpDataNumber")
	dmp, ok := v.(*entity.Entity)
	require.True(t, ok, "reference resolves to the live entity")
	assert.Same(t, got.GetByID("#dmp:1")[0], dmp)
	size, _ := file.GetString("contentSize")
	assert.Equal(t, "1560B", size)

	n, _ := got.GetByID("#dmp:1")[0].Get("dataNumber")
	assert.Equal(t, int64(1), n)

	about, _ := got.Metadata().Get("about")
	assert.Same(t, got.Root(), about)
	conforms, _ := got.Metadata().Get("conformsTo")
	assert.Equal(t, entity.Ref{ID: niidg.ROCrateConformsTo}, conforms)

	again, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRoundTrip_SameIDAcrossDomains(t *testing.T) {
	c := crate.New()
	c.Root().Set("name", "example research project")
	plain := base.NewFile("a.txt").With("name", "a.txt").With("contentSize", "10B")
	gin := ginfork.NewFile("a.txt").
		With("name", "a.txt").
		With("contentSize", "10B").
		With("experimentPackageFlag", false)
	require.NoError(t, c.Add(plain, gin))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	got, err := crate.Parse(data)
	require.NoError(t, err)

	parts := got.Root().Entities("hasPart")
	require.Len(t, parts, 2)
	assert.Same(t, base.File, parts[0].Kind())
	assert.Same(t, ginfork.File, parts[1].Kind())
	assert.NotSame(t, parts[0], parts[1])
}

func TestDumpLoad(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), niidg.MetadataID)
	require.NoError(t, f.crate.Dump(path))

	got, err := crate.Load(path)
	require.NoError(t, err)
	assert.Len(t, got.All(), 7)
	assert.Equal(t, []*entity.Entity{got.GetByID("file_1.txt")[0]}, got.Root().Entities("hasPart"))

	_, err = crate.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	root := `{"@id":"./","@type":"Dataset","name":"x","dateCreated":"2024-01-01"}`
	meta := `{"@id":"ro-crate-metadata.json","@type":"CreativeWork","conformsTo":{"@id":"https://w3id.org/ro/crate/1.1"},"about":{"@id":"./"}}`
	ctx := `"@context":"https://w3id.org/ro/crate/1.1/context"`
	baseCtx := entity.ContextURL(niidg.DefaultContextRepo, niidg.DefaultContextRef, "base")

	cases := map[string]string{
		"not an object":   `[]`,
		"wrong context":   `{"@context":"https://example.org/","@graph":[` + root + `,` + meta + `]}`,
		"graph not array": `{` + ctx + `,"@graph":{}}`,
		"no root":         `{` + ctx + `,"@graph":[` + meta + `]}`,
		"no metadata":     `{` + ctx + `,"@graph":[` + root + `]}`,
		"two roots":       `{` + ctx + `,"@graph":[` + root + `,` + root + `,` + meta + `]}`,
		"missing context": `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":"a.txt","@type":"File"}]}`,
		"bad context":     `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":"a.txt","@type":"File","@context":"https://example.org/x"}]}`,
		"unknown kind":    `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":"a.txt","@type":"Spaceship","@context":"` + baseCtx + `"}]}`,
		"unknown domain":  `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":"a.txt","@type":"File","@context":"` + entity.ContextURL("o/r", "main", "nope") + `"}]}`,
		"duplicate key":   `{` + ctx + `,"@graph":[` + root + `,` + meta + `],"@graph":[]}`,
		"id not a string": `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":1,"@type":"File"}]}`,
		"node not object": `{` + ctx + `,"@graph":[` + root + `,` + meta + `,"x"]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := crate.Parse([]byte(doc))
			require.ErrorIs(t, err, crate.ErrDocument)
		})
	}

	ok := `{` + ctx + `,"@graph":[` + root + `,` + meta + `,{"@id":"a.txt","@type":"File","@context":"` + baseCtx + `","name":"a","contentSize":"1KB"}]}`
	c, err := crate.Parse([]byte(ok))
	require.NoError(t, err)
	assert.Same(t, base.File, c.GetByID("a.txt")[0].Kind())
	require.NoError(t, c.CheckProps())
}

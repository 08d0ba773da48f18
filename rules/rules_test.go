package rules_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/rules"
)

var planKind = &entity.Kind{Domain: "rulestest", Name: "Plan", Category: entity.Contextual}

func run(t *testing.T, r rules.Rule, e *entity.Entity) *niidg.EntityError {
	t.Helper()
	errs := niidg.NewEntityError(e)
	require.NoError(t, r(context.Background(), e, nil, errs))
	return errs
}

func TestConditionalRequire(t *testing.T) {
	r := rules.All(
		rules.If("accessRights", rules.Eq, "embargoed access").Then(rules.Require("availabilityStarts")),
		rules.IfIn("accessRights", "open access", "restricted access").Then(rules.Require("isAccessibleForFree")),
		rules.If("accessRights", rules.Eq, "open access").Then(rules.Require("license")),
	)

	open := entity.New(planKind, "#dmp:1").With("accessRights", "open access")
	assert.Equal(t, []string{"isAccessibleForFree", "license"}, run(t, r, open).Properties())

	embargo := entity.New(planKind, "#dmp:2").With("accessRights", "embargoed access")
	assert.Equal(t, []string{"availabilityStarts"}, run(t, r, embargo).Properties())

	embargo.Set("availabilityStarts", "2999-01-01")
	assert.False(t, run(t, r, embargo).HasError())

	none := entity.New(planKind, "#dmp:3")
	assert.False(t, run(t, r, none).HasError())
}

func TestRequireIn(t *testing.T) {
	meta := entity.New(planKind, "#meta")
	fallback := func(entity.Graph) *entity.Entity { return meta }
	r := rules.RequireIn("repository", fallback)

	e := entity.New(planKind, "#dmp:1")
	assert.Equal(t, []string{"repository"}, run(t, r, e).Properties())

	meta.Set("repository", entity.Ref{ID: "https://example.com/repo"})
	assert.False(t, run(t, r, e).HasError())

	missing := rules.RequireIn("repository", func(entity.Graph) *entity.Entity { return nil })
	assert.True(t, run(t, missing, e).HasError())
}

func TestRequireAny(t *testing.T) {
	r := rules.RequireAny("An availabilityStarts or accessRightsInfo property is required.", "availabilityStarts", "accessRightsInfo")
	e := entity.New(planKind, "#dmp:1")
	errs := run(t, r, e)
	assert.Equal(t, "An availabilityStarts or accessRightsInfo property is required.", errs.Message("availabilityStarts"))

	e.Set("accessRightsInfo", "confidential")
	assert.False(t, run(t, r, e).HasError())
}

func TestOrderedAndComposite(t *testing.T) {
	low := rules.If("dataId", rules.Lt, 10).Then(rules.Fail("dataId", "dataId is low value < 10"))
	e := entity.New(planKind, "#x").With("dataId", 3)
	assert.Equal(t, "dataId is low value < 10", run(t, low, e).Message("dataId"))

	e.Set("dataId", 10)
	assert.False(t, run(t, low, e).HasError())

	both := rules.IfPresent("a").And(rules.IfAbsent("b")).Then(rules.Fail("a", "a without b"))
	e = entity.New(planKind, "#y").With("a", true)
	assert.True(t, run(t, both, e).HasError())
	e.Set("b", 1)
	assert.False(t, run(t, both, e).HasError())

	either := rules.If("n", rules.Ge, 5).Or(rules.If("n", rules.Eq, 0)).Then(rules.Fail("n", "hit"))
	assert.True(t, run(t, either, entity.New(planKind, "#z").With("n", 0)).HasError())
	assert.True(t, run(t, either, entity.New(planKind, "#z").With("n", 7.5)).HasError())
	assert.False(t, run(t, either, entity.New(planKind, "#z").With("n", 2)).HasError())
}

func TestAll_MergesAndPropagates(t *testing.T) {
	gov := func(context.Context, *entity.Entity, entity.Graph, *niidg.EntityError) error {
		return &niidg.GovernanceError{Property: "funder", Message: "not in root funder"}
	}
	boom := errors.New("boom")
	fatal := func(context.Context, *entity.Entity, entity.Graph, *niidg.EntityError) error {
		return niidg.Unexpected(boom)
	}

	e := entity.New(planKind, "#dmp:1")
	errs := niidg.NewEntityError(e)
	require.NoError(t, rules.All(gov, rules.Require("name"))(context.Background(), e, nil, errs))
	assert.Equal(t, []string{"funder", "name"}, errs.Properties())

	err := rules.All(gov, fatal, rules.Require("name"))(context.Background(), e, nil, niidg.NewEntityError(e))
	assert.ErrorIs(t, err, boom)
}

type fakeGraph struct {
	entity.Graph
	ents []*entity.Entity
}

func (g fakeGraph) GetByID(id string) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range g.ents {
		if e.ID() == id {
			out = append(out, e)
		}
	}
	return out
}

func TestInGraph(t *testing.T) {
	org := entity.New(planKind, "https://ror.org/04ksd4g47")
	e := entity.New(planKind, "./").With("funder", []any{org, entity.Ref{ID: "https://ror.org/missing"}})
	g := fakeGraph{ents: []*entity.Entity{org, e}}

	errs := niidg.NewEntityError(e)
	require.NoError(t, rules.InGraph("funder", "absent")(context.Background(), e, g, errs))
	require.Len(t, errs.Issues(), 1)
	assert.Equal(t, niidg.CodeReference, errs.Issues()[0].Code)
	assert.Contains(t, errs.Message("funder"), "https://ror.org/missing")
}

func TestSizeWithin(t *testing.T) {
	files := func(sizes ...string) []*entity.Entity {
		var out []*entity.Entity
		for _, s := range sizes {
			out = append(out, entity.New(planKind, "f").With("contentSize", s))
		}
		return out
	}
	cases := []struct {
		bound string
		sizes []string
		ok    bool
	}{
		{"10GB", []string{"4GB", "6GB"}, true},
		{"10GB", []string{"4GB", "7GB"}, false},
		{"10GB", nil, true},
		{"over100GB", []string{"99GB"}, false},
		{"over100GB", []string{"60GB", "40GB"}, true},
		{"10GB", []string{"4GB", "bogus"}, true},
	}
	for _, tc := range cases {
		selected := files(tc.sizes...)
		r := rules.SizeWithin("contentSize", "this DMP", func(*entity.Entity, entity.Graph) []*entity.Entity { return selected })
		e := entity.New(planKind, "#dmp:1").With("contentSize", tc.bound)
		errs := run(t, r, e)
		assert.Equal(t, !tc.ok, errs.HasError(), "%s %v", tc.bound, tc.sizes)
		if !tc.ok {
			assert.Equal(t, []string{"contentSize"}, errs.Properties())
		}
	}
	assert.Equal(t, int64(10), rules.SumSizes(files("4GB", "6GB")))
}

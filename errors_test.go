package niidg_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	niidg "github.com/reoring/niidg"
)

type ident struct{ id string }

func (i ident) ID() string     { return i.id }
func (i ident) Type() string   { return "File" }
func (i ident) Domain() string { return "base" }

func TestEntityError_Accumulates(t *testing.T) {
	ee := niidg.NewEntityError(ident{"a.txt"})
	require.False(t, ee.HasError())
	require.NoError(t, ee.Err())

	ee.Add("name", "first")
	ee.AddIssue(niidg.Issue{Property: "contentSize", Code: niidg.CodeInvalidFormat, Message: "bad size"})
	ee.Add("name", "second")

	require.True(t, ee.HasError())
	assert.Equal(t, []string{"name", "contentSize"}, ee.Properties())
	assert.Equal(t, "first; second", ee.Message("name"))
	assert.Len(t, ee.Issues(), 3)
	assert.Equal(t, "<base.File a.txt>: name: first; second, contentSize: bad size", ee.Error())
}

func TestEntityError_Merge(t *testing.T) {
	ee := niidg.NewEntityError(ident{"a.txt"})

	require.NoError(t, ee.Merge(nil))
	require.NoError(t, ee.Merge(&niidg.GovernanceError{Property: "@id", Code: niidg.CodeDependencyUnavailable, Message: "gone"}))
	require.NoError(t, ee.Merge(&niidg.PropsError{Property: "name", Code: niidg.CodeRequired, Message: "missing"}))

	other := niidg.NewEntityError(ident{"a.txt"})
	other.Add("sdDatePublished", "missing")
	require.NoError(t, ee.Merge(other))
	require.NoError(t, ee.Merge(ee))
	assert.Equal(t, []string{"@id", "name", "sdDatePublished"}, ee.Properties())

	transport := niidg.Unexpected(errors.New("connection refused"))
	assert.Same(t, transport, ee.Merge(transport))
	assert.Len(t, ee.Issues(), 3)
}

func TestUnexpected(t *testing.T) {
	require.NoError(t, niidg.Unexpected(nil))

	base := errors.New("boom")
	err := niidg.Unexpected(base)
	assert.ErrorIs(t, err, base)
	assert.Same(t, err, niidg.Unexpected(err))
}

func TestAggregate(t *testing.T) {
	a, b := ident{"a.txt"}, ident{"b.txt"}
	agg := &niidg.CrateValidationError{}
	agg.Add(niidg.NewEntityError(a))
	require.False(t, agg.HasError())

	for _, id := range []niidg.Identifier{a, b, a} {
		ee := niidg.NewEntityError(id)
		ee.Add("name", "missing")
		agg.Add(ee)
	}
	require.Len(t, agg.Errors(), 2)
	ea, ok := agg.For(a)
	require.True(t, ok)
	assert.Len(t, ea.Issues(), 2)
	_, ok = agg.For(ident{"c.txt"})
	assert.False(t, ok)

	var err error = agg
	got, ok := niidg.AsCrateValidationError(err)
	require.True(t, ok)
	assert.Same(t, agg, got)
	_, ok = niidg.AsCrateCheckPropsError(err)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(err.Error(), "crate: validation failed: <base.File a.txt>"))
}

func TestAggregate_SummaryTruncates(t *testing.T) {
	agg := &niidg.CrateCheckPropsError{}
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		ee := niidg.NewEntityError(ident{id})
		ee.Add("name", "missing")
		agg.Add(ee)
	}
	assert.True(t, strings.HasSuffix(agg.Error(), "; ... (total 5)"))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "crate: duplicate", (&niidg.CrateError{Message: "duplicate"}).Error())
	assert.Equal(t, "governance: @id: gone", (&niidg.GovernanceError{Property: "@id", Message: "gone"}).Error())
	assert.Equal(t, "governance: gone", (&niidg.GovernanceError{Message: "gone"}).Error())
	assert.Equal(t, "name: missing (required)", niidg.Issue{Property: "name", Code: niidg.CodeRequired, Message: "missing"}.String())
	pe := &niidg.PropsError{Entity: ident{"a.txt"}, Property: "name", Message: "missing"}
	assert.Equal(t, "props: property name in <base.File a.txt>: missing", pe.Error())
}

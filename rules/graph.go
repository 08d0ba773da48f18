package rules

import (
	"context"
	"fmt"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/i18n"
)

// InGraph records every reference held by props whose id no entity of the
// graph carries.
func InGraph(props ...string) Rule {
	return func(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		for _, p := range props {
			for _, id := range refIDs(e, p) {
				if len(g.GetByID(id)) == 0 {
					errs.AddIssue(niidg.Issue{
						Property: p,
						Code:     niidg.CodeReference,
						Message:  i18n.T(niidg.CodeReference, nil) + " (" + id + ")",
					})
				}
			}
		}
		return nil
	}
}

func refIDs(e *entity.Entity, prop string) []string {
	v, ok := e.Get(prop)
	if !ok {
		return nil
	}
	if id, ok := entity.IDOf(v); ok {
		return []string{id}
	}
	var out []string
	if seq, ok := v.([]any); ok {
		for _, it := range seq {
			if id, ok := entity.IDOf(it); ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// SumSizes adds the numeric part of the contentSize of files. The unit is
// ignored: participants are assumed to share the unit of the bound they are
// compared with. Sizes that do not parse have already failed structural
// checks and are skipped.
func SumSizes(files []*entity.Entity) int64 {
	var sum int64
	for _, f := range files {
		s, ok := f.GetString("contentSize")
		if !ok {
			continue
		}
		n, _, err := check.ParseSize(s)
		if err != nil {
			continue
		}
		sum += n
	}
	return sum
}

// SizeWithin compares the total size of the files selected for an entity
// with the bound declared in prop. A bound of "over100GB" instead requires a
// total of at least 100.
func SizeWithin(prop, subject string, files func(e *entity.Entity, g entity.Graph) []*entity.Entity) Rule {
	return func(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		bound, ok := e.GetString(prop)
		if !ok {
			return nil
		}
		sum := SumSizes(files(e, g))
		if bound == check.Over100GB {
			if sum < 100 {
				errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeAggregateViolation,
					Message: fmt.Sprintf("The total file size of %s is smaller than 100GB.", subject)})
			}
			return nil
		}
		limit, _, err := check.ParseSize(bound)
		if err != nil {
			return nil
		}
		if sum > limit {
			errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeAggregateViolation,
				Message: fmt.Sprintf("The total file size of %s is larger than the defined size.", subject)})
		}
		return nil
	}
}

// Contains reports whether set, a reference or a sequence of references,
// holds one pointing at the id of ref.
func Contains(set, ref any) bool {
	if seq, ok := set.([]any); ok {
		for _, it := range seq {
			if entity.SameRef(it, ref) {
				return true
			}
		}
		return false
	}
	return entity.SameRef(set, ref)
}

// InRoot records prop when the entity it references is not listed in the
// list property of the root data entity. Nothing is checked while the root
// does not set list.
func InRoot(prop, list string) Rule {
	return func(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		ref, ok := e.Get(prop)
		if !ok {
			return nil
		}
		root := g.Root()
		if root == nil {
			return nil
		}
		set, ok := root.Get(list)
		if !ok {
			return nil
		}
		if !Contains(set, ref) {
			id, _ := entity.IDOf(ref)
			errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeReference,
				Message: fmt.Sprintf("The entity %s is not included in the %s property of RootDataEntity.", id, list)})
		}
		return nil
	}
}

// FirstOf returns a selector of the first instance of k in a graph, or nil.
func FirstOf(k *entity.Kind) func(entity.Graph) *entity.Entity {
	return func(g entity.Graph) *entity.Entity {
		if es := g.GetByKind(k); len(es) > 0 {
			return es[0]
		}
		return nil
	}
}

package entity

import (
	"context"
	"errors"
	"sort"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/catalog"
	"github.com/reoring/niidg/i18n"
	"github.com/reoring/niidg/probe"
	"github.com/reoring/niidg/typeexpr"
)

// Graph is the read view of a crate that governance rules run against.
type Graph interface {
	Root() *Entity
	All() []*Entity
	GetByID(id string) []*Entity
	GetByType(typ string) []*Entity
	// GetByKind returns the instances of k, including refining kinds.
	GetByKind(k *Kind) []*Entity
	Prober() probe.Prober
}

// CheckStructure runs the entity-local checks: undeclared properties,
// missing required properties, type conformance, formats, then the kind's own
// rules. Every violation is collected into one *niidg.EntityError. It never
// consults the graph and can be repeated.
func (e *Entity) CheckStructure() error {
	def, err := e.kind.Def()
	if err != nil {
		return niidg.Unexpected(err)
	}
	errs := niidg.NewEntityError(e)
	checkUnexpected(e, def, errs)
	checkRequired(e, def, errs)
	typed := checkTypes(e, def, errs)
	checkFormats(e, typed, errs)
	if e.kind.Structure != nil {
		e.kind.Structure(e, errs)
	}
	return errs.Err()
}

// Validate runs the kind's governance rules against g.
func (e *Entity) Validate(ctx context.Context, g Graph) error {
	if e.kind.Validate == nil {
		return nil
	}
	errs := niidg.NewEntityError(e)
	if err := e.kind.Validate(ctx, e, g, errs); err != nil {
		if err := errs.Merge(err); err != nil {
			return err
		}
	}
	return errs.Err()
}

func checkUnexpected(e *Entity, def *catalog.EntityDef, errs *niidg.EntityError) {
	for _, k := range e.keys {
		if hasReservedPrefix(k) {
			continue
		}
		if _, ok := def.Prop(k); !ok {
			errs.AddIssue(niidg.Issue{Property: k, Code: niidg.CodeUnknownKey, Message: i18n.T(niidg.CodeUnknownKey, nil)})
		}
	}
}

func checkRequired(e *Entity, def *catalog.EntityDef, errs *niidg.EntityError) {
	for _, name := range def.Required() {
		if !e.Has(name) {
			errs.AddIssue(niidg.Issue{Property: name, Code: niidg.CodeRequired, Message: i18n.T(niidg.CodeRequired, nil)})
		}
	}
}

// checkTypes returns the properties whose value conforms.
func checkTypes(e *Entity, def *catalog.EntityDef, errs *niidg.EntityError) map[string]bool {
	env := typeexpr.Env{Domain: e.kind.Domain, Resolver: catalog.Resolver{}}
	ok := map[string]bool{}
	for _, p := range def.Props() {
		v, present := e.props[p.Name]
		if !present {
			continue
		}
		err := typeexpr.Check(p.Expected, v, env)
		if err == nil {
			ok[p.Name] = true
			continue
		}
		errs.AddIssue(typeIssue(p.Name, p.Expected, err))
	}
	return ok
}

func typeIssue(prop string, expected typeexpr.Expr, err error) niidg.Issue {
	var ue *typeexpr.UnresolvedError
	if errors.As(err, &ue) {
		return niidg.Issue{Property: prop, Code: niidg.CodeInvalidType, Message: "Unexpected type: " + ue.Name + ".", Cause: err}
	}
	msg := i18n.T(niidg.CodeInvalidType, map[string]string{"expected": expected.String()})
	var me *typeexpr.MismatchError
	if errors.As(err, &me) && me.Path != "" {
		msg += " Got " + me.Got + " at " + me.Path + "."
	}
	return niidg.Issue{Property: prop, Code: niidg.CodeInvalidType, Message: msg, Cause: err}
}

func checkFormats(e *Entity, typed map[string]bool, errs *niidg.EntityError) {
	props := make([]string, 0, len(e.kind.Formats))
	for prop := range e.kind.Formats {
		props = append(props, prop)
	}
	sort.Strings(props)
	for _, prop := range props {
		var s string
		if prop == "@id" {
			s = e.id
		} else {
			if !typed[prop] {
				continue
			}
			v, ok := e.props[prop].(string)
			if !ok {
				continue
			}
			s = v
		}
		if err := e.kind.Formats[prop](s); err != nil {
			errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeInvalidFormat, Message: i18n.T(niidg.CodeInvalidFormat, nil), Cause: err})
		}
	}
}

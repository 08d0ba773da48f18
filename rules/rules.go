// Package rules composes governance rules for entity kinds. Every combinator
// evaluates all of its branches and records every violation; none of them
// stops at the first failure.
package rules

import (
	"context"
	"reflect"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/i18n"
)

// Rule is a governance rule. It has the signature of entity.Kind.Validate:
// violations go to errs, and a returned error is merged when it belongs to
// the taxonomy and propagated otherwise.
type Rule = func(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error

// Op defines comparison operators for If(...).Then(...).
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional gates rules on the properties of the entity under validation.
type Conditional struct {
	prop    string
	op      Op
	want    any
	in      []any
	present *bool
	all     []Conditional // composite AND
	any     []Conditional // composite OR
}

// If builds a conditional comparing a property against a value. An absent
// property never satisfies it.
func If(prop string, op Op, want any) Conditional {
	return Conditional{prop: prop, op: op, want: want}
}

// IfIn holds when the property equals one of values.
func IfIn(prop string, values ...any) Conditional {
	return Conditional{prop: prop, in: values}
}

// IfPresent holds when the property is set.
func IfPresent(prop string) Conditional {
	t := true
	return Conditional{prop: prop, present: &t}
}

// IfAbsent holds when the property is not set.
func IfAbsent(prop string) Conditional {
	f := false
	return Conditional{prop: prop, present: &f}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Holds evaluates the condition against e.
func (c Conditional) Holds(e *entity.Entity) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.Holds(e) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.Holds(e) {
				return true
			}
		}
		return false
	}
	if c.present != nil {
		return e.Has(c.prop) == *c.present
	}
	cur, ok := e.Get(c.prop)
	if !ok {
		return false
	}
	if c.in != nil {
		for _, w := range c.in {
			if equal(cur, w) {
				return true
			}
		}
		return false
	}
	return compare(cur, c.op, c.want)
}

// Then attaches rules to run when the condition holds.
func (c Conditional) Then(rules ...Rule) Rule {
	all := All(rules...)
	return func(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		if !c.Holds(e) {
			return nil
		}
		return all(ctx, e, g, errs)
	}
}

// All runs every rule. Taxonomy errors returned by a rule are merged into
// errs and evaluation continues; the first other error aborts.
func All(rules ...Rule) Rule {
	return func(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		for _, r := range rules {
			if r == nil {
				continue
			}
			if err := r(ctx, e, g, errs); err != nil {
				if err := errs.Merge(err); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// Require records every listed property that is not set.
func Require(props ...string) Rule {
	return func(_ context.Context, e *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
		for _, p := range props {
			if !e.Has(p) {
				errs.AddIssue(required(p))
			}
		}
		return nil
	}
}

// RequireIn records prop when neither the entity nor the entity chosen by
// other sets it. other may return nil when the fallback entity is absent.
func RequireIn(prop string, other func(entity.Graph) *entity.Entity) Rule {
	return func(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
		if e.Has(prop) {
			return nil
		}
		if o := other(g); o != nil && o.Has(prop) {
			return nil
		}
		errs.AddIssue(required(prop))
		return nil
	}
}

// RequireAny records the first property when none of props is set.
func RequireAny(message string, props ...string) Rule {
	return func(_ context.Context, e *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
		for _, p := range props {
			if e.Has(p) {
				return nil
			}
		}
		if len(props) > 0 {
			errs.AddIssue(niidg.Issue{Property: props[0], Code: niidg.CodeRequired, Message: message})
		}
		return nil
	}
}

// Fail records a business-rule violation on prop.
func Fail(prop, message string) Rule {
	return func(_ context.Context, _ *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
		errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeBusinessRule, Message: message})
		return nil
	}
}

func required(prop string) niidg.Issue {
	return niidg.Issue{Property: prop, Code: niidg.CodeRequired, Message: i18n.T(niidg.CodeRequired, nil)}
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	}
	a, ok := number(cur)
	if !ok {
		return false
	}
	b, ok := number(want)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

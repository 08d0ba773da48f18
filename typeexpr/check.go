package typeexpr

import (
	"fmt"
	"strconv"
)

// KindID names an entity kind within a domain.
type KindID struct {
	Domain string
	Name   string
}

func (k KindID) String() string { return k.Domain + "." + k.Name }

// Resolver resolves an entity-kind name referenced from a domain. It consults
// the owning domain first and then the shared base domain; first match wins.
type Resolver interface {
	ResolveKind(domain, name string) (KindID, bool)
}

// Instance is a live entity value. Conformance to an EntityRef is decided on
// the in-memory object, never on its serialized id form.
type Instance interface {
	InstanceOf(k KindID) bool
}

// Env carries what conformance needs beyond the expression itself.
type Env struct {
	Domain   string // Domain owning the value being checked.
	Resolver Resolver
}

// MismatchError reports a value that does not conform to an expression.
type MismatchError struct {
	Expected Expr
	Got      string // Rendered dynamic type of the offending value.
	Path     string // Position inside the value, e.g. "[2]"; empty at the top.
}

func (e *MismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expected %s, got %s", e.Expected, e.Got)
	}
	return fmt.Sprintf("expected %s at %s, got %s", e.Expected, e.Path, e.Got)
}

// UnresolvedError reports an entity-kind name absent from every consulted catalog.
type UnresolvedError struct {
	Name   string
	Domain string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unexpected type: %s (not found in %s or base)", e.Name, e.Domain)
}

// Check verifies that v conforms to e. The result is either nil, a
// *MismatchError, or an *UnresolvedError; there are no partial matches.
func Check(e Expr, v any, env Env) error {
	return check(e, v, env, "")
}

func check(e Expr, v any, env Env, path string) error {
	switch t := e.(type) {
	case *Primitive:
		if !primitiveConforms(t.Name, v) {
			return mismatch(e, v, path)
		}
		return nil
	case *Optional:
		if v == nil {
			return nil
		}
		return check(t.Inner, v, env, path)
	case *Sequence:
		var items []any
		switch s := v.(type) {
		case []any:
			items = s
		case []string:
			items = make([]any, len(s))
			for i := range s {
				items[i] = s[i]
			}
		default:
			return mismatch(e, v, path)
		}
		for i, it := range items {
			if err := check(t.Elem, it, env, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
		return nil
	case *Union:
		for _, variant := range t.Variants {
			err := check(variant, v, env, path)
			if err == nil {
				return nil
			}
			if _, ok := err.(*UnresolvedError); ok {
				return err
			}
		}
		return mismatch(e, v, path)
	case *Literal:
		s, ok := v.(string)
		if !ok || !t.Allows(s) {
			return mismatch(e, v, path)
		}
		return nil
	case *EntityRef:
		if env.Resolver == nil {
			return &UnresolvedError{Name: t.Name, Domain: env.Domain}
		}
		kid, ok := env.Resolver.ResolveKind(env.Domain, t.Name)
		if !ok {
			return &UnresolvedError{Name: t.Name, Domain: env.Domain}
		}
		inst, ok := v.(Instance)
		if !ok || !inst.InstanceOf(kid) {
			return mismatch(e, v, path)
		}
		return nil
	default:
		return fmt.Errorf("typeexpr: unsupported expression %T", e)
	}
}

func primitiveConforms(name string, v any) bool {
	switch name {
	case Any:
		return true
	case String:
		_, ok := v.(string)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Integer:
		return isInteger(v)
	case Float:
		switch v.(type) {
		case float32, float64:
			return true
		}
		// Integers are accepted where floats are expected.
		return isInteger(v)
	default:
		return false
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func mismatch(e Expr, v any, path string) error {
	return &MismatchError{Expected: e, Got: TypeName(v), Path: path}
}

// TypeName renders the dynamic type of a property value for messages.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return String
	case bool:
		return Boolean
	case float32, float64:
		return Float
	case []any, []string:
		return "sequence"
	case map[string]any:
		return "object"
	case fmt.Stringer:
		return t.String()
	default:
		if isInteger(v) {
			return Integer
		}
		return fmt.Sprintf("%T", v)
	}
}

package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reoring/niidg/typeexpr"
)

// Required flag spellings accepted in catalog resources, next to YAML booleans.
const (
	requiredText = "Required."
	optionalText = "Optional."
)

// DuplicateKeyError reports a duplicate key found in a catalog mapping with
// both the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Domain    string
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("catalog: %s.yml: duplicate key %q at %d:%d (first at %d:%d)", e.Domain, e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// SchemaError reports a malformed catalog resource.
type SchemaError struct {
	Domain string
	Line   int
	Col    int
	Msg    string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("catalog: %s.yml: %s", e.Domain, e.Msg)
	}
	return fmt.Sprintf("catalog: %s.yml:%d:%d: %s", e.Domain, e.Line, e.Col, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// loader walks the yaml.Node tree of one resource so that key order and
// positions survive into definitions and errors.
type loader struct {
	domain string
}

func parse(domain string, data []byte) (*Schema, error) {
	l := loader{domain: domain}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SchemaError{Domain: domain, Msg: err.Error(), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, &SchemaError{Domain: domain, Msg: "empty document"}
	}
	s := &Schema{Domain: domain}
	err := l.eachPair(root.Content[0], func(k, v *yaml.Node) error {
		d, err := l.entity(k.Value, v)
		if err != nil {
			return err
		}
		s.add(d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (l loader) entity(name string, n *yaml.Node) (*EntityDef, error) {
	d := &EntityDef{Domain: l.domain, Name: name}
	var props *yaml.Node
	err := l.eachPair(n, func(k, v *yaml.Node) error {
		switch k.Value {
		case "description":
			d.Description = v.Value
		case "props":
			props = v
		default:
			return l.errorf(k, "unknown key %q in %s", k.Value, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, l.errorf(n, "%s has no props", name)
	}
	err = l.eachPair(props, func(k, v *yaml.Node) error {
		p, err := l.prop(k.Value, v)
		if err != nil {
			return err
		}
		d.add(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (l loader) prop(name string, n *yaml.Node) (*PropertyDef, error) {
	p := &PropertyDef{Name: name}
	var expected *yaml.Node
	err := l.eachPair(n, func(k, v *yaml.Node) error {
		switch k.Value {
		case "expected_type":
			expected = v
		case "required":
			req, err := l.required(v)
			if err != nil {
				return err
			}
			p.Required = req
		case "description":
			p.Description = v.Value
		default:
			return l.errorf(k, "unknown key %q in property %s", k.Value, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expected == nil {
		return nil, l.errorf(n, "property %s has no expected_type", name)
	}
	e, err := typeexpr.Parse(expected.Value)
	if err != nil {
		return nil, &SchemaError{Domain: l.domain, Line: expected.Line, Col: expected.Column, Msg: fmt.Sprintf("property %s: %v", name, err), Err: err}
	}
	p.Expected = e
	return p, nil
}

func (l loader) required(v *yaml.Node) (bool, error) {
	if v.Kind == yaml.ScalarNode && v.Tag == "!!bool" {
		var b bool
		if err := v.Decode(&b); err != nil {
			return false, l.errorf(v, "invalid required flag %q", v.Value)
		}
		return b, nil
	}
	switch v.Value {
	case requiredText:
		return true, nil
	case optionalText:
		return false, nil
	default:
		return false, l.errorf(v, "invalid required flag %q", v.Value)
	}
}

// eachPair visits a mapping in document order and rejects duplicate keys.
func (l loader) eachPair(n *yaml.Node, fn func(k, v *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return l.errorf(n, "expected a mapping")
	}
	first := make(map[string][2]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if pos, dup := first[k.Value]; dup {
			return &DuplicateKeyError{Domain: l.domain, Key: k.Value, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
		}
		first[k.Value] = [2]int{k.Line, k.Column}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (l loader) errorf(n *yaml.Node, format string, a ...any) error {
	return &SchemaError{Domain: l.domain, Line: n.Line, Col: n.Column, Msg: fmt.Sprintf(format, a...)}
}

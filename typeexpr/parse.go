package typeexpr

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("typeexpr: %s at offset %d in %q", e.Msg, e.Pos, e.Expr)
}

// primitiveAliases maps accepted spellings to primitive names. The short
// forms keep catalogs written for the Python tooling loadable.
var primitiveAliases = map[string]string{
	Boolean: Boolean,
	String:  String,
	Integer: Integer,
	Float:   Float,
	Any:     Any,
	"bool":  Boolean,
	"str":   String,
	"int":   Integer,
	"Any":   Any,
}

// Parse parses a type expression. Parsing is pure and deterministic; entity
// references are not resolved here.
func Parse(s string) (Expr, error) {
	p := &parser{src: s}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for static expressions.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, a ...any) error {
	return &SyntaxError{Expr: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, a...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) expr() (Expr, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected type name")
	}
	p.skipSpace()
	if p.peek() != '[' {
		if prim, ok := primitiveAliases[name]; ok {
			return &Primitive{Name: prim}, nil
		}
		switch name {
		case "Sequence", "List", "Optional", "Union", "Literal":
			return nil, p.errorf("%s requires type arguments", name)
		}
		return &EntityRef{Name: name}, nil
	}
	p.pos++ // '['
	switch name {
	case "Sequence", "List":
		elem, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &Sequence{Elem: elem}, nil
	case "Optional":
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &Optional{Inner: inner}, nil
	case "Union":
		var variants []Expr
		for {
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			variants = append(variants, v)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &Union{Variants: variants}, nil
	case "Literal":
		values, err := p.literals()
		if err != nil {
			return nil, err
		}
		return &Literal{Values: values}, nil
	default:
		return nil, p.errorf("unknown type constructor %s", name)
	}
}

// literals reads `v, 'v', "v"` up to and including the closing bracket.
func (p *parser) literals() ([]string, error) {
	var out []string
	for {
		p.skipSpace()
		switch c := p.peek(); c {
		case '"', '\'':
			p.pos++
			end := strings.IndexByte(p.src[p.pos:], c)
			if end < 0 {
				return nil, p.errorf("unterminated literal")
			}
			out = append(out, p.src[p.pos:p.pos+end])
			p.pos += end + 1
		case 0, ',', ']':
			return nil, p.errorf("expected literal value")
		default:
			start := p.pos
			for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != ']' {
				p.pos++
			}
			out = append(out, strings.TrimSpace(p.src[start:p.pos]))
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

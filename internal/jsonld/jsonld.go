// Package jsonld reads and writes JSON documents whose objects keep their key
// order, as crate nodes do. Decoding rejects duplicate object keys.
package jsonld

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Object is a JSON object that preserves insertion order.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object { return &Object{vals: map[string]any{}} }

// Set stores v under k. An existing key keeps its position.
func (o *Object) Set(k string, v any) {
	if o.vals == nil {
		o.vals = map[string]any{}
	}
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// Get returns the value stored under k.
func (o *Object) Get(k string) (any, bool) {
	v, ok := o.vals[k]
	return v, ok
}

// String returns the value under k when it is a string.
func (o *Object) String(k string) (string, bool) {
	s, ok := o.vals[k].(string)
	return s, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string { return append([]string(nil), o.keys...) }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// MarshalJSON writes the members in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, fmt.Errorf("jsonld: key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DuplicateKeyError reports an object key that occurs twice.
type DuplicateKeyError struct {
	Key  string
	Path string // JSON Pointer of the containing object.
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("jsonld: key %q duplicated at %s", e.Key, e.Path)
}

// SyntaxError wraps a tokenizer failure.
type SyntaxError struct {
	Path string
	Err  error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("jsonld: %s: %v", e.Path, e.Err) }
func (e *SyntaxError) Unwrap() error { return e.Err }

// Unmarshal decodes one JSON document.
func Unmarshal(data []byte) (any, error) { return Decode(bytes.NewReader(data)) }

// Decode reads one JSON document. Objects decode to *Object, arrays to []any,
// integral numbers to int64 and other numbers to float64.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	d := decoder{dec: dec}
	v, err := d.value("")
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &SyntaxError{Path: "/", Err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

type decoder struct {
	dec *json.Decoder
}

func (d decoder) token(path string) (json.Token, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, &SyntaxError{Path: pointer(path), Err: err}
	}
	return tok, nil
}

func (d decoder) value(path string) (any, error) {
	tok, err := d.token(path)
	if err != nil {
		return nil, err
	}
	return d.fromToken(tok, path)
}

func (d decoder) fromToken(tok json.Token, path string) (any, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return d.object(path)
		case '[':
			return d.array(path)
		default:
			return nil, &SyntaxError{Path: pointer(path), Err: fmt.Errorf("unexpected %q", rune(v))}
		}
	case json.Number:
		return number(string(v))
	case float64:
		return number(strconv.FormatFloat(v, 'g', -1, 64))
	case string, bool, nil:
		return v, nil
	default:
		return nil, &SyntaxError{Path: pointer(path), Err: fmt.Errorf("unexpected token %T", tok)}
	}
}

func (d decoder) object(path string) (*Object, error) {
	o := NewObject()
	for {
		tok, err := d.token(path)
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return o, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, &SyntaxError{Path: pointer(path), Err: fmt.Errorf("expected object key, got %v", tok)}
		}
		if _, dup := o.vals[key]; dup {
			return nil, &DuplicateKeyError{Key: key, Path: pointer(path)}
		}
		v, err := d.value(path + "/" + escape(key))
		if err != nil {
			return nil, err
		}
		o.Set(key, v)
	}
}

func (d decoder) array(path string) ([]any, error) {
	out := []any{}
	for i := 0; ; i++ {
		tok, err := d.token(path)
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(json.Delim); ok && delim == ']' {
			return out, nil
		}
		v, err := d.fromToken(tok, path+"/"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func number(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseFloat(s, 64)
}

func pointer(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

func escape(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
}

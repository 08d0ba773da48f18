package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	niidg "github.com/reoring/niidg"
)

const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusError   = "error"
)

type report struct {
	RunID string       `json:"runId"`
	Files []fileReport `json:"files"`
}

type fileReport struct {
	Path   string        `json:"path"`
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Issues []issueReport `json:"issues,omitempty"`
}

type issueReport struct {
	Entity   string `json:"entity"`
	Type     string `json:"type"`
	Domain   string `json:"domain"`
	Property string `json:"property"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

func (r *report) worst() string {
	worst := statusOK
	for _, f := range r.Files {
		switch f.Status {
		case statusError:
			return statusError
		case statusInvalid:
			worst = statusInvalid
		}
	}
	return worst
}

// fail records err on the file. Aggregated entity errors are flattened into
// one issue per violated property.
func (f fileReport) fail(err error) fileReport {
	f.Status = classify(err)
	var ents []*niidg.EntityError
	if ce, ok := niidg.AsCrateCheckPropsError(err); ok {
		ents = ce.Errors()
	} else if ve, ok := niidg.AsCrateValidationError(err); ok {
		ents = ve.Errors()
	}
	if len(ents) == 0 {
		f.Error = err.Error()
		return f
	}
	for _, ee := range ents {
		for _, it := range ee.Issues() {
			f.Issues = append(f.Issues, issueReport{
				Entity:   ee.Entity.ID(),
				Type:     ee.Entity.Type(),
				Domain:   ee.Entity.Domain(),
				Property: it.Property,
				Code:     it.Code,
				Message:  it.Message,
			})
		}
	}
	return f
}

func (r *report) write(w io.Writer, asJSON bool) error {
	if asJSON {
		b, err := indentJSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.Path, f.Status); err != nil {
			return err
		}
		if f.Error != "" {
			fmt.Fprintf(w, "  %s\n", f.Error)
		}
		for _, it := range f.Issues {
			fmt.Fprintf(w, "  %s.%s %s: %s: %s\n", it.Domain, it.Type, it.Entity, it.Property, it.Message)
		}
	}
	return nil
}

// indentJSON marshals v and indents it in a second pass. go-json's own
// indenting encoder faults on the recursive jsonschema.Schema tree.
func indentJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

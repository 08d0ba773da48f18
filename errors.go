package niidg

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeUnknownKey    = "unknown_key"
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidValue  = "invalid_value"
	CodeParseError    = "parse_error"
	// Governance passes (graph semantics)
	CodeBusinessRule       = "business_rule"
	CodeAggregateViolation = "aggregate_violation"
	CodeReference          = "reference"
	// Network probe negative responses (URL not reachable, registry miss)
	CodeDependencyUnavailable = "dependency_unavailable"
)

// Identifier is the identity an error is keyed by. *entity.Entity implements it.
type Identifier interface {
	ID() string
	Type() string
	Domain() string
}

// Issue represents a single violation on one property of one entity.
type Issue struct {
	Property string // Property name, or "@id"/"@type" for identity violations.
	Code     string // One of the codes listed above.
	Message  string
	Cause    error // Optional: underlying error.
}

func (i Issue) String() string {
	if i.Code == "" {
		return i.Property + ": " + i.Message
	}
	return fmt.Sprintf("%s: %s (%s)", i.Property, i.Message, i.Code)
}

// PropsError is a structural violation raised by entity-local checks or by
// the low-level type check of a single property.
type PropsError struct {
	Entity   Identifier
	Property string
	Code     string
	Expected string // Rendered expected type for invalid_type violations.
	Message  string
}

func (e *PropsError) Error() string {
	var b strings.Builder
	b.WriteString("props: ")
	if e.Property != "" {
		fmt.Fprintf(&b, "property %s", e.Property)
	}
	if e.Entity != nil {
		fmt.Fprintf(&b, " in %s", describe(e.Entity))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *PropsError) issue() Issue {
	return Issue{Property: e.Property, Code: e.Code, Message: e.Message}
}

// GovernanceError is a graph-relative semantic violation.
type GovernanceError struct {
	Property string
	Code     string
	Message  string
}

func (e *GovernanceError) Error() string {
	if e.Property == "" {
		return "governance: " + e.Message
	}
	return "governance: " + e.Property + ": " + e.Message
}

func (e *GovernanceError) issue() Issue {
	return Issue{Property: e.Property, Code: e.Code, Message: e.Message}
}

// EntityError accumulates every violation found on one entity, keyed by
// property in insertion order. It is raised only when it holds an entry.
type EntityError struct {
	Entity Identifier
	issues []Issue
}

// NewEntityError returns an empty accumulator for the given entity.
func NewEntityError(e Identifier) *EntityError { return &EntityError{Entity: e} }

// Add records a message for a property.
func (e *EntityError) Add(property, message string) {
	e.issues = append(e.issues, Issue{Property: property, Message: message})
}

// AddIssue records a coded issue.
func (e *EntityError) AddIssue(it Issue) { e.issues = append(e.issues, it) }

// Merge absorbs structural, governance and entity errors. Any other error is
// returned unchanged so that the caller propagates it.
func (e *EntityError) Merge(err error) error {
	if err == nil {
		return nil
	}
	var pe *PropsError
	if errors.As(err, &pe) {
		e.issues = append(e.issues, pe.issue())
		return nil
	}
	var ge *GovernanceError
	if errors.As(err, &ge) {
		e.issues = append(e.issues, ge.issue())
		return nil
	}
	var ee *EntityError
	if errors.As(err, &ee) {
		if ee != e {
			e.issues = append(e.issues, ee.issues...)
		}
		return nil
	}
	return err
}

// HasError reports whether at least one violation was recorded.
func (e *EntityError) HasError() bool { return e != nil && len(e.issues) > 0 }

// Issues returns a copy of every recorded issue in insertion order.
func (e *EntityError) Issues() []Issue { return append([]Issue(nil), e.issues...) }

// Properties returns the distinct violated property names in first-seen order.
func (e *EntityError) Properties() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range e.issues {
		if _, ok := seen[it.Property]; ok {
			continue
		}
		seen[it.Property] = struct{}{}
		out = append(out, it.Property)
	}
	return out
}

// Message returns the messages recorded for a property joined by "; ".
func (e *EntityError) Message(property string) string {
	var msgs []string
	for _, it := range e.issues {
		if it.Property == property {
			msgs = append(msgs, it.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// Err returns e when it holds a violation and nil otherwise.
func (e *EntityError) Err() error {
	if e.HasError() {
		return e
	}
	return nil
}

func (e *EntityError) Error() string {
	b := &strings.Builder{}
	b.WriteString(describe(e.Entity))
	b.WriteString(": ")
	for i, p := range e.Properties() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", p, e.Message(p))
	}
	return b.String()
}

// CrateError is an immediate graph-level violation, such as a duplicated
// identity. It is never accumulated with other errors.
type CrateError struct {
	Message string
}

func (e *CrateError) Error() string { return "crate: " + e.Message }

// aggregate collects EntityErrors across a whole entity set.
type aggregate struct {
	errs []*EntityError
}

// Add merges an entity error; errors for the same entity are combined.
func (a *aggregate) Add(ee *EntityError) {
	if !ee.HasError() {
		return
	}
	for _, cur := range a.errs {
		if cur.Entity == ee.Entity {
			cur.issues = append(cur.issues, ee.issues...)
			return
		}
	}
	a.errs = append(a.errs, ee)
}

// HasError reports whether any entity error was collected.
func (a *aggregate) HasError() bool { return len(a.errs) > 0 }

// Errors returns the collected entity errors in collection order.
func (a *aggregate) Errors() []*EntityError { return append([]*EntityError(nil), a.errs...) }

// For returns the collected error for an entity, if any.
func (a *aggregate) For(e Identifier) (*EntityError, bool) {
	for _, cur := range a.errs {
		if cur.Entity == e {
			return cur, true
		}
	}
	return nil, false
}

// summary renders the first few entity errors.
func (a *aggregate) summary(prefix string) string {
	const maxShown = 3
	b := &strings.Builder{}
	b.WriteString(prefix)
	n := len(a.errs)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(a.errs[i].Error())
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// CrateCheckPropsError aggregates structural violations of every entity.
type CrateCheckPropsError struct{ aggregate }

func (e *CrateCheckPropsError) Error() string {
	return e.summary("crate: structural check failed")
}

// CrateValidationError aggregates governance violations of every entity.
type CrateValidationError struct{ aggregate }

func (e *CrateValidationError) Error() string {
	return e.summary("crate: validation failed")
}

// UnexpectedError marks a condition outside the taxonomy, such as a transport
// failure of a network probe. Aggregation never catches it.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string { return "unexpected: " + e.Err.Error() }
func (e *UnexpectedError) Unwrap() error { return e.Err }

// Unexpected wraps err as an UnexpectedError. A nil err yields nil.
func Unexpected(err error) error {
	if err == nil {
		return nil
	}
	var ue *UnexpectedError
	if errors.As(err, &ue) {
		return err
	}
	return &UnexpectedError{Err: err}
}

// AsEntityError extracts an EntityError using errors.As internally.
func AsEntityError(err error) (*EntityError, bool) {
	var ee *EntityError
	if err != nil && errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// AsCrateCheckPropsError extracts a CrateCheckPropsError using errors.As internally.
func AsCrateCheckPropsError(err error) (*CrateCheckPropsError, bool) {
	var ce *CrateCheckPropsError
	if err != nil && errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsCrateValidationError extracts a CrateValidationError using errors.As internally.
func AsCrateValidationError(err error) (*CrateValidationError, bool) {
	var ce *CrateValidationError
	if err != nil && errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func describe(e Identifier) string {
	if e == nil {
		return "<entity>"
	}
	return fmt.Sprintf("<%s.%s %s>", e.Domain(), e.Type(), e.ID())
}

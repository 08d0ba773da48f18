package base

import (
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/i18n"
)

// CheckFixedID records a violation when the id of e is not want.
func CheckFixedID(e *entity.Entity, errs *niidg.EntityError, want string) {
	if e.ID() != want {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidValue, Message: "The value MUST be " + want + "."})
	}
}

// CheckIDPrefix records a violation when the id of e does not start with prefix.
func CheckIDPrefix(e *entity.Entity, errs *niidg.EntityError, prefix string) {
	if !strings.HasPrefix(e.ID(), prefix) {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidValue, Message: "The value MUST start with " + prefix + "."})
	}
}

// CheckNotAbsolute records a violation when the id of e is an absolute path.
func CheckNotAbsolute(e *entity.Entity, errs *niidg.EntityError) {
	kind, err := check.ClassifyURI(e.ID())
	switch {
	case err != nil:
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidFormat, Message: "The value is invalid URI.", Cause: err})
	case kind == check.AbsPath:
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidValue, Message: "The value MUST be URL or relative path to the file, not absolute path."})
	}
}

// CheckRelative records a violation unless the id of e is a relative path.
func CheckRelative(e *entity.Entity, errs *niidg.EntityError) {
	if kind, err := check.ClassifyURI(e.ID()); err != nil || kind != check.RelPath {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidValue, Message: "The value MUST be relative path."})
	}
}

// CheckPastDate records a violation when the date in prop is in the future.
// Absent or malformed values are left to the presence and format checks.
func CheckPastDate(e *entity.Entity, errs *niidg.EntityError, prop string) {
	s, ok := e.GetString(prop)
	if !ok {
		return
	}
	if past, err := check.IsPastDate(s); err == nil && !past {
		errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeInvalidValue, Message: i18n.T("past_date", nil)})
	}
}

// CheckFutureDate records a violation when the date in prop is in the past.
func CheckFutureDate(e *entity.Entity, errs *niidg.EntityError, prop string) {
	s, ok := e.GetString(prop)
	if !ok {
		return
	}
	if past, err := check.IsPastDate(s); err == nil && past {
		errs.AddIssue(niidg.Issue{Property: prop, Code: niidg.CodeInvalidValue, Message: i18n.T("future_date", nil)})
	}
}

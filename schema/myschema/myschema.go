// Package myschema is a sample domain showing how custom structural and
// governance rules attach to a kind.
package myschema

import (
	"context"
	"regexp"
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/schema/base"
)

// Domain is the name of this catalog.
const Domain = "myschema"

// ProhibitedWords may not appear in a message.
var ProhibitedWords = []string{"danger", "ban", "foo", "bar"}

// MinDataID is the smallest accepted dataId.
const MinDataID = 10

var messagePattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9.{}^\- #"'!\\|%&()\[\]*:+;]*?\.$`)

// Message checks that s is one sentence starting with a capital letter and
// ending with a period.
func Message(s string) error {
	if !messagePattern.MatchString(s) {
		return &check.FormatError{Format: "message", Value: s}
	}
	return nil
}

var MySchema = entity.Register(&entity.Kind{
	Domain:   Domain,
	Name:     "MySchema",
	Category: entity.Data,
	Formats: map[string]check.Func{
		"url":     check.URL,
		"message": Message,
	},
	Structure: checkMySchema,
	Validate:  validateMySchema,
})

// New returns a MySchema entity for the directory id.
func New(id string) *entity.Entity { return entity.New(MySchema, id) }

func checkMySchema(e *entity.Entity, errs *niidg.EntityError) {
	if !strings.HasSuffix(e.ID(), "/") {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidFormat, Message: "The id MUST end with `/`."})
	}
	base.CheckRelative(e, errs)
}

func validateMySchema(_ context.Context, e *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
	if msg, ok := e.GetString("message"); ok {
		for _, w := range ProhibitedWords {
			if strings.Contains(msg, w) {
				errs.AddIssue(niidg.Issue{Property: "message", Code: niidg.CodeBusinessRule, Message: "message has some prohibited words."})
				break
			}
		}
	}
	if v, ok := e.Get("dataId"); ok {
		if n, isInt := v.(int64); isInt && n < MinDataID {
			errs.AddIssue(niidg.Issue{Property: "dataId", Code: niidg.CodeBusinessRule, Message: "dataId is low value < 10"})
		}
	}
	return nil
}

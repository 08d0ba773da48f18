// Package cao declares the kinds of the Cabinet Office data management plan
// profile.
package cao

import (
	"context"
	"fmt"
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/rules"
	"github.com/reoring/niidg/schema/base"
)

// Domain is the name of this catalog.
const Domain = "cao"

// Fixed identity of the plan metadata entity.
const (
	MetadataID   = "#CAO-DMP"
	MetadataName = "CAO-DMP"
)

// DMPPrefix starts the id of every DMP.
const DMPPrefix = "#dmp:"

// Access rights of a DMP.
const (
	OpenAccess         = "open access"
	RestrictedAccess   = "restricted access"
	EmbargoedAccess    = "embargoed access"
	MetadataOnlyAccess = "metadata only access"
)

var (
	DMPMetadata = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "DMPMetadata",
		Category:  entity.Contextual,
		Structure: checkDMPMetadata,
	})

	DMP = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "DMP",
		Category: entity.Contextual,
		Formats: map[string]check.Func{
			"availabilityStarts": check.ISODate,
			"contentSize":        check.BoundSize,
		},
		Structure: checkDMP,
		Validate: rules.All(
			rules.If("accessRights", rules.Eq, EmbargoedAccess).Then(rules.Require("availabilityStarts")),
			rules.IfIn("accessRights", OpenAccess, RestrictedAccess).Then(rules.Require("isAccessibleForFree")),
			rules.If("accessRights", rules.Eq, OpenAccess).Then(rules.Require("license")),
			validateDMPMetadataPresent,
			// A metadata-only DMP publishes no data, so it needs no repository.
			rules.If("accessRights", rules.Ne, MetadataOnlyAccess).Then(rules.RequireIn("repository", metadataOf)),
			rules.If("accessRights", rules.Eq, OpenAccess).Then(rules.RequireIn("distribution", metadataOf)),
			rules.SizeWithin("contentSize", "this DMP", filesOf),
		),
	})

	Person = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "Person",
		Category: entity.Contextual,
		Parent:   base.Person,
		Formats: map[string]check.Func{
			"@id":                  check.URL,
			"email":                check.Email,
			"telephone":            check.PhoneNumber,
			"eradResearcherNumber": check.ERadResearcherNumber,
		},
		Structure: base.CheckPerson,
		Validate:  rules.All(base.ValidatePerson, rules.InGraph("affiliation")),
	})

	File = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "File",
		Category:  entity.Data,
		Parent:    base.File,
		Formats:   base.FileFormats(),
		Structure: base.CheckFile,
		Validate:  rules.All(rules.Require("sdDatePublished"), rules.InGraph("dmpDataNumber")),
	})
)

// The plan metadata and its DMPs look each other up.
func init() {
	DMPMetadata.Validate = rules.All(rules.InRoot("funder", "funder"), validateParts)
}

// NewDMPMetadata returns the plan metadata entity.
func NewDMPMetadata() *entity.Entity {
	return entity.New(DMPMetadata, MetadataID).With("name", MetadataName)
}

// NewDMP returns the DMP numbered n.
func NewDMP(n int) *entity.Entity {
	return entity.New(DMP, fmt.Sprintf("%s%d", DMPPrefix, n)).With("dataNumber", n)
}

// NewPerson returns a researcher identified by a URL.
func NewPerson(id string) *entity.Entity { return entity.New(Person, id) }

// NewFile returns a file registered under a DMP.
func NewFile(id string) *entity.Entity { return entity.New(File, id) }

func checkDMPMetadata(e *entity.Entity, errs *niidg.EntityError) {
	base.CheckFixedID(e, errs, MetadataID)
}

func checkDMP(e *entity.Entity, errs *niidg.EntityError) {
	base.CheckIDPrefix(e, errs, DMPPrefix)
	base.CheckFutureDate(e, errs, "availabilityStarts")
}

// validateParts requires hasPart to list every DMP of the crate.
func validateParts(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	parts, _ := e.Get("hasPart")
	var missing []string
	for _, dmp := range g.GetByKind(DMP) {
		if !rules.Contains(parts, dmp) {
			missing = append(missing, dmp.ID())
		}
	}
	if len(missing) > 0 {
		errs.AddIssue(niidg.Issue{Property: "hasPart", Code: niidg.CodeReference,
			Message: "There is an omission of DMP entity in the list: " + strings.Join(missing, ", ") + "."})
	}
	return nil
}

func validateDMPMetadataPresent(_ context.Context, _ *entity.Entity, g entity.Graph, _ *niidg.EntityError) error {
	if metadataOf(g) == nil {
		return &niidg.CrateError{Message: "Entity DMPMetadata MUST be required with DMP entity."}
	}
	return nil
}

var metadataOf = rules.FirstOf(DMPMetadata)

// filesOf returns the files whose dmpDataNumber is dmp.
func filesOf(dmp *entity.Entity, g entity.Graph) []*entity.Entity {
	var out []*entity.Entity
	for _, f := range g.GetByKind(File) {
		if v, ok := f.Get("dmpDataNumber"); ok && entity.SameRef(v, dmp) {
			out = append(out, f)
		}
	}
	return out
}

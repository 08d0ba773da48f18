// Package amed declares the kinds of the AMED data management plan profile.
package amed

import (
	"context"
	"fmt"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/probe"
	"github.com/reoring/niidg/rules"
	"github.com/reoring/niidg/schema/base"
)

// Domain is the name of this catalog.
const Domain = "amed"

// Fixed identity of the plan metadata entity.
const (
	MetadataID   = "#AMED-DMP"
	MetadataName = "AMED-DMP"
)

// Access rights of a DMP.
const (
	UnrestrictedOpenSharing = "Unrestricted Open Sharing"
	RestrictedOpenSharing   = "Restricted Open Sharing"
	RestrictedClosedSharing = "Restricted Closed Sharing"
	Unshared                = "Unshared"
)

var (
	DMPMetadata = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "DMPMetadata",
		Category:  entity.Contextual,
		Structure: func(e *entity.Entity, errs *niidg.EntityError) { base.CheckFixedID(e, errs, MetadataID) },
		Validate:  rules.All(rules.InRoot("funder", "funder"), requireStaff),
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
			rules.IfIn("accessRights", Unshared, RestrictedClosedSharing).Then(
				rules.RequireAny("Either availabilityStarts or accessRightsInfo is required.", "availabilityStarts", "accessRightsInfo")),
			rules.If("gotInformedConsent", rules.Eq, "yes").Then(rules.Require("informedConsentFormat")),
			listedInMetadata,
			rules.RequireIn("repository", metadataOf),
			rules.If("accessRights", rules.Eq, UnrestrictedOpenSharing).Then(rules.RequireIn("distribution", metadataOf)),
			rules.SizeWithin("contentSize", "this DMP", filesOf),
			rules.InGraph("identifier"),
		),
	})

	File = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "File",
		Category:  entity.Data,
		Parent:    base.File,
		Formats:   base.FileFormats(),
		Structure: base.CheckFile,
		Validate:  rules.All(base.ValidateFile, rules.InGraph("dmpDataNumber")),
	})

	ClinicalResearchRegistration = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "ClinicalResearchRegistration",
		Category: entity.Contextual,
		Formats:  map[string]check.Func{"@id": check.URL},
		Validate: validateRegistration,
	})
)

var metadataOf = rules.FirstOf(DMPMetadata)

// NewDMPMetadata returns the plan metadata entity.
func NewDMPMetadata() *entity.Entity {
	return entity.New(DMPMetadata, MetadataID).With("name", MetadataName)
}

// NewDMP returns the DMP numbered n.
func NewDMP(n int) *entity.Entity {
	return entity.New(DMP, fmt.Sprintf("#dmp:%d", n)).With("dataNumber", n)
}

// NewFile returns a file registered under a DMP.
func NewFile(id string) *entity.Entity { return entity.New(File, id) }

// NewClinicalResearchRegistration returns a registration identified by its URL.
func NewClinicalResearchRegistration(id string) *entity.Entity {
	return entity.New(ClinicalResearchRegistration, id)
}

func checkDMP(e *entity.Entity, errs *niidg.EntityError) {
	if n, ok := e.Get("dataNumber"); ok {
		if want := fmt.Sprintf("#dmp:%v", n); e.ID() != want {
			errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidValue,
				Message: "The value MUST be '#dmp:' followed by the value of dataNumber, " + want + "."})
		}
	}
	base.CheckFutureDate(e, errs, "availabilityStarts")
}

// requireStaff requires the people in charge once the plan lists a DMP.
func requireStaff(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	v, _ := e.Get("hasPart")
	if parts, ok := v.([]any); !ok || len(parts) == 0 {
		return nil
	}
	return rules.Require("creator", "hostingInstitution", "dataManager")(ctx, e, g, errs)
}

func listedInMetadata(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	md := metadataOf(g)
	if md == nil {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeReference, Message: "DMPMetadata entity MUST be included with DMP entity."})
		return nil
	}
	parts, _ := md.Get("hasPart")
	if !rules.Contains(parts, e) {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeReference,
			Message: "The DMP is not included in the hasPart property of " + md.ID() + "."})
	}
	return nil
}

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

func validateRegistration(ctx context.Context, e *entity.Entity, g entity.Graph, _ *niidg.EntityError) error {
	if check.URL(e.ID()) != nil {
		return nil
	}
	p := g.Prober()
	if p == nil {
		p = probe.Offline{}
	}
	return probe.AccessURL(ctx, p, e.ID())
}

// Package base declares the kinds shared by every domain: the root data
// entity, the metadata descriptor, files, directories and the common
// contextual entities. Sponsor domains refine or reference these kinds.
package base

import (
	"context"
	"strings"
	"time"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/probe"
	"github.com/reoring/niidg/rules"
)

// Domain is the name of this catalog.
const Domain = niidg.BaseDomain

var (
	RootDataEntity = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "RootDataEntity",
		Type:      niidg.RootType,
		Category:  entity.Default,
		Structure: checkRoot,
		Validate:  rules.All(rules.InGraph("funder", "hasPart")),
	})

	ROCrateMetadata = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "ROCrateMetadata",
		Type:      niidg.MetadataType,
		Category:  entity.Default,
		Structure: checkMetadata,
		Validate:  validateMetadata,
	})

	File = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "File",
		Category:  entity.Data,
		Formats:   FileFormats(),
		Structure: CheckFile,
		Validate:  ValidateFile,
	})

	Dataset = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "Dataset",
		Category:  entity.Data,
		Formats:   map[string]check.Func{"url": check.URL},
		Structure: checkDataset,
	})

	Organization = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "Organization",
		Category: entity.Contextual,
		Formats:  map[string]check.Func{"@id": check.URL},
		Validate: ValidateOrganization,
	})

	HostingInstitution = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "HostingInstitution",
		Category: entity.Contextual,
		Parent:   Organization,
		Formats:  map[string]check.Func{"@id": check.URL},
		Validate: ValidateOrganization,
	})

	Person = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "Person",
		Category: entity.Contextual,
		Formats: map[string]check.Func{
			"@id":       check.URL,
			"email":     check.Email,
			"telephone": check.PhoneNumber,
		},
		Structure: CheckPerson,
		Validate:  rules.All(ValidatePerson, rules.InGraph("affiliation")),
	})

	License = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "License",
		Category: entity.Contextual,
		Formats:  map[string]check.Func{"@id": check.URL},
	})

	RepositoryObject = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "RepositoryObject",
		Category: entity.Contextual,
		Formats:  map[string]check.Func{"@id": check.URL},
	})

	DataDownload = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "DataDownload",
		Category: entity.Contextual,
		Formats: map[string]check.Func{
			"@id":        check.URL,
			"sha256":     check.SHA256,
			"uploadDate": check.ISODate,
		},
	})

	ContactPoint = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "ContactPoint",
		Category: entity.Contextual,
		Formats: map[string]check.Func{
			"email":     check.Email,
			"telephone": check.PhoneNumber,
		},
	})
)

// NewRoot returns the root data entity stamped with the creation time.
func NewRoot() *entity.Entity {
	return entity.New(RootDataEntity, niidg.RootID).With("dateCreated", time.Now().UTC().Format(time.RFC3339))
}

// NewMetadata returns the metadata descriptor of a crate rooted at root.
func NewMetadata(root *entity.Entity) *entity.Entity {
	return entity.New(ROCrateMetadata, niidg.MetadataID).
		With("conformsTo", entity.Ref{ID: niidg.ROCrateConformsTo}).
		With("about", root)
}

// NewFile returns a file entity; id is a URL or a path relative to the crate.
func NewFile(id string) *entity.Entity { return entity.New(File, id) }

// NewDataset returns a directory entity; id ends with "/".
func NewDataset(id string) *entity.Entity { return entity.New(Dataset, id) }

// NewOrganization returns an organization identified by a URL such as a ROR id.
func NewOrganization(id string) *entity.Entity { return entity.New(Organization, id) }

// NewHostingInstitution returns a hosting institution identified by a URL.
func NewHostingInstitution(id string) *entity.Entity { return entity.New(HostingInstitution, id) }

// NewPerson returns a person identified by a URL such as an ORCID iD.
func NewPerson(id string) *entity.Entity { return entity.New(Person, id) }

// NewLicense returns a license identified by its URL.
func NewLicense(id string) *entity.Entity { return entity.New(License, id) }

// NewRepositoryObject returns a repository identified by its URL.
func NewRepositoryObject(id string) *entity.Entity { return entity.New(RepositoryObject, id) }

// NewDataDownload returns a distribution identified by its download URL.
func NewDataDownload(id string) *entity.Entity { return entity.New(DataDownload, id) }

// NewContactPoint returns a contact point.
func NewContactPoint(id string) *entity.Entity { return entity.New(ContactPoint, id) }

func checkRoot(e *entity.Entity, errs *niidg.EntityError) {
	CheckFixedID(e, errs, niidg.RootID)
	if s, ok := e.GetString("dateCreated"); ok {
		if _, err := time.Parse(time.RFC3339, s); err != nil && check.ISODate(s) != nil {
			errs.AddIssue(niidg.Issue{Property: "dateCreated", Code: niidg.CodeInvalidFormat, Message: "The value MUST be an ISO 8601 date or date-time."})
		}
	}
	if v, ok := e.Get("hasPart"); ok {
		seq, _ := v.([]any)
		for _, it := range seq {
			part, ok := it.(*entity.Entity)
			if !ok || part.Kind().Category != entity.Data {
				errs.AddIssue(niidg.Issue{Property: "hasPart", Code: niidg.CodeInvalidType, Message: "Every element MUST be a data entity (File or Dataset)."})
				break
			}
		}
	}
}

func checkMetadata(e *entity.Entity, errs *niidg.EntityError) {
	CheckFixedID(e, errs, niidg.MetadataID)
	if v, ok := e.Get("conformsTo"); ok {
		if id, _ := entity.IDOf(v); id != niidg.ROCrateConformsTo {
			errs.AddIssue(niidg.Issue{Property: "conformsTo", Code: niidg.CodeInvalidValue, Message: `The value MUST be {"@id": "` + niidg.ROCrateConformsTo + `"}.`})
		}
	}
}

func validateMetadata(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	if about, ok := e.Get("about"); ok && !isRoot(about, g) {
		errs.AddIssue(niidg.Issue{Property: "about", Code: niidg.CodeReference, Message: "The value MUST be the RootDataEntity of this crate."})
	}
	return nil
}

// FileFormats returns the format checks every file kind applies.
func FileFormats() map[string]check.Func {
	return map[string]check.Func{
		"contentSize":     check.ContentSize,
		"encodingFormat":  check.MIMEType,
		"sha256":          check.SHA256,
		"url":             check.URL,
		"sdDatePublished": check.ISODate,
	}
}

// CheckFile applies the file rules: the id is a URL or a relative path, and
// sdDatePublished is not in the future.
func CheckFile(e *entity.Entity, errs *niidg.EntityError) {
	CheckNotAbsolute(e, errs)
	CheckPastDate(e, errs, "sdDatePublished")
}

// ValidateFile requires sdDatePublished for files identified by a URL.
func ValidateFile(_ context.Context, e *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
	if kind, err := check.ClassifyURI(e.ID()); err == nil && kind == check.URLKind && !e.Has("sdDatePublished") {
		errs.AddIssue(niidg.Issue{Property: "sdDatePublished", Code: niidg.CodeRequired, Message: "This property is required when @id is a URL, but not found."})
	}
	return nil
}

func checkDataset(e *entity.Entity, errs *niidg.EntityError) {
	if !strings.HasSuffix(e.ID(), "/") {
		errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidFormat, Message: "The value MUST end with '/'."})
	}
	CheckNotAbsolute(e, errs)
}

// ValidateOrganization checks the name of an organization identified by a
// ROR id against the names the registry holds for it.
func ValidateOrganization(ctx context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	if !strings.HasPrefix(e.ID(), "https://ror.org/") {
		return nil
	}
	names, err := probe.RORNames(ctx, proberOf(g), e.ID())
	if err != nil {
		return err
	}
	name, ok := e.GetString("name")
	if names == nil || !ok {
		return nil
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	errs.AddIssue(niidg.Issue{Property: "name", Code: niidg.CodeInvalidValue, Message: "The value MUST be one of the names registered in ROR: " + strings.Join(names, ", ") + "."})
	return nil
}

// CheckPerson verifies the checksum of ORCID iDs.
func CheckPerson(e *entity.Entity, errs *niidg.EntityError) {
	if orcid, ok := strings.CutPrefix(e.ID(), "https://orcid.org/"); ok {
		if err := check.ORCID(orcid); err != nil {
			errs.AddIssue(niidg.Issue{Property: "@id", Code: niidg.CodeInvalidFormat, Message: "The ORCID iD " + orcid + " is invalid.", Cause: err})
		}
	}
}

// ValidatePerson checks that the id of a person is reachable.
func ValidatePerson(ctx context.Context, e *entity.Entity, g entity.Graph, _ *niidg.EntityError) error {
	if check.URL(e.ID()) != nil {
		return nil
	}
	return probe.AccessURL(ctx, proberOf(g), e.ID())
}

func isRoot(v any, g entity.Graph) bool {
	root := g.Root()
	if ent, ok := v.(*entity.Entity); ok {
		return root != nil && ent == root
	}
	return false
}

func proberOf(g entity.Graph) probe.Prober {
	if g == nil || g.Prober() == nil {
		return probe.Offline{}
	}
	return g.Prober()
}

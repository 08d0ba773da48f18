package niidg

import "sync"

// ROCrateContext is the fixed @context of every crate envelope.
const ROCrateContext = "https://w3id.org/ro/crate/1.1/context"

// ROCrateConformsTo is the conformsTo reference of the metadata descriptor.
const ROCrateConformsTo = "https://w3id.org/ro/crate/1.1"

// Fixed identities of the two always-present entities.
const (
	RootID       = "./"
	RootType     = "Dataset"
	MetadataID   = "ro-crate-metadata.json"
	MetadataType = "CreativeWork"
)

// BaseDomain is the shared catalog consulted after a kind's own domain.
const BaseDomain = "base"

// ContextVersion is the schema version this module's catalogs implement.
// Context references that parse as semantic versions are compared against it.
const ContextVersion = "1.0.0"

// Default source of entity context documents.
const (
	DefaultContextRepo = "ascade/nii_dg"
	DefaultContextRef  = "develop"
)

var (
	ctxMu   sync.RWMutex
	ctxRepo = DefaultContextRepo
	ctxRef  = DefaultContextRef
)

// SetContextSource overrides the repository and reference used to build entity
// context URLs. Empty values restore the defaults.
func SetContextSource(repo, ref string) {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	if repo == "" {
		repo = DefaultContextRepo
	}
	if ref == "" {
		ref = DefaultContextRef
	}
	ctxRepo, ctxRef = repo, ref
}

// ContextSource returns the repository and reference used for new entities.
func ContextSource() (repo, ref string) {
	ctxMu.RLock()
	defer ctxMu.RUnlock()
	return ctxRepo, ctxRef
}

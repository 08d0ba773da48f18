package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/catalog"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/typeexpr"
)

// Category is the closed set of entity variants a crate partitions by.
type Category int

const (
	// Unclassified marks a kind that cannot be added to a crate.
	Unclassified Category = iota
	// Default entities are always present: the root and the metadata descriptor.
	Default
	// Data entities are files and directories listed in the root's hasPart.
	Data
	// Contextual entities describe people, organizations, plans and the like.
	Contextual
)

func (c Category) String() string {
	switch c {
	case Default:
		return "default"
	case Data:
		return "data"
	case Contextual:
		return "contextual"
	default:
		return "unclassified"
	}
}

// Kind describes one entity kind of a domain: its catalog entry, its variant
// and its kind-specific rules.
type Kind struct {
	Domain string
	// Name is the catalog entry and the constructor name used for decoding.
	Name string
	// Type is the serialized @type. Empty means Name.
	Type     string
	Category Category
	// Parent is the kind this one refines. Instances conform to every
	// ancestor in type checks. Parent rules are not run implicitly.
	Parent *Kind
	// Formats are applied to string-valued properties after the type check.
	// The key "@id" checks the entity id.
	Formats map[string]check.Func
	// Structure adds entity-local checks beyond the generic pipeline.
	Structure func(e *Entity, errs *niidg.EntityError)
	// Validate records graph-relative violations into errs. A returned error
	// is merged when it belongs to the taxonomy and propagated otherwise.
	Validate func(ctx context.Context, e *Entity, g Graph, errs *niidg.EntityError) error
}

// ID returns the catalog key of the kind.
func (k *Kind) ID() typeexpr.KindID { return typeexpr.KindID{Domain: k.Domain, Name: k.Name} }

// JSONType returns the serialized @type.
func (k *Kind) JSONType() string {
	if k.Type != "" {
		return k.Type
	}
	return k.Name
}

// Is reports whether k is id or refines it.
func (k *Kind) Is(id typeexpr.KindID) bool {
	for cur := k; cur != nil; cur = cur.Parent {
		if cur.ID() == id {
			return true
		}
	}
	return false
}

// Def returns the catalog definition of the kind.
func (k *Kind) Def() (*catalog.EntityDef, error) {
	s, err := catalog.Load(k.Domain)
	if err != nil {
		return nil, err
	}
	d, ok := s.Entity(k.Name)
	if !ok {
		return nil, fmt.Errorf("entity: %s has no catalog entry %s", k.Domain, k.Name)
	}
	return d, nil
}

func (k *Kind) String() string { return k.Domain + "." + k.Name }

var (
	regMu    sync.RWMutex
	registry = map[typeexpr.KindID]*Kind{}
)

// Register makes a kind available to decoding. It panics when the kind is
// registered twice or has no catalog entry, which are programming errors of
// the declaring domain package.
func Register(k *Kind) *Kind {
	if _, err := k.Def(); err != nil {
		panic(err)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[k.ID()]; dup {
		panic("entity: Register called twice for kind " + k.String())
	}
	registry[k.ID()] = k
	return k
}

// Lookup returns the registered kind of a domain by name.
func Lookup(domain, name string) (*Kind, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	k, ok := registry[typeexpr.KindID{Domain: domain, Name: name}]
	return k, ok
}

// Kinds returns the registered kinds of a domain sorted by name. An empty
// domain lists every kind.
func Kinds(domain string) []*Kind {
	regMu.RLock()
	defer regMu.RUnlock()
	var out []*Kind
	for id, k := range registry {
		if domain == "" || id.Domain == domain {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Name < out[j].Name
	})
	return out
}

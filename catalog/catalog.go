// Package catalog loads the declarative per-domain schema catalogs: for each
// entity kind, the property contracts (expected type expression, required
// flag) that structural checks enforce.
//
// Built-in catalogs are embedded YAML resources. Each domain is parsed once
// on first use and then held as immutable process-wide state.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/typeexpr"
)

//go:embed schemas/*.yml
var resources embed.FS

// ErrUnknownDomain is returned when no catalog resource exists for a domain.
var ErrUnknownDomain = errors.New("catalog: unknown domain")

// ErrRegistered is returned when registering a domain that is already known.
var ErrRegistered = errors.New("catalog: domain already registered")

var domainName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PropertyDef is the contract of one property of an entity kind.
type PropertyDef struct {
	Name        string
	Expected    typeexpr.Expr
	Required    bool
	Description string
}

// EntityDef lists the property contracts of one entity kind in declaration order.
type EntityDef struct {
	Domain      string
	Name        string
	Description string

	props []*PropertyDef
	index map[string]*PropertyDef
}

// Props returns every property contract in declaration order.
func (d *EntityDef) Props() []*PropertyDef { return append([]*PropertyDef(nil), d.props...) }

// Prop returns the contract of a single property.
func (d *EntityDef) Prop(name string) (*PropertyDef, bool) {
	p, ok := d.index[name]
	return p, ok
}

// Required returns the names of required properties in declaration order.
func (d *EntityDef) Required() []string {
	var out []string
	for _, p := range d.props {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

func (d *EntityDef) add(p *PropertyDef) {
	if d.index == nil {
		d.index = map[string]*PropertyDef{}
	}
	d.props = append(d.props, p)
	d.index[p.Name] = p
}

// Schema is the loaded catalog of one domain.
type Schema struct {
	Domain string

	entities []*EntityDef
	index    map[string]*EntityDef
}

// Entity returns the definition of a kind declared by this domain.
func (s *Schema) Entity(name string) (*EntityDef, bool) {
	d, ok := s.index[name]
	return d, ok
}

// Entities returns every kind definition in declaration order.
func (s *Schema) Entities() []*EntityDef { return append([]*EntityDef(nil), s.entities...) }

func (s *Schema) add(d *EntityDef) {
	if s.index == nil {
		s.index = map[string]*EntityDef{}
	}
	s.entities = append(s.entities, d)
	s.index[d.Name] = d
}

var (
	mu    sync.RWMutex
	cache = map[string]*Schema{}
)

// Load returns the catalog of a domain, parsing its resource on first use.
// A missing or malformed resource is reported as an error and never cached.
func Load(domain string) (*Schema, error) {
	mu.RLock()
	s, ok := cache[domain]
	mu.RUnlock()
	if ok {
		return s, nil
	}

	mu.Lock()
	defer mu.Unlock()
	if s, ok := cache[domain]; ok {
		return s, nil
	}
	if !domainName.MatchString(domain) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	data, err := resources.ReadFile(resourcePath(domain))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
		}
		return nil, fmt.Errorf("catalog: read %s: %w", domain, err)
	}
	s, err = parse(domain, data)
	if err != nil {
		return nil, err
	}
	cache[domain] = s
	return s, nil
}

// MustLoad is like Load but panics on error. Intended for package init of
// domains whose catalog is embedded.
func MustLoad(domain string) *Schema {
	s, err := Load(domain)
	if err != nil {
		panic(err)
	}
	return s
}

// Register adds the catalog of a domain that is not embedded. The document
// uses the same YAML layout as the built-in resources. A domain can be
// registered once; built-in domains cannot be replaced.
func Register(domain string, data []byte) error {
	if !domainName.MatchString(domain) {
		return fmt.Errorf("catalog: invalid domain name %q", domain)
	}
	s, err := parse(domain, data)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := cache[domain]; ok || embedded(domain) {
		return fmt.Errorf("%w: %s", ErrRegistered, domain)
	}
	cache[domain] = s
	return nil
}

// Domains returns the names of every built-in or registered domain, sorted.
func Domains() []string {
	set := map[string]struct{}{}
	entries, _ := fs.ReadDir(resources, "schemas")
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yml"); ok {
			set[name] = struct{}{}
		}
	}
	mu.RLock()
	for name := range cache {
		set[name] = struct{}{}
	}
	mu.RUnlock()
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func resourcePath(domain string) string { return path.Join("schemas", domain+".yml") }

func embedded(domain string) bool {
	_, err := fs.Stat(resources, resourcePath(domain))
	return err == nil
}

// Resolver resolves entity-kind names referenced from type expressions
// against the catalogs: the owning domain first, then the base domain.
type Resolver struct{}

var _ typeexpr.Resolver = Resolver{}

// ResolveKind implements typeexpr.Resolver.
func (Resolver) ResolveKind(domain, name string) (typeexpr.KindID, bool) {
	for _, d := range searchOrder(domain) {
		s, err := Load(d)
		if err != nil {
			continue
		}
		if _, ok := s.Entity(name); ok {
			return typeexpr.KindID{Domain: d, Name: name}, true
		}
	}
	return typeexpr.KindID{}, false
}

func searchOrder(domain string) []string {
	if domain == "" || domain == niidg.BaseDomain {
		return []string{niidg.BaseDomain}
	}
	return []string{domain, niidg.BaseDomain}
}

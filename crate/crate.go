// Package crate holds the entity graph of one research-data crate: the root
// data entity, the metadata descriptor, the data entities and the contextual
// entities. It checks, encodes, decodes and validates the whole set.
//
// A Crate is not safe for concurrent use.
package crate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/probe"
	"github.com/reoring/niidg/schema/base"
)

var (
	// ErrUnclassified is returned by Add for an entity whose kind is not a
	// data or contextual kind.
	ErrUnclassified = errors.New("crate: entity is neither a data nor a contextual entity")
	// ErrNotFound is returned by Remove for an entity that is not in the crate.
	ErrNotFound = errors.New("crate: entity not found")
	// ErrFixed is returned by Remove for the root and the metadata entity.
	ErrFixed = errors.New("crate: default entities cannot be removed")
)

// Crate is an entity graph.
type Crate struct {
	root     *entity.Entity
	metadata *entity.Entity

	data       []*entity.Entity
	contextual []*entity.Entity

	prober probe.Prober
	logger *slog.Logger
}

var _ entity.Graph = (*Crate)(nil)

// Option configures a Crate.
type Option func(*Crate)

// WithProber sets the network capability used by governance rules. Without
// it checks that need the network are skipped.
func WithProber(p probe.Prober) Option { return func(c *Crate) { c.prober = p } }

// WithLogger sets the logger used for decode warnings and validation traces.
func WithLogger(l *slog.Logger) Option { return func(c *Crate) { c.logger = l } }

func newCrate(opts []Option) *Crate {
	c := &Crate{prober: probe.Offline{}, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New returns a crate holding a fresh root data entity and its metadata
// descriptor.
func New(opts ...Option) *Crate {
	c := newCrate(opts)
	c.root = base.NewRoot()
	c.metadata = base.NewMetadata(c.root)
	return c
}

// Root returns the root data entity.
func (c *Crate) Root() *entity.Entity { return c.root }

// Metadata returns the metadata descriptor.
func (c *Crate) Metadata() *entity.Entity { return c.metadata }

// Prober returns the network capability governance rules use.
func (c *Crate) Prober() probe.Prober { return c.prober }

// Add appends entities to the sequence matching their category. Data
// entities are also appended to the root's hasPart. Nothing is added when
// one of the entities cannot be classified.
func (c *Crate) Add(ents ...*entity.Entity) error {
	for _, e := range ents {
		if e == nil {
			return fmt.Errorf("%w: nil entity", ErrUnclassified)
		}
		switch e.Kind().Category {
		case entity.Data, entity.Contextual:
		default:
			return fmt.Errorf("%w: %s is %s", ErrUnclassified, e, e.Kind().Category)
		}
	}
	for _, e := range ents {
		switch e.Kind().Category {
		case entity.Data:
			c.data = append(c.data, e)
			c.syncParts()
		case entity.Contextual:
			c.contextual = append(c.contextual, e)
		}
	}
	return nil
}

// Remove deletes entities from the crate. Data entities leave the root's
// hasPart too. Nothing is removed when one of the entities is a default
// entity or is absent.
func (c *Crate) Remove(ents ...*entity.Entity) error {
	for _, e := range ents {
		if e != nil && (e == c.root || e == c.metadata) {
			return fmt.Errorf("%w: %s", ErrFixed, e)
		}
		if !c.contains(e) {
			return fmt.Errorf("%w: %s", ErrNotFound, e)
		}
	}
	for _, e := range ents {
		switch e.Kind().Category {
		case entity.Data:
			c.data = without(c.data, e)
			c.syncParts()
		default:
			c.contextual = without(c.contextual, e)
		}
	}
	return nil
}

func (c *Crate) contains(e *entity.Entity) bool {
	if e == nil {
		return false
	}
	for _, cur := range c.All() {
		if cur == e {
			return true
		}
	}
	return false
}

func without(s []*entity.Entity, e *entity.Entity) []*entity.Entity {
	for i, cur := range s {
		if cur == e {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}

// syncParts sets the root's hasPart to the data entities in insertion order.
func (c *Crate) syncParts() {
	if len(c.data) == 0 {
		c.root.Delete("hasPart")
		return
	}
	c.root.Set("hasPart", c.data)
}

// All returns every entity: the root, the metadata descriptor, the data
// entities, then the contextual entities.
func (c *Crate) All() []*entity.Entity {
	out := make([]*entity.Entity, 0, 2+len(c.data)+len(c.contextual))
	out = append(out, c.root, c.metadata)
	out = append(out, c.data...)
	return append(out, c.contextual...)
}

// GetByID returns every entity with the given id. The same id may appear
// once per domain context.
func (c *Crate) GetByID(id string) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range c.All() {
		if e.ID() == id {
			out = append(out, e)
		}
	}
	return out
}

// GetByType returns every entity whose @type is typ.
func (c *Crate) GetByType(typ string) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range c.All() {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

// GetByKind returns every instance of k, including kinds refining it.
func (c *Crate) GetByKind(k *entity.Kind) []*entity.Entity {
	var out []*entity.Entity
	for _, e := range c.All() {
		if e.InstanceOf(k.ID()) {
			out = append(out, e)
		}
	}
	return out
}

// CheckDuplicates fails with a *niidg.CrateError when two entities share
// both id and @context.
func (c *Crate) CheckDuplicates() error {
	type identity struct{ id, context string }
	seen := map[identity]int{}
	var dups []string
	for _, e := range c.All() {
		key := identity{e.ID(), e.Context()}
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, e.ID())
		}
	}
	if len(dups) == 0 {
		return nil
	}
	return &niidg.CrateError{Message: "duplicate entities: " + strings.Join(dups, ", ")}
}

// CheckProps runs the structural check of every entity and returns every
// violation in one *niidg.CrateCheckPropsError.
func (c *Crate) CheckProps() error {
	agg := &niidg.CrateCheckPropsError{}
	for _, e := range c.All() {
		err := e.CheckStructure()
		if err == nil {
			continue
		}
		ee, ok := niidg.AsEntityError(err)
		if !ok {
			return err
		}
		agg.Add(ee)
	}
	if agg.HasError() {
		return agg
	}
	return nil
}

// Validate runs the governance rules of every entity against the crate and
// returns every violation in one *niidg.CrateValidationError. Errors outside
// the taxonomy, such as a failing network probe, abort the run.
func (c *Crate) Validate(ctx context.Context) error {
	agg := &niidg.CrateValidationError{}
	for _, e := range c.All() {
		c.logger.DebugContext(ctx, "validating entity", "entity", e.String())
		err := e.Validate(ctx, c)
		if err == nil {
			continue
		}
		ee, ok := niidg.AsEntityError(err)
		if !ok {
			return err
		}
		agg.Add(ee)
	}
	if agg.HasError() {
		return agg
	}
	return nil
}

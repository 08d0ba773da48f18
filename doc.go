// Package niidg packages research-data metadata as an RO-Crate linked-data
// graph and validates it against per-sponsor declarative schemas.
//
// It provides:
//
// - An entity/graph model addressed by stable identifiers (entity, crate)
// - A schema-driven structural check of each entity's properties (typeexpr, catalog)
// - Cross-entity governance validation over the whole graph (rules, schema/...)
// - A stable, aggregate error model (EntityError, CrateCheckPropsError, CrateValidationError)
//
// Design policy:
// - Keep only the error taxonomy and fixed constants in the root package.
// - Sponsor profiles live under schema/<domain> and register their kinds on import.
// - Structural checks and governance checks never stop at the first violation.
//
// Typical usage:
//
//  import _ "github.com/reoring/niidg/schema/all"
//
//  c, err := crate.Parse(data)
//  if err := c.CheckProps(); err != nil { ... }
//  if err := c.Validate(ctx); err != nil {
//      if agg, ok := niidg.AsCrateValidationError(err); ok { ... }
//  }
package niidg

// Package ginfork declares the kinds of the GIN-fork monitoring profile,
// which checks the layout of an experiment package.
package ginfork

import (
	"context"
	"path"
	"strings"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/check"
	"github.com/reoring/niidg/entity"
	"github.com/reoring/niidg/rules"
	"github.com/reoring/niidg/schema/base"
)

// Domain is the name of this catalog.
const Domain = "ginfork"

// MonitoringID is the default id of the monitoring entity.
const MonitoringID = "#ginmonitoring"

// RequiredDirectories lists, per datasetStructure, the directory names an
// experiment package needs under one common parent.
var RequiredDirectories = map[string][]string{
	"with_code":     {"source", "input_data", "output_data"},
	"for_parameter": {"source", "input_data"},
}

var (
	GinMonitoring = entity.Register(&entity.Kind{
		Domain:   Domain,
		Name:     "GinMonitoring",
		Category: entity.Contextual,
		Formats:  map[string]check.Func{"contentSize": check.BoundSize},
		Validate: rules.All(
			aboutRoot,
			rules.SizeWithin("contentSize", "ginfork.File labeled as an experimental package", packageFiles),
			checkDirectories,
		),
	})

	File = entity.Register(&entity.Kind{
		Domain:    Domain,
		Name:      "File",
		Category:  entity.Data,
		Parent:    base.File,
		Formats:   base.FileFormats(),
		Structure: base.CheckFile,
		Validate:  base.ValidateFile,
	})
)

// NewGinMonitoring returns the monitoring entity with its default id.
func NewGinMonitoring() *entity.Entity { return entity.New(GinMonitoring, MonitoringID) }

// NewFile returns a file of an experiment package.
func NewFile(id string) *entity.Entity { return entity.New(File, id) }

func aboutRoot(_ context.Context, e *entity.Entity, _ entity.Graph, errs *niidg.EntityError) error {
	about, ok := e.Get("about")
	if !ok {
		return nil
	}
	if id, _ := entity.IDOf(about); id != niidg.RootID {
		errs.AddIssue(niidg.Issue{Property: "about", Code: niidg.CodeReference, Message: "The value MUST be the RootDataEntity of this crate."})
	}
	return nil
}

// packageFiles returns the files flagged as part of the experiment package.
func packageFiles(_ *entity.Entity, g entity.Graph) []*entity.Entity {
	var out []*entity.Entity
	for _, f := range g.GetByKind(File) {
		if flag, _ := f.Get("experimentPackageFlag"); flag == true {
			out = append(out, f)
		}
	}
	return out
}

func checkDirectories(_ context.Context, e *entity.Entity, g entity.Graph, errs *niidg.EntityError) error {
	structure, _ := e.GetString("datasetStructure")
	want, ok := RequiredDirectories[structure]
	if !ok {
		return nil
	}
	// parents maps a directory name to the set of directories holding it.
	parents := map[string]map[string]bool{}
	for _, ds := range g.GetByKind(base.Dataset) {
		p := path.Clean(strings.TrimSuffix(ds.ID(), "/"))
		name := path.Base(p)
		if parents[name] == nil {
			parents[name] = map[string]bool{}
		}
		parents[name][path.Dir(p)] = true
	}
	var missing []string
	for _, name := range want {
		if parents[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		errs.AddIssue(niidg.Issue{Property: "datasetStructure", Code: niidg.CodeBusinessRule,
			Message: "Couldn't find required directories: named " + strings.Join(missing, ", ") + "."})
		return nil
	}
	for dir := range parents[want[0]] {
		shared := true
		for _, name := range want[1:] {
			shared = shared && parents[name][dir]
		}
		if shared {
			return nil
		}
	}
	errs.AddIssue(niidg.Issue{Property: "datasetStructure", Code: niidg.CodeBusinessRule,
		Message: "The parent directories of " + strings.Join(want, ", ") + " are not the same."})
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/crate"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATTERN...",
		Short: "Check structure and run governance rules on crate files",
		Long: `validate loads every crate file matching the given paths or glob
patterns (** is supported), checks the structure of every entity and, when it
passes, runs the governance rules of each sponsor profile.

Exit status is 0 when every crate is valid, 1 when at least one is invalid
and 2 on a system failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectAll(cmd, args, true)
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATTERN...",
		Short: "Check the structure of crate files without governance rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectAll(cmd, args, false)
		},
	}
}

func (a *app) inspectAll(cmd *cobra.Command, patterns []string, governance bool) error {
	paths, err := expand(patterns)
	if err != nil {
		return systemError(err)
	}
	runID, err := uuid.NewV7()
	if err != nil {
		return systemError(err)
	}
	logger := a.logger.With("run", runID.String())
	rep := &report{RunID: runID.String()}
	prober := a.prober()
	for _, p := range paths {
		logger.Debug("inspecting crate", "path", p)
		fr := a.inspect(cmd, p, governance, crate.WithProber(prober), crate.WithLogger(logger))
		rep.Files = append(rep.Files, fr)
	}
	if err := rep.write(a.stdout, a.jsonOut); err != nil {
		return systemError(err)
	}
	switch rep.worst() {
	case statusError:
		return &exitError{code: exitSystem}
	case statusInvalid:
		return &exitError{code: exitInvalid}
	}
	return nil
}

// inspect runs the checks of one file. Structural failures stop it before
// governance runs.
func (a *app) inspect(cmd *cobra.Command, path string, governance bool, opts ...crate.Option) fileReport {
	fr := fileReport{Path: path, Status: statusOK}
	c, err := crate.Load(path, opts...)
	if err != nil {
		return fr.fail(err)
	}
	if err := c.CheckDuplicates(); err != nil {
		return fr.fail(err)
	}
	if err := c.CheckProps(); err != nil {
		return fr.fail(err)
	}
	if governance {
		if err := c.Validate(cmd.Context()); err != nil {
			return fr.fail(err)
		}
	}
	return fr
}

// expand resolves glob patterns into a sorted, duplicate-free path list. A
// pattern without matches is kept as a literal path so that a missing file is
// reported against its name.
func expand(patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, pat := range patterns {
		if !doublestar.ValidatePathPattern(pat) {
			return nil, fmt.Errorf("invalid pattern %q", pat)
		}
		matches, err := doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		if len(matches) == 0 {
			matches = []string{pat}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// classify maps a check failure onto a file status. Errors of the document or
// of the taxonomy make the file invalid; anything else is a system failure.
func classify(err error) string {
	var (
		ce *niidg.CrateError
		ue *niidg.UnexpectedError
	)
	switch {
	case errors.As(err, &ue):
		return statusError
	case errors.Is(err, crate.ErrDocument), errors.Is(err, crate.ErrUnclassified), errors.As(err, &ce):
		return statusInvalid
	case errors.Is(err, os.ErrNotExist):
		return statusError
	}
	if _, ok := niidg.AsCrateCheckPropsError(err); ok {
		return statusInvalid
	}
	if _, ok := niidg.AsCrateValidationError(err); ok {
		return statusInvalid
	}
	return statusError
}

package entity

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	niidg "github.com/reoring/niidg"
)

const (
	contextHost = "https://raw.githubusercontent.com/"
	contextDir  = "/schema/context/"
	contextExt  = ".jsonld"
)

// ContextURL builds the @context URL of a domain published at repo and ref.
func ContextURL(repo, ref, domain string) string {
	return contextHost + repo + "/" + ref + contextDir + domain + contextExt
}

// ContextRef is a parsed @context URL.
type ContextRef struct {
	Repo   string // owner/name
	Ref    string // tag or branch; may contain "/"
	Domain string
}

// ParseContext recovers the repository, version reference and domain from a
// @context URL built by ContextURL.
func ParseContext(s string) (ContextRef, error) {
	rest, ok := strings.CutPrefix(s, contextHost)
	if !ok {
		return ContextRef{}, fmt.Errorf("entity: unsupported @context %q", s)
	}
	i := strings.LastIndex(rest, contextDir)
	if i < 0 || !strings.HasSuffix(rest, contextExt) {
		return ContextRef{}, fmt.Errorf("entity: malformed @context %q", s)
	}
	domain := strings.TrimSuffix(rest[i+len(contextDir):], contextExt)
	head := strings.SplitN(rest[:i], "/", 3)
	if len(head) != 3 || head[0] == "" || head[1] == "" || head[2] == "" || domain == "" {
		return ContextRef{}, fmt.Errorf("entity: malformed @context %q", s)
	}
	return ContextRef{Repo: head[0] + "/" + head[1], Ref: head[2], Domain: domain}, nil
}

// Version returns the reference as a semantic version when it is a release
// tag such as "v1.2.0". Branch names yield nil.
func (c ContextRef) Version() *semver.Version {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(c.Ref, "v"))
	if err != nil {
		return nil
	}
	return v
}

// Compatible reports whether a tagged reference is caret-compatible with the
// catalog version this module implements. Branch references are assumed
// compatible.
func (c ContextRef) Compatible() bool {
	v := c.Version()
	if v == nil {
		return true
	}
	con, err := semver.NewConstraint("^" + niidg.ContextVersion)
	if err != nil {
		return false
	}
	return con.Check(v)
}

func (c ContextRef) String() string { return ContextURL(c.Repo, c.Ref, c.Domain) }

package watch

import (
	"path/filepath"
	"strings"

	"github.com/hupe1980/bigslides/internal/fsutil"
	"github.com/hupe1980/bigslides/internal/resource"
)

// relevantExts are the extensions that always warrant a rebuild.
var relevantExts = map[string]bool{
	".md":  true,
	".css": true,
	".js":  true,
}

// Relevance decides whether a changed path warrants a regeneration cycle.
// It is immutable after construction and safe for concurrent use.
type Relevance struct {
	source    string
	canonical string
	deps      []string
}

// NewRelevance builds the predicate for source and its dependencies. Remote
// dependencies are ignored.
func NewRelevance(source string, deps []resource.File) *Relevance {
	r := &Relevance{
		source:    source,
		canonical: fsutil.CanonicalOrAbs(source),
	}

	for _, d := range deps {
		if !d.IsRemote {
			r.deps = append(r.deps, d.Path)
		}
	}

	return r
}

// Match reports whether path is the source, a local dependency or has an
// allow-listed extension. Paths that cannot be canonicalized (for example
// because they were deleted) never match.
func (r *Relevance) Match(path string) bool {
	canonical, err := fsutil.Canonical(path)
	if err != nil {
		return false
	}

	if canonical == r.canonical || path == r.source {
		return true
	}

	for _, d := range r.deps {
		if canonical == d || path == d {
			return true
		}
	}

	return relevantExts[strings.ToLower(filepath.Ext(path))]
}

// Any reports whether at least one of paths matches.
func (r *Relevance) Any(paths []string) bool {
	for _, p := range paths {
		if r.Match(p) {
			return true
		}
	}

	return false
}

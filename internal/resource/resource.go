// Package resource models the stylesheets and scripts a deck depends on.
// A resource is either a local file or a remote http(s) URL; remote bodies
// are fetched with retries and cached for a short time.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hupe1980/bigslides/internal/fsutil"
)

// Kind identifies how a resource is embedded into the document.
type Kind string

// Supported resource kinds.
const (
	KindStylesheet Kind = "stylesheet"
	KindScript     Kind = "script"
)

// ErrNotFound is returned when a local resource does not exist.
var ErrNotFound = errors.New("resource not found")

// File is a single dependency of the generated document.
type File struct {
	// Path is the canonical local path or the URL of a remote resource.
	Path string

	// IsRemote is true for http:// and https:// resources.
	IsRemote bool

	// Kind selects the HTML tag used for the resource.
	Kind Kind
}

// New classifies path as local or remote. Local paths are canonicalized when
// possible so they can be compared against filesystem events.
func New(path string, kind Kind) File {
	if IsRemotePath(path) {
		return File{Path: path, IsRemote: true, Kind: kind}
	}

	return File{Path: fsutil.CanonicalOrAbs(path), Kind: kind}
}

// NewList builds one File per path.
func NewList(paths []string, kind Kind) []File {
	files := make([]File, 0, len(paths))

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		files = append(files, New(p, kind))
	}

	return files
}

// IsRemotePath reports whether path is an http(s) URL.
func IsRemotePath(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Content returns the body of the resource, reading local files from disk
// and fetching remote ones through the default fetcher.
func (f File) Content(ctx context.Context) (string, error) {
	return f.ContentWith(ctx, DefaultFetcher)
}

// ContentWith is Content with an explicit fetcher for remote resources.
func (f File) ContentWith(ctx context.Context, fetcher *Fetcher) (string, error) {
	if f.IsRemote {
		return fetcher.Fetch(ctx, f.Path)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, f.Path)
		}

		return "", fmt.Errorf("reading %s: %w", f.Path, err)
	}

	return string(data), nil
}

// Tag renders the HTML element for the resource. With embed the content is
// inlined; otherwise the element references Path.
func (f File) Tag(ctx context.Context, fetcher *Fetcher, embed bool) (string, error) {
	if !embed {
		switch f.Kind {
		case KindStylesheet:
			return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, f.Path), nil
		case KindScript:
			return fmt.Sprintf(`<script src="%s"></script>`, f.Path), nil
		default:
			return "", fmt.Errorf("unknown resource kind %q", f.Kind)
		}
	}

	if f.Kind != KindStylesheet && f.Kind != KindScript {
		return "", fmt.Errorf("unknown resource kind %q", f.Kind)
	}

	content, err := f.ContentWith(ctx, fetcher)
	if err != nil {
		return "", err
	}

	if f.Kind == KindStylesheet {
		return "<style>" + content + "</style>", nil
	}

	return "<script>" + content + "</script>", nil
}

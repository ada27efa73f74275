// Package document converts a markdown deck into a single HTML page in the
// "big" presentation format: one <div> per slide directly under <body>,
// stylesheets in the head and scripts at the end of the body.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hupe1980/bigslides/internal/resource"
)

// ErrSourceNotFound is returned when the markdown source does not exist.
var ErrSourceNotFound = errors.New("source document not found")

// Request describes one document generation.
type Request struct {
	// Source is the markdown file to convert.
	Source string

	// Resources are the stylesheets and scripts to include.
	Resources []resource.File

	// Embed inlines resource content instead of linking to it.
	Embed bool

	// Script is raw HTML appended at the end of the body (e.g. the
	// live-reload client). Empty means none.
	Script string
}

// Generator produces the rendered document for a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// MarkdownGenerator is the goldmark-backed Generator.
type MarkdownGenerator struct {
	md      goldmark.Markdown
	fetcher *resource.Fetcher
	logger  *slog.Logger
}

// Option configures a MarkdownGenerator.
type Option func(*MarkdownGenerator)

// WithFetcher sets the fetcher used for remote resources.
func WithFetcher(f *resource.Fetcher) Option {
	return func(g *MarkdownGenerator) { g.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *MarkdownGenerator) { g.logger = l }
}

// NewMarkdownGenerator returns a generator that allows raw HTML in the
// markdown source.
func NewMarkdownGenerator(opts ...Option) *MarkdownGenerator {
	g := &MarkdownGenerator{
		md: goldmark.New(
			goldmark.WithRendererOptions(gmhtml.WithUnsafe(), gmhtml.WithXHTML()),
		),
		fetcher: resource.DefaultFetcher,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate reads req.Source and returns the complete HTML page.
func (g *MarkdownGenerator) Generate(ctx context.Context, req Request) ([]byte, error) {
	g.logger.Debug("generating HTML from markdown", slog.String("source", req.Source))

	src, err := os.ReadFile(req.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, req.Source)
		}

		return nil, fmt.Errorf("reading source: %w", err)
	}

	fm, body, err := ParseFrontMatter(string(src))
	if err != nil {
		return nil, err
	}

	var rendered bytes.Buffer
	if err := g.md.Convert([]byte(splitSlides(body)), &rendered); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var doc strings.Builder

	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	doc.WriteString("<meta charset=\"UTF-8\">\n")
	doc.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=0\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(fm.Title))

	g.writeTags(ctx, &doc, req, resource.KindStylesheet)

	doc.WriteString("</head>\n<body>\n")

	for _, slide := range extractSlides(rendered.String()) {
		doc.WriteString("<div>")
		doc.WriteString(slideContent(slide))
		doc.WriteString("</div>\n")
	}

	g.writeTags(ctx, &doc, req, resource.KindScript)

	if req.Script != "" {
		doc.WriteString(req.Script)
		doc.WriteByte('\n')
	}

	doc.WriteString("</body>\n</html>")

	return []byte(doc.String()), nil
}

// writeTags renders every resource of kind. Resources that fail to load are
// skipped so one broken link does not fail the whole document.
func (g *MarkdownGenerator) writeTags(ctx context.Context, doc *strings.Builder, req Request, kind resource.Kind) {
	for _, r := range req.Resources {
		if r.Kind != kind {
			continue
		}

		tag, err := r.Tag(ctx, g.fetcher, req.Embed)
		if err != nil {
			g.logger.Warn("failed to include resource",
				slog.String("kind", string(kind)),
				slog.String("path", r.Path),
				slog.String("error", err.Error()),
			)

			continue
		}

		doc.WriteString(tag)
		doc.WriteByte('\n')
	}
}

const escapedHash = "!--HASH--!"

// splitSlides turns every top-level heading after the first into a slide
// break and normalizes "#Title" into "# Title". A backslash-escaped hash
// never starts a slide and renders as a literal "#".
func splitSlides(content string) string {
	content = strings.ReplaceAll(content, `\#`, escapedHash)

	var out strings.Builder

	first := true

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		header := isSlideHeader(trimmed)

		if header && !first {
			out.WriteString("\n\n---\n\n")
		}

		if header && len(trimmed) > 1 && trimmed[1] != ' ' {
			out.WriteString("# ")
			out.WriteString(trimmed[1:])
		} else {
			out.WriteString(line)
		}

		out.WriteByte('\n')

		if header {
			first = false
		}
	}

	return strings.ReplaceAll(out.String(), escapedHash, `\#`)
}

// isSlideHeader matches "#", "# Title" and "#Title" but not "##".
func isSlideHeader(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}

	if len(trimmed) == 1 {
		return true
	}

	next := trimmed[1]

	return next != '#' && (next == ' ' || !unicode.IsSpace(rune(next)))
}

var hrPattern = regexp.MustCompile(`<hr\s*/?>`)

func extractSlides(rendered string) []string {
	parts := hrPattern.Split(rendered, -1)
	slides := make([]string, 0, len(parts))

	for _, p := range parts {
		slides = append(slides, strings.TrimSpace(p))
	}

	return slides
}

// slideContent strips the wrapping <h1> (or a "#"-prefixed paragraph) so the
// slide text sits directly in its div.
func slideContent(slide string) string {
	if start := strings.Index(slide, "<h1>"); start >= 0 {
		end := strings.Index(slide, "</h1>")
		if end < start {
			return slide
		}

		title := slide[start+len("<h1>") : end]
		rest := strings.TrimSpace(slide[end+len("</h1>"):])

		if rest == "" {
			return title
		}

		return title + "\n" + rest
	}

	if start := strings.Index(slide, "<p>"); start >= 0 {
		end := strings.Index(slide, "</p>")
		if end < start {
			return slide
		}

		text := strings.TrimPrefix(slide[start+len("<p>"):end], "#")
		rest := strings.TrimSpace(slide[end+len("</p>"):])

		if rest == "" {
			return text
		}

		return text + "\n" + rest
	}

	return slide
}

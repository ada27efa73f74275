// Package bigslides provides a public Go API for turning markdown into
// big-text slide decks.
//
// Basic usage:
//
//	err := bigslides.GenerateHTML(ctx, "talk.md", "talk.html")
//
// With options:
//
//	err := bigslides.GenerateHTML(ctx, "talk.md", "talk.html",
//	    bigslides.WithCSS("theme.css"),
//	    bigslides.WithLinkMode(),
//	)
//
// The rendered page can then be turned into slide images with RenderSlides
// and packaged with PackagePPTX.
package bigslides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/bigslides/internal/document"
	"github.com/hupe1980/bigslides/internal/logging"
	"github.com/hupe1980/bigslides/internal/output"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
	"github.com/hupe1980/bigslides/internal/resource"
)

// Errors callers may match with errors.Is.
var (
	ErrSourceNotFound = document.ErrSourceNotFound
	ErrNoSlides       = pptx.ErrNoSlides
)

// Option configures a generation call.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	css    []string
	js     []string
	link   bool
	script string
	logger *slog.Logger

	render render.Options
	pkg    pptx.Options
}

func defaultOptions() *options {
	return &options{
		logger: logging.Discard(),
		render: render.DefaultOptions(),
		pkg:    pptx.DefaultOptions(),
	}
}

// --- Document ---

// WithCSS adds stylesheets (local paths or http(s) URLs).
func WithCSS(paths ...string) Option { return func(o *options) { o.css = append(o.css, paths...) } }

// WithJS adds scripts (local paths or http(s) URLs).
func WithJS(paths ...string) Option { return func(o *options) { o.js = append(o.js, paths...) } }

// WithLinkMode links resources instead of embedding their content.
func WithLinkMode() Option { return func(o *options) { o.link = true } }

// WithScript appends raw HTML at the end of the page body.
func WithScript(html string) Option { return func(o *options) { o.script = html } }

// --- Rendering ---

// WithViewport sets the screenshot size (default: 1280x720).
func WithViewport(width, height int) Option {
	return func(o *options) { o.render.Width, o.render.Height = width, height }
}

// WithImageFormat selects png or jpeg slide images (default: png).
func WithImageFormat(format string) Option { return func(o *options) { o.render.Format = format } }

// WithBrowserPath sets the headless browser binary.
func WithBrowserPath(path string) Option { return func(o *options) { o.render.BrowserPath = path } }

// --- Packaging ---

// WithTitle sets the presentation title (default: "Presentation").
func WithTitle(title string) Option { return func(o *options) { o.pkg.Title = title } }

// WithPattern selects the slide images to package (default: "*.png").
func WithPattern(pattern string) Option { return func(o *options) { o.pkg.Pattern = pattern } }

// WithAspectRatio sets the slide aspect ratio, 16:9 or 4:3.
func WithAspectRatio(ratio string) Option { return func(o *options) { o.pkg.AspectRatio = ratio } }

// --- Logging ---

// WithLogger sets the logger (default: discard).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func apply(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// GenerateHTML converts the markdown file source into an HTML deck at
// output. An output of "-" writes to stdout.
func GenerateHTML(ctx context.Context, source, out string, opts ...Option) error {
	if source == "" {
		return errors.New("source must not be empty")
	}

	if out == "" {
		return errors.New("output must not be empty")
	}

	o := apply(opts)

	resources := resource.NewList(o.css, resource.KindStylesheet)
	resources = append(resources, resource.NewList(o.js, resource.KindScript)...)

	gen := document.NewMarkdownGenerator(document.WithLogger(o.logger))

	html, err := gen.Generate(ctx, document.Request{
		Source:    source,
		Resources: resources,
		Embed:     !o.link,
		Script:    o.script,
	})
	if err != nil {
		return fmt.Errorf("generating HTML: %w", err)
	}

	if err := output.ForPath(out, output.WithLogger(o.logger)).Write(html); err != nil {
		return fmt.Errorf("writing HTML: %w", err)
	}

	return nil
}

// RenderSlides screenshots every slide of the HTML deck into outDir and
// returns the image paths in slide order.
func RenderSlides(ctx context.Context, htmlPath, outDir string, opts ...Option) ([]string, error) {
	o := apply(opts)

	return render.NewRodRenderer(o.logger).Render(ctx, htmlPath, outDir, o.render)
}

// PackagePPTX bundles the slide images in assetsDir into a presentation.
func PackagePPTX(ctx context.Context, assetsDir, outPath string, opts ...Option) error {
	o := apply(opts)

	return pptx.NewZipPackager(pptx.WithLogger(o.logger)).Package(ctx, assetsDir, outPath, o.pkg)
}

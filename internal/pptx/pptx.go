// Package pptx packages rendered slide images into a minimal PowerPoint
// (OOXML) presentation with one full-bleed picture per slide.
package pptx

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
	"github.com/zoobzio/clockz"

	"github.com/hupe1980/bigslides/internal/fsutil"
)

// Default packaging settings.
const (
	DefaultTitle       = "Presentation"
	DefaultPattern     = "*.png"
	DefaultAspectRatio = "16:9"
)

// ErrNoSlides is returned when no image matches the pattern.
var ErrNoSlides = errors.New("no slide images found")

// Options controls packaging.
type Options struct {
	Title       string `json:"title,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// DefaultOptions returns the 16:9 PNG defaults.
func DefaultOptions() Options {
	return Options{
		Title:       DefaultTitle,
		Pattern:     DefaultPattern,
		AspectRatio: DefaultAspectRatio,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()

	if o.Title == "" {
		o.Title = d.Title
	}

	if o.Pattern == "" {
		o.Pattern = d.Pattern
	}

	if o.AspectRatio == "" {
		o.AspectRatio = d.AspectRatio
	}

	return o
}

// Packager bundles slide images from a directory into a presentation file.
type Packager interface {
	Package(ctx context.Context, assetsDir, outPath string, opts Options) error
}

// ZipPackager writes the OOXML parts directly into a zip container.
type ZipPackager struct {
	logger *slog.Logger
	clock  clockz.Clock
}

// Option configures a ZipPackager.
type Option func(*ZipPackager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *ZipPackager) { p.logger = l }
}

// WithClock sets the clock used for the creation timestamp.
func WithClock(c clockz.Clock) Option {
	return func(p *ZipPackager) { p.clock = c }
}

// NewZipPackager returns a packager with the given options applied.
func NewZipPackager(opts ...Option) *ZipPackager {
	p := &ZipPackager{
		logger: slog.Default(),
		clock:  clockz.RealClock,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type slideSize struct {
	cx, cy int64
}

// slideSizeFor maps an aspect ratio onto EMU slide dimensions.
func slideSizeFor(ratio string) (slideSize, bool) {
	switch ratio {
	case "16:9":
		return slideSize{cx: 9144000, cy: 5143500}, true
	case "4:3":
		return slideSize{cx: 9144000, cy: 6858000}, true
	default:
		return slideSize{cx: 9144000, cy: 5143500}, false
	}
}

// Package collects the images in assetsDir matching opts.Pattern, in name
// order, and writes the presentation to outPath.
func (p *ZipPackager) Package(ctx context.Context, assetsDir, outPath string, opts Options) error {
	opts = opts.WithDefaults()

	p.logger.Info("generating PPTX", slog.String("slides", assetsDir), slog.String("output", outPath))

	if err := fsutil.ValidateDir(assetsDir); err != nil {
		return err
	}

	size, ok := slideSizeFor(opts.AspectRatio)
	if !ok {
		p.logger.Warn("unsupported aspect ratio, using 16:9", slog.String("ratio", opts.AspectRatio))
	}

	images, err := FindImages(assetsDir, opts.Pattern)
	if err != nil {
		return err
	}

	slides := p.decodable(images)
	if len(slides) == 0 {
		return fmt.Errorf("%w: no decodable image in %s", ErrNoSlides, assetsDir)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := fsutil.EnsureParentDir(outPath); err != nil {
		return err
	}

	f, err := os.Create(outPath) //nolint:gosec // output path is user-provided by design
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}

	if err := p.write(f, slides, size, opts.Title); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)

		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	p.logger.Info("PPTX created", slog.String("path", outPath), slog.Int("slides", len(slides)))

	return nil
}

// FindImages returns the files in dir matching pattern, sorted by name.
func FindImages(dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching %q in %s: %w", pattern, dir, err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSlides, path.Join(filepath.ToSlash(dir), pattern))
	}

	sort.Strings(matches)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}

	return out, nil
}

// decodable drops images that cannot be read or decoded.
func (p *ZipPackager) decodable(images []string) []string {
	out := make([]string, 0, len(images))

	for _, img := range images {
		if err := checkImage(img); err != nil {
			p.logger.Warn("skipping slide image", slog.String("path", img), slog.String("error", err.Error()))
			continue
		}

		out = append(out, img)
	}

	return out
}

func checkImage(name string) error {
	f, err := os.Open(name) //nolint:gosec // path comes from a directory listing
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)

	return err
}

func (p *ZipPackager) write(w io.Writer, slides []string, size slideSize, title string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name, body string
	}{
		{"[Content_Types].xml", contentTypesXML(len(slides))},
		{"_rels/.rels", packageRelsXML},
		{"docProps/app.xml", appXML(len(slides))},
		{"docProps/core.xml", coreXML(title, p.clock.Now())},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(slides))},
		{"ppt/presentation.xml", presentationXML(len(slides), size)},
	}

	for _, part := range parts {
		if err := writePart(zw, part.name, []byte(part.body)); err != nil {
			return err
		}
	}

	for i, src := range slides {
		n := i + 1
		media := fmt.Sprintf("image%d%s", n, strings.ToLower(filepath.Ext(src)))

		data, err := os.ReadFile(src) //nolint:gosec // path comes from a directory listing
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}

		p.logger.Debug("adding slide", slog.Int("slide", n), slog.String("image", src))

		if err := writePart(zw, "ppt/media/"+media, data); err != nil {
			return err
		}

		if err := writePart(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), []byte(slideRelsXML(media))); err != nil {
			return err
		}

		if err := writePart(zw, fmt.Sprintf("ppt/slides/slide%d.xml", n), []byte(slideXML(size))); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writePart(zw *zip.Writer, name string, body []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating part %s: %w", name, err)
	}

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing part %s: %w", name, err)
	}

	return nil
}

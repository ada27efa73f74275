// Package render captures one screenshot per slide of a generated deck.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/bigslides/internal/fsutil"
)

// Default render settings.
const (
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultFormat   = "png"
	DefaultBaseName = "slide"
	DefaultTimeout  = 30 * time.Second

	// BrowserPathEnv names a browser binary when none is configured.
	BrowserPathEnv = "BROWSER_PATH"

	slideSettle = 500 * time.Millisecond
)

// Options controls how slides are rendered.
type Options struct {
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Format      string        `json:"format,omitempty"`
	BaseName    string        `json:"baseName,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	BrowserPath string        `json:"browserPath,omitempty"`
}

// DefaultOptions returns the standard 1280x720 PNG settings.
func DefaultOptions() Options {
	return Options{
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Format:   DefaultFormat,
		BaseName: DefaultBaseName,
		Timeout:  DefaultTimeout,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()

	if o.Width <= 0 {
		o.Width = d.Width
	}

	if o.Height <= 0 {
		o.Height = d.Height
	}

	if o.Format == "" {
		o.Format = d.Format
	}

	if o.BaseName == "" {
		o.BaseName = d.BaseName
	}

	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}

	return o
}

// Renderer turns a generated HTML deck into ordered slide images.
type Renderer interface {
	Render(ctx context.Context, htmlPath, outDir string, opts Options) ([]string, error)
}

// FileName returns the image name for the 1-based slide index.
func FileName(base string, index int, format string) string {
	return fmt.Sprintf("%s_%04d.%s", base, index, format)
}

// Extension returns the file extension written for format, without the dot.
func Extension(format string) string {
	_, ext, _ := normalizeFormat(format)
	return ext
}

// normalizeFormat maps the requested format onto png or jpeg. The returned
// extension keeps the caller's spelling so "jpg" stays "jpg" on disk.
func normalizeFormat(format string) (kind, ext string, ok bool) {
	switch strings.ToLower(format) {
	case "png":
		return "png", "png", true
	case "jpeg", "jpg":
		return "jpeg", strings.ToLower(format), true
	default:
		return "png", "png", false
	}
}

// resolveBrowserPath picks the configured browser, then BROWSER_PATH.
// Empty means auto-detect.
func resolveBrowserPath(configured string) string {
	if configured != "" {
		return configured
	}

	return os.Getenv(BrowserPathEnv)
}

// page is the slice of browser behavior the capture loop needs.
type page interface {
	Screenshot(ctx context.Context) ([]byte, error)
	SlideCount(ctx context.Context) (int, error)
	Next(ctx context.Context) error
}

// capture screenshots the first slide, then advances through the rest.
// A failed screenshot after the first slide is logged and skipped. timeout
// bounds each page operation; zero means unbounded.
func capture(ctx context.Context, p page, outDir string, base, ext string, settle, timeout time.Duration, logger *slog.Logger) ([]string, error) {
	op := func() (context.Context, context.CancelFunc) {
		if timeout <= 0 {
			return context.WithCancel(ctx)
		}

		return context.WithTimeout(ctx, timeout)
	}

	screenshot := func() ([]byte, error) {
		octx, cancel := op()
		defer cancel()

		return p.Screenshot(octx)
	}

	write := func(index int, data []byte) (string, error) {
		name := filepath.Join(outDir, FileName(base, index, ext))
		if err := os.WriteFile(name, data, 0o644); err != nil { //nolint:gosec // slide images are not secrets
			return "", fmt.Errorf("writing %s: %w", name, err)
		}

		logger.Debug("screenshot saved", slog.String("path", name))

		return name, nil
	}

	data, err := screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing slide 1: %w", err)
	}

	first, err := write(1, data)
	if err != nil {
		return nil, err
	}

	files := []string{first}

	octx, cancel := op()
	count, err := p.SlideCount(octx)

	cancel()

	if err != nil {
		logger.Warn("could not count slides", slog.String("error", err.Error()))
		return files, nil
	}

	logger.Debug("detected slides", slog.Int("count", count))

	for i := 2; i <= count; i++ {
		octx, cancel := op()
		err := p.Next(octx)

		cancel()

		if err != nil {
			return files, fmt.Errorf("advancing to slide %d: %w", i, err)
		}

		select {
		case <-ctx.Done():
			return files, ctx.Err()
		case <-time.After(settle):
		}

		data, err := screenshot()
		if err != nil {
			logger.Warn("failed to capture slide",
				slog.Int("slide", i),
				slog.String("error", err.Error()),
			)

			continue
		}

		name, err := write(i, data)
		if err != nil {
			return files, err
		}

		files = append(files, name)
	}

	return files, nil
}

// prepare validates the input and creates the output directory.
func prepare(htmlPath, outDir string) (string, error) {
	if err := fsutil.ValidateFile(htmlPath); err != nil {
		return "", err
	}

	if err := fsutil.EnsureDir(outDir); err != nil {
		return "", err
	}

	abs, err := fsutil.Canonical(htmlPath)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", htmlPath, err)
	}

	return abs, nil
}

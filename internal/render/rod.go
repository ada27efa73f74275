package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const slideCountJS = `() => document.querySelectorAll('.slides > div').length`

// RodRenderer drives a headless Chromium through go-rod.
type RodRenderer struct {
	logger *slog.Logger
}

// NewRodRenderer returns a renderer that logs to logger (nil means the
// default logger).
func NewRodRenderer(logger *slog.Logger) *RodRenderer {
	if logger == nil {
		logger = slog.Default()
	}

	return &RodRenderer{logger: logger}
}

// Render opens htmlPath in a fresh headless browser and writes one image per
// slide into outDir. The browser is torn down before returning.
func (r *RodRenderer) Render(ctx context.Context, htmlPath, outDir string, opts Options) ([]string, error) {
	opts = opts.WithDefaults()

	kind, ext, ok := normalizeFormat(opts.Format)
	if !ok {
		r.logger.Warn("unsupported image format, using png", slog.String("format", opts.Format))
	}

	abs, err := prepare(htmlPath, outDir)
	if err != nil {
		return nil, err
	}

	bin := resolveBrowserPath(opts.BrowserPath)
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	l := launcher.New().Context(ctx).Bin(bin).Headless(true)
	defer l.Cleanup()

	r.logger.Info("launching headless browser", slog.String("bin", bin))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	defer func() { _ = browser.Close() }()

	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	r.logger.Info("opening deck", slog.String("url", target))

	p, err := browser.Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}

	if err := p.Timeout(opts.Timeout).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("setting viewport: %w", err)
	}

	if err := p.Timeout(opts.Timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("loading page: %w", err)
	}

	format := proto.PageCaptureScreenshotFormatPng
	if kind == "jpeg" {
		format = proto.PageCaptureScreenshotFormatJpeg
	}

	return capture(ctx, &rodPage{page: p, format: format}, outDir, opts.BaseName, ext, slideSettle, opts.Timeout, r.logger)
}

type rodPage struct {
	page   *rod.Page
	format proto.PageCaptureScreenshotFormat
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{Format: p.format})
}

func (p *rodPage) SlideCount(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(slideCountJS)
	if err != nil {
		return 0, err
	}

	return res.Value.Int(), nil
}

func (p *rodPage) Next(ctx context.Context) error {
	return p.page.Context(ctx).Keyboard.Press(input.ArrowRight)
}

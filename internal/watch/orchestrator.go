package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/hupe1980/bigslides/internal/document"
	"github.com/hupe1980/bigslides/internal/output"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
	"github.com/hupe1980/bigslides/internal/resource"
)

// ReloadMessage is the only payload pushed to live-reload clients.
const ReloadMessage = "reload"

// Notifier pushes a message to connected preview clients and reports how
// many received it.
type Notifier interface {
	Broadcast(msg string) int
}

// Pipeline is what one regeneration cycle produces.
type Pipeline struct {
	Source    string
	Output    string
	Resources []resource.File
	Embed     bool

	// Script is injected into the generated page (the live-reload client).
	Script string

	// SlidesDir enables the render stage when set.
	SlidesDir string
	Render    render.Options

	// PPTXPath enables the package stage when set (and SlidesDir is set).
	PPTXPath string
	Package  pptx.Options
}

// CycleResult summarizes a successful cycle.
type CycleResult struct {
	Trigger   string
	Duration  time.Duration
	Diff      OutputDiff
	Slides    int
	Packaged  bool
	Delivered int
}

// Orchestrator runs regeneration cycles. At most one cycle runs at a time.
type Orchestrator struct {
	pipeline  Pipeline
	generator document.Generator
	renderer  render.Renderer
	packager  pptx.Packager
	writer    output.Writer
	notifier  Notifier
	clock     clockz.Clock
	logger    *slog.Logger

	mu        sync.Mutex
	lastRegen time.Time
	prevHTML  []byte
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithGenerator overrides the document generator.
func WithGenerator(g document.Generator) OrchestratorOption {
	return func(o *Orchestrator) { o.generator = g }
}

// WithRenderer overrides the slide renderer.
func WithRenderer(r render.Renderer) OrchestratorOption {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithPackager overrides the presentation packager.
func WithPackager(p pptx.Packager) OrchestratorOption {
	return func(o *Orchestrator) { o.packager = p }
}

// WithNotifier sets who is told about successful cycles.
func WithNotifier(n Notifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithClock sets the clock used for timing and the regeneration gate.
func WithClock(c clockz.Clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator returns an orchestrator for p. Collaborators default to
// the markdown generator, the headless-browser renderer and the zip
// packager.
func NewOrchestrator(p Pipeline, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pipeline: p,
		clock:    clockz.RealClock,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.generator == nil {
		o.generator = document.NewMarkdownGenerator(document.WithLogger(o.logger))
	}

	if o.renderer == nil {
		o.renderer = render.NewRodRenderer(o.logger)
	}

	if o.packager == nil {
		o.packager = pptx.NewZipPackager(pptx.WithLogger(o.logger), pptx.WithClock(o.clock))
	}

	o.writer = output.NewFileWriter(p.Output, output.WithLogger(o.logger))

	return o
}

// Run executes one cycle. A failed stage yields a *CycleError and skips
// every later stage; earlier outputs stay on disk. The notifier is called
// only after every configured stage succeeded.
func (o *Orchestrator) Run(ctx context.Context, trigger string) (*CycleResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.clock.Now()
	p := o.pipeline

	o.logger.Info("regenerating outputs", slog.String("trigger", trigger))

	html, err := o.generator.Generate(ctx, document.Request{
		Source:    p.Source,
		Resources: p.Resources,
		Embed:     p.Embed,
		Script:    p.Script,
	})
	if err != nil {
		return nil, o.fail(StageGenerate, err)
	}

	if err := o.writer.Write(html); err != nil {
		return nil, o.fail(StageGenerate, err)
	}

	result := &CycleResult{
		Trigger: trigger,
		Diff:    diffOutput(o.prevHTML, html),
	}

	o.prevHTML = html

	o.logger.Info("HTML regenerated", slog.String("path", p.Output))

	if p.SlidesDir != "" {
		slides, err := o.renderer.Render(ctx, p.Output, p.SlidesDir, p.Render)
		if err != nil {
			return nil, o.fail(StageRender, err)
		}

		result.Slides = len(slides)

		o.logger.Info("slides regenerated", slog.String("dir", p.SlidesDir), slog.Int("count", len(slides)))

		if p.PPTXPath != "" {
			if err := o.packager.Package(ctx, p.SlidesDir, p.PPTXPath, p.Package); err != nil {
				return nil, o.fail(StagePackage, err)
			}

			result.Packaged = true

			o.logger.Info("PPTX regenerated", slog.String("path", p.PPTXPath))
		}
	}

	// Changes saved while the cycle ran must pass the gate afterwards.
	o.lastRegen = start
	result.Duration = o.clock.Since(start)

	if o.notifier != nil {
		result.Delivered = o.notifier.Broadcast(ReloadMessage)
		o.logger.Info("sent reload signal", slog.Int("clients", result.Delivered))
	}

	return result, nil
}

// SinceLastRegen returns the time elapsed since the start of the last fully
// successful cycle. ok is false before the first one.
func (o *Orchestrator) SinceLastRegen() (elapsed time.Duration, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lastRegen.IsZero() {
		return 0, false
	}

	return o.clock.Since(o.lastRegen), true
}

func (o *Orchestrator) fail(stage Stage, err error) error {
	o.logger.Error("regeneration failed",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()),
	)

	return &CycleError{Stage: stage, Err: err}
}

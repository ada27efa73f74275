package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bigslides/internal/document"
	"github.com/hupe1980/bigslides/internal/fsutil"
	"github.com/hupe1980/bigslides/internal/livereload"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/preview"
	"github.com/hupe1980/bigslides/internal/render"
	"github.com/hupe1980/bigslides/internal/resource"
)

// DefaultPort is the default preview port. The live-reload hub defaults to
// the next port.
const DefaultPort = 8080

// SourceFactory opens the change source for a watch root.
type SourceFactory func(root string, window time.Duration) (Source, error)

// Options configures a watch session.
type Options struct {
	// Source is the markdown deck to watch.
	Source string

	// Output is the generated HTML file.
	Output string

	// Resources are the stylesheets and scripts included in the page.
	Resources []resource.File

	// Embed inlines resources instead of linking them.
	Embed bool

	// SlidesDir, when set, enables slide rendering.
	SlidesDir string
	Render    render.Options

	// PPTXPath, when set together with SlidesDir, enables packaging.
	PPTXPath string
	Package  pptx.Options

	// Debounce is both the batching window and the minimum spacing between
	// two cycles.
	Debounce time.Duration

	// Serve starts the preview server on Host:Port.
	Serve bool
	Host  string
	Port  int

	// LiveReload starts the hub on Host:WSPort (Port+1 when zero) and
	// injects the client script into the page.
	LiveReload bool
	WSPort     int

	// Collaborators; nil means the default implementation.
	Generator document.Generator
	Renderer  render.Renderer
	Packager  pptx.Packager
	Sources   SourceFactory

	Clock  clockz.Clock
	Logger *slog.Logger

	// Out receives the user-facing status lines.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Embed:    true,
		Debounce: DefaultDebounce,
		Host:     "localhost",
		Port:     DefaultPort,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Session owns the watch, the orchestrator and the optional preview
// endpoints for one deck.
type Session struct {
	opts         Options
	root         string
	relevance    *Relevance
	orchestrator *Orchestrator
	source       Source
	preview      *preview.Server
	hub          *livereload.Hub
}

// NewSession validates opts, binds the endpoints and establishes the watch.
// Every failure is a *SetupError and leaves nothing running.
func NewSession(opts Options) (_ *Session, err error) {
	opts = withSessionDefaults(opts)

	s := &Session{opts: opts}

	defer func() {
		if err != nil {
			s.teardown()
		}
	}()

	if err := s.validate(); err != nil {
		return nil, err
	}

	opts = s.opts

	if opts.Serve {
		s.preview = preview.NewServer(opts.Output, preview.WithLogger(opts.Logger))
		if err := s.preview.Listen(net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))); err != nil {
			return nil, setupErr("preview server", err)
		}
	}

	var script string

	if opts.LiveReload {
		s.hub = livereload.NewHub(livereload.WithLogger(opts.Logger))
		if err := s.hub.Listen(net.JoinHostPort(opts.Host, strconv.Itoa(opts.WSPort))); err != nil {
			return nil, setupErr("live-reload hub", err)
		}

		script = livereload.ClientScript(boundPort(s.hub.Addr(), opts.WSPort))
	}

	root, err := WatchRoot(opts.Source)
	if err != nil {
		return nil, setupErr("watch root", err)
	}

	s.root = root

	src, err := opts.Sources(root, opts.Debounce)
	if err != nil {
		return nil, setupErr("watch", err)
	}

	s.source = src
	s.relevance = NewRelevance(opts.Source, opts.Resources)

	orchOpts := []OrchestratorOption{
		WithGenerator(opts.Generator),
		WithRenderer(opts.Renderer),
		WithPackager(opts.Packager),
		WithClock(opts.Clock),
		WithLogger(opts.Logger),
	}

	if s.hub != nil {
		orchOpts = append(orchOpts, WithNotifier(s.hub))
	}

	s.orchestrator = NewOrchestrator(Pipeline{
		Source:    opts.Source,
		Output:    opts.Output,
		Resources: opts.Resources,
		Embed:     opts.Embed,
		Script:    script,
		SlidesDir: opts.SlidesDir,
		Render:    opts.Render,
		PPTXPath:  opts.PPTXPath,
		Package:   opts.Package,
	}, orchOpts...)

	return s, nil
}

func withSessionDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.WSPort == 0 {
		opts.WSPort = opts.Port + 1
	}

	if opts.Sources == nil {
		clock, logger := opts.Clock, opts.Logger
		opts.Sources = func(root string, window time.Duration) (Source, error) {
			return NewFSSource(root, window, WithSourceClock(clock), WithSourceLogger(logger))
		}
	}

	return opts
}

func (s *Session) validate() error {
	if err := fsutil.ValidateFile(s.opts.Source); err != nil {
		return setupErr("source", err)
	}

	if err := fsutil.ValidateWritable(filepath.Dir(s.opts.Output)); err != nil {
		return setupErr("output", err)
	}

	if s.opts.SlidesDir != "" {
		if err := fsutil.ValidateWritable(s.opts.SlidesDir); err != nil {
			return setupErr("slides directory", err)
		}
	}

	if s.opts.PPTXPath != "" {
		if s.opts.SlidesDir == "" {
			s.opts.Logger.Warn("PPTX output requires a slides directory, packaging disabled")
			s.opts.PPTXPath = ""
		} else if err := fsutil.ValidateWritable(filepath.Dir(s.opts.PPTXPath)); err != nil {
			return setupErr("pptx output", err)
		}
	}

	return nil
}

// PreviewAddr returns the preview server address, or nil when not serving.
func (s *Session) PreviewAddr() net.Addr {
	if s.preview == nil {
		return nil
	}

	return s.preview.Addr()
}

// HubAddr returns the live-reload address, or nil when disabled.
func (s *Session) HubAddr() net.Addr {
	if s.hub == nil {
		return nil
	}

	return s.hub.Addr()
}

// Run performs the initial cycle, then regenerates on every accepted batch
// until ctx is cancelled. Cycle failures are reported and never end the
// session. The session's resources are released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.preview != nil {
		g.Go(func() error { return s.preview.Serve(gctx) })

		fmt.Fprintf(s.opts.Out, "serving preview at http://%s\n", displayAddr(s.opts.Host, s.preview.Addr()))
	}

	if s.hub != nil {
		g.Go(func() error { return s.hub.Serve(gctx) })

		s.opts.Logger.Info("live reload enabled", slog.String("addr", s.hub.Addr().String()))
	}

	fmt.Fprintf(s.opts.Out, "watching %s (debounce=%s, serve=%t, live-reload=%t)\n",
		s.root, s.opts.Debounce, s.opts.Serve, s.opts.LiveReload)

	s.cycle(gctx, "(initial)")

	errs := s.source.Errors()

loop:
	for {
		select {
		case <-gctx.Done():
			break loop

		case batch, ok := <-s.source.Batches():
			if !ok {
				break loop
			}

			s.handle(gctx, batch)

		case watchErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			s.opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}

	fmt.Fprintln(s.opts.Out, "\nshutting down watcher")

	s.teardown()

	return g.Wait()
}

// handle filters a batch and runs a cycle when it is relevant and the last
// successful cycle is at least one debounce interval old.
func (s *Session) handle(ctx context.Context, batch Batch) {
	var trigger string

	for _, p := range batch.Paths {
		if s.relevance.Match(p) {
			trigger = p
			break
		}
	}

	if trigger == "" {
		s.opts.Logger.Debug("ignoring irrelevant changes", slog.Int("paths", len(batch.Paths)))
		return
	}

	if elapsed, ok := s.orchestrator.SinceLastRegen(); ok && elapsed < s.opts.Debounce {
		s.opts.Logger.Debug("suppressing rebuild",
			slog.String("trigger", trigger),
			slog.Duration("since_last", elapsed),
		)

		return
	}

	if rel, err := filepath.Rel(s.root, trigger); err == nil {
		trigger = rel
	}

	s.cycle(ctx, trigger)
}

// cycle runs the orchestrator and prints the status line.
func (s *Session) cycle(ctx context.Context, trigger string) {
	now := s.opts.Clock.Now().Format("15:04:05")

	result, err := s.orchestrator.Run(ctx, trigger)
	if err != nil {
		fmt.Fprintf(s.opts.Out, "[%s] %s → %s %v\n", now, trigger, color.RedString("ERROR:"), err)
		return
	}

	fmt.Fprintf(s.opts.Out, "[%s] %s → %s (%s", now, trigger, color.GreenString("OK"), result.Diff.Summary())

	if s.opts.SlidesDir != "" {
		fmt.Fprintf(s.opts.Out, ", %d slide(s)", result.Slides)
	}

	if result.Packaged {
		fmt.Fprint(s.opts.Out, ", pptx")
	}

	if s.hub != nil {
		fmt.Fprintf(s.opts.Out, ", reloaded %d client(s)", result.Delivered)
	}

	fmt.Fprintf(s.opts.Out, ") in %s\n", result.Duration.Round(time.Millisecond))
}

// teardown releases everything NewSession acquired. It is idempotent.
func (s *Session) teardown() {
	if s.source != nil {
		_ = s.source.Close()
	}

	if s.preview != nil {
		_ = s.preview.Close()
	}

	if s.hub != nil {
		_ = s.hub.Close()
	}
}

// boundPort returns the port actually bound (relevant when port 0 was
// requested).
func boundPort(addr net.Addr, fallback int) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}

	return fallback
}

func displayAddr(host string, addr net.Addr) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return net.JoinHostPort("localhost", strconv.Itoa(boundPort(addr, 0)))
	}

	return addr.String()
}

// Run starts a session for opts and blocks until ctx is cancelled or a
// SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options) error {
	s, err := NewSession(opts)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return s.Run(sigCtx)
}

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bigslides/internal/document"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Collaborator fakes
// ---------------------------------------------------------------------------

type fakeGenerator struct {
	mu       sync.Mutex
	requests []document.Request
	err      error
	delay    time.Duration

	// hold, when set, blocks Generate until it is closed. entered is
	// signalled before blocking.
	hold    chan struct{}
	entered chan struct{}

	inflight    atomic.Int32
	maxInflight atomic.Int32

	called chan document.Request
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		called:  make(chan document.Request, 64),
		entered: make(chan struct{}, 64),
	}
}

func (g *fakeGenerator) Generate(_ context.Context, req document.Request) ([]byte, error) {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)

	for {
		m := g.maxInflight.Load()
		if n <= m || g.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}

	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	g.mu.Lock()
	hold := g.hold
	g.mu.Unlock()

	if hold != nil {
		g.entered <- struct{}{}
		<-hold
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	count := len(g.requests)
	err := g.err
	g.mu.Unlock()

	g.called <- req

	if err != nil {
		return nil, err
	}

	return fmt.Appendf(nil, "<html>\n<div>build %d</div>\n</html>\n", count), nil
}

func (g *fakeGenerator) setErr(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

// block makes the following Generate calls wait until the returned release
// func is called.
func (g *fakeGenerator) block() (release func()) {
	hold := make(chan struct{})

	g.mu.Lock()
	g.hold = hold
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		g.hold = nil
		g.mu.Unlock()
		close(hold)
	}
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.requests)
}

type fakeRenderer struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (r *fakeRenderer) Render(_ context.Context, _, outDir string, opts render.Options) ([]string, error) {
	r.calls.Add(1)

	r.mu.Lock()
	err := r.err
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	opts = opts.WithDefaults()

	return []string{
		filepath.Join(outDir, render.FileName(opts.BaseName, 1, opts.Format)),
		filepath.Join(outDir, render.FileName(opts.BaseName, 2, opts.Format)),
	}, nil
}

func (r *fakeRenderer) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

type fakePackager struct {
	err   error
	calls atomic.Int32
}

func (p *fakePackager) Package(context.Context, string, string, pptx.Options) error {
	p.calls.Add(1)
	return p.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Broadcast(msg string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.msgs = append(n.msgs, msg)

	return 3
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.msgs...)
}

// fakeSource hands batches to the session over an unbuffered channel, so a
// completed send means the previous batch has been fully handled.
type fakeSource struct {
	batches chan Batch
	errs    chan error
	closed  atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan Batch),
		errs:    make(chan error),
	}
}

func (s *fakeSource) Batches() <-chan Batch { return s.batches }
func (s *fakeSource) Errors() <-chan error  { return s.errs }

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSource) send(t *testing.T, paths ...string) {
	t.Helper()

	select {
	case s.batches <- Batch{Paths: paths}:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not accept batch")
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func waitCall(t *testing.T, g *fakeGenerator) document.Request {
	t.Helper()

	select {
	case req := <-g.called:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("generator was not called")
		return document.Request{}
	}
}

// writeDeck creates a source deck in a fresh directory and returns its path.
func writeDeck(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	src := filepath.Join(dir, "slides.md")
	require.NoError(t, os.WriteFile(src, []byte("# One\n\n---\n\n# Two\n"), 0o644))

	return src
}

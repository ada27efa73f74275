package watch

import (
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default batching window.
const DefaultDebounce = 500 * time.Millisecond

// Batch is the de-duplicated, sorted set of paths seen in one window.
type Batch struct {
	Paths []string
}

// Debouncer coalesces paths into batches. The first path arriving while
// nothing is pending opens a fixed window; every path added before the
// window closes joins the same batch, which is delivered once.
type Debouncer struct {
	window time.Duration
	clock  clockz.Clock

	mu      sync.Mutex
	pending map[string]struct{}
	open    bool
	stopped bool

	out  chan Batch
	done chan struct{}
}

// NewDebouncer returns a debouncer with the given window. A nil clock means
// the real clock.
func NewDebouncer(window time.Duration, clock clockz.Clock) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}

	if clock == nil {
		clock = clockz.RealClock
	}

	return &Debouncer{
		window:  window,
		clock:   clock,
		pending: make(map[string]struct{}),
		out:     make(chan Batch, 16),
		done:    make(chan struct{}),
	}
}

// Add records path in the current window, opening one if needed.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}

	if d.open {
		return
	}

	d.open = true

	go d.await(d.clock.NewTimer(d.window))
}

// Batches delivers one Batch per closed window.
func (d *Debouncer) Batches() <-chan Batch {
	return d.out
}

// Stop discards any pending window. No batch is delivered afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	close(d.done)
}

func (d *Debouncer) await(timer clockz.Timer) {
	select {
	case <-d.done:
		timer.Stop()
		return
	case <-timer.C():
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	batch := d.drain()
	d.open = false
	d.mu.Unlock()

	select {
	case d.out <- batch:
	case <-d.done:
	}
}

// drain must be called with mu held.
func (d *Debouncer) drain() Batch {
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}

	sort.Strings(paths)
	clear(d.pending)

	return Batch{Paths: paths}
}

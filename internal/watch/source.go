package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/clockz"
)

// Source delivers batches of changed paths.
type Source interface {
	Batches() <-chan Batch
	Errors() <-chan error
	Close() error
}

// FSSource is a Source backed by a recursive fsnotify watch.
type FSSource struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	errs      chan error
	logger    *slog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// SourceOption configures an FSSource.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	clock  clockz.Clock
	logger *slog.Logger
}

// WithSourceClock sets the clock driving the batching window.
func WithSourceClock(c clockz.Clock) SourceOption {
	return func(cfg *sourceConfig) { cfg.clock = c }
}

// WithSourceLogger sets the logger.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(cfg *sourceConfig) { cfg.logger = l }
}

// WatchRoot returns the directory to watch for source: its parent, or the
// working directory when it has none, as an absolute path.
func WatchRoot(source string) (string, error) {
	dir := filepath.Dir(source)
	if dir == "" {
		dir = "."
	}

	return filepath.Abs(dir)
}

// NewFSSource starts watching root and everything below it. Events are
// batched with the given window.
func NewFSSource(root string, window time.Duration, opts ...SourceOption) (*FSSource, error) {
	cfg := sourceConfig{clock: clockz.RealClock, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := addRecursive(watcher, root); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	s := &FSSource{
		root:      root,
		watcher:   watcher,
		debouncer: NewDebouncer(window, cfg.clock),
		errs:      make(chan error, 8),
		logger:    cfg.logger,
		done:      make(chan struct{}),
	}

	s.wg.Add(1)

	go s.loop()

	return s, nil
}

// Root returns the watched directory.
func (s *FSSource) Root() string { return s.root }

// Batches implements Source.
func (s *FSSource) Batches() <-chan Batch { return s.debouncer.Batches() }

// Errors implements Source.
func (s *FSSource) Errors() <-chan error { return s.errs }

// Close stops the watch. It is safe to call more than once.
func (s *FSSource) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
		s.debouncer.Stop()
	})

	return err
}

func (s *FSSource) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if !isChange(event) {
				continue
			}

			// Newly created directories are watched too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := addRecursive(s.watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch new directory",
							slog.String("path", event.Name),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			s.logger.Debug("filesystem event", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			s.debouncer.Add(event.Name)

		case watchErr, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			select {
			case s.errs <- watchErr:
			default:
				s.logger.Error("watcher error", slog.String("error", watchErr.Error()))
			}
		}
	}
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// isChange drops attribute-only events.
func isChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

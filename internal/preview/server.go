// Package preview serves the generated deck and its neighbouring assets
// over HTTP. Every request reads the current bytes from disk.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ContentType maps a file extension to the response content type.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}

	return "application/octet-stream"
}

// Server is the preview HTTP server.
type Server struct {
	page   string
	root   string
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer serves page at "/" and everything else relative to page's
// directory.
func NewServer(page string, opts ...Option) *Server {
	s := &Server{
		page:   page,
		root:   filepath.Dir(page),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Listen binds addr. It must be called before Serve.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding preview endpoint %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Serve handles requests until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.mu.Unlock()

	if srv == nil {
		return errors.New("preview server is not listening")
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving preview: %w", err)
	}

	return nil
}

// Close stops the server.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, ln := s.server, s.listener
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Close()

	// Serve may never have taken ownership of the listener.
	_ = ln.Close()

	return err
}

// resolve maps a request path onto the filesystem. Relative segments are
// not confined to the page directory.
func (s *Server) resolve(urlPath string) string {
	if urlPath == "/" || urlPath == "" {
		return s.page
	}

	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := s.resolve(r.URL.Path)

	s.logger.Debug("preview request", slog.String("path", r.URL.Path), slog.String("file", target))

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(target) //nolint:gosec // serving local preview files is the purpose
	if err != nil {
		s.logger.Error("failed to read preview file", slog.String("path", target), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	h := w.Header()
	h.Set("Content-Type", ContentType(target))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to send preview response", slog.String("error", err.Error()))
	}
}

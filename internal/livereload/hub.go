// Package livereload pushes reload signals to preview pages over
// WebSocket.
package livereload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub accepts live-reload clients and broadcasts to them.
type Hub struct {
	pool     *Pool
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	closed   bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithPool shares an existing pool with the hub.
func WithPool(p *Pool) Option {
	return func(h *Hub) { h.pool = p }
}

// NewHub returns a hub with its own pool unless WithPool is given.
func NewHub(opts ...Option) *Hub {
	h := &Hub{logger: slog.Default()}

	for _, opt := range opts {
		opt(h)
	}

	if h.pool == nil {
		h.pool = NewPool(h.logger)
	}

	// Preview pages may be opened from file:// or any local host name.
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return h
}

// Listen binds addr. It must be called before Serve.
func (h *Hub) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding live-reload endpoint %s: %w", addr, err)
	}

	h.mu.Lock()
	h.listener = ln
	h.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.mu.Unlock()

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (h *Hub) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener == nil {
		return nil
	}

	return h.listener.Addr()
}

// Pool returns the hub's connection pool.
func (h *Hub) Pool() *Pool { return h.pool }

// Serve accepts clients until ctx is cancelled or Close is called.
func (h *Hub) Serve(ctx context.Context) error {
	h.mu.Lock()
	srv, ln := h.server, h.listener
	h.mu.Unlock()

	if srv == nil {
		return errors.New("live-reload hub is not listening")
	}

	stop := context.AfterFunc(ctx, func() { _ = h.Close() })
	defer stop()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving live-reload: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the request and pools the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("live-reload handshake failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)

		return
	}

	// Hijacked connections outlive http.Server.Close, so a handshake that
	// finishes after Close is rejected here.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()

		return
	}

	h.pool.Add(conn)
	h.mu.Unlock()

	h.logger.Debug("live-reload client connected", slog.String("remote", r.RemoteAddr))

	go h.discardReads(conn)
}

// discardReads drains client frames so control frames are processed. The
// socket is closed once the client goes away; the pool drops it on the next
// broadcast.
func (h *Hub) discardReads(conn *websocket.Conn) {
	defer conn.Close()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logger.Debug("live-reload client disconnected",
				slog.String("remote", conn.RemoteAddr().String()),
				slog.String("reason", err.Error()),
			)

			return
		}
	}
}

// Broadcast sends msg to every pooled client and returns the number of
// deliveries.
func (h *Hub) Broadcast(msg string) int {
	return h.pool.Broadcast(msg)
}

// Close stops accepting clients and closes every pooled connection. Clients
// completing their handshake afterwards are closed immediately.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	srv, ln := h.server, h.listener
	h.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Close()
		_ = ln.Close()
	}

	h.pool.CloseAll()

	return err
}

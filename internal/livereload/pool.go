package livereload

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single send during Broadcast.
const DefaultWriteTimeout = 2 * time.Second

// Pool is the set of connected live-reload clients. It is shared by
// reference between the accept path and the broadcaster.
type Pool struct {
	mu           sync.Mutex
	conns        map[*websocket.Conn]struct{}
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPool returns an empty pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		conns:        make(map[*websocket.Conn]struct{}),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
}

// Add inserts c.
func (p *Pool) Add(c *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns[c] = struct{}{}
}

// Len returns the number of pooled connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.conns)
}

// Broadcast sends msg as a text frame to every connection. A connection
// whose send fails is closed and removed; the others still receive the
// message. It returns the number of successful deliveries.
func (p *Pool) Broadcast(msg string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := []byte(msg)
	delivered := 0

	for c := range p.conns {
		_ = c.SetWriteDeadline(time.Now().Add(p.writeTimeout))

		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			p.logger.Debug("dropping live-reload client",
				slog.String("remote", c.RemoteAddr().String()),
				slog.String("error", err.Error()),
			)

			_ = c.Close()
			delete(p.conns, c)

			continue
		}

		delivered++
	}

	return delivered
}

// CloseAll sends a close frame to every connection, closes it and empties
// the pool.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	deadline := time.Now().Add(p.writeTimeout)

	for c := range p.conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.Close()
	}

	clear(p.conns)
}

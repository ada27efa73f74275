package resource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/bigslides/internal/version"
)

// Fetch defaults.
const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
	DefaultAttempts     = 3
	DefaultBackoff      = time.Second
)

// DefaultFetcher is shared by all resources that do not bring their own.
var DefaultFetcher = NewFetcher()

type cacheEntry struct {
	body      string
	expiresAt time.Time
}

// Fetcher downloads remote resources with retry and a TTL cache.
type Fetcher struct {
	client   *http.Client
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithCacheTTL overrides how long successful bodies are kept.
func WithCacheTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) { f.ttl = ttl }
}

// WithRetry sets the number of attempts and the initial backoff, which
// doubles after every failed attempt.
func WithRetry(attempts int, backoff time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}

		f.backoff = backoff
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher with the package defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		ttl:      DefaultCacheTTL,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		now:      time.Now,
		logger:   slog.Default(),
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch returns the body of url, serving it from cache while fresh.
// Concurrent fetches of the same URL share one request.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := f.cached(url); ok {
		f.logger.Debug("using cached remote resource", slog.String("url", url))
		return body, nil
	}

	v, err, _ := f.group.Do(url, func() (any, error) {
		return f.fetchWithRetry(ctx, url)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (f *Fetcher) cached(url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.cache[url]
	if !ok || !f.now().Before(e.expiresAt) {
		return "", false
	}

	return e.body, true
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) (string, error) {
	delay := f.backoff

	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			f.mu.Lock()
			f.cache[url] = cacheEntry{body: body, expiresAt: f.now().Add(f.ttl)}
			f.mu.Unlock()

			return body, nil
		}

		lastErr = err

		if attempt == f.attempts {
			break
		}

		f.logger.Info("fetch attempt failed, retrying",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}

	return "", fmt.Errorf("fetching %s: %w", url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	return string(data), nil
}

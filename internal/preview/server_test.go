package preview

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	page := filepath.Join(dir, "slides.html")
	require.NoError(t, os.WriteFile(page, []byte("<div>v1</div>"), 0o644))

	return NewServer(page, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))), dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestServer_RootServesPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<div>v1</div>", rec.Body.String())
}

func TestServer_RootReflectsCurrentBytes(t *testing.T) {
	s, dir := newTestServer(t)

	assert.Equal(t, "<div>v1</div>", get(t, s, "/").Body.String())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "slides.html"), []byte("<div>v2</div>"), 0o644))

	assert.Equal(t, "<div>v2</div>", get(t, s, "/").Body.String())
}

func TestServer_MissingAssetIsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/missing.png").Code)
}

func TestServer_DirectoryIsNotFound(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "slides"), 0o750))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/slides").Code)
}

func TestServer_UnreadableFileIsServerError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	s, dir := newTestServer(t)
	locked := filepath.Join(dir, "locked.css")
	require.NoError(t, os.WriteFile(locked, []byte("h1{}"), 0o644))
	require.NoError(t, os.Chmod(locked, 0))

	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/locked.css").Code)
}

func TestServer_NestedAsset(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "a.png"), []byte{0x89, 'P'}, 0o644))

	rec := get(t, s, "/img/a.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P'}, rec.Body.Bytes())
}

func TestServer_Head(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "13", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.html": "text/html; charset=utf-8",
		"a.HTM":  "text/html; charset=utf-8",
		"a.css":  "text/css",
		"a.js":   "application/javascript",
		"a.png":  "image/png",
		"a.jpg":  "image/jpeg",
		"a.jpeg": "image/jpeg",
		"a.gif":  "image/gif",
		"a.svg":  "image/svg+xml",
		"a.webp": "image/webp",
		"a.pptx": "application/octet-stream",
		"noext":  "application/octet-stream",
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, ContentType(name))
		})
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestServer_ListenAndServe(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Serve(ctx) }()

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "<div>v1</div>", string(body))

	cancel()
	assert.NoError(t, <-done)
}

func TestServer_ListenConflict(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.Listen("127.0.0.1:0"))

	defer s.Close()

	other, _ := newTestServer(t)
	assert.ErrorContains(t, other.Listen(s.Addr().String()), "binding preview endpoint")
}

func TestServer_ServeWithoutListen(t *testing.T) {
	s, _ := newTestServer(t)
	assert.ErrorContains(t, s.Serve(context.Background()), "not listening")
}

func TestServer_ResolveIsNotConfined(t *testing.T) {
	s := NewServer(filepath.Join("/srv", "deck", "slides.html"))

	assert.Equal(t, filepath.Join("/srv", "deck", "slides.html"), s.resolve("/"))
	assert.Equal(t, filepath.Join("/srv", "deck", "img", "a.png"), s.resolve("/img/a.png"))
	// Traversal is resolved, not rejected.
	assert.Equal(t, filepath.Join("/srv", "other.txt"), s.resolve("/../other.txt"))
}

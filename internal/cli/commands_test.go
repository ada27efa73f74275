package cli

import (
	"archive/zip"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bigslides/internal/fsutil"
)

// writeDeck writes a two-slide deck and a stylesheet into a temp dir.
func writeDeck(t *testing.T) (dir, src string) {
	t.Helper()

	dir = t.TempDir()
	src = filepath.Join(dir, "slides.md")
	require.NoError(t, os.WriteFile(src, []byte("% Demo\n\n# One\n\n---\n\n# Two\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "theme.css"), []byte("h1{color:red}"), 0o644))

	return dir, src
}

// writeSlides writes n small PNG files named like rendered slides.
func writeSlides(t *testing.T, dir string, n int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	img.Set(0, 0, color.White)

	for i := 1; i <= n; i++ {
		f, err := os.Create(filepath.Join(dir, "slide_000"+string(rune('0'+i))+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
}

// ---------------------------------------------------------------------------
// Required flags → exit code 2
// ---------------------------------------------------------------------------

func TestCommands_RequireInputAndOutput(t *testing.T) {
	for _, args := range [][]string{
		{"generate-html"},
		{"generate-html", "-i", "slides.md"},
		{"generate-slides", "-o", "slides"},
		{"generate-pptx", "-i", "slides"},
		{"watch", "-i", "slides.md"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, _, err := executeCommand(args...)
			require.Error(t, err)
			requireExitCode(t, err, 2)
			assert.Contains(t, err.Error(), "is required")
		})
	}
}

func TestCommands_RejectPositionalArgs(t *testing.T) {
	for _, sub := range []string{"generate-html", "generate-slides", "generate-pptx", "watch"} {
		t.Run(sub, func(t *testing.T) {
			_, _, err := executeCommand(sub, "extra")
			require.Error(t, err)
		})
	}
}

// ---------------------------------------------------------------------------
// generate-html
// ---------------------------------------------------------------------------

func TestGenerateHTML_WritesFile(t *testing.T) {
	dir, src := writeDeck(t)
	out := filepath.Join(dir, "out", "slides.html")

	_, stderr, err := executeCommand("--no-color", "generate-html", "-i", src, "-o", out, "--css", filepath.Join(dir, "theme.css"))
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "<title>Demo</title>")
	assert.Contains(t, html, "h1{color:red}")
	assert.Contains(t, stderr, "generated "+out)
}

func TestGenerateHTML_Stdout(t *testing.T) {
	_, src := writeDeck(t)

	stdout, _, err := executeCommand("generate-html", "-i", src, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "<div>")
}

func TestGenerateHTML_LinkMode(t *testing.T) {
	dir, src := writeDeck(t)

	stdout, _, err := executeCommand("generate-html", "-i", src, "-o", "-", "--mode", "link", "--css", filepath.Join(dir, "theme.css"))
	require.NoError(t, err)
	assert.Contains(t, stdout, `<link rel="stylesheet"`)
	assert.NotContains(t, stdout, "h1{color:red}")
}

func TestGenerateHTML_ConfigDefaultCSS(t *testing.T) {
	dir, src := writeDeck(t)
	t.Setenv("BIGSLIDES_DEFAULT_CSS", filepath.Join(dir, "theme.css"))

	stdout, _, err := executeCommand("generate-html", "-i", src, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "h1{color:red}")
}

// ---------------------------------------------------------------------------
// generate-slides
// ---------------------------------------------------------------------------

func TestGenerateSlides_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand("generate-slides", "-i", filepath.Join(dir, "missing.html"), "-o", filepath.Join(dir, "slides"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fsutil.ErrNotFound)
}

func TestGenerateSlides_InvalidViewport(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand("generate-slides", "-i", filepath.Join(dir, "deck.html"), "-o", dir, "--width", "0")
	require.Error(t, err)
	requireExitCode(t, err, 2)
}

func TestGenerateSlides_InvalidPipelineConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("render:\n  format: gif\n"), 0o600))

	_, _, err := executeCommand("--config", cfgPath, "generate-slides", "-i", filepath.Join(dir, "deck.html"), "-o", dir)
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid format")
}

// ---------------------------------------------------------------------------
// generate-pptx
// ---------------------------------------------------------------------------

func TestGeneratePPTX_PackagesSlides(t *testing.T) {
	dir := t.TempDir()
	writeSlides(t, dir, 3)

	out := filepath.Join(dir, "deck.pptx")

	_, stderr, err := executeCommand("--no-color", "generate-pptx", "-i", dir, "-o", out, "--title", "Demo")
	require.NoError(t, err)
	assert.Contains(t, stderr, "generated "+out)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)

	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}

	assert.True(t, names["ppt/slides/slide3.xml"])
	assert.True(t, names["ppt/media/image1.png"])
}

func TestGeneratePPTX_ConfigTitle(t *testing.T) {
	dir := t.TempDir()
	writeSlides(t, dir, 1)

	cfgPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("package:\n  title: From Config\n"), 0o600))

	out := filepath.Join(dir, "deck.pptx")

	_, _, err := executeCommand("--config", cfgPath, "generate-pptx", "-i", dir, "-o", out)
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)

	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "docProps/core.xml" {
			continue
		}

		rc, err := f.Open()
		require.NoError(t, err)

		buf, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		assert.Contains(t, string(buf), "From Config")
	}
}

func TestGeneratePPTX_NoSlides(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand("generate-pptx", "-i", dir, "-o", filepath.Join(dir, "deck.pptx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no slide images found")
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func TestWatch_MissingSourceIsSetupError(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand("watch", "-i", filepath.Join(dir, "missing.md"), "-o", filepath.Join(dir, "slides.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup: source")
}

// ---------------------------------------------------------------------------
// Help text
// ---------------------------------------------------------------------------

func TestWatch_Help(t *testing.T) {
	stdout, _, err := executeCommand("watch", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--slides-dir", "--pptx-output", "--debounce", "--serve", "--port", "--auto-reload", "--ws-port"} {
		assert.Contains(t, stdout, flag)
	}
}

func TestGenerateHTML_Help(t *testing.T) {
	stdout, _, err := executeCommand("generate-html", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "one slide per")
}

// ---------------------------------------------------------------------------
// Completion command
// ---------------------------------------------------------------------------

func TestCompletion_Bash(t *testing.T) {
	stdout, _, err := executeCommand("completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "bash completion")
}

func TestCompletion_Zsh(t *testing.T) {
	stdout, _, err := executeCommand("completion", "zsh")
	require.NoError(t, err)
	assert.NotEmpty(t, stdout)
}

func TestCompletion_Fish(t *testing.T) {
	stdout, _, err := executeCommand("completion", "fish")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fish")
}

func TestCompletion_PowerShell(t *testing.T) {
	stdout, _, err := executeCommand("completion", "powershell")
	require.NoError(t, err)
	assert.NotEmpty(t, stdout)
}

func TestCompletion_FlagValues(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"generate-slides", "--format", ""}, []string{"png", "jpeg"}},
		{[]string{"generate-pptx", "--aspect-ratio", ""}, []string{"16:9", "4:3"}},
		{[]string{"watch", "--mode", ""}, []string{"embed", "link"}},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			stdout, _, err := executeCommand(append([]string{"__complete"}, tt.args...)...)
			require.NoError(t, err)

			for _, w := range tt.want {
				assert.Contains(t, stdout, w)
			}
		})
	}
}

func TestCompletion_InvalidShell(t *testing.T) {
	_, _, err := executeCommand("completion", "invalid")
	require.Error(t, err)
}

func TestCompletion_NoArgs(t *testing.T) {
	_, _, err := executeCommand("completion")
	require.Error(t, err)
}

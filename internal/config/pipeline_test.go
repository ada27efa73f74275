package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
)

// ---------------------------------------------------------------------------
// ParsePipelineConfig
// ---------------------------------------------------------------------------

func TestParsePipelineConfig_Sections(t *testing.T) {
	data := []byte(`
log-level: debug
render:
  width: 1920
  height: 1080
  format: jpeg
  baseName: page
package:
  title: Quarterly Review
  pattern: "page_*.jpeg"
  aspectRatio: "4:3"
`)

	cfg, err := ParsePipelineConfig(data)
	require.NoError(t, err)

	assert.Equal(t, RenderDefaults{Width: 1920, Height: 1080, Format: "jpeg", BaseName: "page"}, cfg.Render)
	assert.Equal(t, PackageDefaults{Title: "Quarterly Review", Pattern: "page_*.jpeg", AspectRatio: "4:3"}, cfg.Package)
	assert.False(t, cfg.IsEmpty())
}

func TestParsePipelineConfig_Empty(t *testing.T) {
	cfg, err := ParsePipelineConfig([]byte("log-level: info\n"))
	require.NoError(t, err)
	assert.True(t, cfg.IsEmpty())
}

func TestParsePipelineConfig_Malformed(t *testing.T) {
	_, err := ParsePipelineConfig([]byte("render: [unclosed"))
	assert.ErrorContains(t, err, "parsing pipeline config")
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr string
	}{
		{name: "empty", cfg: PipelineConfig{}},
		{name: "png", cfg: PipelineConfig{Render: RenderDefaults{Format: "PNG"}}},
		{name: "negative width", cfg: PipelineConfig{Render: RenderDefaults{Width: -1}}, wantErr: "must not be negative"},
		{name: "bad format", cfg: PipelineConfig{Render: RenderDefaults{Format: "gif"}}, wantErr: "invalid format"},
		{name: "base name with separator", cfg: PipelineConfig{Render: RenderDefaults{BaseName: "a/b"}}, wantErr: "path separators"},
		{name: "bad pattern", cfg: PipelineConfig{Package: PackageDefaults{Pattern: "[a-"}}, wantErr: "invalid pattern"},
		{name: "bad aspect ratio", cfg: PipelineConfig{Package: PackageDefaults{AspectRatio: "21:9"}}, wantErr: "invalid aspectRatio"},
		{name: "4:3", cfg: PipelineConfig{Package: PackageDefaults{AspectRatio: "4:3"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// ---------------------------------------------------------------------------
// LoadPipelineConfig
// ---------------------------------------------------------------------------

func TestLoadPipelineConfig(t *testing.T) {
	cfg, err := LoadPipelineConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.IsEmpty())

	p := writeTempConfig(t, "package:\n  title: Deck\n")
	cfg, err = LoadPipelineConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "Deck", cfg.Package.Title)

	_, err = LoadPipelineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

// ---------------------------------------------------------------------------
// Applying defaults
// ---------------------------------------------------------------------------

func TestPipelineConfig_RenderOptions(t *testing.T) {
	cfg := &PipelineConfig{Render: RenderDefaults{Width: 800, Format: "jpeg"}}

	got := cfg.RenderOptions(render.DefaultOptions())

	assert.Equal(t, 800, got.Width)
	assert.Equal(t, render.DefaultHeight, got.Height)
	assert.Equal(t, "jpeg", got.Format)
	assert.Equal(t, render.DefaultBaseName, got.BaseName)
	assert.Equal(t, render.DefaultTimeout, got.Timeout)
}

func TestPipelineConfig_PackageOptions(t *testing.T) {
	cfg := &PipelineConfig{Package: PackageDefaults{Title: "Deck"}}

	got := cfg.PackageOptions(pptx.DefaultOptions())

	assert.Equal(t, "Deck", got.Title)
	assert.Equal(t, pptx.DefaultPattern, got.Pattern)
	assert.Equal(t, pptx.DefaultAspectRatio, got.AspectRatio)
}

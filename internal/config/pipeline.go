package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
)

// PipelineConfig holds per-project defaults for the render and package
// stages, loaded from the config file (.bigslides.yaml).
type PipelineConfig struct {
	// Render overrides the slide rendering defaults.
	Render RenderDefaults `json:"render,omitempty"`

	// Package overrides the presentation packaging defaults.
	Package PackageDefaults `json:"package,omitempty"`
}

// RenderDefaults mirrors the configurable subset of render.Options.
type RenderDefaults struct {
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Format   string `json:"format,omitempty"`
	BaseName string `json:"baseName,omitempty"`
}

// PackageDefaults mirrors pptx.Options.
type PackageDefaults struct {
	Title       string `json:"title,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// ParsePipelineConfig parses the render and package sections from raw config
// file bytes. Other keys are ignored.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig

	if err := sigsyaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadPipelineConfig reads path and parses it. An empty path yields an empty
// config.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	if path == "" {
		return &PipelineConfig{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	return ParsePipelineConfig(data)
}

// Validate checks the pipeline config for correctness.
func (c *PipelineConfig) Validate() error {
	r := c.Render

	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("render: width and height must not be negative (got %dx%d)", r.Width, r.Height)
	}

	switch strings.ToLower(r.Format) {
	case "", "png", "jpg", "jpeg":
	default:
		return fmt.Errorf("render: invalid format %q (must be png or jpeg)", r.Format)
	}

	if strings.ContainsAny(r.BaseName, `/\`) {
		return fmt.Errorf("render: baseName %q must not contain path separators", r.BaseName)
	}

	p := c.Package

	if p.Pattern != "" && !doublestar.ValidatePattern(p.Pattern) {
		return fmt.Errorf("package: invalid pattern %q", p.Pattern)
	}

	switch p.AspectRatio {
	case "", "16:9", "4:3":
	default:
		return fmt.Errorf("package: invalid aspectRatio %q (must be 16:9 or 4:3)", p.AspectRatio)
	}

	return nil
}

// RenderOptions returns base with every configured render field applied.
func (c *PipelineConfig) RenderOptions(base render.Options) render.Options {
	if c.Render.Width > 0 {
		base.Width = c.Render.Width
	}

	if c.Render.Height > 0 {
		base.Height = c.Render.Height
	}

	if c.Render.Format != "" {
		base.Format = c.Render.Format
	}

	if c.Render.BaseName != "" {
		base.BaseName = c.Render.BaseName
	}

	return base
}

// PackageOptions returns base with every configured package field applied.
func (c *PipelineConfig) PackageOptions(base pptx.Options) pptx.Options {
	if c.Package.Title != "" {
		base.Title = c.Package.Title
	}

	if c.Package.Pattern != "" {
		base.Pattern = c.Package.Pattern
	}

	if c.Package.AspectRatio != "" {
		base.AspectRatio = c.Package.AspectRatio
	}

	return base
}

// IsEmpty returns true if the config has no overrides.
func (c *PipelineConfig) IsEmpty() bool {
	return c.Render == (RenderDefaults{}) && c.Package == (PackageDefaults{})
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/bigslides/internal/config"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
	"github.com/hupe1980/bigslides/internal/resource"
)

// resources resolves the stylesheets and scripts for a document. Without
// --css or --js the configured defaults are used.
func (o *documentOptions) resources(cfg *config.Config) []resource.File {
	css, js := o.css, o.js

	if len(css) == 0 {
		css = cfg.DefaultCSS
	}

	if len(js) == 0 {
		js = cfg.DefaultJS
	}

	files := resource.NewList(css, resource.KindStylesheet)

	return append(files, resource.NewList(js, resource.KindScript)...)
}

// embed reports whether resources are inlined. Any mode other than link
// embeds.
func (o *documentOptions) embed() bool {
	return o.mode != modeLink
}

// loadPipelineConfig reads the render and package sections of the config
// file in use, if any.
func loadPipelineConfig(ctx context.Context) (*config.PipelineConfig, error) {
	pc, err := config.LoadPipelineConfig(config.ConfigFileFromContext(ctx))
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}

	return pc, nil
}

// renderOptions layers defaults, the config file and explicitly set flags.
func renderOptions(cmd *cobra.Command, cfg *config.Config, pc *config.PipelineConfig, flags *renderFlags) (render.Options, error) {
	opts := pc.RenderOptions(render.DefaultOptions())

	f := cmd.Flags()

	if f.Changed("base-name") {
		opts.BaseName = flags.baseName
	}

	if f.Changed("format") {
		opts.Format = flags.format
	}

	if f.Changed("width") {
		opts.Width = flags.width
	}

	if f.Changed("height") {
		opts.Height = flags.height
	}

	// Both keys are bound to config, so cfg already reflects the flags.
	opts.Timeout = cfg.Timeout
	opts.BrowserPath = cfg.BrowserPath

	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, &ExitError{Code: 2, Err: fmt.Errorf("invalid viewport %dx%d", opts.Width, opts.Height)}
	}

	return opts, nil
}

// packageOptions layers defaults, the config file and explicitly set flags.
func packageOptions(cmd *cobra.Command, pc *config.PipelineConfig, flags *packageFlags) pptx.Options {
	opts := pc.PackageOptions(pptx.DefaultOptions())

	f := cmd.Flags()

	if f.Changed("pattern") {
		opts.Pattern = flags.pattern
	}

	if f.Changed("title") {
		opts.Title = flags.title
	}

	if f.Changed("aspect-ratio") {
		opts.AspectRatio = flags.aspectRatio
	}

	return opts
}

// requireFlag returns a usage error when value is empty.
func requireFlag(value, name string) error {
	if value == "" {
		return &ExitError{Code: 2, Err: fmt.Errorf("%s is required", name)}
	}

	return nil
}

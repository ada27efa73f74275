package cli

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/bigslides/internal/config"
	"github.com/hupe1980/bigslides/internal/document"
	"github.com/hupe1980/bigslides/internal/logging"
	"github.com/hupe1980/bigslides/internal/output"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
)

func newGenerateHTMLCommand() *cobra.Command {
	opts := &documentOptions{}

	cmd := &cobra.Command{
		Use:   "generate-html",
		Short: "Convert a markdown file into an HTML slide deck",
		Long: `Convert a markdown file into a single HTML page with one slide per
top-level heading.

Stylesheets and scripts are either embedded into the page (--mode embed,
the default) or linked (--mode link). Remote resources are fetched over
HTTP(S) with retries. Use "-o -" to write the page to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerateHTML(cmd, opts)
		},
	}

	registerIOFlags(cmd, &opts.input, &opts.output, "markdown source file (required)", "HTML output file, - for stdout (required)")
	registerResourceFlags(cmd, opts)

	return cmd
}

func runGenerateHTML(cmd *cobra.Command, opts *documentOptions) error {
	if err := requireFlag(opts.input, "--input (-i)"); err != nil {
		return err
	}

	if err := requireFlag(opts.output, "--output (-o)"); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.Component(logging.FromContext(ctx), "document")

	gen := document.NewMarkdownGenerator(document.WithLogger(logger))

	html, err := gen.Generate(ctx, document.Request{
		Source:    opts.input,
		Resources: opts.resources(cfg),
		Embed:     opts.embed(),
	})
	if err != nil {
		return fmt.Errorf("generating HTML: %w", err)
	}

	var w output.Writer = output.NewStdoutWriter(cmd.OutOrStdout())
	if opts.output != "-" {
		w = output.NewFileWriter(opts.output, output.WithLogger(logger))
	}

	if err := w.Write(html); err != nil {
		return fmt.Errorf("writing HTML: %w", err)
	}

	if opts.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s generated %s\n", color.GreenString("✓"), opts.output)
	}

	return nil
}

func newGenerateSlidesCommand() *cobra.Command {
	var (
		input, outDir string
		flags         renderFlags
	)

	cmd := &cobra.Command{
		Use:   "generate-slides",
		Short: "Render an HTML slide deck into one image per slide",
		Long: `Render an HTML slide deck with a headless browser and save one
screenshot per slide as <base-name>_<NNNN>.<format>.

The browser binary is taken from --browser-path, the browser-path config
key, the BROWSER_PATH environment variable, or auto-detected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(input, "--input (-i)"); err != nil {
				return err
			}

			if err := requireFlag(outDir, "--output (-o)"); err != nil {
				return err
			}

			ctx := cmd.Context()

			pc, err := loadPipelineConfig(ctx)
			if err != nil {
				return err
			}

			opts, err := renderOptions(cmd, config.FromContext(ctx), pc, &flags)
			if err != nil {
				return err
			}

			logger := logging.Component(logging.FromContext(ctx), "render")

			slides, err := render.NewRodRenderer(logger).Render(ctx, input, outDir, opts)
			if err != nil {
				return fmt.Errorf("rendering slides: %w", err)
			}

			logger.Debug("slides rendered", slog.Int("count", len(slides)))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s rendered %d slide(s) into %s\n", color.GreenString("✓"), len(slides), outDir)

			return nil
		},
	}

	registerIOFlags(cmd, &input, &outDir, "HTML deck to render (required)", "directory for the slide images (required)")
	registerRenderFlags(cmd, &flags)

	return cmd
}

func newGeneratePPTXCommand() *cobra.Command {
	var (
		assetsDir, outPath string
		flags              packageFlags
	)

	cmd := &cobra.Command{
		Use:   "generate-pptx",
		Short: "Package slide images into a PowerPoint presentation",
		Long: `Package the slide images of a directory into a PowerPoint
presentation with one full-bleed picture per slide.

Images are selected with --pattern (doublestar syntax, relative to the
input directory) and ordered by name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(assetsDir, "--input (-i)"); err != nil {
				return err
			}

			if err := requireFlag(outPath, "--output (-o)"); err != nil {
				return err
			}

			ctx := cmd.Context()

			pc, err := loadPipelineConfig(ctx)
			if err != nil {
				return err
			}

			logger := logging.Component(logging.FromContext(ctx), "pptx")
			packager := pptx.NewZipPackager(pptx.WithLogger(logger))

			if err := packager.Package(ctx, assetsDir, outPath, packageOptions(cmd, pc, &flags)); err != nil {
				return fmt.Errorf("packaging presentation: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s generated %s\n", color.GreenString("✓"), outPath)

			return nil
		},
	}

	registerIOFlags(cmd, &assetsDir, &outPath, "directory of slide images (required)", "PPTX output file (required)")
	registerPackageFlags(cmd, &flags)

	return cmd
}

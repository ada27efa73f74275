package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/bigslides/internal/config"
	"github.com/hupe1980/bigslides/internal/logging"
	"github.com/hupe1980/bigslides/internal/render"
	"github.com/hupe1980/bigslides/internal/watch"
)

type watchOptions struct {
	documentOptions

	// Optional stages.
	slidesDir string
	pptxPath  string
	render    renderFlags
	pkg       packageFlags

	// Watch-specific options.
	debounce   time.Duration
	serve      bool
	host       string
	port       int
	autoReload bool
	wsPort     int
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a markdown deck and regenerate it on every change",
		Long: `Watch monitors the directory of a markdown deck and regenerates
the HTML page whenever the deck, one of its stylesheets or scripts, or
any .md, .css or .js file changes.

Changes are debounced; a rebuild is skipped when the previous one
finished less than one debounce interval ago.

With --slides-dir the slides are re-rendered after every rebuild, and
with --pptx-output they are also re-packaged. --serve starts a preview
server and --auto-reload pushes a reload to open preview pages once
every stage succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, opts)
		},
	}

	registerIOFlags(cmd, &opts.input, &opts.output, "markdown source file (required)", "HTML output file (required)")
	registerResourceFlags(cmd, &opts.documentOptions)
	registerRenderFlags(cmd, &opts.render)
	registerPackageFlags(cmd, &opts.pkg)

	f := cmd.Flags()
	f.StringVar(&opts.slidesDir, "slides-dir", "", "re-render slide images into this directory")
	f.StringVar(&opts.pptxPath, "pptx-output", "", "re-package slides into this PPTX file (requires --slides-dir)")
	f.DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "debounce interval for file changes")
	f.BoolVar(&opts.serve, "serve", false, "serve the deck over HTTP")
	f.StringVar(&opts.host, "host", "localhost", "preview and live-reload host")
	f.IntVar(&opts.port, "port", watch.DefaultPort, "preview server port")
	f.BoolVar(&opts.autoReload, "auto-reload", false, "reload preview pages after each rebuild")
	f.IntVar(&opts.wsPort, "ws-port", 0, "live-reload port (default: --port + 1)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *watchOptions) error {
	if err := requireFlag(opts.input, "--input (-i)"); err != nil {
		return err
	}

	if err := requireFlag(opts.output, "--output (-o)"); err != nil {
		return err
	}

	cfg := config.FromContext(ctx)

	pc, err := loadPipelineConfig(ctx)
	if err != nil {
		return err
	}

	renderOpts, err := renderOptions(cmd, cfg, pc, &opts.render)
	if err != nil {
		return err
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.Source = opts.input
	watchOpts.Output = opts.output
	watchOpts.Resources = opts.resources(cfg)
	watchOpts.Embed = opts.embed()
	watchOpts.SlidesDir = opts.slidesDir
	watchOpts.Render = renderOpts
	watchOpts.PPTXPath = opts.pptxPath
	watchOpts.Package = packageOptions(cmd, pc, &opts.pkg)

	// Package whatever the render stage produces unless told otherwise.
	if !cmd.Flags().Changed("pattern") && pc.Package.Pattern == "" {
		watchOpts.Package.Pattern = "*." + render.Extension(renderOpts.Format)
	}

	watchOpts.Debounce = opts.debounce
	watchOpts.Serve = opts.serve
	watchOpts.Host = opts.host
	watchOpts.Port = opts.port
	watchOpts.LiveReload = opts.autoReload
	watchOpts.WSPort = opts.wsPort
	watchOpts.Logger = logging.Component(logging.FromContext(ctx), "watch")
	watchOpts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, watchOpts)
}

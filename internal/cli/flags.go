package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/bigslides/internal/config"
	"github.com/hupe1980/bigslides/internal/pptx"
	"github.com/hupe1980/bigslides/internal/render"
)

// Resource modes accepted by --mode.
const (
	modeEmbed = "embed"
	modeLink  = "link"
)

// documentOptions are the flags shared by commands that generate HTML.
type documentOptions struct {
	input  string
	output string
	css    []string
	js     []string
	mode   string
}

// renderFlags are the slide rendering flags.
type renderFlags struct {
	baseName    string
	format      string
	width       int
	height      int
	timeout     time.Duration
	browserPath string
}

// packageFlags are the presentation packaging flags.
type packageFlags struct {
	pattern     string
	title       string
	aspectRatio string
}

// registerIOFlags adds the -i/-o pair to a cobra command.
func registerIOFlags(cmd *cobra.Command, input, output *string, inputUsage, outputUsage string) {
	f := cmd.Flags()
	f.StringVarP(input, "input", "i", "", inputUsage)
	f.StringVarP(output, "output", "o", "", outputUsage)
}

// registerResourceFlags adds the stylesheet, script and mode flags to a
// cobra command.
func registerResourceFlags(cmd *cobra.Command, opts *documentOptions) {
	f := cmd.Flags()
	f.StringSliceVar(&opts.css, "css", nil, "stylesheets to include, local paths or URLs (default: config default-css)")
	f.StringSliceVar(&opts.js, "js", nil, "scripts to include, local paths or URLs (default: config default-js)")
	f.StringVar(&opts.mode, "mode", modeEmbed, "resource mode: embed (inline content) or link")

	_ = cmd.RegisterFlagCompletionFunc("mode", cobra.FixedCompletions([]string{modeEmbed, modeLink}, cobra.ShellCompDirectiveNoFileComp))
}

// registerRenderFlags adds the slide rendering flags to a cobra command.
// --timeout and --browser-path are bound to the matching config keys.
func registerRenderFlags(cmd *cobra.Command, opts *renderFlags) {
	f := cmd.Flags()
	f.StringVar(&opts.baseName, "base-name", render.DefaultBaseName, "base name of the slide images")
	f.StringVar(&opts.format, "format", render.DefaultFormat, "image format: png or jpeg")
	f.IntVar(&opts.width, "width", render.DefaultWidth, "viewport width in pixels")
	f.IntVar(&opts.height, "height", render.DefaultHeight, "viewport height in pixels")
	f.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "page load and screenshot timeout")
	f.StringVar(&opts.browserPath, "browser-path", "", "headless browser binary (default: BROWSER_PATH or auto-detect)")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{"png", "jpeg"}, cobra.ShellCompDirectiveNoFileComp))
}

// registerPackageFlags adds the presentation packaging flags to a cobra
// command.
func registerPackageFlags(cmd *cobra.Command, opts *packageFlags) {
	f := cmd.Flags()
	f.StringVar(&opts.pattern, "pattern", pptx.DefaultPattern, "glob selecting slide images")
	f.StringVar(&opts.title, "title", pptx.DefaultTitle, "presentation title")
	f.StringVar(&opts.aspectRatio, "aspect-ratio", pptx.DefaultAspectRatio, "slide aspect ratio: 16:9 or 4:3")

	_ = cmd.RegisterFlagCompletionFunc("aspect-ratio", cobra.FixedCompletions([]string{"16:9", "4:3"}, cobra.ShellCompDirectiveNoFileComp))
}

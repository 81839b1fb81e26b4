package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/encode"
	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

// renderFlags holds the encoding flags of the render command.
type renderFlags struct {
	output        string
	formats       string
	batchSize     int
	rasterScale   float64
	pointsPerUnit float64
	sync          bool
}

// renderCommand creates the render command: load, generate, and encode.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		gen genFlags
		rf  renderFlags
	)

	cmd := &cobra.Command{
		Use:   "render [image]",
		Short: "Convert an image into dot drawings",
		Long: `Convert an image into dot drawings.

The image (PNG, JPEG, GIF, TIFF, BMP or SVG) is turned into dots with the
selected density policy, then written once per output format next to the
input or at the --output base path:

  stipple render portrait.jpg -f plt,svg -o out/portrait
  stipple render portrait.jpg --preset halftone

Formats are written concurrently. Vector formats are streamed in batches of
--batch-size dots; a failed format never removes batches already written.

Generated dot sets are cached, so re-rendering the same image with the same
parameters into another format skips generation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{}
			if err := c.applyGenFlags(cmd, &gen, args[0], &opts); err != nil {
				return err
			}
			rf.apply(cmd, args[0], &opts)
			return c.runRender(cmd.Context(), opts)
		},
	}

	gen.register(cmd)
	cmd.Flags().StringVarP(&rf.output, "output", "o", "", "output base path (default: input path without extension)")
	cmd.Flags().StringVarP(&rf.formats, "format", "f", "", "output format(s): eps, plt, svg (default), dxf, png, bmp (comma-separated)")
	cmd.Flags().IntVar(&rf.batchSize, "batch-size", encode.DefaultBatchSize, "dots per flushed batch")
	cmd.Flags().Float64Var(&rf.rasterScale, "raster-scale", encode.DefaultRasterScale, "PNG/BMP pixels per coordinate unit")
	cmd.Flags().Float64Var(&rf.pointsPerUnit, "eps-scale", 1, "EPS points per coordinate unit (2.8346 maps mm to points)")
	cmd.Flags().BoolVar(&rf.sync, "sync", false, "sync output files to disk after every batch")
	c.registerValueCompletions(cmd)

	return cmd
}

// apply copies the render flags into opts. Formats from a preset are kept
// unless --format is given.
func (rf *renderFlags) apply(cmd *cobra.Command, input string, opts *pipeline.Options) {
	if cmd.Flags().Changed("format") {
		opts.Formats = parseFormats(rf.formats)
	}
	opts.Output = basePath(rf.output, input)
	opts.BatchSize = rf.batchSize
	opts.RasterScale = rf.rasterScale
	opts.PointsPerUnit = rf.pointsPerUnit
	opts.Sync = rf.sync
}

// runRender executes the pipeline and reports every written file.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options) error {
	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = loggerFromContext(ctx)

	name := filepath.Base(opts.Input)
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", name))
	spinner.Start()
	defer trackEncodes(spinner, name)()

	result, err := runner.Execute(ctx, opts)
	if err != nil && result == nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if err != nil {
		printWarning("Some formats failed")
	} else {
		printSuccess("Render complete")
	}
	for _, st := range result.Encodes {
		if path, ok := result.Files[st.Format]; ok {
			printFile(path)
			printDetail("%s · %d batches · %s", formatBytes(st.Bytes), st.Batches, st.Duration.Round(time.Millisecond))
			continue
		}
		printError("%s: %d of %d dots flushed", st.Format, st.Flushed, st.Dots)
		if ferr := result.Failed[st.Format]; ferr != nil {
			printDetail("%v", ferr)
		}
	}
	printStats(result.Set, result.CacheInfo.DotsHit)
	return err
}

// parseFormats parses the --format flag into a slice of output formats.
// If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return append([]string(nil), pipeline.DefaultFormats...)
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .plt, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	// Strip known format extensions from output path
	ext := filepath.Ext(output)
	if _, err := encode.ParseFormat(ext); ext != "" && err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// encodeProgress forwards encode events to the previously registered hooks
// and shows the dots flushed across all running encoders on the spinner.
type encodeProgress struct {
	next    observability.EncodeHooks
	spinner *Spinner
	name    string

	mu      sync.Mutex
	total   map[string]int
	flushed map[string]int
}

// trackEncodes installs an encodeProgress for one render and returns the
// function that restores the previous hooks.
func trackEncodes(s *Spinner, name string) func() {
	prev := observability.Encode()
	observability.SetEncodeHooks(&encodeProgress{
		next:    prev,
		spinner: s,
		name:    name,
		total:   make(map[string]int),
		flushed: make(map[string]int),
	})
	return func() { observability.SetEncodeHooks(prev) }
}

func (p *encodeProgress) OnEncodeStart(ctx context.Context, format string, dots int) {
	p.next.OnEncodeStart(ctx, format, dots)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total[format] = dots
	p.flushed[format] = 0
	p.update()
}

func (p *encodeProgress) OnBatch(ctx context.Context, format string, flushed int, bytes int64) {
	p.next.OnBatch(ctx, format, flushed, bytes)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed[format] = flushed
	p.update()
}

func (p *encodeProgress) OnEncodeComplete(ctx context.Context, format string, flushed int, bytes int64, d time.Duration, err error) {
	p.next.OnEncodeComplete(ctx, format, flushed, bytes, d, err)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed[format] = flushed
	p.update()
}

// update must be called with p.mu held.
func (p *encodeProgress) update() {
	var flushed, total int
	for f, n := range p.total {
		total += n
		flushed += p.flushed[f]
	}
	p.spinner.SetMessage(fmt.Sprintf("Encoding %s: %d/%d dots (%d formats)", p.name, flushed, total, len(p.total)))
}

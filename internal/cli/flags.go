package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pipeline"
	"github.com/matzehuels/stipple/pkg/stipple"
	"github.com/matzehuels/stipple/pkg/units"
)

// genFlags holds the load and generation flags shared by render and dots.
// Only flags the user actually set are applied, so a preset keeps every
// value the command line does not override.
type genFlags struct {
	preset string

	policy      string
	minDiameter float64
	maxDiameter float64
	density     float64
	threshold   float64
	invert      bool
	samples     int
	dpi         float64
	targetWidth float64
	unit        string
	seed        uint64

	width     int
	scale     float64
	grayscale bool
	workers   int
	refresh   bool
}

// register adds the flags to cmd with the pipeline defaults shown in help.
func (f *genFlags) register(cmd *cobra.Command) {
	d := stipple.DefaultParams()
	fs := cmd.Flags()

	fs.StringVarP(&f.preset, "preset", "p", "", "start from a named preset (see 'stipple presets')")

	fs.StringVar(&f.policy, "policy", string(d.Policy), "density policy: grid, stochastic, threshold, linear, scatter, block")
	fs.Float64Var(&f.minDiameter, "min-diameter", d.MinDiameter, "baseline dot diameter in mm")
	fs.Float64Var(&f.maxDiameter, "max-diameter", d.MaxDiameter, "largest dot diameter in mm (block)")
	fs.Float64Var(&f.density, "density", d.DensityFactor, "density factor; direction depends on the policy")
	fs.Float64Var(&f.threshold, "threshold", d.Threshold, "gray cutoff 0-255; brighter pixels get no dots")
	fs.BoolVar(&f.invert, "invert", false, "grid: skip cells darker than the threshold")
	fs.IntVar(&f.samples, "samples", d.SamplesPerPixel, "random trials per pixel (stochastic, threshold)")
	fs.Float64Var(&f.dpi, "dpi", d.DPI, "source resolution for px/mm conversion")
	fs.Float64Var(&f.targetWidth, "target-width", 0, "stretch the image across this many mm (overrides --dpi)")
	fs.StringVar(&f.unit, "unit", string(d.Unit), "output coordinate unit: px or mm")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "random seed (0 is a valid seed)")

	fs.IntVarP(&f.width, "width", "w", 0, "resize the image to this many pixels wide before generating")
	fs.Float64Var(&f.scale, "scale", 0, "resize the image by this factor (ignored with --width)")
	fs.BoolVar(&f.grayscale, "grayscale", false, "convert the image to grayscale first")
	fs.IntVarP(&f.workers, "workers", "j", 0, "parallel row bands and encoders (default: number of CPUs)")
	fs.BoolVar(&f.refresh, "refresh", false, "regenerate even when the dot set is cached")
}

// applyGenFlags builds the options for input: preset values first, then every flag
// the user set explicitly.
func (c *CLI) applyGenFlags(cmd *cobra.Command, f *genFlags, input string, opts *pipeline.Options) error {
	opts.Input = input
	opts.Workers = f.workers
	opts.Refresh = f.refresh
	opts.Params.Seed = f.seed

	if f.preset != "" {
		p, err := c.loadPreset(f.preset)
		if err != nil {
			return err
		}
		p.apply(opts)
		loggerFromContext(cmd.Context()).Debug("applied preset", "name", f.preset, "source", p.Source)
	}

	changed := cmd.Flags().Changed
	if err := f.validate(changed); err != nil {
		return err
	}
	params := &opts.Params
	if changed("policy") {
		p, err := stipple.ParsePolicy(f.policy)
		if err != nil {
			return err
		}
		params.Policy = p
	}
	if changed("unit") {
		u, err := units.ParseUnit(f.unit)
		if err != nil {
			return err
		}
		params.Unit = u
	}
	if changed("min-diameter") {
		params.MinDiameter = f.minDiameter
	}
	if changed("max-diameter") {
		params.MaxDiameter = f.maxDiameter
	}
	if changed("density") {
		params.DensityFactor = f.density
	}
	if changed("threshold") {
		params.Threshold = f.threshold
	}
	if changed("invert") {
		params.Invert = f.invert
	}
	if changed("samples") {
		params.SamplesPerPixel = f.samples
	}
	if changed("dpi") {
		params.DPI = f.dpi
	}
	if changed("target-width") {
		params.TargetWidth = f.targetWidth
	}
	if changed("seed") {
		params.Seed = f.seed
	}
	if changed("width") {
		opts.Width = f.width
	}
	if changed("scale") {
		opts.Scale = f.scale
	}
	if changed("grayscale") {
		opts.Grayscale = f.grayscale
	}
	return nil
}

// validate rejects explicit values the pipeline would otherwise treat as
// "unset" and replace with a default.
func (f *genFlags) validate(changed func(string) bool) error {
	positive := []struct {
		flag string
		v    float64
	}{
		{"min-diameter", f.minDiameter},
		{"max-diameter", f.maxDiameter},
		{"density", f.density},
		{"dpi", f.dpi},
	}
	for _, p := range positive {
		if !changed(p.flag) {
			continue
		}
		if err := errors.Positive(p.flag, p.v); err != nil {
			return err
		}
	}
	if changed("samples") {
		if err := errors.AtLeast("samples", f.samples, 1); err != nil {
			return err
		}
	}
	if changed("threshold") {
		if err := errors.InRange("threshold", f.threshold, 0, 255); err != nil {
			return err
		}
	}
	if changed("target-width") && f.targetWidth < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "target-width must not be negative, got %v", f.targetWidth)
	}
	return nil
}

// Package pipeline provides the image → dots → files pipeline for stipple.
//
// This package implements the complete load → generate → encode pipeline
// used by every CLI command. By centralizing this logic, defaults, caching
// and output naming behave the same no matter which command runs them.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the input image and hash its bytes
//  2. Generate: Place dots with a density policy (cached by input hash and parameters)
//  3. Encode: Write the dot set in every requested format, concurrently
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "portrait.jpg",
//	    Output:  "out/portrait",
//	    Formats: []string{"svg", "plt"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Files[encode.SVG])
//
// Run individual stages:
//
//	in, err := runner.Load(ctx, opts)
//	set, hit, err := runner.GenerateWithCacheInfo(ctx, in, opts)
//	stats, err := runner.Encode(ctx, set, opts)
package pipeline

import (
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/encode"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pixels"
	"github.com/matzehuels/stipple/pkg/stipple"
	"github.com/matzehuels/stipple/pkg/units"
)

// =============================================================================
// Default Values - Single Source of Truth for every command
// =============================================================================

// DefaultFormats are written when Options.Formats is empty.
var DefaultFormats = []string{string(encode.SVG)}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// Zero values are replaced by defaults, so a zero Params field means "use
// the default" rather than zero.
type Options struct {
	// Load options
	Input     string  `json:"input"`
	Width     int     `json:"width,omitempty"` // resize to this many pixels wide
	Scale     float64 `json:"scale,omitempty"` // resize factor when Width is zero
	Grayscale bool    `json:"grayscale,omitempty"`

	// Generate options
	Params  stipple.Params `json:"params"`
	Refresh bool           `json:"refresh,omitempty"` // ignore cached dot sets

	// Encode options
	Formats       []string `json:"formats,omitempty"`
	Output        string   `json:"output,omitempty"` // base path; the format extension is appended
	BatchSize     int      `json:"batch_size,omitempty"`
	RasterScale   float64  `json:"raster_scale,omitempty"`
	PointsPerUnit float64  `json:"points_per_unit,omitempty"`
	Sync          bool     `json:"sync,omitempty"`

	// Runtime options (not serialized)
	Workers int         `json:"-"` // generation bands and concurrent encoders
	Logger  *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// InputHash is the SHA-256 of the input image bytes.
	InputHash string

	// Set is the generated dot set.
	Set dots.Set

	// Files maps each format whose encoder finished without error to the
	// path it was written to.
	Files map[encode.Format]string

	// Failed maps each format whose encoder, flush or close failed to that
	// error. Its file may still hold the batches flushed before the failure.
	Failed map[encode.Format]error

	// Encodes holds per-format encoder statistics in Options.Formats order.
	Encodes []encode.Stats

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	DotCount     int
	LoadTime     time.Duration
	GenerateTime time.Duration
	EncodeTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DotsHit bool // Whether the dot set came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	if err := o.ValidateForEncode(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input path and resize options.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidPath, "input image is required")
	}
	if o.Width < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "width must not be negative, got %d", o.Width)
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "scale must not be negative, got %v", o.Scale)
	}
	o.setLoggerDefault()
	return nil
}

// SetGenerateDefaults fills zero generation parameters from stipple.DefaultParams.
func (o *Options) SetGenerateDefaults() {
	d := stipple.DefaultParams()
	p := &o.Params
	if p.Policy == "" {
		p.Policy = d.Policy
	}
	if p.MinDiameter == 0 {
		p.MinDiameter = d.MinDiameter
	}
	if p.MaxDiameter == 0 {
		p.MaxDiameter = max(d.MaxDiameter, p.MinDiameter)
	}
	if p.DensityFactor == 0 {
		p.DensityFactor = d.DensityFactor
	}
	if p.Threshold == 0 && p.Policy != stipple.GridAverage {
		p.Threshold = d.Threshold
	}
	if p.SamplesPerPixel == 0 {
		p.SamplesPerPixel = d.SamplesPerPixel
	}
	if p.DPI == 0 {
		p.DPI = d.DPI
	}
	if p.Unit == "" {
		p.Unit = d.Unit
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	p.Workers = o.Workers
	o.setLoggerDefault()
}

// ValidateForGenerate sets generation defaults and validates the result.
func (o *Options) ValidateForGenerate() error {
	o.SetGenerateDefaults()
	return o.Params.Validate()
}

// SetEncodeDefaults sets default values for encoding.
func (o *Options) SetEncodeDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = append([]string(nil), DefaultFormats...)
	}
	if o.Output == "" && o.Input != "" {
		o.Output = strings.TrimSuffix(o.Input, filepath.Ext(o.Input))
	}
	if o.BatchSize == 0 {
		o.BatchSize = encode.DefaultBatchSize
	}
	if o.RasterScale == 0 {
		o.RasterScale = encode.DefaultRasterScale
	}
	if o.PointsPerUnit == 0 {
		o.PointsPerUnit = 1
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	o.setLoggerDefault()
}

// ValidateForEncode validates and sets defaults for encoding.
func (o *Options) ValidateForEncode() error {
	o.SetEncodeDefaults()
	if _, err := encode.ParseFormats(o.Formats); err != nil {
		return err
	}
	if err := errors.ValidateOutputPath(o.Output); err != nil {
		return err
	}
	if err := errors.AtLeast("batch size", o.BatchSize, 1); err != nil {
		return err
	}
	if err := errors.Positive("raster scale", o.RasterScale); err != nil {
		return err
	}
	return errors.Positive("points per unit", o.PointsPerUnit)
}

// LoadOptions returns the image loader settings.
func (o *Options) LoadOptions() pixels.LoadOptions {
	return pixels.LoadOptions{
		TargetWidth: o.Width,
		Scale:       o.Scale,
		Grayscale:   o.Grayscale,
	}
}

// DotsKeyOpts returns cache key options for dot generation.
func (o *Options) DotsKeyOpts() cache.DotsKeyOpts {
	p := o.Params
	return cache.DotsKeyOpts{
		Width:           o.Width,
		Scale:           o.Scale,
		Grayscale:       o.Grayscale,
		Policy:          string(p.Policy),
		MinDiameter:     p.MinDiameter,
		MaxDiameter:     p.MaxDiameter,
		DensityFactor:   p.DensityFactor,
		Threshold:       p.Threshold,
		Invert:          p.Invert,
		SamplesPerPixel: p.SamplesPerPixel,
		DPI:             p.DPI,
		TargetWidth:     p.TargetWidth,
		Unit:            string(p.Unit),
		Seed:            p.Seed,
	}
}

// EncodeOptions returns encoder options for set. Pixel-unit sets carry the
// generator's converter so plotter output lands at physical size.
func (o *Options) EncodeOptions(set dots.Set) []encode.Option {
	opts := []encode.Option{
		encode.WithBatchSize(o.BatchSize),
		encode.WithRasterScale(o.RasterScale),
		encode.WithPointsPerUnit(o.PointsPerUnit),
	}
	if o.Sync {
		opts = append(opts, encode.WithSync())
	}
	if set.Unit == units.Pixel {
		if conv, err := o.Params.Converter(int(set.Canvas.Width)); err == nil {
			opts = append(opts, encode.WithConverter(conv))
		}
	}
	return opts
}

// OutputPath returns the file written for format f.
func (o *Options) OutputPath(f encode.Format) string {
	return o.Output + f.Ext()
}

func (o *Options) setLoggerDefault() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

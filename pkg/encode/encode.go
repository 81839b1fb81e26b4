package encode

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/units"
)

// Format identifies an output format. Its value doubles as the file extension.
type Format string

const (
	EPS Format = "eps"
	PLT Format = "plt"
	SVG Format = "svg"
	DXF Format = "dxf"
	PNG Format = "png"
	BMP Format = "bmp"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{EPS, PLT, SVG, DXF, PNG, BMP}
}

// ParseFormat resolves a format name or extension. "hpgl" is accepted as an
// alias for PLT.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if name == "hpgl" {
		return PLT, nil
	}
	if f := Format(name); slices.Contains(Formats(), f) {
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat,
		"invalid format: %q (must be one of: eps, plt, svg, dxf, png, bmp)", s)
}

// ParseFormats parses a list of names, dropping duplicates but keeping order.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string { return "." + string(f) }

// Streamed reports whether the format is written in flushed batches.
func (f Format) Streamed() bool { return f != PNG && f != BMP }

// Stats reports the outcome of one Encode call.
type Stats struct {
	Format Format
	// Dots is the size of the input set.
	Dots int
	// Flushed is the number of dots durably handed to the sink. On failure it
	// tells the caller how far the output got.
	Flushed  int
	Batches  int
	Bytes    int64
	Duration time.Duration
}

// Encoder writes a dot set in one format.
type Encoder interface {
	Format() Format
	Encode(ctx context.Context, w io.Writer, set dots.Set) (Stats, error)
}

// Default encoder settings.
const (
	DefaultBatchSize   = 10000
	DefaultRasterScale = 3.0
)

// Option configures an encoder.
type Option func(*options)

type options struct {
	batchSize     int
	sync          bool
	conv          units.Converter
	pointsPerUnit float64
	rasterScale   float64
}

// WithBatchSize sets the number of dots per flushed batch.
func WithBatchSize(n int) Option { return func(o *options) { o.batchSize = n } }

// WithSync calls Sync on sinks that support it after every batch.
func WithSync() Option { return func(o *options) { o.sync = true } }

// WithConverter supplies the pixel/millimetre converter the generator used.
// Plotter output needs it to place pixel-unit sets in millimetres; without
// it one pixel is treated as one millimetre.
func WithConverter(c units.Converter) Option { return func(o *options) { o.conv = c } }

// WithPointsPerUnit scales EPS output (for example 72/25.4 for mm sets).
func WithPointsPerUnit(s float64) Option { return func(o *options) { o.pointsPerUnit = s } }

// WithRasterScale sets the raster resolution in pixels per set unit.
func WithRasterScale(s float64) Option { return func(o *options) { o.rasterScale = s } }

func newOptions(opts []Option) (options, error) {
	o := options{
		batchSize:     DefaultBatchSize,
		pointsPerUnit: 1,
		rasterScale:   DefaultRasterScale,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := errors.AtLeast("batch size", o.batchSize, 1); err != nil {
		return o, err
	}
	if err := errors.Positive("points per unit", o.pointsPerUnit); err != nil {
		return o, err
	}
	if err := errors.Positive("raster scale", o.rasterScale); err != nil {
		return o, err
	}
	return o, nil
}

// mmPerUnit returns the physical size of one coordinate unit of set.
func (o options) mmPerUnit(set dots.Set) float64 {
	if set.Unit == units.Millimeter || !o.conv.Valid() {
		return 1
	}
	return o.conv.MMPerPixel
}

// New returns the encoder for f.
func New(f Format, opts ...Option) (Encoder, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	switch f {
	case EPS:
		return &vectorEncoder{format: EPS, opts: o, newWriter: newEPSWriter}, nil
	case PLT:
		return &vectorEncoder{format: PLT, opts: o, newWriter: newHPGLWriter}, nil
	case SVG:
		return &vectorEncoder{format: SVG, opts: o, newWriter: newSVGWriter}, nil
	case DXF:
		return &vectorEncoder{format: DXF, opts: o, newWriter: newDXFWriter}, nil
	case PNG, BMP:
		return &rasterEncoder{format: f, opts: o}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", f)
}

package stipple

import (
	"math"
	"strings"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/units"
)

// Policy names a density/placement policy.
type Policy string

const (
	GridAverage          Policy = "grid"
	StochasticBrightness Policy = "stochastic"
	ThresholdGated       Policy = "threshold"
	LinearGated          Policy = "linear"
	CellScatter          Policy = "scatter"
	BlockScatter         Policy = "block"
)

// Policies returns every supported policy in documentation order.
func Policies() []Policy {
	return []Policy{GridAverage, StochasticBrightness, ThresholdGated, LinearGated, CellScatter, BlockScatter}
}

// ParsePolicy resolves a policy name. Matching is case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	name := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Policies() {
		if p == name {
			return p, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidParameter, "unknown policy %q", s)
}

// Stochastic reports whether the policy consumes random draws.
func (p Policy) Stochastic() bool { return p != GridAverage }

// Default generation values.
const (
	DefaultMinDiameter     = 0.1
	DefaultMaxDiameter     = 1.0
	DefaultDensityFactor   = 1.0
	DefaultThreshold       = 200.0
	DefaultSamplesPerPixel = 4
	DefaultSeed            = uint64(42)
	DefaultPolicy          = ThresholdGated
)

// Params configures generation.
type Params struct {
	Policy Policy `json:"policy" toml:"policy"`

	// MinDiameter is the baseline dot size in millimetres.
	MinDiameter float64 `json:"min_diameter" toml:"min_diameter"`
	// MaxDiameter caps the dot size in millimetres (BlockScatter).
	MaxDiameter float64 `json:"max_diameter,omitempty" toml:"max_diameter"`
	// DensityFactor scales dot size or acceptance probability; see the
	// policy documentation for its direction.
	DensityFactor float64 `json:"density_factor" toml:"density_factor"`
	// Threshold is a 0-255 gray cutoff. Gated policies skip pixels at or
	// above it; GridAverage with Invert skips cells below it.
	Threshold float64 `json:"threshold" toml:"threshold"`
	// Invert enables the GridAverage threshold gate.
	Invert bool `json:"invert,omitempty" toml:"invert"`
	// SamplesPerPixel is the Bernoulli trial count for StochasticBrightness
	// and ThresholdGated.
	SamplesPerPixel int `json:"samples_per_pixel" toml:"samples_per_pixel"`

	// DPI is the nominal source resolution used for mm/px conversion.
	DPI float64 `json:"dpi" toml:"dpi"`
	// TargetWidth, in millimetres, overrides DPI: the source width is
	// stretched across it.
	TargetWidth float64 `json:"target_width,omitempty" toml:"target_width"`
	// Unit selects the coordinate unit of the returned set.
	Unit units.Unit `json:"unit" toml:"unit"`

	Seed uint64 `json:"seed" toml:"seed"`
	// Workers bounds the number of concurrent row bands. Values below 2
	// generate sequentially. It never changes the output.
	Workers int `json:"-" toml:"-"`
}

// DefaultParams returns the default generation parameters.
func DefaultParams() Params {
	return Params{
		Policy:          DefaultPolicy,
		MinDiameter:     DefaultMinDiameter,
		MaxDiameter:     DefaultMaxDiameter,
		DensityFactor:   DefaultDensityFactor,
		Threshold:       DefaultThreshold,
		SamplesPerPixel: DefaultSamplesPerPixel,
		DPI:             units.DefaultDPI,
		Unit:            units.Pixel,
		Seed:            DefaultSeed,
	}
}

// Validate rejects parameters that cannot produce a well-formed set.
func (p Params) Validate() error {
	if _, err := ParsePolicy(string(p.Policy)); err != nil {
		return err
	}
	if err := errors.Positive("min diameter", p.MinDiameter); err != nil {
		return err
	}
	if err := errors.Positive("density factor", p.DensityFactor); err != nil {
		return err
	}
	if err := errors.Positive("dpi", p.DPI); err != nil {
		return err
	}
	if err := errors.InRange("threshold", p.Threshold, 0, 255); err != nil {
		return err
	}
	if p.TargetWidth < 0 || math.IsNaN(p.TargetWidth) || math.IsInf(p.TargetWidth, 0) {
		return errors.New(errors.ErrCodeInvalidParameter, "target width must not be negative, got %v", p.TargetWidth)
	}
	if p.Unit != units.Pixel && p.Unit != units.Millimeter {
		return errors.New(errors.ErrCodeInvalidParameter, "unknown unit %q", p.Unit)
	}
	switch p.Policy {
	case StochasticBrightness, ThresholdGated:
		if err := errors.AtLeast("samples per pixel", p.SamplesPerPixel, 1); err != nil {
			return err
		}
	case CellScatter:
		if err := errors.Positive("threshold", p.Threshold); err != nil {
			return err
		}
	case BlockScatter:
		if err := errors.Positive("max diameter", p.MaxDiameter); err != nil {
			return err
		}
		if p.MaxDiameter < p.MinDiameter {
			return errors.New(errors.ErrCodeInvalidParameter,
				"max diameter %v is smaller than min diameter %v", p.MaxDiameter, p.MinDiameter)
		}
	}
	return nil
}

// Converter returns the pixel/millimetre converter for a source that is
// sourceWidth pixels wide.
func (p Params) Converter(sourceWidth int) (units.Converter, error) {
	if p.TargetWidth > 0 {
		return units.FromTargetWidth(p.TargetWidth, sourceWidth)
	}
	return units.FromDPI(p.DPI)
}

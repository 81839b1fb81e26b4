// Package dots defines the stipple data model: dots, the canvas they live
// on, and the ordered set the generator produces and every encoder consumes.
//
// A [Set] is produced once and then treated as read-only. Encoders may share
// one Set concurrently.
package dots

import (
	"math"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/units"
)

// Dot is a filled circle. Coordinates use the generator's top-left origin
// with y growing downwards.
type Dot struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Diameter float64 `json:"d"`
}

// Radius returns half the diameter.
func (d Dot) Radius() float64 { return d.Diameter / 2 }

// Visible reports whether the dot has a finite, positive diameter.
func (d Dot) Visible() bool {
	return d.Diameter > 0 && !math.IsInf(d.Diameter, 0)
}

// Canvas is the drawing area in the same unit as its dots.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FlipY maps a generator-space y onto a bottom-left origin.
func (c Canvas) FlipY(y float64) float64 { return c.Height - y }

// Set is an ordered dot sequence in raster scan order together with its
// canvas and unit.
type Set struct {
	Dots   []Dot      `json:"dots"`
	Canvas Canvas     `json:"canvas"`
	Unit   units.Unit `json:"unit"`
}

// Len returns the number of dots.
func (s Set) Len() int { return len(s.Dots) }

// Validate checks the set invariants: positive canvas, a known unit and no
// dot with a non-positive diameter.
func (s Set) Validate() error {
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas must be positive, got %vx%v", s.Canvas.Width, s.Canvas.Height)
	}
	if s.Unit != units.Pixel && s.Unit != units.Millimeter {
		return errors.New(errors.ErrCodeInvalidInput, "unknown unit %q", s.Unit)
	}
	for i, d := range s.Dots {
		if !d.Visible() {
			return errors.New(errors.ErrCodeInvalidInput, "dot %d has diameter %v", i, d.Diameter)
		}
	}
	return nil
}

// Scaled returns a copy of s with every coordinate and the canvas multiplied
// by f and the unit replaced by u.
func (s Set) Scaled(f float64, u units.Unit) Set {
	out := Set{
		Dots:   make([]Dot, len(s.Dots)),
		Canvas: Canvas{Width: s.Canvas.Width * f, Height: s.Canvas.Height * f},
		Unit:   u,
	}
	for i, d := range s.Dots {
		out.Dots[i] = Dot{X: d.X * f, Y: d.Y * f, Diameter: d.Diameter * f}
	}
	return out
}

// Summary describes a dot set.
type Summary struct {
	Count        int
	MinDiameter  float64
	MaxDiameter  float64
	MeanDiameter float64
	// Coverage is the share of the canvas covered by dot area, ignoring overlap.
	Coverage float64
}

// Summarize computes diameter statistics for s.
func (s Set) Summarize() Summary {
	sum := Summary{Count: len(s.Dots)}
	if len(s.Dots) == 0 {
		return sum
	}
	sum.MinDiameter = math.Inf(1)
	var total, area float64
	for _, d := range s.Dots {
		sum.MinDiameter = min(sum.MinDiameter, d.Diameter)
		sum.MaxDiameter = max(sum.MaxDiameter, d.Diameter)
		total += d.Diameter
		area += math.Pi * d.Radius() * d.Radius()
	}
	sum.MeanDiameter = total / float64(len(s.Dots))
	if canvas := s.Canvas.Width * s.Canvas.Height; canvas > 0 {
		sum.Coverage = area / canvas
	}
	return sum
}

// Package units converts between pixel and millimetre coordinates.
//
// Every component that emits physical coordinates (plotter files, DXF drawings
// in millimetres, EPS page sizes) must use the same [Converter] the dot
// generator used, otherwise coordinates drift between formats.
package units

import (
	"math"
	"strings"

	"github.com/matzehuels/stipple/pkg/errors"
)

// MMPerInch is the number of millimetres in one inch.
const MMPerInch = 25.4

// DefaultDPI is the resolution assumed when none is configured.
const DefaultDPI = 96.0

// Unit names the coordinate unit of a dot set.
type Unit string

const (
	Pixel      Unit = "px"
	Millimeter Unit = "mm"
)

// ParseUnit parses a unit name. It accepts "px", "pixel", "mm" and
// "millimeter" in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "px", "pixel", "pixels":
		return Pixel, nil
	case "mm", "millimeter", "millimeters", "millimetre", "millimetres":
		return Millimeter, nil
	}
	return "", errors.New(errors.ErrCodeInvalidParameter, "unknown unit %q (must be px or mm)", s)
}

// String returns the short unit name.
func (u Unit) String() string { return string(u) }

// PixelsToMM converts a pixel length at the given resolution to millimetres.
func PixelsToMM(px, dpi float64) float64 {
	return px / dpi * MMPerInch
}

// MMToPixels converts a millimetre length to pixels at the given resolution.
func MMToPixels(mm, dpi float64) float64 {
	return mm * dpi / MMPerInch
}

// Scale returns the uniform factor that maps a source image of
// sourceWidthPixels onto targetWidth. Both axes use the same factor so the
// aspect ratio is preserved.
func Scale(targetWidth float64, sourceWidthPixels int) float64 {
	if sourceWidthPixels <= 0 {
		return 0
	}
	return targetWidth / float64(sourceWidthPixels)
}

// Converter maps pixel lengths to millimetres with a fixed factor.
// The zero value is not usable; build one with [FromDPI] or [FromTargetWidth].
type Converter struct {
	// MMPerPixel is the physical size of one source pixel.
	MMPerPixel float64
}

// FromDPI returns a converter for a nominal resolution.
func FromDPI(dpi float64) (Converter, error) {
	if err := errors.Positive("dpi", dpi); err != nil {
		return Converter{}, err
	}
	return Converter{MMPerPixel: MMPerInch / dpi}, nil
}

// FromTargetWidth returns a converter that stretches sourceWidthPixels
// across targetWidthMM millimetres.
func FromTargetWidth(targetWidthMM float64, sourceWidthPixels int) (Converter, error) {
	if err := errors.Positive("target width", targetWidthMM); err != nil {
		return Converter{}, err
	}
	if sourceWidthPixels <= 0 {
		return Converter{}, errors.New(errors.ErrCodeInvalidParameter, "source width must be positive, got %d", sourceWidthPixels)
	}
	return Converter{MMPerPixel: Scale(targetWidthMM, sourceWidthPixels)}, nil
}

// Valid reports whether c has a usable positive factor.
func (c Converter) Valid() bool {
	return c.MMPerPixel > 0 && !math.IsInf(c.MMPerPixel, 0) && !math.IsNaN(c.MMPerPixel)
}

// ToMM converts a pixel length to millimetres.
func (c Converter) ToMM(px float64) float64 { return px * c.MMPerPixel }

// ToPixels converts a millimetre length to pixels.
func (c Converter) ToPixels(mm float64) float64 { return mm / c.MMPerPixel }

// PixelsPerMM returns how many source pixels cover one millimetre.
func (c Converter) PixelsPerMM() float64 { return 1 / c.MMPerPixel }

// DPI returns the effective resolution of the converter.
func (c Converter) DPI() float64 { return MMPerInch / c.MMPerPixel }

// MMPerUnit returns the millimetre length of one coordinate unit u.
func (c Converter) MMPerUnit(u Unit) float64 {
	if u == Millimeter {
		return 1
	}
	return c.MMPerPixel
}

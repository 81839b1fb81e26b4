// Package tone maps raw 8-bit pixel values to the brightness and saturation
// figures the dot generator works with.
//
// All functions are pure. A pixel whose three channels are equal is treated
// as grayscale and its brightness is exactly value/255; any other pixel uses
// ITU-R BT.601 luma weighting.
package tone

// Luma weights (ITU-R BT.601).
const (
	WeightR = 0.299
	WeightG = 0.587
	WeightB = 0.114
)

// Pixel is an opaque 8-bit RGB sample.
type Pixel struct {
	R, G, B uint8
}

// Gray returns a grayscale pixel with all channels set to v.
func Gray(v uint8) Pixel { return Pixel{v, v, v} }

// IsGray reports whether all channels are equal.
func (p Pixel) IsGray() bool { return p.R == p.G && p.G == p.B }

// Luma returns the weighted gray value in [0, 255].
func (p Pixel) Luma() float64 {
	if p.IsGray() {
		return float64(p.R)
	}
	return WeightR*float64(p.R) + WeightG*float64(p.G) + WeightB*float64(p.B)
}

// Brightness returns the pixel brightness in [0, 1].
func Brightness(p Pixel) float64 {
	return p.Luma() / 255
}

// Saturation returns (max-min)/max over the channels, or 0 for pure black.
func Saturation(p Pixel) float64 {
	hi := max(p.R, p.G, p.B)
	if hi == 0 {
		return 0
	}
	lo := min(p.R, p.G, p.B)
	return float64(hi-lo) / float64(hi)
}

// Package pixels supplies decoded pixel grids to the dot generator.
//
// The generator only depends on the [Source] interface. [Grid] is the
// in-memory implementation; [FromImage] adapts any image.Image and [Load]
// decodes image files (raster containers through imaging, SVG through
// oksvg) with optional Lanczos resizing.
package pixels

import (
	"image"
	"image/color"

	"github.com/matzehuels/stipple/pkg/tone"
)

// Source is a read-only 2-D grid of opaque pixels.
type Source interface {
	// Size returns the grid dimensions in pixels.
	Size() (width, height int)
	// Pixel returns the sample at column x, row y. Row 0 is the top.
	Pixel(x, y int) tone.Pixel
}

// Grid is a row-major pixel buffer.
type Grid struct {
	Width, Height int
	Pix           []tone.Pixel
}

// NewGrid allocates a white grid.
func NewGrid(width, height int) *Grid {
	g := &Grid{Width: width, Height: height, Pix: make([]tone.Pixel, width*height)}
	for i := range g.Pix {
		g.Pix[i] = tone.Gray(255)
	}
	return g
}

// Uniform returns a grid filled with p.
func Uniform(width, height int, p tone.Pixel) *Grid {
	g := NewGrid(width, height)
	for i := range g.Pix {
		g.Pix[i] = p
	}
	return g
}

// Size implements Source.
func (g *Grid) Size() (int, int) { return g.Width, g.Height }

// Pixel implements Source.
func (g *Grid) Pixel(x, y int) tone.Pixel { return g.Pix[y*g.Width+x] }

// Set stores p at (x, y).
func (g *Grid) Set(x, y int, p tone.Pixel) { g.Pix[y*g.Width+x] = p }

// Grayscale returns a copy with every pixel replaced by its rounded luma.
func (g *Grid) Grayscale() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, Pix: make([]tone.Pixel, len(g.Pix))}
	for i, p := range g.Pix {
		out.Pix[i] = tone.Gray(uint8(p.Luma() + 0.5))
	}
	return out
}

// FromImage copies img into a Grid. Translucent pixels are composited onto
// white so transparent regions read as paper, not ink.
func FromImage(img image.Image) *Grid {
	b := img.Bounds()
	g := &Grid{Width: b.Dx(), Height: b.Dy(), Pix: make([]tone.Pixel, b.Dx()*b.Dy())}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * g.Width
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Pix[row+x-b.Min.X] = onWhite(img.At(x, y))
		}
	}
	return g
}

func onWhite(c color.Color) tone.Pixel {
	r, gr, b, a := c.RGBA()
	if a == 0xffff {
		return tone.Pixel{R: uint8(r >> 8), G: uint8(gr >> 8), B: uint8(b >> 8)}
	}
	// Premultiplied: out = c + white·(1-a).
	paper := 0xffff - a
	return tone.Pixel{
		R: uint8((r + paper) >> 8),
		G: uint8((gr + paper) >> 8),
		B: uint8((b + paper) >> 8),
	}
}

var _ Source = (*Grid)(nil)

package stipple

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/pixels"
	"github.com/matzehuels/stipple/pkg/tone"
	"github.com/matzehuels/stipple/pkg/units"
)

// average returns the mean brightness of the w×h block at (x0, y0).
func average(src pixels.Source, x0, y0, w, h int) float64 {
	var sum float64
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			sum += tone.Brightness(src.Pixel(x, y))
		}
	}
	return sum / float64(w*h)
}

// gridPlan emits one dot per full square cell. Partial cells at the right
// and bottom edges are dropped.
type gridPlan struct {
	src       pixels.Source
	w, h      int
	cell      int
	threshold float64
	invert    bool
}

// gridCellSize returns round(minDiameter·pxPerMM·density), at least 1 and
// at most the shorter image side so a tiny image still yields one cell.
func gridCellSize(p Params, conv units.Converter, w, h int) int {
	cell := max(1, int(math.Round(p.MinDiameter*conv.PixelsPerMM()*p.DensityFactor)))
	return min(cell, w, h)
}

func newGridPlan(src pixels.Source, p Params, conv units.Converter) *gridPlan {
	w, h := src.Size()
	return &gridPlan{
		src:       src,
		w:         w,
		h:         h,
		cell:      gridCellSize(p, conv, w, h),
		threshold: p.Threshold,
		invert:    p.Invert,
	}
}

func (g *gridPlan) rows() int { return g.h / g.cell }

func (g *gridPlan) row(i int, _ *rand.Rand, out []dots.Dot) []dots.Dot {
	c := g.cell
	y0 := i * c
	half := float64(c) / 2
	for x0 := 0; x0+c <= g.w; x0 += c {
		b := average(g.src, x0, y0, c, c)
		if g.invert && g.threshold > 0 && b*255 < g.threshold {
			continue
		}
		out = emit(out, float64(x0)+half, float64(y0)+half, (1-b)*float64(c))
	}
	return out
}

// samplePlan implements StochasticBrightness and ThresholdGated.
type samplePlan struct {
	src       pixels.Source
	w, h      int
	base      float64
	samples   int
	density   float64
	threshold float64
	gated     bool
}

func newSamplePlan(src pixels.Source, p Params, conv units.Converter, gated bool) *samplePlan {
	w, h := src.Size()
	return &samplePlan{
		src:       src,
		w:         w,
		h:         h,
		base:      max(0.5, math.Floor(p.MinDiameter*conv.PixelsPerMM()*p.DensityFactor)),
		samples:   p.SamplesPerPixel,
		density:   p.DensityFactor,
		threshold: p.Threshold,
		gated:     gated,
	}
}

func (s *samplePlan) rows() int { return s.h }

func (s *samplePlan) row(y int, rng *rand.Rand, out []dots.Dot) []dots.Dot {
	half := s.base / 2
	for x := range s.w {
		px := s.src.Pixel(x, y)
		b := tone.Brightness(px)
		// The gate runs before any draw so skipped pixels leave the stream untouched.
		if s.gated && b*255 >= s.threshold {
			continue
		}
		ink := 1 - math.Sqrt(b)
		prob := ink * (1 + 2*tone.Saturation(px)) * s.density
		for range s.samples {
			if rng.Float64() >= prob {
				continue
			}
			dx := uniform(rng, -half, half)
			dy := uniform(rng, -half, half)
			d := s.base * ink * uniform(rng, 0.6, 1.0)
			out = emit(out, float64(x)+dx, float64(y)+dy, d)
		}
	}
	return out
}

// linearPlan is the gated variant with a linear ink response and one trial
// per pixel.
type linearPlan struct {
	src       pixels.Source
	w, h      int
	base      float64
	density   float64
	threshold float64
}

func newLinearPlan(src pixels.Source, p Params, conv units.Converter) *linearPlan {
	w, h := src.Size()
	return &linearPlan{
		src:       src,
		w:         w,
		h:         h,
		base:      max(1, math.Floor(p.MinDiameter*conv.PixelsPerMM()*p.DensityFactor)),
		density:   p.DensityFactor,
		threshold: p.Threshold,
	}
}

func (l *linearPlan) rows() int { return l.h }

func (l *linearPlan) row(y int, rng *rand.Rand, out []dots.Dot) []dots.Dot {
	half := l.base / 2
	for x := range l.w {
		px := l.src.Pixel(x, y)
		b := tone.Brightness(px)
		if b*255 >= l.threshold {
			continue
		}
		ink := 1 - b
		if rng.Float64() >= ink*(1+tone.Saturation(px))*l.density {
			continue
		}
		dx := uniform(rng, -half, half)
		dy := uniform(rng, -half, half)
		d := l.base * ink * uniform(rng, 0.8, 1.2)
		out = emit(out, float64(x)+dx, float64(y)+dy, d)
	}
	return out
}

// scatterPlan places at most one dot per full cell, with acceptance
// probability growing as the cell darkens below the threshold.
type scatterPlan struct {
	src       pixels.Source
	w, h      int
	cell      int
	threshold float64
	minD      float64 // px
}

func newScatterPlan(src pixels.Source, p Params, conv units.Converter) *scatterPlan {
	w, h := src.Size()
	cellMM := max(p.MinDiameter, 0.05) / p.DensityFactor
	return &scatterPlan{
		src:       src,
		w:         w,
		h:         h,
		cell:      max(1, int(cellMM*conv.PixelsPerMM())),
		threshold: p.Threshold,
		minD:      conv.ToPixels(p.MinDiameter),
	}
}

func (s *scatterPlan) rows() int { return s.h / s.cell }

func (s *scatterPlan) row(i int, rng *rand.Rand, out []dots.Dot) []dots.Dot {
	c := s.cell
	y0 := i * c
	for x0 := 0; x0+c <= s.w; x0 += c {
		gray := average(s.src, x0, y0, c, c) * 255
		if gray > s.threshold {
			continue
		}
		if rng.Float64() >= 1-gray/s.threshold {
			continue
		}
		x := float64(x0) + uniform(rng, 0, float64(c))
		y := float64(y0) + uniform(rng, 0, float64(c))
		d := s.minD * (0.8 + 0.4*(s.threshold-gray)/s.threshold)
		out = emit(out, x, y, d)
	}
	return out
}

// blockPlan scatters a darkness-dependent number of dots in each block.
// Partial blocks at the edges are averaged over their real extent.
type blockPlan struct {
	src        pixels.Source
	w, h       int
	block      int
	minD, maxD float64 // px
	density    float64
	threshold  float64
}

func newBlockPlan(src pixels.Source, p Params, conv units.Converter) *blockPlan {
	w, h := src.Size()
	maxD := conv.ToPixels(p.MaxDiameter)
	return &blockPlan{
		src:       src,
		w:         w,
		h:         h,
		block:     max(int(2*maxD), 10),
		minD:      conv.ToPixels(p.MinDiameter),
		maxD:      maxD,
		density:   p.DensityFactor,
		threshold: p.Threshold,
	}
}

func (b *blockPlan) rows() int { return (b.h + b.block - 1) / b.block }

func (b *blockPlan) row(i int, rng *rand.Rand, out []dots.Dot) []dots.Dot {
	y0 := i * b.block
	bh := min(b.block, b.h-y0)
	for x0 := 0; x0 < b.w; x0 += b.block {
		bw := min(b.block, b.w-x0)
		gray := average(b.src, x0, y0, bw, bh) * 255
		if gray > b.threshold {
			continue
		}
		size := b.maxD - gray/255*(b.maxD-b.minD)
		size = max(b.minD, min(b.maxD, size))

		area := float64(b.block * b.block)
		n := int(area / (size * size) * (1 - gray/255) * b.density)
		if n < 1 {
			continue
		}
		lo := max(1, n/2)
		count := lo + rng.IntN(n-lo+1)

		spanX := max(0, float64(bw)-size)
		spanY := max(0, float64(bh)-size)
		for range count {
			x := float64(x0) + uniform(rng, 0, spanX) + size/2
			y := float64(y0) + uniform(rng, 0, spanY) + size/2
			out = emit(out, x, y, size)
		}
	}
	return out
}

package encode

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/observability"
)

// maxRasterPixels bounds the preview bitmap (about 1 GiB of RGBA).
const maxRasterPixels = 1 << 28

// rasterEncoder draws the full set onto a white bitmap and writes it as PNG
// or BMP. The bitmap is treated as a y-up canvas, so a dot at flipped y lands
// on row (height - flippedY)·scale and the preview is upright.
type rasterEncoder struct {
	format Format
	opts   options
}

func (e *rasterEncoder) Format() Format { return e.format }

func (e *rasterEncoder) Encode(ctx context.Context, w io.Writer, set dots.Set) (stats Stats, err error) {
	stats = Stats{Format: e.format, Dots: set.Len()}
	if err := set.Validate(); err != nil {
		return stats, err
	}

	hooks := observability.Encode()
	hooks.OnEncodeStart(ctx, string(e.format), set.Len())
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		hooks.OnEncodeComplete(ctx, string(e.format), stats.Flushed, stats.Bytes, stats.Duration, err)
	}()

	img, batches, err := Rasterize(ctx, set, e.opts.rasterScale, e.opts.batchSize)
	stats.Batches = batches
	if err != nil {
		return stats, err
	}

	cw := &countingWriter{w: w}
	switch e.format {
	case BMP:
		err = bmp.Encode(cw, img)
	default:
		err = png.Encode(cw, img)
	}
	stats.Bytes = cw.n
	if err != nil {
		return stats, errors.Wrap(errors.ErrCodeIO, err, "write %s", e.format)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return stats, errors.Wrap(errors.ErrCodeIO, err, "flush %s", e.format)
		}
	}
	stats.Flushed = set.Len()
	hooks.OnBatch(ctx, string(e.format), stats.Flushed, stats.Bytes)
	return stats, nil
}

// Rasterize draws set onto a new white RGBA image at scale pixels per unit,
// black dots in scan order. ctx is checked every batchSize dots. It returns
// the number of batches drawn.
func Rasterize(ctx context.Context, set dots.Set, scale float64, batchSize int) (*image.RGBA, int, error) {
	wf, hf := set.Canvas.Width*scale, set.Canvas.Height*scale
	w, h := max(1, int(math.Ceil(wf))), max(1, int(math.Ceil(hf)))
	if w*h > maxRasterPixels || math.IsInf(wf, 0) || math.IsInf(hf, 0) {
		return nil, 0, errors.New(errors.ErrCodeInvalidParameter, "raster %dx%d too large, lower the raster scale", w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(color.Black)

	batchSize = max(1, batchSize)
	batches := 0
	for start := 0; start < len(set.Dots); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, batches, errors.Wrap(errors.ErrCodeCanceled, err, "rasterize")
		}
		// One fill per dot: overlapping anti-aliased edges composite in
		// scan order regardless of where batch boundaries fall.
		for _, d := range set.Dots[start:min(start+batchSize, len(set.Dots))] {
			flipped := set.Canvas.FlipY(d.Y)
			rasterx.AddCircle(d.X*scale, (set.Canvas.Height-flipped)*scale, d.Radius()*scale, filler)
			filler.Draw()
			filler.Clear()
		}
		batches++
	}
	return img, batches, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

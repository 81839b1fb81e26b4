package stipple

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/pixels"
	"github.com/matzehuels/stipple/pkg/units"
)

// plan is a policy bound to one source. Rows are independent units of work
// (pixel rows, cell rows or block rows) that append their dots in scan order.
type plan interface {
	rows() int
	row(i int, rng *rand.Rand, out []dots.Dot) []dots.Dot
}

// Generate samples src under p and returns the dots in row-major scan order.
// The canvas is the source size in the requested unit.
func Generate(ctx context.Context, src pixels.Source, p Params) (set dots.Set, err error) {
	if err := p.Validate(); err != nil {
		return dots.Set{}, err
	}
	w, h := src.Size()
	if w <= 0 || h <= 0 {
		return dots.Set{}, errors.New(errors.ErrCodeInvalidParameter, "pixel grid is empty (%dx%d)", w, h)
	}
	conv, err := p.Converter(w)
	if err != nil {
		return dots.Set{}, err
	}

	hooks := observability.Generate()
	hooks.OnGenerateStart(ctx, string(p.Policy), w, h)
	start := time.Now()
	defer func() {
		hooks.OnGenerateComplete(ctx, string(p.Policy), set.Len(), time.Since(start), err)
	}()

	pl := newPlan(src, p, conv)
	out, err := run(ctx, pl, p.Seed, p.Workers)
	if err != nil {
		return dots.Set{}, err
	}

	set = dots.Set{
		Dots:   out,
		Canvas: dots.Canvas{Width: float64(w), Height: float64(h)},
		Unit:   units.Pixel,
	}
	if p.Unit == units.Millimeter {
		set = set.Scaled(conv.MMPerPixel, units.Millimeter)
	}
	return set, nil
}

func newPlan(src pixels.Source, p Params, conv units.Converter) plan {
	switch p.Policy {
	case GridAverage:
		return newGridPlan(src, p, conv)
	case StochasticBrightness:
		return newSamplePlan(src, p, conv, false)
	case ThresholdGated:
		return newSamplePlan(src, p, conv, true)
	case LinearGated:
		return newLinearPlan(src, p, conv)
	case CellScatter:
		return newScatterPlan(src, p, conv)
	default:
		return newBlockPlan(src, p, conv)
	}
}

// run evaluates every row of pl, splitting rows into contiguous bands when
// workers > 1, and concatenates the bands back in row order.
func run(ctx context.Context, pl plan, seed uint64, workers int) ([]dots.Dot, error) {
	n := pl.rows()
	workers = max(1, min(workers, n))
	bands := make([][]dots.Dot, workers)
	size := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for b := range workers {
		lo, hi := b*size, min((b+1)*size, n)
		g.Go(func() error {
			var out []dots.Dot
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return errors.Wrap(errors.ErrCodeCanceled, err, "generate row %d", i)
				}
				out = pl.row(i, rowRNG(seed, i), out)
			}
			bands[b] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, band := range bands {
		total += len(band)
	}
	out := make([]dots.Dot, 0, total)
	for _, band := range bands {
		out = append(out, band...)
	}
	return out, nil
}

// rowRNG returns the random stream for one row.
func rowRNG(seed uint64, row int) *rand.Rand {
	r := uint64(row) * 0x9e3779b97f4a7c15
	return rand.New(rand.NewPCG(seed^r, (seed^0xdeadbeef)+r))
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// emit appends d unless its diameter is not positive.
func emit(out []dots.Dot, x, y, d float64) []dots.Dot {
	if d <= 0 {
		return out
	}
	return append(out, dots.Dot{X: x, Y: y, Diameter: d})
}

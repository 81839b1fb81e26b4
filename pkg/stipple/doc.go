// Package stipple turns a pixel grid into an ordered set of dots whose size
// and placement encode local tone.
//
// # Policies
//
// A [Policy] selects how tone maps to geometry. All policies return the same
// [dots.Set] contract and can feed every encoder:
//
//   - [GridAverage]: one dot per full square cell, diameter (1-b)·cellSize.
//   - [StochasticBrightness]: samplesPerPixel Bernoulli trials per pixel with
//     probability (1-√b)(1+2s)·density.
//   - [ThresholdGated]: as StochasticBrightness, skipping pixels at or above
//     the threshold before any random draw.
//   - [LinearGated]: gated trials with probability (1-b)(1+s)·density.
//   - [CellScatter]: at most one randomly placed dot per dark cell.
//   - [BlockScatter]: a random number of dots per block, sized by darkness.
//
// # Determinism
//
// Randomness comes only from Params.Seed. Each output row draws from its own
// PCG stream derived from the seed and the row index, so the result does not
// depend on Params.Workers.
//
// # Usage
//
//	p := stipple.DefaultParams()
//	p.Policy = stipple.GridAverage
//	set, err := stipple.Generate(ctx, grid, p)
package stipple

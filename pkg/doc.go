// Package pkg provides the core libraries for Stipple image-to-dot conversion.
//
// # Overview
//
// Stipple turns a raster or SVG image into a set of dots whose placement and
// diameter follow the tone of the image, then writes that set in formats a
// pen plotter, a CAD tool or a printer can consume. The pkg directory is
// organized into three areas:
//
//  1. Domain: [tone], [pixels], [stipple], [dots], [units]
//  2. Output: [encode]
//  3. Infrastructure: [pipeline], [cache], [observability], [errors], [buildinfo]
//
// # Architecture
//
// The typical data flow through Stipple:
//
//	Image file (PNG, JPEG, GIF, TIFF, BMP, SVG)
//	         ↓
//	    [pixels] package (decode + resize into a pixel grid)
//	         ↓
//	    [stipple] package (density policy → dot set)
//	         ↓
//	    [encode] package (batched streaming encoders)
//	         ↓
//	    EPS/PLT/SVG/DXF/PNG/BMP output
//
// # Quick Start
//
// Generate dots for an image and write them as HPGL:
//
//	grid, _ := pixels.Load("portrait.jpg", pixels.LoadOptions{Scale: 0.5})
//
//	p := stipple.DefaultParams()
//	p.Policy = stipple.GridAverage
//	set, _ := stipple.Generate(ctx, grid, p)
//
//	enc, _ := encode.New(encode.PLT, encode.WithBatchSize(5000))
//	stats, _ := enc.Encode(ctx, w, set)
//
// # Main Packages
//
// [tone] - RGB pixels and the brightness and saturation measures every
// policy is built on.
//
// [pixels] - Image decoding into a row-major pixel grid. Raster images go
// through imaging for resizing; SVG is rasterized with oksvg.
//
// [stipple] - The density policies (grid, stochastic, threshold, linear,
// scatter, block) and [stipple.Generate], which splits rows into bands for
// parallel workers while keeping output identical for any worker count.
//
// [dots] - The dot set: canvas, unit and dots, with a compact binary codec
// used by the cache.
//
// [units] - Pixel and millimetre conversion by DPI or target width.
//
// [encode] - One streaming encoder per output format. Vector encoders flush
// every batch to the sink, so a failure keeps what was already written.
//
// [pipeline] - Load → generate → encode orchestration with dot-set caching,
// shared by the CLI and library users.
//
// [cache] - File, Redis and zstd-compressed cache backends plus key
// derivation from the input hash and generation parameters.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/stipple/...  # Specific package
//	go test -run Example       # Examples only
//
// [tone]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/tone
// [pixels]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/pixels
// [stipple]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/stipple
// [stipple.Generate]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/stipple#Generate
// [dots]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/dots
// [units]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/units
// [encode]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/encode
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/buildinfo
package pkg

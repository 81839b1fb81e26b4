// Package encode serialises a [dots.Set] into output formats.
//
// # Overview
//
// An [Encoder] turns an ordered dot set into one file format:
//
//   - EPS: one shared PostScript circle procedure, one call per dot
//   - PLT: HPGL, each dot a 36-sided polygon in 1/40 mm plotter units
//   - SVG: one circle element per dot
//   - DXF: one CIRCLE entity per dot in model space (AutoCAD R12)
//   - PNG, BMP: rasterised preview on a white bitmap
//
// Every format flips the y axis on output: a dot at generator-space y is
// placed at canvas height minus y.
//
// # Batching
//
// The vector formats stream through a [BatchWriter]. Dots are rendered in
// batches of a bounded size and each batch is written and flushed before the
// next one starts, so memory stays flat for millions of dots and a failure
// leaves every previously flushed batch intact on disk. The batch size never
// changes the bytes produced. Cancellation is checked at batch boundaries.
//
// Raster formats need the full set before drawing and are not streamed.
//
// # Usage
//
//	enc, err := encode.New(encode.PLT, encode.WithConverter(conv))
//	if err != nil {
//	    return err
//	}
//	stats, err := enc.Encode(ctx, file, set)
//
// An empty set is not an error: the output is a valid file with a header and
// trailer and no drawing content.
package encode

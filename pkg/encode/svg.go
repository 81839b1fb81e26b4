package encode

import (
	"bytes"
	"fmt"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/units"
)

// svgPrecision is the number of fixed-point steps per set unit. svgo works
// in integers, so coordinates are emitted in thousandths and the viewBox is
// scaled to match.
const svgPrecision = 1000

type svgWriter struct {
	set    dots.Set
	canvas *svg.SVG
}

func newSVGWriter(set dots.Set, _ options) DotWriter {
	return &svgWriter{set: set, canvas: svg.New(nil)}
}

func (s *svgWriter) on(buf *bytes.Buffer) *svg.SVG {
	s.canvas.Writer = buf
	return s.canvas
}

func (s *svgWriter) WriteHeader(buf *bytes.Buffer) {
	c := s.set.Canvas
	suffix := ""
	if s.set.Unit == units.Millimeter {
		suffix = "mm"
	}
	vw, vh := fixed(c.Width, svgPrecision), fixed(c.Height, svgPrecision)

	canvas := s.on(buf)
	canvas.Startraw(
		fmt.Sprintf(`width="%s%s"`, dec(c.Width, 4), suffix),
		fmt.Sprintf(`height="%s%s"`, dec(c.Height, 4), suffix),
		fmt.Sprintf(`viewBox="0 0 %d %d"`, vw, vh),
	)
	// Circles carry the bottom-left y (height - y); the group flips them
	// back so the picture is upright in SVG's top-left system.
	canvas.Gtransform(fmt.Sprintf("matrix(1 0 0 -1 0 %d)", vh))
	canvas.Gstyle("fill:black;stroke:none")
}

func (s *svgWriter) WriteDot(buf *bytes.Buffer, d dots.Dot) {
	s.on(buf).Circle(
		fixed(d.X, svgPrecision),
		fixed(s.set.Canvas.FlipY(d.Y), svgPrecision),
		svgRadius(d.Radius()),
	)
}

// svgRadius converts r to fixed point. A positive radius below one step is
// emitted as one step; r="0" would disable rendering of the circle.
func svgRadius(r float64) int {
	v := fixed(r, svgPrecision)
	if v == 0 && r > 0 {
		return 1
	}
	return v
}

func (s *svgWriter) WriteTrailer(buf *bytes.Buffer) {
	canvas := s.on(buf)
	canvas.Gend()
	canvas.Gend()
	canvas.End()
}

package encode

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/stipple/pkg/buildinfo"
	"github.com/matzehuels/stipple/pkg/dots"
)

// epsProcedure draws a filled circle from "x y r".
const epsProcedure = "cp"

type epsWriter struct {
	canvas dots.Canvas
	scale  float64
}

func newEPSWriter(set dots.Set, o options) DotWriter {
	return &epsWriter{canvas: set.Canvas, scale: o.pointsPerUnit}
}

func (e *epsWriter) WriteHeader(buf *bytes.Buffer) {
	w, h := e.canvas.Width*e.scale, e.canvas.Height*e.scale
	buf.WriteString("%!PS-Adobe-3.0 EPSF-3.0\n")
	fmt.Fprintf(buf, "%%%%BoundingBox: 0 0 %d %d\n", int(math.Ceil(w)), int(math.Ceil(h)))
	fmt.Fprintf(buf, "%%%%HiResBoundingBox: 0 0 %s %s\n", dec(w, 4), dec(h, 4))
	fmt.Fprintf(buf, "%%%%Creator: %s\n", buildinfo.Creator())
	buf.WriteString("%%Pages: 1\n")
	buf.WriteString("%%DocumentData: Clean7Bit\n")
	buf.WriteString("%%LanguageLevel: 2\n")
	buf.WriteString("%%EndComments\n")
	buf.WriteString("%%BeginProlog\n")
	fmt.Fprintf(buf, "/%s {newpath 0 360 arc closepath fill} bind def\n", epsProcedure)
	buf.WriteString("%%EndProlog\n")
	buf.WriteString("%%Page: 1 1\n")
	if e.scale != 1 {
		fmt.Fprintf(buf, "%s %s scale\n", dec(e.scale, 6), dec(e.scale, 6))
	}
}

func (e *epsWriter) WriteDot(buf *bytes.Buffer, d dots.Dot) {
	buf.WriteString(dec(d.X, 4))
	buf.WriteByte(' ')
	buf.WriteString(dec(e.canvas.FlipY(d.Y), 4))
	buf.WriteByte(' ')
	buf.WriteString(dec(d.Radius(), 4))
	buf.WriteString(" " + epsProcedure + "\n")
}

func (e *epsWriter) WriteTrailer(buf *bytes.Buffer) {
	buf.WriteString("%%EOF\n")
}

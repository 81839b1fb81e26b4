package encode

import (
	"bytes"
	"math"
	"strconv"

	"github.com/matzehuels/stipple/pkg/dots"
)

const (
	// plotterUnitsPerMM is the HPGL resolution (1 unit = 0.025 mm).
	plotterUnitsPerMM = 40
	// polygonSides approximates each dot; the loop closes on vertex 0 again.
	polygonSides = 36
)

// unitCircle holds cos/sin for the polygon vertices j·10°, j = 0..36.
var unitCircle = func() [polygonSides + 1][2]float64 {
	var v [polygonSides + 1][2]float64
	for j := range v {
		a := float64(j) * 2 * math.Pi / polygonSides
		v[j] = [2]float64{math.Cos(a), math.Sin(a)}
	}
	return v
}()

type hpglWriter struct {
	canvas dots.Canvas
	// scale maps set units to plotter units.
	scale float64
	num   []byte
}

func newHPGLWriter(set dots.Set, o options) DotWriter {
	return &hpglWriter{canvas: set.Canvas, scale: o.mmPerUnit(set) * plotterUnitsPerMM}
}

func (h *hpglWriter) WriteHeader(buf *bytes.Buffer) {
	buf.WriteString("IN;\nSP1;\n")
}

// WriteDot moves to the centre with the pen up, then traces 37 vertices at
// radius round(d·20) plotter units starting with a pen-down command.
func (h *hpglWriter) WriteDot(buf *bytes.Buffer, d dots.Dot) {
	px := fixed(d.X, h.scale)
	py := fixed(h.canvas.FlipY(d.Y), h.scale)
	r := float64(fixed(d.Diameter, h.scale/2))

	buf.WriteString("PU")
	h.pair(buf, px, py)
	for j, v := range unitCircle {
		if j == 0 {
			buf.WriteString("PD")
		}
		h.pair(buf, int(math.Round(float64(px)+r*v[0])), int(math.Round(float64(py)+r*v[1])))
	}
	buf.WriteString("PU;\n")
}

func (h *hpglWriter) pair(buf *bytes.Buffer, x, y int) {
	h.num = strconv.AppendInt(h.num[:0], int64(x), 10)
	h.num = append(h.num, ',')
	h.num = strconv.AppendInt(h.num, int64(y), 10)
	h.num = append(h.num, ';', '\n')
	buf.Write(h.num)
}

func (h *hpglWriter) WriteTrailer(buf *bytes.Buffer) {
	buf.WriteString("SP0;\nIN;\n")
}

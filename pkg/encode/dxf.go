package encode

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/units"
)

// DXF drawing-interchange constants. Drawings are AutoCAD R12 (AC1009), the
// last revision in which a file holding only HEADER and ENTITIES is a
// complete drawing; later revisions require tables, blocks and objects that
// would have to be written before the first streamed entity. Each dot is a
// CIRCLE in model space on layer 0.
const (
	dxfVersion     = "AC1009"
	dxfFirstHandle = 0x100
)

type dxfWriter struct {
	set    dots.Set
	handle int
}

func newDXFWriter(set dots.Set, _ options) DotWriter {
	return &dxfWriter{set: set, handle: dxfFirstHandle}
}

func group(buf *bytes.Buffer, code int, value string) {
	buf.WriteString(strconv.Itoa(code))
	buf.WriteByte('\n')
	buf.WriteString(value)
	buf.WriteByte('\n')
}

func dxfHandle(h int) string {
	return strings.ToUpper(strconv.FormatInt(int64(h), 16))
}

func (x *dxfWriter) WriteHeader(buf *bytes.Buffer) {
	c := x.set.Canvas

	// R12 has no drawing-units variable; the unit is recorded as a comment.
	unit := "unitless"
	if x.set.Unit == units.Millimeter {
		unit = "mm"
	}
	group(buf, 999, "units: "+unit)

	group(buf, 0, "SECTION")
	group(buf, 2, "HEADER")
	group(buf, 9, "$ACADVER")
	group(buf, 1, dxfVersion)
	group(buf, 9, "$HANDLING")
	group(buf, 70, "1")
	// The seed must exceed every handle in the file; the set size is known
	// before the first batch.
	group(buf, 9, "$HANDSEED")
	group(buf, 5, dxfHandle(dxfFirstHandle+x.set.Len()))
	group(buf, 9, "$EXTMIN")
	group(buf, 10, "0")
	group(buf, 20, "0")
	group(buf, 30, "0")
	group(buf, 9, "$EXTMAX")
	group(buf, 10, dec(c.Width, 6))
	group(buf, 20, dec(c.Height, 6))
	group(buf, 30, "0")
	group(buf, 0, "ENDSEC")
	group(buf, 0, "SECTION")
	group(buf, 2, "ENTITIES")
}

func (x *dxfWriter) WriteDot(buf *bytes.Buffer, d dots.Dot) {
	group(buf, 0, "CIRCLE")
	group(buf, 5, dxfHandle(x.handle))
	group(buf, 8, "0")
	group(buf, 10, dec(d.X, 6))
	group(buf, 20, dec(x.set.Canvas.FlipY(d.Y), 6))
	group(buf, 30, "0")
	group(buf, 40, dec(d.Radius(), 6))
	x.handle++
}

func (x *dxfWriter) WriteTrailer(buf *bytes.Buffer) {
	group(buf, 0, "ENDSEC")
	group(buf, 0, "EOF")
}

package encode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/units"
)

func single() dots.Set {
	return dots.Set{
		Dots:   []dots.Dot{{X: 5, Y: 3, Diameter: 2}},
		Canvas: dots.Canvas{Width: 20, Height: 20},
		Unit:   units.Pixel,
	}
}

func randomSet(n int) dots.Set {
	rng := rand.New(rand.NewPCG(7, 7^0xdeadbeef))
	s := dots.Set{Canvas: dots.Canvas{Width: 120, Height: 80}, Unit: units.Pixel}
	for range n {
		s.Dots = append(s.Dots, dots.Dot{
			X:        rng.Float64() * 120,
			Y:        rng.Float64() * 80,
			Diameter: 0.1 + rng.Float64()*3,
		})
	}
	return s
}

func encodeBytes(t *testing.T, f Format, set dots.Set, opts ...Option) ([]byte, Stats) {
	t.Helper()
	enc, err := New(f, opts...)
	if err != nil {
		t.Fatalf("New(%s): %v", f, err)
	}
	var buf bytes.Buffer
	stats, err := enc.Encode(context.Background(), &buf, set)
	if err != nil {
		t.Fatalf("Encode(%s): %v", f, err)
	}
	return buf.Bytes(), stats
}

func TestHPGLSingleDot(t *testing.T) {
	set := dots.Set{
		Dots:   []dots.Dot{{X: 10, Y: 10, Diameter: 2}},
		Canvas: dots.Canvas{Width: 20, Height: 20},
		Unit:   units.Millimeter,
	}
	out, _ := encodeBytes(t, PLT, set)
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")

	if len(lines) != 2+1+37+1+2 {
		t.Fatalf("got %d lines, want 43:\n%s", len(lines), out)
	}
	checks := map[int]string{
		0:  "IN;",
		1:  "SP1;",
		2:  "PU400,400;",
		3:  "PD440,400;", // j = 0
		12: "400,440;",   // j = 9, 90°
		21: "360,400;",   // j = 18, 180°
		30: "400,360;",   // j = 27, 270°
		39: "440,400;",   // j = 36 closes the loop
		40: "PU;",
		41: "SP0;",
		42: "IN;",
	}
	for i, want := range checks {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
	for i := 4; i < 40; i++ {
		if strings.HasPrefix(lines[i], "P") {
			t.Errorf("line %d = %q, vertices after the first must be plain coordinates", i, lines[i])
		}
	}
}

func TestHPGLConverter(t *testing.T) {
	conv := units.Converter{MMPerPixel: 0.5}
	out, _ := encodeBytes(t, PLT, single(), WithConverter(conv))
	// (5, 20-3) px · 0.5 mm · 40 = (100, 340); radius 2·0.5·20 = 20.
	if !strings.Contains(string(out), "PU100,340;\nPD120,340;\n") {
		t.Errorf("unexpected plotter coordinates:\n%s", out)
	}
}

func TestEPS(t *testing.T) {
	out, _ := encodeBytes(t, EPS, single())
	s := string(out)

	for _, want := range []string{
		"%!PS-Adobe-3.0 EPSF-3.0\n",
		"%%BoundingBox: 0 0 20 20\n",
		"/cp {newpath 0 360 arc closepath fill} bind def\n",
		"%%Page: 1 1\n5 17 1 cp\n%%EOF\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("EPS missing %q:\n%s", want, s)
		}
	}
	if !strings.HasPrefix(s, "%!PS-Adobe") || !strings.HasSuffix(s, "%%EOF\n") {
		t.Errorf("EPS not bracketed by header and %%%%EOF:\n%s", s)
	}
	if strings.Contains(s, "scale") {
		t.Error("EPS at one point per unit must not scale")
	}
}

func TestEPSPointsPerUnit(t *testing.T) {
	out, _ := encodeBytes(t, EPS, single(), WithPointsPerUnit(2))
	s := string(out)
	if !strings.Contains(s, "%%BoundingBox: 0 0 40 40\n") {
		t.Errorf("BoundingBox not scaled:\n%s", s)
	}
	if !strings.Contains(s, "2 2 scale\n5 17 1 cp\n") {
		t.Errorf("scale operator missing:\n%s", s)
	}
}

var circleRE = regexp.MustCompile(`<circle cx="(-?\d+)" cy="(-?\d+)" r="(\d+)"`)

func TestSVG(t *testing.T) {
	out, _ := encodeBytes(t, SVG, single())
	s := string(out)

	m := circleRE.FindAllStringSubmatch(s, -1)
	if len(m) != 1 {
		t.Fatalf("found %d circles, want 1:\n%s", len(m), s)
	}
	if m[0][1] != "5000" || m[0][2] != "17000" || m[0][3] != "1000" {
		t.Errorf("circle = cx %s cy %s r %s, want 5000 17000 1000", m[0][1], m[0][2], m[0][3])
	}
	for _, want := range []string{`width="20"`, `height="20"`, `viewBox="0 0 20000 20000"`, "matrix(1 0 0 -1 0 20000)", "</svg>"} {
		if !strings.Contains(s, want) {
			t.Errorf("SVG missing %q:\n%s", want, s)
		}
	}
}

func TestSVGTinyDotStaysVisible(t *testing.T) {
	set := single()
	set.Dots[0].Diameter = 0.0004
	out, _ := encodeBytes(t, SVG, set)

	m := circleRE.FindStringSubmatch(string(out))
	if m == nil {
		t.Fatalf("no circle in:\n%s", out)
	}
	if m[3] != "1" {
		t.Errorf("tiny dot r = %s, want 1 (one fixed-point step)", m[3])
	}
}

func TestSVGRadius(t *testing.T) {
	tests := []struct {
		r    float64
		want int
	}{
		{0, 0},
		{0.0001, 1},
		{0.0004, 1},
		{0.0006, 1},
		{0.0016, 2},
		{0.5, 500},
	}
	for _, tt := range tests {
		if got := svgRadius(tt.r); got != tt.want {
			t.Errorf("svgRadius(%v) = %d, want %d", tt.r, got, tt.want)
		}
	}
}

func TestSVGMillimeters(t *testing.T) {
	set := single()
	set.Unit = units.Millimeter
	out, _ := encodeBytes(t, SVG, set)
	if !strings.Contains(string(out), `width="20mm"`) {
		t.Errorf("mm width missing:\n%s", out)
	}
}

func TestDXF(t *testing.T) {
	out, _ := encodeBytes(t, DXF, single())
	s := string(out)

	if !strings.HasPrefix(s, "999\nunits: unitless\n0\nSECTION\n2\nHEADER\n9\n$ACADVER\n1\nAC1009\n") {
		t.Errorf("DXF header:\n%s", s)
	}
	if !strings.Contains(s, "9\n$HANDLING\n70\n1\n9\n$HANDSEED\n5\n101\n") {
		t.Errorf("DXF handle seed should follow the last handle:\n%s", s)
	}
	if !strings.HasSuffix(s, "0\nENDSEC\n0\nEOF\n") {
		t.Errorf("DXF trailer:\n%s", s)
	}
	circle := "0\nCIRCLE\n5\n100\n8\n0\n10\n5\n20\n17\n30\n0\n40\n1\n"
	if !strings.Contains(s, circle) {
		t.Errorf("DXF circle entity missing:\n%s", s)
	}
	if strings.Contains(s, "\n100\nAcDb") {
		t.Error("R12 entities must not carry subclass markers")
	}
	sections := regexp.MustCompile(`0\nSECTION\n2\n([A-Z]+)\n`).FindAllStringSubmatch(s, -1)
	if len(sections) != 2 || sections[0][1] != "HEADER" || sections[1][1] != "ENTITIES" {
		t.Errorf("DXF sections = %v, want HEADER then ENTITIES", sections)
	}

	set := single()
	set.Unit = units.Millimeter
	out, _ = encodeBytes(t, DXF, set)
	if !strings.HasPrefix(string(out), "999\nunits: mm\n") {
		t.Error("millimetre drawing should record its unit")
	}
}

func TestDXFHandlesAreUnique(t *testing.T) {
	out, _ := encodeBytes(t, DXF, randomSet(300))
	seen := map[string]bool{}
	for _, m := range regexp.MustCompile(`CIRCLE\n5\n([0-9A-F]+)\n`).FindAllStringSubmatch(string(out), -1) {
		if seen[m[1]] {
			t.Fatalf("duplicate handle %s", m[1])
		}
		seen[m[1]] = true
	}
	if len(seen) != 300 {
		t.Errorf("found %d handles, want 300", len(seen))
	}
}

func decodeRaster(t *testing.T, f Format, data []byte) image.Image {
	t.Helper()
	var (
		img image.Image
		err error
	)
	if f == BMP {
		img, err = bmp.Decode(bytes.NewReader(data))
	} else {
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		t.Fatalf("decode %s: %v", f, err)
	}
	return img
}

func gray(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

func TestRaster(t *testing.T) {
	for _, f := range []Format{PNG, BMP} {
		t.Run(string(f), func(t *testing.T) {
			out, stats := encodeBytes(t, f, single())
			img := decodeRaster(t, f, out)

			if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 60 {
				t.Fatalf("bounds = %v, want 60x60", b)
			}
			if g := gray(img.At(15, 9)); g > 20 {
				t.Errorf("dot centre gray = %d, want black", g)
			}
			if g := gray(img.At(15, 51)); g < 235 {
				t.Errorf("mirrored position gray = %d, want white", g)
			}
			if g := gray(img.At(59, 59)); g != 255 {
				t.Errorf("background gray = %d, want white", g)
			}
			if stats.Flushed != 1 || stats.Bytes != int64(len(out)) {
				t.Errorf("stats = %+v", stats)
			}
		})
	}
}

func TestRasterScale(t *testing.T) {
	out, _ := encodeBytes(t, PNG, single(), WithRasterScale(1))
	if b := decodeRaster(t, PNG, out).Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("bounds = %v, want 20x20", b)
	}
}

func TestBatchSizeDoesNotChangeOutput(t *testing.T) {
	set := randomSet(257)
	for _, f := range Formats() {
		t.Run(string(f), func(t *testing.T) {
			want, _ := encodeBytes(t, f, set, WithBatchSize(len(set.Dots)))
			for _, size := range []int{1, 3, 64, 10000} {
				got, stats := encodeBytes(t, f, set, WithBatchSize(size))
				if !bytes.Equal(got, want) {
					t.Errorf("batch size %d changed the output", size)
				}
				if wantBatches := (len(set.Dots) + size - 1) / size; stats.Batches != wantBatches {
					t.Errorf("batch size %d: Batches = %d, want %d", size, stats.Batches, wantBatches)
				}
			}
		})
	}
}

func TestIdempotent(t *testing.T) {
	set := randomSet(50)
	for _, f := range Formats() {
		a, _ := encodeBytes(t, f, set)
		b, _ := encodeBytes(t, f, set)
		if !bytes.Equal(a, b) {
			t.Errorf("%s: encoding twice differs", f)
		}
	}
}

func TestPrimitiveCountMatchesDots(t *testing.T) {
	set := randomSet(123)
	count := map[Format]func(string) int{
		EPS: func(s string) int { return strings.Count(s, " cp\n") },
		PLT: func(s string) int { return strings.Count(s, "PU;\n") },
		SVG: func(s string) int { return len(circleRE.FindAllString(s, -1)) },
		DXF: func(s string) int { return strings.Count(s, "\nCIRCLE\n") },
	}
	for f, fn := range count {
		out, stats := encodeBytes(t, f, set)
		if got := fn(string(out)); got != len(set.Dots) {
			t.Errorf("%s: %d primitives, want %d", f, got, len(set.Dots))
		}
		if stats.Flushed != len(set.Dots) || stats.Dots != len(set.Dots) {
			t.Errorf("%s: stats = %+v", f, stats)
		}
		if stats.Bytes != int64(len(out)) {
			t.Errorf("%s: Bytes = %d, want %d", f, stats.Bytes, len(out))
		}
	}
}

func TestYFlip(t *testing.T) {
	set := dots.Set{
		Dots:   []dots.Dot{{X: 4, Y: 1.25, Diameter: 1}},
		Canvas: dots.Canvas{Width: 10, Height: 8},
		Unit:   units.Millimeter,
	}
	want := 8 - 1.25

	eps, _ := encodeBytes(t, EPS, set)
	if !strings.Contains(string(eps), fmt.Sprintf("4 %s 0.5 cp", dec(want, 4))) {
		t.Errorf("EPS y not flipped:\n%s", eps)
	}
	plt, _ := encodeBytes(t, PLT, set)
	if !strings.Contains(string(plt), fmt.Sprintf("PU160,%d;", fixed(want, 40))) {
		t.Errorf("PLT y not flipped:\n%s", plt)
	}
	svgOut, _ := encodeBytes(t, SVG, set)
	if m := circleRE.FindStringSubmatch(string(svgOut)); m == nil || m[2] != strconv.Itoa(fixed(want, svgPrecision)) {
		t.Errorf("SVG y not flipped:\n%s", svgOut)
	}
	dxf, _ := encodeBytes(t, DXF, set)
	if !strings.Contains(string(dxf), "\n20\n6.75\n") {
		t.Errorf("DXF y not flipped:\n%s", dxf)
	}
}

func TestEmptySet(t *testing.T) {
	empty := dots.Set{Canvas: dots.Canvas{Width: 10, Height: 10}, Unit: units.Pixel}
	trailers := map[Format]string{
		EPS: "%%EOF\n",
		PLT: "IN;\nSP1;\nSP0;\nIN;\n",
		SVG: "</svg>\n",
		DXF: "0\nEOF\n",
	}
	for _, f := range Formats() {
		out, stats := encodeBytes(t, f, empty)
		if len(out) == 0 {
			t.Errorf("%s: empty output", f)
		}
		if want, ok := trailers[f]; ok && !strings.HasSuffix(string(out), want) {
			t.Errorf("%s: output does not end with %q:\n%s", f, want, out)
		}
		if stats.Batches != 0 || stats.Flushed != 0 {
			t.Errorf("%s: stats = %+v", f, stats)
		}
	}
}

func TestInvalidSet(t *testing.T) {
	bad := single()
	bad.Dots[0].Diameter = 0
	for _, f := range Formats() {
		enc, _ := New(f)
		var buf bytes.Buffer
		_, err := enc.Encode(context.Background(), &buf, bad)
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("%s: error = %v, want INVALID_INPUT", f, err)
		}
		if buf.Len() != 0 {
			t.Errorf("%s: wrote %d bytes for an invalid set", f, buf.Len())
		}
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New("gif"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("New(gif) error = %v, want INVALID_FORMAT", err)
	}
	if _, err := New(SVG, WithBatchSize(0)); !errors.Is(err, errors.ErrCodeInvalidParameter) {
		t.Errorf("WithBatchSize(0) error = %v, want INVALID_PARAMETER", err)
	}
	if _, err := New(PNG, WithRasterScale(-1)); !errors.Is(err, errors.ErrCodeInvalidParameter) {
		t.Errorf("WithRasterScale(-1) error = %v, want INVALID_PARAMETER", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", SVG, false},
		{"EPS", EPS, false},
		{".plt", PLT, false},
		{"hpgl", PLT, false},
		{" dxf ", DXF, false},
		{"png", PNG, false},
		{"bmp", BMP, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}

	fs, err := ParseFormats([]string{"svg", "plt", "hpgl", "SVG"})
	if err != nil {
		t.Fatalf("ParseFormats: %v", err)
	}
	if len(fs) != 2 || fs[0] != SVG || fs[1] != PLT {
		t.Errorf("ParseFormats = %v, want [svg plt]", fs)
	}
	if PLT.Ext() != ".plt" || !PLT.Streamed() || PNG.Streamed() {
		t.Error("Format helpers")
	}
}

func TestDec(t *testing.T) {
	tests := []struct {
		f    float64
		prec int
		want string
	}{
		{1, 4, "1"},
		{0.5, 4, "0.5"},
		{1.23456, 4, "1.2346"},
		{-0.00001, 4, "0"},
		{17, 6, "17"},
	}
	for _, tt := range tests {
		if got := dec(tt.f, tt.prec); got != tt.want {
			t.Errorf("dec(%v, %d) = %q, want %q", tt.f, tt.prec, got, tt.want)
		}
	}
}

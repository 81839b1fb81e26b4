package pixels

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/tone"
)

func TestGrid(t *testing.T) {
	g := NewGrid(3, 2)
	if w, h := g.Size(); w != 3 || h != 2 {
		t.Fatalf("Size() = %d, %d, want 3, 2", w, h)
	}
	if got := g.Pixel(2, 1); got != tone.Gray(255) {
		t.Errorf("new grid pixel = %v, want white", got)
	}
	g.Set(2, 1, tone.Pixel{R: 10, G: 20, B: 30})
	if got := g.Pixel(2, 1); got != (tone.Pixel{R: 10, G: 20, B: 30}) {
		t.Errorf("Pixel(2, 1) = %v after Set", got)
	}
}

func TestGrayscale(t *testing.T) {
	g := Uniform(2, 2, tone.Pixel{R: 255})
	gray := g.Grayscale()
	want := tone.Gray(76) // 0.299·255 = 76.245
	for _, p := range gray.Pix {
		if p != want {
			t.Fatalf("Grayscale pixel = %v, want %v", p, want)
		}
	}
	if g.Pix[0].R != 255 || g.Pix[0].G != 0 {
		t.Error("Grayscale must not modify the receiver")
	}
}

func TestFromImageCompositesOnWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{0, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 0, 0, 0})
	img.Set(2, 0, color.NRGBA{0, 0, 0, 128})

	g := FromImage(img)
	if got := g.Pixel(0, 0); got != tone.Gray(0) {
		t.Errorf("opaque black = %v, want black", got)
	}
	if got := g.Pixel(1, 0); got != tone.Gray(255) {
		t.Errorf("transparent = %v, want white", got)
	}
	if got := g.Pixel(2, 0).R; got < 120 || got > 135 {
		t.Errorf("half transparent black R = %d, want about 127", got)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 7, 6))
	img.SetGray(6, 5, color.Gray{Y: 40})
	g := FromImage(img)
	if g.Width != 2 || g.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", g.Width, g.Height)
	}
	if got := g.Pixel(1, 0); got != tone.Gray(40) {
		t.Errorf("Pixel(1, 0) = %v, want gray 40", got)
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	data := encodePNG(t, 8, 4)

	tests := []struct {
		name  string
		opts  LoadOptions
		wantW int
		wantH int
	}{
		{"native", LoadOptions{}, 8, 4},
		{"target width", LoadOptions{TargetWidth: 4}, 4, 2},
		{"scale", LoadOptions{Scale: 0.5}, 4, 2},
		{"scale one", LoadOptions{Scale: 1}, 8, 4},
		{"grayscale", LoadOptions{Grayscale: true}, 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Decode(bytes.NewReader(data), ".png", tt.opts)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if g.Width != tt.wantW || g.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", g.Width, g.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDecodeSVG(t *testing.T) {
	const doc = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 4 2" width="4" height="2">
<rect x="0" y="0" width="2" height="2" fill="#000000"/>
</svg>`
	g, err := Decode(strings.NewReader(doc), ".SVG", LoadOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.Width != 4 || g.Height != 2 {
		t.Fatalf("size = %dx%d, want 4x2", g.Width, g.Height)
	}
	if l := g.Pixel(0, 0).Luma(); l > 10 {
		t.Errorf("inside rect luma = %v, want black", l)
	}
	if l := g.Pixel(3, 1).Luma(); l < 245 {
		t.Errorf("outside rect luma = %v, want white", l)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader("not an image"), ".png", LoadOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Decode(garbage) error = %v, want INVALID_INPUT", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	if err := os.WriteFile(path, encodePNG(t, 3, 3), 0o644); err != nil {
		t.Fatal(err)
	}
	g, err := Load(path, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Width != 3 || g.Height != 3 {
		t.Errorf("size = %dx%d, want 3x3", g.Width, g.Height)
	}

	if _, err := Load(filepath.Join(dir, "missing.png"), LoadOptions{}); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

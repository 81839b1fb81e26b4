package pixels

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/matzehuels/stipple/pkg/errors"
)

// LoadOptions controls decoding and resizing.
type LoadOptions struct {
	// TargetWidth resizes the image to this many pixels wide, keeping the
	// aspect ratio. Zero keeps the decoded width.
	TargetWidth int
	// Scale multiplies both dimensions when TargetWidth is zero. Zero or one
	// keeps the decoded size.
	Scale float64
	// Grayscale converts every pixel to its luma before generation.
	Grayscale bool
}

// Load reads and decodes the image at path.
func Load(path string, opts LoadOptions) (*Grid, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	return Decode(bytes.NewReader(data), filepath.Ext(path), opts)
}

// Decode decodes an image stream. ext selects the SVG decoder when it is
// ".svg"; anything else goes through the registered raster decoders.
func Decode(r io.Reader, ext string, opts LoadOptions) (*Grid, error) {
	var (
		img image.Image
		err error
	)
	if strings.EqualFold(ext, ".svg") {
		img, err = decodeSVG(r)
	} else {
		img, err = imaging.Decode(r, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image")
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image has no pixels")
	}

	if w, h := resizeTarget(b.Dx(), b.Dy(), opts); w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	g := FromImage(img)
	if opts.Grayscale {
		g = g.Grayscale()
	}
	return g, nil
}

func resizeTarget(w, h int, opts LoadOptions) (int, int) {
	switch {
	case opts.TargetWidth > 0:
		nh := int(math.Round(float64(h) * float64(opts.TargetWidth) / float64(w)))
		return opts.TargetWidth, max(1, nh)
	case opts.Scale > 0 && opts.Scale != 1:
		return max(1, int(float64(w)*opts.Scale)), max(1, int(float64(h)*opts.Scale))
	}
	return w, h
}

// decodeSVG rasterises an SVG document at its viewBox size onto white.
func decodeSVG(r io.Reader) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, err
	}

	w, h := int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "svg has an empty viewBox")
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

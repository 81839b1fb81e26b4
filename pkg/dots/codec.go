package dots

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/units"
)

// Binary layout (little endian):
//
//	magic   [4]byte "STPL"
//	version uint8
//	unit    uint8 (0 = px, 1 = mm)
//	width   float64
//	height  float64
//	count   uint64
//	dots    count × (x, y, diameter float64)
const (
	codecMagic   = "STPL"
	codecVersion = 1
	headerSize   = 4 + 1 + 1 + 8 + 8 + 8
	dotSize      = 3 * 8
)

// MarshalBinary encodes the set in a compact fixed-width format.
func (s Set) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(s.Dots)*dotSize)
	if err := s.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the binary encoding of s to w.
func (s Set) Encode(w io.Writer) error {
	var unit uint8
	switch s.Unit {
	case units.Pixel:
	case units.Millimeter:
		unit = 1
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cannot encode unit %q", s.Unit)
	}

	hdr := make([]byte, headerSize)
	copy(hdr, codecMagic)
	hdr[4] = codecVersion
	hdr[5] = unit
	binary.LittleEndian.PutUint64(hdr[6:], math.Float64bits(s.Canvas.Width))
	binary.LittleEndian.PutUint64(hdr[14:], math.Float64bits(s.Canvas.Height))
	binary.LittleEndian.PutUint64(hdr[22:], uint64(len(s.Dots)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	rec := make([]byte, dotSize)
	for _, d := range s.Dots {
		binary.LittleEndian.PutUint64(rec[0:], math.Float64bits(d.X))
		binary.LittleEndian.PutUint64(rec[8:], math.Float64bits(d.Y))
		binary.LittleEndian.PutUint64(rec[16:], math.Float64bits(d.Diameter))
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalBinary decodes a set written by MarshalBinary.
func (s *Set) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[:4]) != codecMagic {
		return errors.New(errors.ErrCodeInvalidInput, "not a dot set")
	}
	if data[4] != codecVersion {
		return errors.New(errors.ErrCodeUnsupported, "dot set version %d", data[4])
	}

	var unit units.Unit
	switch data[5] {
	case 0:
		unit = units.Pixel
	case 1:
		unit = units.Millimeter
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown unit tag %d", data[5])
	}

	count := binary.LittleEndian.Uint64(data[22:])
	body := data[headerSize:]
	// Compare by division first so a forged count cannot wrap count*dotSize.
	if count > uint64(len(body))/dotSize || uint64(len(body)) != count*dotSize {
		return errors.New(errors.ErrCodeInvalidInput, "dot set truncated: want %d dots, have %d bytes", count, len(body))
	}

	out := Set{
		Unit: unit,
		Canvas: Canvas{
			Width:  math.Float64frombits(binary.LittleEndian.Uint64(data[6:])),
			Height: math.Float64frombits(binary.LittleEndian.Uint64(data[14:])),
		},
		Dots: make([]Dot, count),
	}
	for i := range out.Dots {
		rec := body[i*dotSize:]
		out.Dots[i] = Dot{
			X:        math.Float64frombits(binary.LittleEndian.Uint64(rec[0:])),
			Y:        math.Float64frombits(binary.LittleEndian.Uint64(rec[8:])),
			Diameter: math.Float64frombits(binary.LittleEndian.Uint64(rec[16:])),
		}
	}
	*s = out
	return nil
}

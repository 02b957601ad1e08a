package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"
)

// ErrInvalidInput reports a malformed raster: zero dimensions, an
// unsupported channel count, or a buffer whose length does not match
// Width*Height*Channels. It is a precondition violation and is returned
// before any processing starts.
var ErrInvalidInput = errors.New("invalid input raster")

// Raster is an owned, row-major buffer of 8-bit samples.
//
// Channels is 1 (luminance), 3 (RGB) or 4 (RGBA, non-premultiplied). A
// Raster produced by this module is never shared between pipeline stages;
// every stage allocates the one it returns.
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height, channels int) *Raster {
	return &Raster{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Validate checks the raster invariants.
func (r *Raster) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidInput, "nil raster")
	}
	if r.Width < 1 || r.Height < 1 {
		return errors.Wrapf(ErrInvalidInput, "dimensions %dx%d", r.Width, r.Height)
	}
	switch r.Channels {
	case 1, 3, 4:
	default:
		return errors.Wrapf(ErrInvalidInput, "unsupported channel count %d", r.Channels)
	}
	if want := r.Width * r.Height * r.Channels; len(r.Pix) != want {
		return errors.Wrapf(ErrInvalidInput, "buffer length %d, want %d", len(r.Pix), want)
	}
	return nil
}

// Area returns Width*Height.
func (r *Raster) Area() int {
	return r.Width * r.Height
}

// Offset returns the index of the first sample of pixel (x, y).
func (r *Raster) Offset(x, y int) int {
	return (y*r.Width + x) * r.Channels
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Channels: r.Channels}
	out.Pix = append([]uint8(nil), r.Pix...)
	return out
}

// Luminance returns a single-channel copy using ITU-R BT.601 weights.
// A single-channel raster is simply copied.
func (r *Raster) Luminance() *Raster {
	if r.Channels == 1 {
		return r.Clone()
	}
	out := NewRaster(r.Width, r.Height, 1)
	for i, j := 0, 0; j < len(out.Pix); i, j = i+r.Channels, j+1 {
		y := 0.299*float64(r.Pix[i]) + 0.587*float64(r.Pix[i+1]) + 0.114*float64(r.Pix[i+2])
		out.Pix[j] = uint8(y + 0.5)
	}
	return out
}

// FromImage copies img into a new raster with the requested channel count.
// Pixels are read through the non-premultiplied color model so that
// transparent regions keep their color samples.
func FromImage(img image.Image, channels int) (*Raster, error) {
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, errors.Wrapf(ErrInvalidInput, "image bounds %v", b)
	}
	switch channels {
	case 1, 3, 4:
	default:
		return nil, errors.Wrapf(ErrInvalidInput, "unsupported channel count %d", channels)
	}

	out := NewRaster(b.Dx(), b.Dy(), channels)
	if g, ok := img.(*image.Gray); ok && channels == 1 {
		for y := 0; y < out.Height; y++ {
			row := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Width:(y+1)*out.Width], g.Pix[row:row+out.Width])
		}
		return out, nil
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			src := nrgba.PixOffset(x, y)
			dst := out.Offset(x, y)
			p := nrgba.Pix[src : src+4]
			switch channels {
			case 1:
				lum := 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
				out.Pix[dst] = uint8(lum + 0.5)
			case 3:
				copy(out.Pix[dst:dst+3], p[:3])
			case 4:
				copy(out.Pix[dst:dst+4], p)
			}
		}
	}
	return out, nil
}

// Image returns a standard library image holding a copy of the samples:
// *image.Gray for one channel, *image.NRGBA otherwise.
func (r *Raster) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	if r.Channels == 1 {
		g := image.NewGray(rect)
		for y := 0; y < r.Height; y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+r.Width], r.Pix[y*r.Width:(y+1)*r.Width])
		}
		return g
	}

	out := image.NewNRGBA(rect)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			src := r.Offset(x, y)
			c := color.NRGBA{R: r.Pix[src], G: r.Pix[src+1], B: r.Pix[src+2], A: 255}
			if r.Channels == 4 {
				c.A = r.Pix[src+3]
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

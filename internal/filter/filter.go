package filter

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	docimg "github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Apply runs the chain described by opts on a copy of img.
//
// Stages always run in this order, each one skipped when its options are
// at their neutral value:
//
//  1. Transform: rotation, then horizontal and vertical flips.
//  2. Texture: Gaussian blur, then unsharp mask.
//  3. Colour: spot colour, or mode + adaptive threshold + contrast.
//  4. Contours: edge map or contour overlay.
//
// The input is never modified. Invalid options are reported before any
// work is done.
func Apply(img image.Image, opts Options) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.Wrap(docimg.ErrInvalidInput, "nil image")
	}
	if b := img.Bounds(); b.Dx() < 1 || b.Dy() < 1 {
		return nil, errors.Wrapf(docimg.ErrInvalidInput, "image bounds %v", b)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.IsIdentity() {
		return imaging.Clone(img), nil
	}

	out := imaging.Clone(img)
	out = applyTransform(out, opts)
	out = applyTexture(out, opts)
	out = applyColor(out, opts)
	return applyContours(out, opts)
}

func applyTransform(img *image.NRGBA, opts Options) *image.NRGBA {
	var out image.Image = img
	if opts.Rotation != 0 {
		out = transform.Rotate(out, float64(opts.Rotation), nil)
	}
	if opts.FlipH {
		out = transform.FlipH(out)
	}
	if opts.FlipV {
		out = transform.FlipV(out)
	}
	if out == image.Image(img) {
		return img
	}
	return imaging.Clone(out)
}

func applyTexture(img *image.NRGBA, opts Options) *image.NRGBA {
	if opts.Blur > 0 {
		img = Blur(img, opts.Blur)
	}
	if opts.Sharpen > 0 {
		img = Sharpen(img, opts.Sharpen)
	}
	return img
}

// Blur smooths with a Gaussian of size 2*amount+1 whose sigma follows from
// the size. Alpha is left alone.
func Blur(img image.Image, amount int) *image.NRGBA {
	k := docimg.GaussianKernel(2*amount+1, 0)
	return imaging.Clone(convolution.Convolve(img, k, &convolution.Options{Bias: 0.5, KeepAlpha: true}))
}

// Sharpen applies an unsharp mask: src*(1+a) - blur*a with a = amount/50
// and a blur sigma of SharpenSigma. Alpha is left alone.
func Sharpen(img image.Image, amount int) *image.NRGBA {
	src := imaging.Clone(img)
	blurred := imaging.Blur(src, SharpenSigma)
	a := float64(amount) / 50

	out := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(src.Pix[i+c])*(1+a) - float64(blurred.Pix[i+c])*a
			out.Pix[i+c] = saturate(v)
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

func applyColor(img *image.NRGBA, opts Options) *image.NRGBA {
	if opts.SpotColor != "" && opts.SpotColor != SpotNone {
		return Spot(img, opts.SpotColor)
	}

	switch {
	case opts.Mode == ModeGrayscale:
		img = imaging.Grayscale(img)
	case opts.thresholded():
		img = Threshold(img, opts.Threshold)
	}

	if opts.Adaptive {
		img = AdaptiveThreshold(img, opts.blockSize())
	}

	if opts.Contrast != 100 {
		img = imaging.Clone(adjust.Contrast(img, float64(opts.Contrast)/100-1))
	}
	return img
}

// Spot turns the image grey except for pixels where the chosen channel
// exceeds both others by more than SpotMargin.
func Spot(img image.Image, spot SpotColor) *image.NRGBA {
	src := imaging.Clone(img)
	out := imaging.Grayscale(src)

	ch := map[SpotColor]int{SpotRed: 0, SpotGreen: 1, SpotBlue: 2}[spot]
	for i := 0; i < len(src.Pix); i += 4 {
		p := src.Pix[i : i+3 : i+3]
		v := int(p[ch])
		o1, o2 := int(p[(ch+1)%3]), int(p[(ch+2)%3])
		if v > o1+SpotMargin && v > o2+SpotMargin {
			copy(out.Pix[i:i+3], p)
		}
	}
	return out
}

// Threshold returns a black and white image: white where the grey level is
// strictly above level.
func Threshold(img image.Image, level int) *image.NRGBA {
	out := imaging.Grayscale(img)
	for i := 0; i < len(out.Pix); i += 4 {
		v := uint8(0)
		if int(out.Pix[i]) > level {
			v = 255
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
	}
	return out
}

// AdaptiveThreshold compares every grey level with the Gaussian-weighted
// mean of its blockSize x blockSize neighbourhood: pixels above
// mean-AdaptiveC become white. Borders replicate the nearest pixel.
func AdaptiveThreshold(img image.Image, blockSize int) *image.NRGBA {
	gray := imaging.Grayscale(img)
	mean := convolution.Convolve(gray, docimg.GaussianKernel(blockSize, 0),
		&convolution.Options{Bias: 0.5, KeepAlpha: true})

	for i := 0; i < len(gray.Pix); i += 4 {
		v := uint8(0)
		if int(gray.Pix[i]) > int(mean.Pix[i])-AdaptiveC {
			v = 255
		}
		gray.Pix[i], gray.Pix[i+1], gray.Pix[i+2] = v, v, v
	}
	return gray
}

func applyContours(img *image.NRGBA, opts Options) (*image.NRGBA, error) {
	switch {
	case opts.EdgeOnly:
		return EdgeImage(img)
	case opts.ContourOverlay:
		return ContourOverlay(img)
	}
	return img, nil
}

// EdgeImage replaces the image with its Canny (50/150) edge map, without
// smoothing. Edges are white on black and fully opaque.
func EdgeImage(img image.Image) (*image.NRGBA, error) {
	r, err := docimg.FromImage(img, 3)
	if err != nil {
		return nil, err
	}
	ex := docimg.EdgeExtractor{Low: 50, High: 150}
	edges, err := ex.Extract(r)
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(image.Rect(0, 0, edges.Width, edges.Height))
	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			v := edges.Pix[y*edges.Width+x]
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out, nil
}

// ContourOverlay draws the outer contours of the smoothed Canny map in
// green, 2 pixels wide, on top of the image.
func ContourOverlay(img image.Image) (*image.NRGBA, error) {
	r, err := docimg.FromImage(img, 3)
	if err != nil {
		return nil, err
	}
	ex := docimg.EdgeExtractor{KernelSize: 5, Low: 50, High: 150}
	edges, err := ex.Extract(r)
	if err != nil {
		return nil, err
	}

	contours := detection.FindContours(edges)
	polys := make([][]image.Point, 0, len(contours))
	for _, c := range contours {
		polys = append(polys, c.ImagePoints())
	}
	return docimg.DrawPolygons(img, polys, docimg.OverlayStyle{
		Color:     docimg.DefaultOverlayColor,
		LineWidth: 2,
	})
}

func saturate(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

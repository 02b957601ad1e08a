package rectify

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// ErrDegenerateGeometry reports a quadrilateral that cannot be mapped to a
// rectangle: it collapses to less than a pixel, three of its corners are
// collinear, or the homography system is singular. A quad one pixel wide
// or high is not degenerate; see Rectify. Callers may recover,
// for example by falling back to the full frame.
var ErrDegenerateGeometry = errors.New("degenerate document geometry")

// OutputSize returns the size of the rectified page: the longer of each
// pair of opposite edges, rounded to the nearest pixel.
func OutputSize(q detection.OrderedQuad) (width, height int, err error) {
	w := math.Max(detection.Distance(q.TopLeft, q.TopRight), detection.Distance(q.BottomLeft, q.BottomRight))
	h := math.Max(detection.Distance(q.TopLeft, q.BottomLeft), detection.Distance(q.TopRight, q.BottomRight))
	w, h = math.Round(w), math.Round(h)
	if math.IsNaN(w) || math.IsInf(w, 0) || math.IsNaN(h) || math.IsInf(h, 0) || w < 1 || h < 1 {
		return 0, 0, errors.Wrapf(ErrDegenerateGeometry, "output size %gx%g", w, h)
	}
	return int(w), int(h), nil
}

// Rectify warps the region bounded by q into an upright rectangle.
//
// The output is W x H where W is the longer of the top and bottom edges
// and H the longer of the left and right edges. Its corners (0,0),
// (W-1,0), (W-1,H-1) and (0,H-1) correspond to the quad corners. Every
// output pixel is mapped back into src and sampled bilinearly; samples
// that fall outside src read as 0 in every channel, so uncovered areas are
// black (and transparent for 4-channel rasters).
//
// When W or H is 1 the homography is undefined, so the single row or
// column is sampled along the line midway between the opposite edges.
//
// The output has the same channel count as src. src is not modified.
func Rectify(src *imaging.Raster, q detection.OrderedQuad) (*imaging.Raster, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	width, height, err := OutputSize(q)
	if err != nil {
		return nil, err
	}
	if err := checkQuad(q); err != nil {
		return nil, err
	}

	if width == 1 || height == 1 {
		return strip(src, q, width, height), nil
	}

	fw, fh := float64(width-1), float64(height-1)
	dst := [4]r2.Vec{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}

	// Solve directly for the destination-to-source mapping used by the
	// inverse warp.
	back, err := PerspectiveTransform(dst, quadVecs(q))
	if err != nil {
		return nil, err
	}

	out := imaging.NewRaster(width, height, src.Channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p, ok := back.Apply(r2.Vec{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			sampleBilinear(src, p, out.Pix[out.Offset(x, y):out.Offset(x, y)+out.Channels])
		}
	}
	return out, nil
}

// strip fills a one pixel wide or high output by interpolating between the
// quad corners. Along the thin side every sample sits at the midpoint.
func strip(src *imaging.Raster, q detection.OrderedQuad, width, height int) *imaging.Raster {
	c := quadVecs(q)
	tl, tr, br, bl := c[0], c[1], c[2], c[3]

	out := imaging.NewRaster(width, height, src.Channels)
	for y := 0; y < height; y++ {
		v := stripFraction(y, height)
		for x := 0; x < width; x++ {
			u := stripFraction(x, width)
			top := lerp(tl, tr, u)
			bottom := lerp(bl, br, u)
			o := out.Offset(x, y)
			sampleBilinear(src, lerp(top, bottom, v), out.Pix[o:o+out.Channels])
		}
	}
	return out
}

func stripFraction(i, n int) float64 {
	if n == 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

func lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// checkQuad rejects quads with (near) zero area or three collinear corners.
func checkQuad(q detection.OrderedQuad) error {
	if q.Area() < 1 {
		return errors.Wrapf(ErrDegenerateGeometry, "quad area %g", q.Area())
	}
	c := q.Corners()
	for i := 0; i < 4; i++ {
		a, b, p := c[i], c[(i+1)%4], c[(i+2)%4]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if cross == 0 {
			return errors.Wrapf(ErrDegenerateGeometry, "corners %v, %v and %v are collinear", a, b, p)
		}
	}
	return nil
}

func quadVecs(q detection.OrderedQuad) [4]r2.Vec {
	var out [4]r2.Vec
	for i, p := range q.Corners() {
		out[i] = r2.Vec{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// sampleBilinear writes the bilinear interpolation of src at p into px.
// Taps outside src contribute 0.
func sampleBilinear(src *imaging.Raster, p r2.Vec, px []uint8) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return
	}
	x0f, y0f := math.Floor(p.X), math.Floor(p.Y)
	if x0f < -1 || y0f < -1 || x0f >= float64(src.Width) || y0f >= float64(src.Height) {
		return
	}
	x0, y0 := int(x0f), int(y0f)
	fx, fy := p.X-x0f, p.Y-y0f

	taps := [4]struct {
		x, y int
		w    float64
	}{
		{x0, y0, (1 - fx) * (1 - fy)},
		{x0 + 1, y0, fx * (1 - fy)},
		{x0, y0 + 1, (1 - fx) * fy},
		{x0 + 1, y0 + 1, fx * fy},
	}

	for ch := range px {
		var v float64
		for _, t := range taps {
			if t.w == 0 || t.x < 0 || t.y < 0 || t.x >= src.Width || t.y >= src.Height {
				continue
			}
			v += t.w * float64(src.Pix[src.Offset(t.x, t.y)+ch])
		}
		px[ch] = uint8(math.Min(255, math.Max(0, math.Round(v))))
	}
}

package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// EdgeExtractor turns a raster into a binary edge map.
//
// The zero value performs no smoothing, uses zero thresholds and does not
// dilate; use DefaultEdgeExtractor for the document-detection settings.
type EdgeExtractor struct {
	// KernelSize is the side of the Gaussian smoothing kernel. It must be odd.
	// Values below 3 disable smoothing.
	KernelSize int

	// Low and High are the Canny hysteresis thresholds on the L1 gradient
	// magnitude of 8-bit luminance.
	Low  float64
	High float64

	// DilateIterations is the number of 3x3 dilation passes applied to the
	// Canny output. Zero leaves thin edges.
	DilateIterations int
}

// DefaultEdgeExtractor returns the settings used for document detection:
// 5x5 Gaussian, thresholds 50/150 and one dilation pass.
func DefaultEdgeExtractor() EdgeExtractor {
	return EdgeExtractor{
		KernelSize:       5,
		Low:              50,
		High:             150,
		DilateIterations: 1,
	}
}

// EdgeMap is a single-channel raster whose samples are exactly 0 or 255.
type EdgeMap struct {
	Raster
}

// NewEdgeMap allocates an empty edge map.
func NewEdgeMap(width, height int) *EdgeMap {
	return &EdgeMap{Raster: *NewRaster(width, height, 1)}
}

// On reports whether (x, y) is an edge pixel. Coordinates outside the map
// are never edges.
func (e *EdgeMap) On(x, y int) bool {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return false
	}
	return e.Pix[y*e.Width+x] != 0
}

// Count returns the number of edge pixels.
func (e *EdgeMap) Count() int {
	n := 0
	for _, v := range e.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Extract runs the edge pipeline on r.
//
// # Algorithm
//
//  1. Luminance: ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B).
//
//  2. Gaussian smoothing with a KernelSize x KernelSize kernel whose sigma is
//     derived from the size (1.1 for the default 5x5).
//
//  3. Canny: Sobel 3x3 gradients, L1 magnitude |Gx|+|Gy|, non-maximum
//     suppression along one of four quantised directions, then hysteresis.
//     Pixels above High seed the edge set; pixels above Low join it only
//     when 8-connected, directly or through other joined pixels, to a seed.
//
//  4. Dilation with a 3x3 all-ones structuring element, repeated
//     DilateIterations times, to close small gaps in the outline.
//
// The input is never modified. The only error is ErrInvalidInput.
func (e EdgeExtractor) Extract(r *Raster) (*EdgeMap, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	gray := r.Luminance()
	if e.KernelSize >= 3 {
		gray = Smooth(gray, e.KernelSize)
	}

	edges := canny(gray, e.Low, e.High)
	for i := 0; i < e.DilateIterations; i++ {
		edges = dilate(edges)
	}
	return edges, nil
}

// GaussianSigma returns the standard deviation used for a kernel of the
// given size when none is specified: 0.3*((ksize-1)*0.5-1) + 0.8.
func GaussianSigma(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

// GaussianKernel builds a normalized ksize x ksize Gaussian kernel. A
// non-positive sigma is derived from the size with GaussianSigma.
func GaussianKernel(ksize int, sigma float64) *convolution.Kernel {
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if sigma <= 0 {
		sigma = GaussianSigma(ksize)
	}

	half := ksize / 2
	weights := make([]float64, ksize)
	for i := range weights {
		d := float64(i - half)
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}

	k := convolution.NewKernel(ksize, ksize)
	for y := 0; y < ksize; y++ {
		for x := 0; x < ksize; x++ {
			k.Matrix[y*ksize+x] = weights[y] * weights[x]
		}
	}
	return k.Normalized().(*convolution.Kernel)
}

// Smooth applies a Gaussian of the given kernel size to a single-channel
// raster. Borders replicate the nearest edge sample.
func Smooth(gray *Raster, ksize int) *Raster {
	out, err := FromImage(
		convolution.Convolve(gray.Image(), GaussianKernel(ksize, 0), &convolution.Options{Bias: 0.5}),
		1,
	)
	if err != nil {
		return gray.Clone()
	}
	return out
}

// dilate grows every edge pixel into its 3x3 neighbourhood.
func dilate(edges *EdgeMap) *EdgeMap {
	grown := effect.Dilate(edges.Image(), 1)
	out := NewEdgeMap(edges.Width, edges.Height)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if grown.Pix[grown.PixOffset(x, y)] != 0 {
				out.Pix[y*out.Width+x] = 255
			}
		}
	}
	return out
}

// tan(22.5°) and tan(67.5°), the boundaries between the four
// suppression directions.
const (
	tan22 = 0.41421356237309503
	tan67 = 2.414213562373095
)

// canny applies Sobel gradients, non-maximum suppression and hysteresis to
// a single-channel raster.
func canny(gray *Raster, low, high float64) *EdgeMap {
	width, height := gray.Width, gray.Height
	at := func(x, y int) float64 {
		return float64(gray.Pix[clamp(y, 0, height-1)*width+clamp(x, 0, width-1)])
	}

	gx := make([]float64, width*height)
	gy := make([]float64, width*height)
	mag := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			dy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			i := y*width + x
			gx[i], gy[i] = dx, dy
			mag[i] = math.Abs(dx) + math.Abs(dy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= width || y >= height {
			return 0
		}
		return mag[y*width+x]
	}

	// Non-maximum suppression. Ties are resolved towards the earlier
	// neighbour so that a plateau two pixels wide yields one edge pixel.
	const (
		none = iota
		weak
		strong
	)
	class := make([]uint8, width*height)
	var seeds []image.Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			m := mag[i]
			if m <= low {
				continue
			}

			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var keep bool
			switch {
			case ay <= tan22*ax:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > tan67*ax:
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (gx[i] < 0) != (gy[i] < 0) {
					s = -1
				}
				keep = m > magAt(x-s, y-1) && m >= magAt(x+s, y+1)
			}
			if !keep {
				continue
			}

			if m > high {
				class[i] = strong
				seeds = append(seeds, image.Pt(x, y))
			} else {
				class[i] = weak
			}
		}
	}

	// Hysteresis: grow from strong pixels through 8-connected weak ones.
	out := NewEdgeMap(width, height)
	for _, p := range seeds {
		out.Pix[p.Y*width+p.X] = 255
	}
	for len(seeds) > 0 {
		p := seeds[len(seeds)-1]
		seeds = seeds[:len(seeds)-1]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if class[j] == weak && out.Pix[j] == 0 {
					out.Pix[j] = 255
					seeds = append(seeds, image.Pt(nx, ny))
				}
			}
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

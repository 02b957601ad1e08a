package rectify

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Homography is a 3x3 projective transform between two planes.
type Homography struct {
	m *mat.Dense
}

// PerspectiveTransform returns the homography mapping each src[i] onto
// dst[i].
//
// Both point sets are first normalised (centroid at the origin, mean
// distance sqrt(2)) and the 8x8 linear system with h33 = 1 is solved by LU
// decomposition. A singular or badly conditioned system, which happens when
// three points of either set are collinear, returns ErrDegenerateGeometry.
func PerspectiveTransform(src, dst [4]r2.Vec) (*Homography, error) {
	ts, err := normalization(src)
	if err != nil {
		return nil, err
	}
	td, err := normalization(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		s := apply(ts, src[i])
		d := apply(td, dst[i])
		a.SetRow(2*i, []float64{s.X, s.Y, 1, 0, 0, 0, -s.X * d.X, -s.Y * d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, s.X, s.Y, 1, -s.X * d.Y, -s.Y * d.Y})
		b.SetVec(2*i, d.X)
		b.SetVec(2*i+1, d.Y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrapf(ErrDegenerateGeometry, "solving homography: %v", err)
	}

	hn := mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	})

	// H = Td^-1 * Hn * Ts
	var tdInv mat.Dense
	if err := tdInv.Inverse(td); err != nil {
		return nil, errors.Wrapf(ErrDegenerateGeometry, "denormalising homography: %v", err)
	}
	var m mat.Dense
	m.Product(&tdInv, hn, ts)

	if !finite(&m) {
		return nil, errors.Wrap(ErrDegenerateGeometry, "homography is not finite")
	}
	return &Homography{m: &m}, nil
}

// normalization returns the similarity transform that moves the centroid of
// pts to the origin and scales their mean distance from it to sqrt(2).
func normalization(pts [4]r2.Vec) (*mat.Dense, error) {
	var c r2.Vec
	for _, p := range pts {
		c = r2.Add(c, p)
	}
	c = r2.Scale(0.25, c)

	var mean float64
	for _, p := range pts {
		mean += r2.Norm(r2.Sub(p, c))
	}
	mean /= 4
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return nil, errors.Wrap(ErrDegenerateGeometry, "points coincide")
	}

	s := math.Sqrt2 / mean
	return mat.NewDense(3, 3, []float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}), nil
}

func apply(m mat.Matrix, p r2.Vec) r2.Vec {
	x := m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)
	y := m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)
	w := m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)
	return r2.Vec{X: x / w, Y: y / w}
}

func finite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Apply maps p through the homography. The second result is false when p
// maps to the line at infinity.
func (h *Homography) Apply(p r2.Vec) (r2.Vec, bool) {
	w := h.m.At(2, 0)*p.X + h.m.At(2, 1)*p.Y + h.m.At(2, 2)
	if math.Abs(w) < 1e-12 {
		return r2.Vec{}, false
	}
	return apply(h.m, p), true
}

// Inverse returns the homography mapping in the opposite direction.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.m); err != nil {
		return nil, errors.Wrapf(ErrDegenerateGeometry, "inverting homography: %v", err)
	}
	return &Homography{m: &inv}, nil
}

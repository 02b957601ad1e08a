package detection

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Image converts p to an image.Point.
func (p Point) Image() image.Point {
	return image.Pt(p.X, p.Y)
}

func (p Point) add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// less orders points by Y, then X.
func (p Point) less(q Point) bool {
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// Contour is a closed chain of boundary pixels. The last point connects back
// to the first; the closing point is not repeated.
type Contour []Point

// Area returns the absolute shoelace area of the closed contour.
func (c Contour) Area() float64 {
	return shoelace(c)
}

// Perimeter returns the length of the closed contour.
func (c Contour) Perimeter() float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += Distance(c[i], c[(i+1)%n])
	}
	return sum
}

// ImagePoints converts the contour for drawing.
func (c Contour) ImagePoints() []image.Point {
	out := make([]image.Point, len(c))
	for i, p := range c {
		out[i] = p.Image()
	}
	return out
}

// Polygon is a simplified closed contour.
type Polygon []Point

// IsConvex reports whether every pair of consecutive edges turns the same
// way. A zero cross product (collinear or repeated vertices) makes the
// polygon non-convex.
func (p Polygon) IsConvex() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	sign := 0
	for i := 0; i < n; i++ {
		a, b, c := p[i], p[(i+1)%n], p[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross == 0:
			return false
		case sign == 0:
			sign = cross
		case (cross > 0) != (sign > 0):
			return false
		}
	}
	return true
}

func shoelace(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		sum += int64(a.X)*int64(b.Y) - int64(b.X)*int64(a.Y)
	}
	return math.Abs(float64(sum)) / 2
}

// lineDistance returns the distance from p to the line through a and b, or
// to a when the two coincide.
func lineDistance(p, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	px, py := float64(p.X-a.X), float64(p.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(px, py)
	}
	return math.Abs(dx*py-dy*px) / length
}

package detection

import (
	"math"
	"sort"
)

// OrderedQuad is a quadrilateral with labelled corners.
type OrderedQuad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Corners returns the corners clockwise from the top-left.
func (q OrderedQuad) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Area returns the shoelace area of the quadrilateral.
func (q OrderedQuad) Area() float64 {
	c := q.Corners()
	return shoelace(c[:])
}

// OrderCorners labels four points by coordinate sums.
//
// The point with the smallest x+y is the top-left and the one with the
// largest is the bottom-right. Of the remaining two, the one with the
// smaller y is the top-right. Ties on x+y go to the smaller y, then the
// smaller x, so the labelling depends only on the set of points.
//
// The rule assumes the document is rotated by less than 45 degrees. Beyond
// that the labels rotate with it; see OrderCornersAngular.
func OrderCorners(pts [4]Point) OrderedQuad {
	sorted := pts
	sort.Slice(sorted[:], func(i, j int) bool {
		si, sj := sorted[i].X+sorted[i].Y, sorted[j].X+sorted[j].Y
		if si != sj {
			return si < sj
		}
		return sorted[i].less(sorted[j])
	})

	q := OrderedQuad{TopLeft: sorted[0], BottomRight: sorted[3]}
	a, b := sorted[1], sorted[2]
	if b.less(a) {
		a, b = b, a
	}
	q.TopRight, q.BottomLeft = a, b
	return q
}

// OrderCornersAngular labels four points by their angle around the
// centroid. The corner closest to the upper-left diagonal becomes the
// top-left and the others follow clockwise.
//
// Unlike OrderCorners it keeps a consistent winding for documents turned
// by 45 degrees or more, at the cost of relabelling which edge is "top".
func OrderCornersAngular(pts [4]Point) OrderedQuad {
	var cx, cy float64
	for _, p := range pts {
		cx += float64(p.X)
		cy += float64(p.Y)
	}
	cx /= 4
	cy /= 4

	angle := func(p Point) float64 {
		return math.Atan2(float64(p.Y)-cy, float64(p.X)-cx)
	}

	// Ascending atan2 with Y growing downwards is clockwise on screen.
	sorted := pts
	sort.Slice(sorted[:], func(i, j int) bool {
		ai, aj := angle(sorted[i]), angle(sorted[j])
		if ai != aj {
			return ai < aj
		}
		return sorted[i].less(sorted[j])
	})

	const upperLeft = -3 * math.Pi / 4
	start, best := 0, math.Inf(1)
	for i, p := range sorted {
		d := math.Abs(math.Remainder(angle(p)-upperLeft, 2*math.Pi))
		if d < best {
			start, best = i, d
		}
	}

	return OrderedQuad{
		TopLeft:     sorted[start],
		TopRight:    sorted[(start+1)%4],
		BottomRight: sorted[(start+2)%4],
		BottomLeft:  sorted[(start+3)%4],
	}
}

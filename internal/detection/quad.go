package detection

import "sort"

// QuadCandidate is a convex four-sided outline large enough to be a
// document.
type QuadCandidate struct {
	// Points are the polygon vertices in outline order.
	Points [4]Point `json:"points"`

	// Area is the area of the contour the polygon was simplified from.
	Area float64 `json:"area"`
}

// Selector picks the document outline among contours.
type Selector struct {
	// MinAreaRatio is the smallest contour area, as a fraction of the image
	// area, that can be a document.
	MinAreaRatio float64

	// EpsilonRatio scales the contour perimeter into the Douglas-Peucker
	// tolerance.
	EpsilonRatio float64
}

// DefaultSelector requires 10% of the image and simplifies with 2% of the
// perimeter.
func DefaultSelector() Selector {
	return Selector{MinAreaRatio: 0.10, EpsilonRatio: 0.02}
}

// Select returns the largest contour that simplifies to a convex
// quadrilateral, or nil when none qualifies.
//
// For each contour:
//
//  1. Area below MinAreaRatio*imageArea: rejected.
//  2. Simplify with epsilon = EpsilonRatio * perimeter.
//  3. Anything but exactly 4 vertices, or a non-convex polygon: rejected.
//  4. The largest contour area wins. Equal areas are resolved in favour
//     of the polygon whose topmost (then leftmost) vertex comes first, so
//     the result does not depend on the order of contours.
//
// Select is pure and safe for concurrent use.
func (s Selector) Select(contours []Contour, imageArea float64) *QuadCandidate {
	minArea := s.MinAreaRatio * imageArea

	var best *QuadCandidate
	for _, c := range contours {
		area := c.Area()
		if area < minArea {
			continue
		}

		poly := c.Approximate(s.EpsilonRatio * c.Perimeter())
		if len(poly) != 4 || !poly.IsConvex() {
			continue
		}

		cand := &QuadCandidate{Area: area}
		copy(cand.Points[:], poly)
		if best == nil || cand.Area > best.Area ||
			(cand.Area == best.Area && cand.precedes(best)) {
			best = cand
		}
	}
	return best
}

// precedes compares the vertex sets of two candidates, each sorted by
// (Y, X), lexicographically.
func (q *QuadCandidate) precedes(other *QuadCandidate) bool {
	a, b := q.sortedVertices(), other.sortedVertices()
	for i := range a {
		if a[i] != b[i] {
			return a[i].less(b[i])
		}
	}
	return false
}

func (q *QuadCandidate) sortedVertices() [4]Point {
	v := q.Points
	sort.Slice(v[:], func(i, j int) bool { return v[i].less(v[j]) })
	return v
}

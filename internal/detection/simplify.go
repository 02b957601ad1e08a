package detection

import "math"

// Approximate simplifies the closed contour with the Douglas-Peucker
// algorithm: every dropped point lies within epsilon of the simplified
// outline.
//
// The closed curve is first split at two mutually distant points (found by
// walking to the farthest point three times), each half is simplified as an
// open chain and the halves are joined. A final pass removes vertices that
// sit almost on the line through their neighbours.
func (c Contour) Approximate(epsilon float64) Polygon {
	n := len(c)
	if n < 3 {
		return append(Polygon(nil), c...)
	}

	a := 0
	b := farthest(c, a)
	for i := 0; i < 2; i++ {
		a, b = b, farthest(c, b)
	}
	if Distance(c[a], c[b]) <= epsilon {
		return Polygon{c[a]}
	}

	poly := make(Polygon, 0, 8)
	poly = append(poly, simplifyChain(cyclicSlice(c, a, b), epsilon)...)
	poly = append(poly, simplifyChain(cyclicSlice(c, b, a), epsilon)...)
	return mergeCollinear(poly, epsilon)
}

// farthest returns the index of the point farthest from c[from].
func farthest(c Contour, from int) int {
	best, bestDist := from, -1.0
	for i, p := range c {
		if d := Distance(c[from], p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// cyclicSlice returns c[from], c[from+1], ..., c[to] wrapping around the end.
func cyclicSlice(c Contour, from, to int) []Point {
	n := len(c)
	out := make([]Point, 0, (to-from+n)%n+1)
	for i := from; ; i = (i + 1) % n {
		out = append(out, c[i])
		if i == to {
			return out
		}
	}
}

// simplifyChain runs Douglas-Peucker on an open chain and returns the kept
// points without the final one, which starts the next chain.
func simplifyChain(chain []Point, epsilon float64) []Point {
	keep := make([]bool, len(chain))
	keep[0] = true

	type span struct{ from, to int }
	stack := []span{{0, len(chain) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		split, maxDist := -1, 0.0
		for i := s.from + 1; i < s.to; i++ {
			if d := lineDistance(chain[i], chain[s.from], chain[s.to]); d > maxDist {
				split, maxDist = i, d
			}
		}
		if split >= 0 && maxDist > epsilon {
			keep[split] = true
			stack = append(stack, span{s.from, split}, span{split, s.to})
		}
	}

	out := make([]Point, 0, 4)
	for i := 0; i < len(chain)-1; i++ {
		if keep[i] {
			out = append(out, chain[i])
		}
	}
	return out
}

// mergeCollinear drops vertices whose distance to the chord between the
// neighbouring kept vertices is at most epsilon/sqrt(2).
func mergeCollinear(poly Polygon, epsilon float64) Polygon {
	limit := epsilon * math.Sqrt(0.5)
	out := poly
	for changed := true; changed && len(out) > 3; {
		changed = false
		for i := 0; i < len(out) && len(out) > 3; i++ {
			prev := out[(i-1+len(out))%len(out)]
			next := out[(i+1)%len(out)]
			if lineDistance(out[i], prev, next) <= limit {
				out = append(out[:i:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}

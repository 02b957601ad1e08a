package detection

import (
	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// neighbours lists the 8-neighbourhood clockwise as seen on screen (Y grows
// downwards), starting east.
var neighbours = [8]Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

// direction returns the index in neighbours of the step from a to b. The
// two points must be 8-adjacent.
func direction(a, b Point) int {
	d := Point{X: b.X - a.X, Y: b.Y - a.Y}
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindContours returns the outer border of every connected group of edge
// pixels that is not enclosed by another group.
//
// # Algorithm
//
// Edge pixels are grouped with 8-connectivity and background with
// 4-connectivity. A group whose surrounding background reaches the image
// frame is external; groups lying inside a hole of another group are
// skipped, as are the hole borders themselves.
//
// Each external group is traced with Suzuki-Abe border following, starting
// from its first pixel in raster order. The chain is then compressed: runs
// of steps in the same horizontal, vertical or diagonal direction keep only
// their end points.
//
// Contours that compress to fewer than 3 points (isolated pixels and
// straight strokes) are dropped. Contours are returned in raster order of
// their starting pixel; callers should not rely on that order.
func FindContours(edges *imaging.EdgeMap) []Contour {
	if edges == nil || edges.Width < 1 || edges.Height < 1 {
		return nil
	}

	// Pad with a one pixel background frame so neighbour lookups never
	// leave the grid.
	g := newGrid(edges)
	outside := g.outside()
	seen := make([]bool, len(g.fg))

	var contours []Contour
	for y := 1; y <= edges.Height; y++ {
		for x := 1; x <= edges.Width; x++ {
			i := y*g.stride + x
			if !g.fg[i] || seen[i] {
				continue
			}
			g.fill(i, seen)
			if !outside[i-1] {
				continue
			}

			c := compress(g.trace(Point{X: x, Y: y}))
			if len(c) < 3 {
				continue
			}
			for k := range c {
				c[k].X--
				c[k].Y--
			}
			contours = append(contours, c)
		}
	}
	return contours
}

// grid is a binary edge map surrounded by a background frame.
type grid struct {
	fg     []bool
	stride int
	height int
}

func newGrid(edges *imaging.EdgeMap) *grid {
	g := &grid{stride: edges.Width + 2, height: edges.Height + 2}
	g.fg = make([]bool, g.stride*g.height)
	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			g.fg[(y+1)*g.stride+x+1] = edges.Pix[y*edges.Width+x] != 0
		}
	}
	return g
}

func (g *grid) at(p Point) bool {
	return g.fg[p.Y*g.stride+p.X]
}

// outside marks the background reachable from the frame through
// 4-connected background pixels.
func (g *grid) outside() []bool {
	out := make([]bool, len(g.fg))
	out[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x := i % g.stride
		var next [4]int
		n := 0
		if x > 0 {
			next[n], n = i-1, n+1
		}
		if x < g.stride-1 {
			next[n], n = i+1, n+1
		}
		if i >= g.stride {
			next[n], n = i-g.stride, n+1
		}
		if i+g.stride < len(g.fg) {
			next[n], n = i+g.stride, n+1
		}
		for _, j := range next[:n] {
			if !g.fg[j] && !out[j] {
				out[j] = true
				stack = append(stack, j)
			}
		}
	}
	return out
}

// fill marks the 8-connected group of edge pixels containing start.
func (g *grid) fill(start int, seen []bool) {
	seen[start] = true
	stack := []int{start}
	offsets := [8]int{
		1, -1, g.stride, -g.stride,
		g.stride + 1, g.stride - 1, -g.stride + 1, -g.stride - 1,
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, o := range offsets {
			// Edge pixels never touch the frame, so i+o stays in range.
			j := i + o
			if g.fg[j] && !seen[j] {
				seen[j] = true
				stack = append(stack, j)
			}
		}
	}
}

// trace follows the outer border starting at p0, whose west neighbour is
// background. It returns every border pixel in visiting order.
func (g *grid) trace(p0 Point) []Point {
	var p1 Point
	found := false
	for k := 0; k < 8; k++ {
		q := p0.add(neighbours[(west+k)%8])
		if g.at(q) {
			p1, found = q, true
			break
		}
	}
	if !found {
		return []Point{p0}
	}

	var border []Point
	p2, p3 := p1, p0
	for {
		// Search counterclockwise around p3, starting just after p2.
		d := direction(p3, p2)
		var p4 Point
		for k := 1; k <= 8; k++ {
			q := p3.add(neighbours[(d-k+8)%8])
			if g.at(q) {
				p4 = q
				break
			}
		}

		border = append(border, p3)
		if p4 == p0 && p3 == p1 {
			return border
		}
		p2, p3 = p3, p4
	}
}

// compress keeps only the points where the chain changes direction.
func compress(chain []Point) Contour {
	n := len(chain)
	if n < 3 {
		return append(Contour(nil), chain...)
	}
	out := make(Contour, 0, n/4+4)
	prev := direction(chain[n-1], chain[0])
	for i := 0; i < n; i++ {
		next := direction(chain[i], chain[(i+1)%n])
		if next != prev {
			out = append(out, chain[i])
		}
		prev = next
	}
	return out
}

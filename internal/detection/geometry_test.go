package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContourArea(t *testing.T) {
	square := Contour{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	assert.Equal(t, 100.0, square.Area())

	// Orientation does not matter.
	reversed := Contour{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.Equal(t, 100.0, reversed.Area())

	assert.Equal(t, 0.0, Contour{{0, 0}, {5, 5}}.Area())
}

func TestContourPerimeter(t *testing.T) {
	square := Contour{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	assert.InDelta(t, 40.0, square.Perimeter(), 1e-9)

	triangle := Contour{{0, 0}, {3, 0}, {3, 4}}
	assert.InDelta(t, 12.0, triangle.Perimeter(), 1e-9)
}

func TestPolygonIsConvex(t *testing.T) {
	tests := []struct {
		name string
		poly Polygon
		want bool
	}{
		{"square", Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, true},
		{"square reversed", Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, true},
		{"trapezoid", Polygon{{2, 0}, {8, 0}, {10, 10}, {0, 10}}, true},
		{"dart", Polygon{{0, 0}, {10, 5}, {0, 10}, {3, 5}}, false},
		{"collinear vertex", Polygon{{0, 0}, {5, 0}, {10, 0}, {10, 10}}, false},
		{"self intersecting", Polygon{{0, 0}, {10, 10}, {10, 0}, {0, 10}}, false},
		{"too few", Polygon{{0, 0}, {1, 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.poly.IsConvex())
		})
	}
}

func TestApproximate_RectangleWithNoise(t *testing.T) {
	// Rectangle outline with small bumps along the long edges.
	c := Contour{
		{0, 0}, {0, 50}, {40, 50}, {41, 51}, {80, 50},
		{100, 50}, {100, 0}, {60, 0}, {59, 1}, {20, 0},
	}

	poly := c.Approximate(0.02 * c.Perimeter())
	assert.Len(t, poly, 4)
	assert.ElementsMatch(t, []Point{{0, 0}, {0, 50}, {100, 50}, {100, 0}}, []Point(poly))
	assert.True(t, poly.IsConvex())
}

func TestApproximate_KeepsRealCorners(t *testing.T) {
	// An L shape keeps all six corners.
	c := Contour{{0, 0}, {0, 100}, {100, 100}, {100, 60}, {40, 60}, {40, 0}}

	poly := c.Approximate(0.02 * c.Perimeter())
	assert.Len(t, poly, 6)
	assert.False(t, poly.IsConvex())
}

func TestApproximate_Degenerate(t *testing.T) {
	c := Contour{{5, 5}, {6, 5}, {5, 6}}
	poly := c.Approximate(10)
	assert.Len(t, poly, 1)
}

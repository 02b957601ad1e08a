package scanner

import (
	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// EdgeExtractor produces a binary edge map from a raster.
type EdgeExtractor interface {
	Extract(*imaging.Raster) (*imaging.EdgeMap, error)
}

// ContourFinder traces outer contours in an edge map.
type ContourFinder interface {
	FindContours(*imaging.EdgeMap) []detection.Contour
}

// QuadSelector picks the document outline among contours. A nil result
// means no document.
type QuadSelector interface {
	Select(contours []detection.Contour, imageArea float64) *detection.QuadCandidate
}

// CornerOrderer labels the corners of a quadrilateral.
type CornerOrderer interface {
	OrderCorners([4]detection.Point) detection.OrderedQuad
}

// Rectifier warps a quad of a raster to an upright rectangle.
type Rectifier interface {
	Rectify(*imaging.Raster, detection.OrderedQuad) (*imaging.Raster, error)
}

// ContourFinderFunc adapts a function to ContourFinder.
type ContourFinderFunc func(*imaging.EdgeMap) []detection.Contour

// FindContours calls f.
func (f ContourFinderFunc) FindContours(e *imaging.EdgeMap) []detection.Contour { return f(e) }

// CornerOrdererFunc adapts a function to CornerOrderer.
type CornerOrdererFunc func([4]detection.Point) detection.OrderedQuad

// OrderCorners calls f.
func (f CornerOrdererFunc) OrderCorners(pts [4]detection.Point) detection.OrderedQuad { return f(pts) }

// RectifierFunc adapts a function to Rectifier.
type RectifierFunc func(*imaging.Raster, detection.OrderedQuad) (*imaging.Raster, error)

// Rectify calls f.
func (f RectifierFunc) Rectify(r *imaging.Raster, q detection.OrderedQuad) (*imaging.Raster, error) {
	return f(r, q)
}

var (
	_ EdgeExtractor = imaging.EdgeExtractor{}
	_ QuadSelector  = detection.Selector{}
	_ ContourFinder = ContourFinderFunc(detection.FindContours)
	_ CornerOrderer = CornerOrdererFunc(detection.OrderCorners)
	_ Rectifier     = RectifierFunc(rectify.Rectify)
)

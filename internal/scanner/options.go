package scanner

import (
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEdgeExtractor replaces the edge stage.
func WithEdgeExtractor(e EdgeExtractor) Option {
	return func(p *Pipeline) { p.edges = e }
}

// WithContourFinder replaces the contour stage.
func WithContourFinder(f ContourFinder) Option {
	return func(p *Pipeline) { p.contours = f }
}

// WithSelector replaces the quadrilateral selection stage.
func WithSelector(s QuadSelector) Option {
	return func(p *Pipeline) { p.selector = s }
}

// WithCornerOrderer replaces the corner labelling stage.
func WithCornerOrderer(o CornerOrderer) Option {
	return func(p *Pipeline) { p.orderer = o }
}

// WithAngularOrdering labels corners by angle around the centroid instead
// of by coordinate sums. Use it when pages may be turned by 45 degrees or
// more.
func WithAngularOrdering() Option {
	return WithCornerOrderer(CornerOrdererFunc(detection.OrderCornersAngular))
}

// WithRectifier replaces the perspective correction stage.
func WithRectifier(r Rectifier) Option {
	return func(p *Pipeline) { p.rectifier = r }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l == nil {
			l = zap.NewNop()
		}
		p.logger = l
	}
}

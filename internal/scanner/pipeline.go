package scanner

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// Reasons reported by Scan when it falls back to the full frame.
const (
	ReasonNoDocument = "no document found"
	ReasonDegenerate = "degenerate document geometry"
)

// Pipeline runs document detection and rectification. It holds no
// per-call state and is safe for concurrent use once built.
type Pipeline struct {
	edges     EdgeExtractor
	contours  ContourFinder
	selector  QuadSelector
	orderer   CornerOrderer
	rectifier Rectifier
	logger    *zap.Logger
}

// New returns a pipeline with the default stages: Canny edges with
// dilation, external contours, the largest convex quadrilateral covering
// at least 10% of the frame, coordinate-sum corner labels and bilinear
// perspective correction.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		edges:     imaging.DefaultEdgeExtractor(),
		contours:  ContourFinderFunc(detection.FindContours),
		selector:  detection.DefaultSelector(),
		orderer:   CornerOrdererFunc(detection.OrderCorners),
		rectifier: RectifierFunc(rectify.Rectify),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detection is a located document.
type Detection struct {
	// Quad holds the labelled corners.
	Quad detection.OrderedQuad `json:"corners"`

	// Candidate is the selected polygon and its contour area.
	Candidate detection.QuadCandidate `json:"candidate"`
}

// Detect finds the document in r. It returns nil, nil when no contour
// qualifies; the only error is imaging.ErrInvalidInput.
func (p *Pipeline) Detect(r *imaging.Raster) (*Detection, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	edges, err := p.edges.Extract(r)
	if err != nil {
		return nil, err
	}

	contours := p.contours.FindContours(edges)
	cand := p.selector.Select(contours, float64(r.Area()))
	if cand == nil {
		p.logger.Debug("no document found",
			zap.Int("width", r.Width),
			zap.Int("height", r.Height),
			zap.Int("contours", len(contours)))
		return nil, nil
	}

	d := &Detection{
		Quad:      p.orderer.OrderCorners(cand.Points),
		Candidate: *cand,
	}
	p.logger.Debug("document detected",
		zap.Float64("area", cand.Area),
		zap.Float64("area_ratio", cand.Area/float64(r.Area())),
		zap.Any("corners", d.Quad))
	return d, nil
}

// OrderCorners labels four points with the pipeline's corner orderer. It
// is used for corners supplied by hand.
func (p *Pipeline) OrderCorners(pts [4]detection.Point) detection.OrderedQuad {
	return p.orderer.OrderCorners(pts)
}

// Rectify warps q in r to an upright page.
func (p *Pipeline) Rectify(r *imaging.Raster, q detection.OrderedQuad) (*imaging.Raster, error) {
	return p.rectifier.Rectify(r, q)
}

// ScanResult is the outcome of Scan.
type ScanResult struct {
	// Page is the rectified document, or a copy of the input on fallback.
	Page *imaging.Raster

	// Detection is nil when no document was found.
	Detection *Detection

	// Fallback is set when Page is the full frame.
	Fallback bool

	// Reason explains the fallback.
	Reason string
}

// Scan detects and rectifies the document in r. When no document is found,
// or the detected outline is degenerate, the result holds a copy of the
// whole frame with Fallback set. Invalid input is still an error.
func (p *Pipeline) Scan(r *imaging.Raster) (*ScanResult, error) {
	d, err := p.Detect(r)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return p.fallback(r, nil, ReasonNoDocument), nil
	}

	page, err := p.Rectify(r, d.Quad)
	switch {
	case errors.Is(err, rectify.ErrDegenerateGeometry):
		p.logger.Debug("rectification failed", zap.Error(err))
		return p.fallback(r, d, ReasonDegenerate), nil
	case err != nil:
		return nil, err
	}
	return &ScanResult{Page: page, Detection: d}, nil
}

func (p *Pipeline) fallback(r *imaging.Raster, d *Detection, reason string) *ScanResult {
	p.logger.Info("using full frame", zap.String("reason", reason))
	return &ScanResult{
		Page:      r.Clone(),
		Detection: d,
		Fallback:  true,
		Reason:    reason,
	}
}

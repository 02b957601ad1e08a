package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/filter"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/scanner"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "document_scan").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	log := s.logger.With(zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		log.Warn("tool failed", zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("tool done")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Document Operations
	case "document_detect":
		return s.handleDocumentDetect(args)
	case "document_scan":
		return s.handleDocumentScan(args)
	case "document_scan_batch":
		return s.handleDocumentScanBatch(ctx, args)
	case "document_filter":
		return s.handleDocumentFilter(args)
	case "document_ocr":
		return s.handleDocumentOCR(args)
	case "ocr_info":
		return s.ocr.Info(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadRaster reads path through the cache, keeping an alpha channel when
// the file has one.
func (s *Server) loadRaster(path string) (*imaging.Raster, error) {
	return s.cache.LoadRaster(path, 0)
}

func (s *Server) pipeline(angular bool) *scanner.Pipeline {
	if angular {
		return s.angular
	}
	return s.scan
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageEdgeDetectArgs struct {
	Path          string  `json:"path"`
	ThresholdLow  float64 `json:"threshold_low"`
	ThresholdHigh float64 `json:"threshold_high"`
	BlurSize      *int    `json:"blur_size"`
	Dilate        int     `json:"dilate"`
}

// EdgeDetectResult is returned by image_edge_detect.
type EdgeDetectResult struct {
	EdgePixels  int                   `json:"edge_pixels"`
	EdgePercent float64               `json:"edge_percent"`
	Image       *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = 50
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = 150
	}
	if a.ThresholdLow > a.ThresholdHigh {
		return nil, errors.Errorf("threshold_low %g above threshold_high %g", a.ThresholdLow, a.ThresholdHigh)
	}
	ex := imaging.EdgeExtractor{
		KernelSize:       lo.FromPtrOr(a.BlurSize, 5),
		Low:              a.ThresholdLow,
		High:             a.ThresholdHigh,
		DilateIterations: a.Dilate,
	}

	r, err := s.loadRaster(a.Path)
	if err != nil {
		return nil, err
	}
	edges, err := ex.Extract(r)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeRaster(&edges.Raster)
	if err != nil {
		return nil, err
	}

	n := edges.Count()
	return &EdgeDetectResult{
		EdgePixels:  n,
		EdgePercent: 100 * float64(n) / float64(edges.Area()),
		Image:       enc,
	}, nil
}

// === Document Handlers ===

type documentDetectArgs struct {
	Path         string `json:"path"`
	Overlay      bool   `json:"overlay"`
	OverlayColor string `json:"overlay_color"`
	Angular      bool   `json:"angular"`
}

// DetectResult is returned by document_detect.
type DetectResult struct {
	Found       bool                   `json:"found"`
	Corners     *detection.OrderedQuad `json:"corners,omitempty"`
	Area        float64                `json:"area,omitempty"`
	AreaPercent float64                `json:"area_percent,omitempty"`
	ImageWidth  int                    `json:"image_width"`
	ImageHeight int                    `json:"image_height"`
	Overlay     *imaging.EncodedImage  `json:"overlay,omitempty"`
}

func (s *Server) handleDocumentDetect(args json.RawMessage) (interface{}, error) {
	var a documentDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Overlay && a.OverlayColor != "" {
		if _, err := imaging.ParseHexColor(a.OverlayColor); err != nil {
			return nil, err
		}
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r, err := imaging.FromImage(img, imaging.NativeChannels(img))
	if err != nil {
		return nil, err
	}
	d, err := s.pipeline(a.Angular).Detect(r)
	if err != nil {
		return nil, err
	}

	res := &DetectResult{ImageWidth: r.Width, ImageHeight: r.Height}
	if d == nil {
		return res, nil
	}
	res.Found = true
	res.Corners = &d.Quad
	res.Area = d.Candidate.Area
	res.AreaPercent = 100 * d.Candidate.Area / float64(r.Area())

	if a.Overlay {
		var corners [4]image.Point
		for i, p := range d.Quad.Corners() {
			corners[i] = p.Image()
		}
		res.Overlay, err = imaging.QuadOverlay(img, corners, a.OverlayColor)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// scanArgs are shared by the tools that flatten a page.
type scanArgs struct {
	Path     string            `json:"path"`
	Corners  []detection.Point `json:"corners"`
	Filter   json.RawMessage   `json:"filter"`
	Fallback *bool             `json:"fallback"`
	Angular  bool              `json:"angular"`
}

// decodeFilter reads filter options over the defaults.
func decodeFilter(raw json.RawMessage) (filter.Options, error) {
	opts := filter.DefaultOptions()
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return opts, errors.Wrap(err, "invalid filter options")
		}
	}
	return opts, opts.Validate()
}

// page is a flattened, filtered document.
type page struct {
	Image    *image.NRGBA
	Corners  *detection.OrderedQuad
	Fallback bool
	Reason   string
}

// scanPage rectifies r using manual corners when given, detection
// otherwise, then applies the filter chain.
func (s *Server) scanPage(r *imaging.Raster, a scanArgs, opts filter.Options) (*page, error) {
	p := s.pipeline(a.Angular)

	var (
		flat *imaging.Raster
		pg   page
	)
	switch {
	case len(a.Corners) > 0:
		if len(a.Corners) != 4 {
			return nil, errors.Errorf("need exactly 4 corners, got %d", len(a.Corners))
		}
		var pts [4]detection.Point
		copy(pts[:], a.Corners)
		q := p.OrderCorners(pts)
		out, err := p.Rectify(r, q)
		if err != nil {
			return nil, err
		}
		flat, pg.Corners = out, &q

	default:
		res, err := p.Scan(r)
		if err != nil {
			return nil, err
		}
		if res.Fallback && !lo.FromPtrOr(a.Fallback, true) {
			return nil, errors.New(res.Reason)
		}
		flat, pg.Fallback, pg.Reason = res.Page, res.Fallback, res.Reason
		if !res.Fallback {
			pg.Corners = &res.Detection.Quad
		}
	}

	img, err := filter.Apply(flat.Image(), opts)
	if err != nil {
		return nil, err
	}
	pg.Image = img
	return &pg, nil
}

type documentScanArgs struct {
	scanArgs
	OutputPath string  `json:"output_path"`
	Scale      float64 `json:"scale"`
}

// ScanResult is returned by document_scan.
type ScanResult struct {
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`
	Fallback bool                   `json:"fallback"`
	Reason   string                 `json:"reason,omitempty"`
	Corners  *detection.OrderedQuad `json:"corners,omitempty"`
	SavedTo  string                 `json:"saved_to,omitempty"`
	Image    *imaging.EncodedImage  `json:"image,omitempty"`
}

func (s *Server) handleDocumentScan(args json.RawMessage) (interface{}, error) {
	var a documentScanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	opts, err := decodeFilter(a.Filter)
	if err != nil {
		return nil, err
	}

	r, err := s.loadRaster(a.Path)
	if err != nil {
		return nil, err
	}
	pg, err := s.scanPage(r, a.scanArgs, opts)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Width:    pg.Image.Bounds().Dx(),
		Height:   pg.Image.Bounds().Dy(),
		Fallback: pg.Fallback,
		Reason:   pg.Reason,
		Corners:  pg.Corners,
	}
	if a.OutputPath != "" {
		if err := imaging.Save(pg.Image, a.OutputPath); err != nil {
			return nil, err
		}
		res.SavedTo = a.OutputPath
		return res, nil
	}
	res.Image, err = imaging.Encode(pg.Image, a.Scale)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type documentScanBatchArgs struct {
	Paths         []string        `json:"paths"`
	Filter        json.RawMessage `json:"filter"`
	Fallback      *bool           `json:"fallback"`
	Angular       bool            `json:"angular"`
	OutputDir     string          `json:"output_dir"`
	IncludeImages bool            `json:"include_images"`
}

// BatchEntry is the outcome for one path of document_scan_batch.
type BatchEntry struct {
	Path string `json:"path"`
	*ScanResult
	Error string `json:"error,omitempty"`
}

// BatchResult is returned by document_scan_batch.
type BatchResult struct {
	Results   []BatchEntry `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

func (s *Server) handleDocumentScanBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentScanBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("no paths given")
	}
	opts, err := decodeFilter(a.Filter)
	if err != nil {
		return nil, err
	}
	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create output directory")
		}
	}

	load := func(_ context.Context, path string) (*imaging.Raster, error) {
		return s.loadRaster(path)
	}
	items := s.pipeline(a.Angular).ScanBatch(ctx, lo.Uniq(a.Paths), load, s.batchSize)

	out := &BatchResult{Results: make([]BatchEntry, 0, len(items))}
	for _, it := range items {
		entry := BatchEntry{Path: it.Source}
		res, err := s.finishBatchItem(it, a, opts)
		if err != nil {
			entry.Error = err.Error()
			out.Failed++
		} else {
			entry.ScanResult = res
			out.Succeeded++
		}
		out.Results = append(out.Results, entry)
	}
	return out, nil
}

func (s *Server) finishBatchItem(it scanner.BatchItem, a documentScanBatchArgs, opts filter.Options) (*ScanResult, error) {
	if it.Err != nil {
		return nil, it.Err
	}
	if it.Result.Fallback && !lo.FromPtrOr(a.Fallback, true) {
		return nil, errors.New(it.Result.Reason)
	}

	img, err := filter.Apply(it.Result.Page.Image(), opts)
	if err != nil {
		return nil, err
	}
	res := &ScanResult{
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Fallback: it.Result.Fallback,
		Reason:   it.Result.Reason,
	}
	if !it.Result.Fallback {
		res.Corners = &it.Result.Detection.Quad
	}
	if a.OutputDir != "" {
		res.SavedTo = scanner.OutputPath(a.OutputDir, it.Source)
		if err := imaging.Save(img, res.SavedTo); err != nil {
			return nil, err
		}
	}
	if a.IncludeImages {
		if res.Image, err = imaging.Encode(img, 1.0); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type documentFilterArgs struct {
	Path   string          `json:"path"`
	Filter json.RawMessage `json:"filter"`
	Scale  float64         `json:"scale"`
}

func (s *Server) handleDocumentFilter(args json.RawMessage) (interface{}, error) {
	var a documentFilterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	opts, err := decodeFilter(a.Filter)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := filter.Apply(img, opts)
	if err != nil {
		return nil, err
	}
	return imaging.Encode(out, a.Scale)
}

type documentOCRArgs struct {
	scanArgs
	Language string      `json:"language"`
	Scan     *bool       `json:"scan"`
	Region   *ocr.Bounds `json:"region"`
}

// OCRResult is returned by document_ocr.
type OCRResult struct {
	*ocr.OCRResult
	Scanned  bool                   `json:"scanned"`
	Fallback bool                   `json:"fallback,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Corners  *detection.OrderedQuad `json:"corners,omitempty"`
}

func (s *Server) handleDocumentOCR(args json.RawMessage) (interface{}, error) {
	var a documentOCRArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = ocr.DefaultLanguage
	}
	opts, err := decodeFilter(a.Filter)
	if err != nil {
		return nil, err
	}

	res := &OCRResult{Scanned: lo.FromPtrOr(a.Scan, true)}
	var img image.Image
	if res.Scanned {
		r, err := s.loadRaster(a.Path)
		if err != nil {
			return nil, err
		}
		pg, err := s.scanPage(r, a.scanArgs, opts)
		if err != nil {
			return nil, err
		}
		img, res.Fallback, res.Reason, res.Corners = pg.Image, pg.Fallback, pg.Reason, pg.Corners
	} else {
		src, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		if img, err = filter.Apply(src, opts); err != nil {
			return nil, err
		}
	}

	if a.Region != nil {
		rect := image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2)
		res.OCRResult, err = s.ocr.ExtractTextFromRegion(img, rect, a.Language)
	} else {
		res.OCRResult, err = s.ocr.ExtractText(img, a.Language)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

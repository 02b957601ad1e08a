package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func pointSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "integer"},
			"y": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x", "y"},
	}
}

// filterSchema describes filter.Options.
func filterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Post-processing applied to the page. Stages run in the order transform, texture, colour, contours.",
		"properties": map[string]interface{}{
			"mode": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"original", "grayscale", "thresholded", "scan"},
				"description": "Colour mode. 'scan' is the same as 'thresholded'. Default original",
			},
			"threshold": map[string]interface{}{
				"type":        "integer",
				"description": "Grey level (0-255) above which a pixel turns white in thresholded mode. Default 128",
			},
			"adaptive": map[string]interface{}{
				"type":        "boolean",
				"description": "Binarise against the Gaussian-weighted local mean; copes with shadows",
			},
			"block_size": map[string]interface{}{
				"type":        "integer",
				"description": "Neighbourhood size for adaptive thresholding; even values are bumped to the next odd. Default 11",
			},
			"spot_color": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"none", "red", "green", "blue"},
				"description": "Keep one colour on a grey page, e.g. red pen marks. Overrides mode, adaptive and contrast",
			},
			"contrast": map[string]interface{}{
				"type":        "integer",
				"description": "Contrast in percent (0-300). Default 100 (unchanged)",
			},
			"rotation": map[string]interface{}{
				"type":        "integer",
				"enum":        []int{0, 90, 180, 270},
				"description": "Clockwise rotation about the centre; the canvas keeps its size",
			},
			"flip_h": map[string]interface{}{"type": "boolean", "description": "Mirror left to right"},
			"flip_v": map[string]interface{}{"type": "boolean", "description": "Mirror top to bottom"},
			"blur": map[string]interface{}{
				"type":        "integer",
				"description": "Gaussian blur strength 0-20 (kernel 2n+1)",
			},
			"sharpen": map[string]interface{}{
				"type":        "integer",
				"description": "Unsharp mask strength 0-100",
			},
			"contour_overlay": map[string]interface{}{
				"type":        "boolean",
				"description": "Draw outer contours in green on top of the page",
			},
			"edge_only": map[string]interface{}{
				"type":        "boolean",
				"description": "Replace the page with its Canny edge map. Wins over contour_overlay",
			},
		},
	}
}

// scanProperties are shared by the tools that locate and flatten a page.
func scanProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"corners": map[string]interface{}{
			"type":        "array",
			"items":       pointSchema(),
			"minItems":    4,
			"maxItems":    4,
			"description": "Optional page corners in any order. Skips detection when given",
		},
		"filter": filterSchema(),
		"fallback": map[string]interface{}{
			"type":        "boolean",
			"description": "Return the whole frame when no page is found instead of failing. Default true",
			"default":     true,
		},
		"angular": map[string]interface{}{
			"type":        "boolean",
			"description": "Label corners by angle around the centre; use for pages turned 45 degrees or more",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	scanProps := scanProperties()
	scanProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional file to write the page to (format from extension). The image is then not returned inline",
	}
	scanProps["scale"] = map[string]interface{}{
		"type":        "number",
		"description": "Optional scale factor for the returned image. Default 1.0",
		"default":     1.0,
	}

	ocrProps := scanProperties()
	ocrProps["language"] = map[string]interface{}{
		"type":        "string",
		"description": "Tesseract language code (default: eng)",
		"default":     "eng",
	}
	ocrProps["scan"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Flatten the page before reading it. Default true",
		"default":     true,
	}
	ocrProps["region"] = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required":    []string{"x1", "y1", "x2", "y2"},
		"description": "Optional box to read, in coordinates of the page after scanning and filters; x2 and y2 are exclusive",
	}

	batchProps := scanProperties()
	delete(batchProps, "path")
	delete(batchProps, "corners")
	batchProps["paths"] = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Absolute paths of the photographs to scan",
	}
	batchProps["output_dir"] = map[string]interface{}{
		"type":        "string",
		"description": "Directory receiving <name>_scan.png for every page",
	}
	batchProps["include_images"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Return every page inline as base64 PNG",
	}

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": pathProperty()},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": pathProperty()},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Run the edge stage of the scanner (Gaussian smoothing, Canny, optional dilation) and return the edge map.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "number",
						"description": "Lower Canny threshold (default: 50)",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "number",
						"description": "Upper Canny threshold (default: 150)",
						"default":     150,
					},
					"blur_size": map[string]interface{}{
						"type":        "integer",
						"description": "Gaussian kernel size; 0 or 1 disables smoothing (default: 5)",
						"default":     5,
					},
					"dilate": map[string]interface{}{
						"type":        "integer",
						"description": "Number of 3x3 dilation passes (default: 0)",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Document Operations
		{
			Name:        "document_detect",
			Description: "Find the page in a photograph: the largest convex four-sided outline covering at least 10% of the frame. Returns its labelled corners and optionally an overlay image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the photograph with the detected outline drawn on it",
					},
					"overlay_color": map[string]interface{}{
						"type":        "string",
						"description": "Outline colour as #RRGGBB or #RRGGBBAA (default: #00FF00)",
						"default":     "#00FF00",
					},
					"angular": map[string]interface{}{
						"type":        "boolean",
						"description": "Label corners by angle around the centre",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_scan",
			Description: "Detect the page, correct its perspective into an upright rectangle and apply optional filters. Returns the page as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": scanProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "document_scan_batch",
			Description: "Scan several photographs concurrently. Each entry reports its own result or error.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": batchProps,
				"required":   []string{"paths"},
			},
		},
		{
			Name:        "document_filter",
			Description: "Apply the page filters (rotation, flips, blur, sharpen, colour modes, contours) to an image without detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"filter": filterSchema(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the returned image. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "filter"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Scan the page and extract its text with Tesseract. Returns the full text and word bounding boxes in page coordinates.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": ocrProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "ocr_info",
			Description: "Report whether Tesseract is available, its version and the languages it has data for.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

// Package server implements the MCP (Model Context Protocol) server for the
// document scanner.
//
// This package provides a JSON-RPC 2.0 server that exposes the scanner
// pipeline through the MCP protocol, so an MCP client can find, flatten,
// clean up and read pages photographed with a camera.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_edge_detect: Run the edge stage and return the edge map
//
// Document Operations:
//   - document_detect: Locate the page and label its corners
//   - document_scan: Detect, rectify and filter one page
//   - document_scan_batch: Scan many photographs concurrently
//   - document_filter: Apply page filters without detection
//   - document_ocr: Scan the page and extract its text, optionally from one region
//   - ocr_info: Report the Tesseract version and installed languages
//
// When no page is found the scan tools return the whole frame with
// "fallback" set, unless the caller passes "fallback": false.
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the server.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Config{Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server

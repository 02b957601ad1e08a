// Package imaging holds the raster model and image plumbing of the scanner:
// the owned Raster buffer, the edge stage (Gaussian smoothing, Canny,
// dilation), the decoded-image cache, PNG/base64 encoding and outline
// overlays.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward.
//
// # Rasters
//
// A Raster is a row-major []uint8 with 1, 3 or 4 channels. Every stage
// allocates the raster it returns; inputs are never modified. Malformed
// rasters are rejected with ErrInvalidInput before any work starts.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Cached images are shared and must
// be treated as read-only; FromImage copies them into a private Raster.
// Use Evict or Clear to bound memory in long-running processes.
package imaging

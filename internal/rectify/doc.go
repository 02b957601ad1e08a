// Package rectify removes perspective from a detected document.
//
// Rectify computes the homography taking the labelled quad onto an upright
// rectangle (gonum LU solve with normalised coordinates) and fills the
// rectangle by inverse mapping with bilinear sampling. Degenerate quads are
// reported with ErrDegenerateGeometry instead of producing garbage output.
package rectify

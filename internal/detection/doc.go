// Package detection finds the outline of a document in an edge map.
//
// The package covers the geometric half of the scanner:
//
//  1. FindContours traces the outer border of every external group of edge
//     pixels (Suzuki-Abe border following) and compresses straight runs.
//  2. Selector.Select simplifies each large contour with Douglas-Peucker and
//     keeps the largest convex quadrilateral.
//  3. OrderCorners labels the four vertices top-left, top-right,
//     bottom-right and bottom-left.
//
// All functions are pure and safe for concurrent use. A nil *QuadCandidate
// means no document was found; it is not an error.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// "Clockwise" always means clockwise as seen on screen.
//
// # Limitations
//
// OrderCorners assumes the page is rotated by less than 45 degrees relative
// to the camera. OrderCornersAngular keeps a consistent winding for any
// rotation but may call a different edge "top".
package detection

// Package scanner composes the document scanning stages.
//
// A Pipeline runs, in order: edge extraction, outer contour tracing,
// quadrilateral selection, corner labelling and perspective correction.
// Each stage is an interface so that callers and tests can swap one out
// with an Option; the defaults come from the imaging, detection and
// rectify packages.
//
//	p := scanner.New(scanner.WithLogger(logger))
//	res, err := p.Scan(raster)
//	if err != nil {
//	    return err // invalid input only
//	}
//	if res.Fallback {
//	    log.Println("no page found:", res.Reason)
//	}
//
// Every stage allocates its output; inputs are never modified.
package scanner

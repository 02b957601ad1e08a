// Package filter post-processes a rectified page: geometric transforms,
// blur and sharpening, colour modes and contour visualisation.
//
// Apply is the single entry point. Options decode from JSON, so the same
// value can come from a tool call, a CLI flag set or a batch manifest:
//
//	opts := filter.DefaultOptions()
//	opts.Mode = filter.ModeThresholded
//	opts.Threshold = 150
//	page, err := filter.Apply(img, opts)
//
// Every helper returns a new *image.NRGBA and leaves its input untouched.
package filter

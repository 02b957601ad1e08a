// Package ocr reads the text of a rectified page with Tesseract.
//
// It wraps the gosseract/v2 bindings. Images are handed to Tesseract as an
// in-memory PNG, so nothing is written to disk.
//
// # Prerequisites
//
// The Tesseract library and language data must be installed:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Additional languages use their Tesseract codes ("deu", "fra",
// "chi_sim", ...) and need the matching data package. A custom data
// directory can be set with Engine.TessdataPrefix.
//
// # Word Boxes
//
// ExtractText returns the full text and one TextRegion per recognised
// word. If Tesseract cannot produce word boxes the text is still returned
// with an empty Regions slice.
package ocr

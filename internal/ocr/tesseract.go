package ocr

import (
	"bytes"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
)

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion is a recognised word with its location.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is between 0 and 1.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult holds the text of a page.
type OCRResult struct {
	// FullText keeps Tesseract's line breaks.
	FullText string `json:"full_text"`

	Regions []TextRegion `json:"regions"`
}

// Engine runs Tesseract. The zero value uses the system data directory.
// An Engine holds no state between calls and is safe for concurrent use;
// every call creates its own Tesseract client.
type Engine struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string
}

// ExtractText recognises the text of img. Language is a Tesseract code
// such as "eng"; empty means DefaultLanguage. Word boxes are relative to
// the image's top-left corner.
func (e Engine) ExtractText(img image.Image, language string) (*OCRResult, error) {
	return e.extract(img, language, image.Point{})
}

// ExtractTextFromRegion recognises the text inside rect only. Word boxes
// are reported in the coordinates of img.
func (e Engine) ExtractTextFromRegion(img image.Image, rect image.Rectangle, language string) (*OCRResult, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, errors.Errorf("region %v does not overlap the image", rect)
	}
	return e.extract(imaging.Crop(img, rect), language, rect.Min.Sub(img.Bounds().Min))
}

func (e Engine) extract(img image.Image, language string, offset image.Point) (*OCRResult, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode image for OCR")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return nil, errors.Wrap(err, "failed to set tessdata path")
		}
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, errors.Wrap(err, "failed to set language")
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "failed to set image")
	}

	text, err := client.Text()
	if err != nil {
		return nil, errors.Wrap(err, "OCR failed")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		r := box.Box.Add(offset)
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// Info describes the OCR backend.
type Info struct {
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Info reports whether Tesseract can be initialised and which languages
// it has data for.
func (e Engine) Info() Info {
	client := gosseract.NewClient()
	defer client.Close()

	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return Info{Error: err.Error()}
		}
	}
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return Info{Version: client.Version(), Error: err.Error()}
	}
	return Info{Available: len(langs) > 0, Version: client.Version(), Languages: langs}
}

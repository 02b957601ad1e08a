package imaging

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// DefaultOverlayColor is the colour used when a style leaves Color empty.
const DefaultOverlayColor = "#00FF00"

// OverlayStyle controls how outlines are drawn on top of an image.
type OverlayStyle struct {
	// Color is "#RRGGBB" or "#RRGGBBAA". Empty means DefaultOverlayColor.
	Color string

	// LineWidth is the stroke width in pixels. Values below 1 draw 1 pixel.
	LineWidth float64

	// MarkerRadius draws a filled dot on every vertex when positive.
	MarkerRadius float64

	// Labels, when set, are drawn next to the vertices of the first
	// polygon in order.
	Labels []string
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading '#' is
// optional).
func ParseHexColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, errors.New("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, errors.Wrapf(err, "invalid alpha in %q", hex)
		}
		alpha = uint8(a)
		hex = hex[:7]
	default:
		return color.NRGBA{}, errors.Errorf("invalid hex color %q", hex)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(err, "invalid hex color %q", hex)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// DrawPolygons strokes each closed polygon onto a copy of img. Points are
// pixel coordinates; strokes run through pixel centres.
func DrawPolygons(img image.Image, polygons [][]image.Point, style OverlayStyle) (*image.NRGBA, error) {
	if style.Color == "" {
		style.Color = DefaultOverlayColor
	}
	c, err := ParseHexColor(style.Color)
	if err != nil {
		return nil, err
	}
	if style.LineWidth < 1 {
		style.LineWidth = 1
	}

	// gg rasterizes from (0, 0), so work on a copy rebased to the origin.
	origin := img.Bounds().Min
	dc := gg.NewContextForImage(imaging.Clone(img))
	dc.SetColor(c)
	dc.SetLineWidth(style.LineWidth)
	dc.SetLineJoinRound()

	for _, poly := range polygons {
		if len(poly) < 2 {
			continue
		}
		for i, p := range poly {
			x, y := float64(p.X-origin.X)+0.5, float64(p.Y-origin.Y)+0.5
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()

		if style.MarkerRadius > 0 {
			for _, p := range poly {
				dc.DrawCircle(float64(p.X-origin.X)+0.5, float64(p.Y-origin.Y)+0.5, style.MarkerRadius)
				dc.Fill()
			}
		}
	}

	if len(polygons) > 0 && len(style.Labels) > 0 {
		offset := style.MarkerRadius + 4
		for i, p := range polygons[0] {
			if i >= len(style.Labels) {
				break
			}
			dc.DrawStringAnchored(style.Labels[i],
				float64(p.X-origin.X)+offset, float64(p.Y-origin.Y)+offset, 0, 1)
		}
	}

	return imaging.Clone(dc.Image()), nil
}

// QuadOverlay draws the outline of a detected document, with a marker and
// a label on each corner, and returns it encoded. Corners are expected in
// top-left, top-right, bottom-right, bottom-left order.
func QuadOverlay(img image.Image, corners [4]image.Point, colorHex string) (*EncodedImage, error) {
	width := float64(img.Bounds().Dx()+img.Bounds().Dy()) / 400
	if width < 2 {
		width = 2
	}
	out, err := DrawPolygons(img, [][]image.Point{corners[:]}, OverlayStyle{
		Color:        colorHex,
		LineWidth:    width,
		MarkerRadius: width * 2,
		Labels:       []string{"TL", "TR", "BR", "BL"},
	})
	if err != nil {
		return nil, err
	}
	return Encode(out, 1.0)
}

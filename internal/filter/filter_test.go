package filter

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	docimg "github.com/ironsheep/docscan-mcp/internal/imaging"
)

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// patternImage gives every pixel a distinct colour.
func patternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: uint8(x*7 + y*3), A: 255})
		}
	}
	return img
}

// rectImage draws a filled rectangle of fg on bg.
func rectImage(width, height int, r image.Rectangle, fg, bg color.NRGBA) *image.NRGBA {
	img := solidImage(width, height, bg)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, fg)
		}
	}
	return img
}

func gray(v uint8) color.NRGBA {
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.IsIdentity())
	assert.NoError(t, opts.Validate())

	src := patternImage(8, 6)
	out, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
	assert.NotSame(t, src, out)
}

func TestOptions_DecodeKeepsDefaults(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"scan","blur":2}`), &opts))

	assert.Equal(t, Mode("scan"), opts.Mode)
	assert.Equal(t, 2, opts.Blur)
	assert.Equal(t, 100, opts.Contrast)
	assert.Equal(t, 128, opts.Threshold)
	assert.False(t, opts.IsIdentity())
	assert.NoError(t, opts.Validate())
}

func TestOptions_ValidateReportsEveryField(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = "sepia"
	opts.Threshold = 300
	opts.Rotation = 45
	opts.Blur = -1

	err := opts.Validate()
	require.Error(t, err)

	errs := multierr.Errors(err)
	assert.Len(t, errs, 4)
	for _, e := range errs {
		assert.True(t, errors.Is(e, ErrInvalidOptions), e.Error())
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		valid  bool
	}{
		{"empty mode", func(o *Options) { o.Mode = "" }, true},
		{"empty spot", func(o *Options) { o.SpotColor = "" }, true},
		{"adaptive small block", func(o *Options) { o.Adaptive, o.BlockSize = true, 1 }, false},
		{"small block unused", func(o *Options) { o.BlockSize = 1 }, true},
		{"unknown spot", func(o *Options) { o.SpotColor = "purple" }, false},
		{"contrast too high", func(o *Options) { o.Contrast = MaxContrast + 1 }, false},
		{"sharpen too high", func(o *Options) { o.Sharpen = MaxSharpen + 1 }, false},
		{"rotation 270", func(o *Options) { o.Rotation = 270 }, true},
		{"rotation negative", func(o *Options) { o.Rotation = -90 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if tt.valid {
				assert.NoError(t, opts.Validate())
			} else {
				assert.Error(t, opts.Validate())
			}
		})
	}
}

func TestApply_InvalidInput(t *testing.T) {
	_, err := Apply(nil, DefaultOptions())
	assert.True(t, errors.Is(err, docimg.ErrInvalidInput))

	_, err = Apply(image.NewNRGBA(image.Rect(0, 0, 0, 5)), DefaultOptions())
	assert.True(t, errors.Is(err, docimg.ErrInvalidInput))

	opts := DefaultOptions()
	opts.Mode = "sepia"
	_, err = Apply(patternImage(4, 4), opts)
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	src := patternImage(16, 12)
	before := append([]uint8(nil), src.Pix...)

	opts := DefaultOptions()
	opts.Rotation = 90
	opts.FlipH = true
	opts.Blur = 1
	opts.Sharpen = 40
	opts.Mode = ModeThresholded
	opts.Adaptive = true
	opts.Contrast = 150
	opts.ContourOverlay = true

	out, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestApply_IdentityIsCopy(t *testing.T) {
	src := patternImage(10, 8)
	sub := src.SubImage(image.Rect(2, 2, 10, 8)).(*image.NRGBA)

	out, err := Apply(sub, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), out.Bounds())
	assert.Equal(t, src.NRGBAAt(2, 2), out.NRGBAAt(0, 0))
	assert.Equal(t, src.NRGBAAt(9, 7), out.NRGBAAt(7, 5))

	before := src.NRGBAAt(2, 2)
	out.Pix[0] ^= 0xff
	assert.Equal(t, before, src.NRGBAAt(2, 2))
}

func TestApply_Rotate180(t *testing.T) {
	src := patternImage(4, 2)
	opts := DefaultOptions()
	opts.Rotation = 180

	out, err := Apply(src, opts)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, src.NRGBAAt(3-x, 1-y), out.NRGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestApply_RotateKeepsCanvas(t *testing.T) {
	opts := DefaultOptions()
	opts.Rotation = 90

	out, err := Apply(patternImage(20, 10), opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
}

func TestApply_Flips(t *testing.T) {
	src := patternImage(5, 3)

	opts := DefaultOptions()
	opts.FlipH = true
	out, err := Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, src.NRGBAAt(4, 1), out.NRGBAAt(0, 1))
	assert.Equal(t, src.NRGBAAt(0, 2), out.NRGBAAt(4, 2))

	opts = DefaultOptions()
	opts.FlipV = true
	out, err = Apply(src, opts)
	require.NoError(t, err)
	assert.Equal(t, src.NRGBAAt(3, 2), out.NRGBAAt(3, 0))
}

func TestBlur(t *testing.T) {
	uniform := Blur(solidImage(12, 12, gray(90)), 3)
	for i := 0; i < len(uniform.Pix); i += 4 {
		require.Equal(t, uint8(90), uniform.Pix[i])
		require.Equal(t, uint8(255), uniform.Pix[i+3])
	}

	step := rectImage(20, 20, image.Rect(10, 0, 20, 20), gray(200), gray(0))
	out := Blur(step, 2)
	left, right := out.NRGBAAt(9, 10).R, out.NRGBAAt(10, 10).R
	assert.Greater(t, left, uint8(0))
	assert.Less(t, right, uint8(200))
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 10).R)
	assert.Equal(t, uint8(200), out.NRGBAAt(19, 10).R)
}

func TestSharpen(t *testing.T) {
	uniform := Sharpen(solidImage(12, 12, gray(90)), 50)
	for i := 0; i < len(uniform.Pix); i += 4 {
		require.Equal(t, uint8(90), uniform.Pix[i])
	}

	step := rectImage(40, 20, image.Rect(20, 0, 40, 20), gray(150), gray(100))
	out := Sharpen(step, 50)
	assert.Less(t, out.NRGBAAt(19, 10).R, uint8(100))
	assert.Greater(t, out.NRGBAAt(20, 10).R, uint8(150))
}

func TestThreshold(t *testing.T) {
	img := solidImage(3, 1, gray(0))
	img.SetNRGBA(0, 0, gray(100))
	img.SetNRGBA(1, 0, gray(101))
	img.SetNRGBA(2, 0, gray(255))

	out := Threshold(img, 100)
	assert.Equal(t, gray(0), out.NRGBAAt(0, 0))
	assert.Equal(t, gray(255), out.NRGBAAt(1, 0))
	assert.Equal(t, gray(255), out.NRGBAAt(2, 0))

	out = Threshold(img, 255)
	assert.Equal(t, gray(0), out.NRGBAAt(2, 0))
}

func TestApply_ScanIsThresholded(t *testing.T) {
	src := patternImage(10, 10)

	a := DefaultOptions()
	a.Mode = ModeThresholded
	b := DefaultOptions()
	b.Mode = "scan"

	outA, err := Apply(src, a)
	require.NoError(t, err)
	outB, err := Apply(src, b)
	require.NoError(t, err)
	assert.Equal(t, outA.Pix, outB.Pix)

	for i := 0; i < len(outA.Pix); i += 4 {
		v := outA.Pix[i]
		require.True(t, v == 0 || v == 255, "sample %d", v)
	}
}

func TestApply_Grayscale(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeGrayscale

	out, err := Apply(solidImage(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), opts)
	require.NoError(t, err)
	// 0.299*200 + 0.587*100 + 0.114*50 = 124.2
	assert.Equal(t, gray(124), out.NRGBAAt(1, 1))
}

func TestSpot(t *testing.T) {
	img := solidImage(3, 1, color.NRGBA{R: 100, G: 90, B: 80, A: 255})
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 50, G: 50, B: 200, A: 255})

	out := Spot(img, SpotRed)
	assert.Equal(t, color.NRGBA{R: 200, G: 50, B: 50, A: 255}, out.NRGBAAt(0, 0))

	blue := out.NRGBAAt(1, 0)
	assert.Equal(t, blue.R, blue.G)
	assert.Equal(t, blue.G, blue.B)

	muted := out.NRGBAAt(2, 0)
	assert.Equal(t, muted.R, muted.B)

	out = Spot(img, SpotBlue)
	assert.Equal(t, color.NRGBA{R: 50, G: 50, B: 200, A: 255}, out.NRGBAAt(1, 0))
}

func TestApply_SpotOverridesMode(t *testing.T) {
	opts := DefaultOptions()
	opts.SpotColor = SpotRed
	opts.Mode = ModeThresholded
	opts.Contrast = 200

	red := color.NRGBA{R: 200, G: 50, B: 50, A: 255}
	out, err := Apply(solidImage(4, 4, red), opts)
	require.NoError(t, err)
	assert.Equal(t, red, out.NRGBAAt(2, 2))
}

func TestApply_Contrast(t *testing.T) {
	img := solidImage(2, 1, gray(100))
	img.SetNRGBA(1, 0, gray(200))

	opts := DefaultOptions()
	opts.Contrast = 200
	out, err := Apply(img, opts)
	require.NoError(t, err)
	assert.InDelta(t, 72, int(out.NRGBAAt(0, 0).R), 1)
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 0).R)

	opts.Contrast = 0
	out, err = Apply(img, opts)
	require.NoError(t, err)
	assert.InDelta(t, 128, int(out.NRGBAAt(0, 0).R), 1)
	assert.InDelta(t, 128, int(out.NRGBAAt(1, 0).R), 1)
}

func TestAdaptiveThreshold(t *testing.T) {
	out := AdaptiveThreshold(solidImage(15, 15, gray(120)), 11)
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(255), out.Pix[i])
	}

	img := rectImage(30, 30, image.Rect(14, 14, 16, 16), gray(40), gray(220))
	out = AdaptiveThreshold(img, 11)
	assert.Equal(t, gray(0), out.NRGBAAt(14, 14))
	assert.Equal(t, gray(255), out.NRGBAAt(2, 2))
}

func TestApply_AdaptiveEvenBlockSize(t *testing.T) {
	img := rectImage(30, 30, image.Rect(14, 14, 16, 16), gray(40), gray(220))

	even := DefaultOptions()
	even.Adaptive, even.BlockSize = true, 10
	odd := DefaultOptions()
	odd.Adaptive, odd.BlockSize = true, 11

	a, err := Apply(img, even)
	require.NoError(t, err)
	b, err := Apply(img, odd)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestEdgeImage(t *testing.T) {
	out, err := EdgeImage(solidImage(20, 20, gray(128)))
	require.NoError(t, err)
	for i := 0; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(0), out.Pix[i])
		require.Equal(t, uint8(255), out.Pix[i+3])
	}

	out, err = EdgeImage(rectImage(40, 40, image.Rect(10, 10, 30, 30), gray(255), gray(0)))
	require.NoError(t, err)
	edges := 0
	for i := 0; i < len(out.Pix); i += 4 {
		v := out.Pix[i]
		require.True(t, v == 0 || v == 255)
		if v == 255 {
			edges++
		}
	}
	assert.Greater(t, edges, 40)
}

func TestApply_EdgeOnlyWinsOverOverlay(t *testing.T) {
	img := rectImage(40, 40, image.Rect(10, 10, 30, 30), gray(255), gray(0))

	opts := DefaultOptions()
	opts.EdgeOnly = true
	opts.ContourOverlay = true
	out, err := Apply(img, opts)
	require.NoError(t, err)

	want, err := EdgeImage(img)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, out.Pix)
}

func TestContourOverlay(t *testing.T) {
	img := rectImage(100, 100, image.Rect(20, 20, 80, 80), gray(255), gray(0))

	out, err := ContourOverlay(img)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), out.Bounds())

	green := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if out.NRGBAAt(x, y) == (color.NRGBA{G: 255, A: 255}) {
				green++
			}
		}
	}
	assert.Greater(t, green, 100)

	// Far from any edge the image is untouched.
	assert.Equal(t, gray(0), out.NRGBAAt(2, 2))
	assert.Equal(t, gray(255), out.NRGBAAt(50, 50))
}

func TestContourOverlay_Blank(t *testing.T) {
	img := solidImage(30, 30, gray(80))
	out, err := ContourOverlay(img)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Pix)
}

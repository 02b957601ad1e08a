package filter

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// ErrInvalidOptions is wrapped by every validation failure.
var ErrInvalidOptions = errors.New("invalid filter options")

// Mode selects the colour treatment of the page.
type Mode string

const (
	ModeOriginal    Mode = "original"
	ModeGrayscale   Mode = "grayscale"
	ModeThresholded Mode = "thresholded"

	// modeScan is accepted as another name for ModeThresholded.
	modeScan Mode = "scan"
)

// SpotColor keeps one hue in colour on an otherwise grey page.
type SpotColor string

const (
	SpotNone  SpotColor = "none"
	SpotRed   SpotColor = "red"
	SpotGreen SpotColor = "green"
	SpotBlue  SpotColor = "blue"
)

const (
	// AdaptiveC is subtracted from the local mean in adaptive thresholding.
	AdaptiveC = 2

	// SpotMargin is how much the chosen channel must exceed both others.
	SpotMargin = 30

	// SharpenSigma is the blur used by the unsharp mask.
	SharpenSigma = 3.0

	MaxBlur     = 20
	MaxSharpen  = 100
	MaxContrast = 300
)

var (
	modes      = []Mode{ModeOriginal, ModeGrayscale, ModeThresholded, modeScan}
	spotColors = []SpotColor{SpotNone, SpotRed, SpotGreen, SpotBlue}
	rotations  = []int{0, 90, 180, 270}
)

// Options describes a post-processing chain. Empty Mode and SpotColor
// mean original and none.
//
// Decode JSON into the value returned by DefaultOptions so that missing
// keys keep their defaults.
type Options struct {
	Mode      Mode `json:"mode"`
	Threshold int  `json:"threshold"`

	Adaptive  bool `json:"adaptive"`
	BlockSize int  `json:"block_size"`

	SpotColor SpotColor `json:"spot_color"`

	// Contrast is a percentage; 100 leaves the image unchanged.
	Contrast int `json:"contrast"`

	// Rotation is clockwise, in degrees, about the image centre. The canvas
	// keeps its size, so corners are cut off for 90 and 270 on
	// non-square images.
	Rotation int  `json:"rotation"`
	FlipH    bool `json:"flip_h"`
	FlipV    bool `json:"flip_v"`

	Blur    int `json:"blur"`
	Sharpen int `json:"sharpen"`

	ContourOverlay bool `json:"contour_overlay"`
	EdgeOnly       bool `json:"edge_only"`
}

// DefaultOptions returns a chain that leaves the image unchanged.
func DefaultOptions() Options {
	return Options{
		Mode:      ModeOriginal,
		Threshold: 128,
		BlockSize: 11,
		SpotColor: SpotNone,
		Contrast:  100,
	}
}

// Validate reports every out-of-range field at once.
func (o Options) Validate() error {
	var err error
	if o.Mode != "" && !lo.Contains(modes, o.Mode) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "unknown mode %q", o.Mode))
	}
	if o.Threshold < 0 || o.Threshold > 255 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "threshold %d outside 0-255", o.Threshold))
	}
	if o.Adaptive && o.BlockSize < 3 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "block size %d below 3", o.BlockSize))
	}
	if o.SpotColor != "" && !lo.Contains(spotColors, o.SpotColor) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "unknown spot color %q", o.SpotColor))
	}
	if o.Contrast < 0 || o.Contrast > MaxContrast {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "contrast %d outside 0-%d", o.Contrast, MaxContrast))
	}
	if !lo.Contains(rotations, o.Rotation) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "rotation %d not one of %v", o.Rotation, rotations))
	}
	if o.Blur < 0 || o.Blur > MaxBlur {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "blur %d outside 0-%d", o.Blur, MaxBlur))
	}
	if o.Sharpen < 0 || o.Sharpen > MaxSharpen {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, "sharpen %d outside 0-%d", o.Sharpen, MaxSharpen))
	}
	return err
}

// IsIdentity reports whether Apply would return an unchanged copy.
func (o Options) IsIdentity() bool {
	return o.Rotation == 0 && !o.FlipH && !o.FlipV &&
		o.Blur == 0 && o.Sharpen == 0 &&
		(o.Mode == ModeOriginal || o.Mode == "") && !o.Adaptive && o.Contrast == 100 &&
		(o.SpotColor == SpotNone || o.SpotColor == "") &&
		!o.ContourOverlay && !o.EdgeOnly
}

func (o Options) thresholded() bool {
	return o.Mode == ModeThresholded || o.Mode == modeScan
}

func (o Options) blockSize() int {
	if o.BlockSize%2 == 0 {
		return o.BlockSize + 1
	}
	return o.BlockSize
}

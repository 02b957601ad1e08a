package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/filter"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/scanner"
)

const (
	// Scan flags.
	scanFlagIn             = "in"
	scanFlagOut            = "out"
	scanFlagFallback       = "fallback"
	scanFlagAngular        = "angular"
	scanFlagMode           = "mode"
	scanFlagThreshold      = "threshold"
	scanFlagAdaptive       = "adaptive"
	scanFlagBlockSize      = "block-size"
	scanFlagSpotColor      = "spot-color"
	scanFlagContrast       = "contrast"
	scanFlagRotation       = "rotation"
	scanFlagFlipH          = "flip-h"
	scanFlagFlipV          = "flip-v"
	scanFlagBlur           = "blur"
	scanFlagSharpen        = "sharpen"
	scanFlagContourOverlay = "contour-overlay"
	scanFlagEdgeOnly       = "edge-only"
)

func scanCommand() *cli.Command {
	def := filter.DefaultOptions()
	return &cli.Command{
		Name:      "scan",
		Usage:     "scan photographs into flat pages",
		UsageText: appName + " scan --in photo.jpg [--in other.jpg] --out pages/ [filter flags]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     scanFlagIn,
				Aliases:  []string{"i"},
				Usage:    "photograph to scan; repeat for several",
				Required: true,
			},
			&cli.StringFlag{
				Name:     scanFlagOut,
				Aliases:  []string{"o"},
				Usage:    "directory receiving <name>_scan.png for every page",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  scanFlagFallback,
				Usage: "write the whole frame when no page is found",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  scanFlagAngular,
				Usage: "label corners by angle; use for pages turned 45 degrees or more",
			},
			&cli.StringFlag{
				Name:  scanFlagMode,
				Usage: "colour mode: original, grayscale or thresholded",
				Value: string(def.Mode),
			},
			&cli.IntFlag{
				Name:  scanFlagThreshold,
				Usage: "grey level above which thresholded pixels turn white",
				Value: def.Threshold,
			},
			&cli.BoolFlag{
				Name:  scanFlagAdaptive,
				Usage: "binarise against the local Gaussian mean",
			},
			&cli.IntFlag{
				Name:  scanFlagBlockSize,
				Usage: "neighbourhood size for --adaptive",
				Value: def.BlockSize,
			},
			&cli.StringFlag{
				Name:  scanFlagSpotColor,
				Usage: "keep one colour on a grey page: none, red, green or blue",
				Value: string(def.SpotColor),
			},
			&cli.IntFlag{
				Name:  scanFlagContrast,
				Usage: "contrast in percent",
				Value: def.Contrast,
			},
			&cli.IntFlag{
				Name:  scanFlagRotation,
				Usage: "clockwise rotation: 0, 90, 180 or 270",
			},
			&cli.BoolFlag{Name: scanFlagFlipH, Usage: "mirror left to right"},
			&cli.BoolFlag{Name: scanFlagFlipV, Usage: "mirror top to bottom"},
			&cli.IntFlag{
				Name:  scanFlagBlur,
				Usage: fmt.Sprintf("Gaussian blur strength 0-%d", filter.MaxBlur),
			},
			&cli.IntFlag{
				Name:  scanFlagSharpen,
				Usage: fmt.Sprintf("unsharp mask strength 0-%d", filter.MaxSharpen),
			},
			&cli.BoolFlag{Name: scanFlagContourOverlay, Usage: "draw outer contours in green"},
			&cli.BoolFlag{Name: scanFlagEdgeOnly, Usage: "write the edge map instead of the page"},
		},
		Action: scanAction,
	}
}

// filterOptions collects the filter flags of c.
func filterOptions(c *cli.Context) (filter.Options, error) {
	opts := filter.Options{
		Mode:           filter.Mode(c.String(scanFlagMode)),
		Threshold:      c.Int(scanFlagThreshold),
		Adaptive:       c.Bool(scanFlagAdaptive),
		BlockSize:      c.Int(scanFlagBlockSize),
		SpotColor:      filter.SpotColor(c.String(scanFlagSpotColor)),
		Contrast:       c.Int(scanFlagContrast),
		Rotation:       c.Int(scanFlagRotation),
		FlipH:          c.Bool(scanFlagFlipH),
		FlipV:          c.Bool(scanFlagFlipV),
		Blur:           c.Int(scanFlagBlur),
		Sharpen:        c.Int(scanFlagSharpen),
		ContourOverlay: c.Bool(scanFlagContourOverlay),
		EdgeOnly:       c.Bool(scanFlagEdgeOnly),
	}
	return opts, opts.Validate()
}

func scanAction(c *cli.Context) error {
	logger, err := newLogger(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts, err := filterOptions(c)
	if err != nil {
		return cli.Exit(err, 2)
	}
	outDir := c.String(scanFlagOut)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	pipelineOpts := []scanner.Option{scanner.WithLogger(logger.Named("scanner"))}
	if c.Bool(scanFlagAngular) {
		pipelineOpts = append(pipelineOpts, scanner.WithAngularOrdering())
	}
	p := scanner.New(pipelineOpts...)

	cache := imaging.NewImageCache()
	load := func(_ context.Context, path string) (*imaging.Raster, error) {
		// Each photograph is read once.
		defer cache.Evict(path)
		return cache.LoadRaster(path, 0)
	}

	sources := lo.Uniq(c.StringSlice(scanFlagIn))
	items := p.ScanBatch(c.Context, sources, load, c.Int(flagConcurrency))

	var errs error
	for _, it := range items {
		dst := scanner.OutputPath(outDir, it.Source)
		if err := writePage(it, dst, opts, c.Bool(scanFlagFallback)); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, it.Source))
			continue
		}
		if it.Result.Fallback {
			fmt.Fprintf(c.App.Writer, "%s -> %s (full frame: %s)\n", it.Source, dst, it.Result.Reason)
		} else {
			fmt.Fprintf(c.App.Writer, "%s -> %s\n", it.Source, dst)
		}
	}

	if errs != nil {
		failed := multierr.Errors(errs)
		logger.Warn("scan finished with failures",
			zap.Int("failed", len(failed)),
			zap.Int("total", len(items)))
		return cli.Exit(errs, 1)
	}
	return nil
}

// writePage filters the scanned page of it and saves it to dst.
func writePage(it scanner.BatchItem, dst string, opts filter.Options, allowFallback bool) error {
	if it.Err != nil {
		return it.Err
	}
	if it.Result.Fallback && !allowFallback {
		return errors.New(it.Result.Reason)
	}
	img, err := filter.Apply(it.Result.Page.Image(), opts)
	if err != nil {
		return err
	}
	return imaging.Save(img, dst)
}

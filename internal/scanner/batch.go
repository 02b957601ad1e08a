package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

// DefaultBatchConcurrency bounds ScanBatch when no limit is given.
const DefaultBatchConcurrency = 4

// LoadFunc reads the raster for one batch entry.
type LoadFunc func(ctx context.Context, source string) (*imaging.Raster, error)

// BatchItem is the outcome for one source of ScanBatch.
type BatchItem struct {
	Source string
	Result *ScanResult
	Err    error
}

// ScanBatch loads and scans every source with at most limit scans in
// flight (DefaultBatchConcurrency when limit < 1). Results keep the order
// of sources. A failing source does not stop the others; its error is
// recorded in its item. Sources not started before ctx is done get
// ctx.Err().
func (p *Pipeline) ScanBatch(ctx context.Context, sources []string, load LoadFunc, limit int) []BatchItem {
	if limit < 1 {
		limit = DefaultBatchConcurrency
	}
	items := make([]BatchItem, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, src := range sources {
		items[i].Source = src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			r, err := load(ctx, src)
			if err == nil {
				items[i].Result, err = p.Scan(r)
			}
			if err != nil {
				p.logger.Warn("batch scan failed", zap.String("source", src), zap.Error(err))
			}
			items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// OutputPath names the page written for source inside dir:
// <dir>/<name>_scan.png.
func OutputPath(dir, source string) string {
	base := filepath.Base(source)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_scan.png")
}

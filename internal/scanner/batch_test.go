package scanner

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
)

func mapLoader(rasters map[string]*imaging.Raster) LoadFunc {
	return func(_ context.Context, source string) (*imaging.Raster, error) {
		r, ok := rasters[source]
		if !ok {
			return nil, fmt.Errorf("no such source %q", source)
		}
		return r, nil
	}
}

func TestScanBatch(t *testing.T) {
	rasters := map[string]*imaging.Raster{
		"page":  createDocumentRaster(400, 400, 50, 100, 350, 300),
		"blank": blankRaster(100, 80),
	}
	sources := []string{"page", "missing", "blank"}

	items := New().ScanBatch(context.Background(), sources, mapLoader(rasters), 2)
	require.Len(t, items, 3)

	assert.Equal(t, "page", items[0].Source)
	require.NoError(t, items[0].Err)
	assert.False(t, items[0].Result.Fallback)
	assert.NotNil(t, items[0].Result.Detection)

	assert.Equal(t, "missing", items[1].Source)
	assert.Error(t, items[1].Err)
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.True(t, items[2].Result.Fallback)
	assert.Equal(t, ReasonNoDocument, items[2].Result.Reason)
}

func TestScanBatch_Limit(t *testing.T) {
	var inFlight, peak atomic.Int32
	load := func(_ context.Context, _ string) (*imaging.Raster, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		return blankRaster(60, 40), nil
	}

	sources := make([]string, 12)
	for i := range sources {
		sources[i] = fmt.Sprintf("img-%d", i)
	}
	items := New().ScanBatch(context.Background(), sources, load, 3)
	require.Len(t, items, 12)
	for _, it := range items {
		assert.NoError(t, it.Err)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestScanBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := New().ScanBatch(ctx, []string{"a", "b"}, mapLoader(nil), 0)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.True(t, errors.Is(it.Err, context.Canceled))
	}
}

func TestScanBatch_Empty(t *testing.T) {
	items := New().ScanBatch(context.Background(), nil, mapLoader(nil), 1)
	assert.Empty(t, items)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		dir, src, want string
	}{
		{"/out", "/photos/receipt.jpg", "/out/receipt_scan.png"},
		{"/out", "page.png", "/out/page_scan.png"},
		{"out", "/a/b/archive.v2.tiff", "out/archive.v2_scan.png"},
		{"/out", "/photos/noext", "/out/noext_scan.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputPath(tt.dir, tt.src), "OutputPath(%q, %q)", tt.dir, tt.src)
	}
}

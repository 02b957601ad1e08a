package imaging

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// createTestImage writes a solid PNG into a per-test directory and returns
// its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writeImage(t, "test-image.png", img, func(f *os.File, img image.Image) error {
		return png.Encode(f, img)
	})
}

func writeImage(t *testing.T, name string, img image.Image, encode func(*os.File, image.Image) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.Len() != 0 {
		t.Fatalf("new cache holds %d images", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
	if cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()
	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Load(path); err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestImageCache_LoadRaster(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 20, 10, color.RGBA{200, 100, 50, 255})

	r, err := cache.LoadRaster(imgPath, 3)
	if err != nil {
		t.Fatalf("LoadRaster failed: %v", err)
	}
	if r.Width != 20 || r.Height != 10 || r.Channels != 3 {
		t.Fatalf("raster: got %dx%dx%d", r.Width, r.Height, r.Channels)
	}
	if r.Pix[0] != 200 || r.Pix[1] != 100 || r.Pix[2] != 50 {
		t.Errorf("first pixel: got %v", r.Pix[:3])
	}

	// The raster is a private copy.
	r.Pix[0] = 0
	again, _ := cache.LoadRaster(imgPath, 3)
	if again.Pix[0] != 200 {
		t.Error("modifying a raster changed the cached image")
	}
}

func TestImageCache_LoadRasterNative(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 8, 6, color.RGBA{10, 20, 30, 255})

	img, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	r, err := cache.LoadRaster(imgPath, 0)
	if err != nil {
		t.Fatalf("LoadRaster failed: %v", err)
	}
	if r.Channels != NativeChannels(img) {
		t.Errorf("channels: got %d, want %d", r.Channels, NativeChannels(img))
	}
	if r.Pix[0] != 10 || r.Pix[1] != 20 || r.Pix[2] != 30 {
		t.Errorf("first pixel: got %v", r.Pix[:3])
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	a := createTestImage(t, 50, 50, color.RGBA{0, 255, 0, 255})
	b := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})

	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	cache.Evict("/nonexistent/path") // no-op
	if cache.Len() != 1 {
		t.Errorf("after Evict: got %d images, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.LoadRaster(imgPath, 1); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 || info.Height != 150 {
		t.Errorf("size: got %dx%d, want 200x150", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.ColorDepth != "8-bit" {
		t.Errorf("ColorDepth: got %s", info.ColorDepth)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestLoadImageInfo_FormatDetection(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		name     string
		file     string
		encode   func(*os.File, image.Image) error
		format   string
		channels int
	}{
		{"png", "a.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) }, "png", 4},
		{"jpeg", "a.jpg", func(f *os.File, img image.Image) error { return jpeg.Encode(f, img, nil) }, "jpeg", 3},
		{"gif", "a.gif", func(f *os.File, img image.Image) error { return gif.Encode(f, img, nil) }, "gif", 3},
		{"bmp", "a.bmp", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }, "bmp", 4},
		{"tiff", "a.tif", func(f *os.File, img image.Image) error { return tiff.Encode(f, img, nil) }, "tiff", 4},
		// The format comes from the content, not the extension.
		{"png named jpg", "b.jpg", func(f *os.File, img image.Image) error { return png.Encode(f, img) }, "png", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeImage(t, tt.file, src, tt.encode)

			info, err := LoadImageInfo(NewImageCache(), path)
			if err != nil {
				t.Fatalf("LoadImageInfo failed: %v", err)
			}
			if info.Format != tt.format {
				t.Errorf("Format: got %s, want %s", info.Format, tt.format)
			}
			if info.Channels != tt.channels {
				t.Errorf("Channels: got %d, want %d", info.Channels, tt.channels)
			}
		})
	}
}

func TestLoadImageInfo_Grayscale(t *testing.T) {
	gray := image.NewGray16(image.Rect(0, 0, 8, 8))
	path := writeImage(t, "gray.png", gray, func(f *os.File, img image.Image) error {
		return png.Encode(f, img)
	})

	info, err := LoadImageInfo(NewImageCache(), path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	if info.Channels != 1 || info.HasAlpha || info.ColorDepth != "16-bit" {
		t.Errorf("got %+v", info)
	}
}

func TestLoadImageInfo_NonExistent(t *testing.T) {
	if _, err := LoadImageInfo(NewImageCache(), "/nonexistent/image.png"); err == nil {
		t.Error("LoadImageInfo should fail for non-existent file")
	}
}

func TestNativeChannels(t *testing.T) {
	rect := image.Rect(0, 0, 1, 1)
	tests := []struct {
		img  image.Image
		want int
	}{
		{image.NewGray(rect), 1},
		{image.NewGray16(rect), 1},
		{image.NewRGBA(rect), 4},
		{image.NewNRGBA64(rect), 4},
		{image.NewYCbCr(rect, image.YCbCrSubsampleRatio420), 3},
		{image.NewPaletted(rect, color.Palette{color.Black}), 3},
	}
	for _, tt := range tests {
		if got := NativeChannels(tt.img); got != tt.want {
			t.Errorf("NativeChannels(%T): got %d, want %d", tt.img, got, tt.want)
		}
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 300, 200, color.RGBA{100, 100, 100, 255})

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("size: got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
}

package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// createInMemoryImage creates a solid in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255}
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255}
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255}
			} else {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeResult(t *testing.T, r *OverlayResult) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 5, Height: 4}

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"top-left inclusive", 10, 20, true},
		{"inside fractional", 12.5, 21.7, true},
		{"right edge exclusive", 15, 21, false},
		{"bottom edge exclusive", 12, 24, false},
		{"left of rect", 9.99, 21, false},
		{"above rect", 12, 19.5, false},
		{"last pixel", 14.9, 23.9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.x, tt.y); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRect_Empty(t *testing.T) {
	if !(Rect{Width: 0, Height: 3}).Empty() {
		t.Error("zero width should be empty")
	}
	if !(Rect{Width: 3, Height: -1}).Empty() {
		t.Error("negative height should be empty")
	}
	if VehicleROI.Empty() {
		t.Error("VehicleROI should not be empty")
	}
	if got := VehicleROI.Rectangle(); got != image.Rect(535, 180, 715, 330) {
		t.Errorf("VehicleROI.Rectangle() = %v", got)
	}
}

func TestCropRegion(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := CropRegion(img, Rect{X: 50, Y: 0, Width: 50, Height: 50}, 1.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	cropped := decodeResult(t, result)
	r, g, b, _ := cropped.At(25, 25).RGBA()
	if r>>8 != 0 || g>>8 != 255 || b>>8 != 0 {
		t.Errorf("top-right quadrant should be green, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCropRegion_Scale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		scale float64
		wantW int
		wantH int
	}{
		{0, 40, 20},
		{1, 40, 20},
		{2, 80, 40},
		{0.5, 20, 10},
	}

	for _, tt := range tests {
		result, err := CropRegion(img, Rect{X: 10, Y: 10, Width: 40, Height: 20}, tt.scale)
		if err != nil {
			t.Fatalf("scale %v: CropRegion failed: %v", tt.scale, err)
		}
		if result.Width != tt.wantW || result.Height != tt.wantH {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, result.Width, result.Height, tt.wantW, tt.wantH)
		}
	}
}

func TestCropRegion_Invalid(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name  string
		r     Rect
		scale float64
	}{
		{"outside right", Rect{X: 80, Y: 0, Width: 40, Height: 10}, 1},
		{"negative origin", Rect{X: -1, Y: 0, Width: 10, Height: 10}, 1},
		{"empty", Rect{X: 0, Y: 0, Width: 0, Height: 10}, 1},
		{"negative scale", Rect{X: 0, Y: 0, Width: 10, Height: 10}, -2},
		{"collapsing scale", Rect{X: 0, Y: 0, Width: 2, Height: 2}, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(img, tt.r, tt.scale); err == nil {
				t.Errorf("CropRegion(%v, %v) should fail", tt.r, tt.scale)
			}
		})
	}
}

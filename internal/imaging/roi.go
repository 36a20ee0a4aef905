package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Rect is an axis-aligned region of interest in pixel coordinates.
// (X, Y) is the top-left corner; the region spans Width columns and
// Height rows.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// VehicleROI frames the preceding vehicle in the KITTI sequence shipped
// with the project.
var VehicleROI = Rect{X: 535, Y: 180, Width: 180, Height: 150}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point (x, y) lies inside r. The left and top
// edges are inclusive, the right and bottom edges exclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= float64(r.X) && x < float64(r.X+r.Width) &&
		y >= float64(r.Y) && y < float64(r.Y+r.Height)
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// CropRegion cuts r out of img and optionally rescales it.
//
// A scale of 0 or 1 keeps the native size. The region must lie completely
// inside the image.
func CropRegion(img image.Image, r Rect, scale float64) (*OverlayResult, error) {
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %s: width and height must be positive", r)
	}
	bounds := img.Bounds()
	if !r.Rectangle().In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X, r.Y, r.X+r.Width, r.Y+r.Height, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if scale < 0 {
		return nil, fmt.Errorf("invalid scale %g", scale)
	}

	cropped := imaging.Crop(img, r.Rectangle())

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g collapses region %s", scale, r)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return EncodePNG(cropped)
}

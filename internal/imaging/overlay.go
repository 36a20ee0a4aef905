package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
)

// OverlayResult is a PNG rendering returned to MCP clients.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG renders img as base64 PNG.
func EncodePNG(img image.Image) (*OverlayResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// KeypointStyle controls how DrawKeypoints renders each keypoint.
type KeypointStyle struct {
	// Color is a hex color such as "#00FF00". Empty colors keypoints by
	// response, blue for the weakest through red for the strongest.
	Color string

	// Rich draws a circle of diameter Size and an orientation tick
	// instead of a small marker.
	Rich bool

	// Label writes the keypoint count in the top-left corner.
	Label string
}

// DrawKeypoints returns a copy of img with kps drawn on top.
func DrawKeypoints(img image.Image, kps []features.Keypoint, style KeypointStyle) (*image.NRGBA, error) {
	var fixedColor color.Color
	if style.Color != "" {
		c, err := colorful.Hex(style.Color)
		if err != nil {
			return nil, fmt.Errorf("invalid keypoint color %q: %w", style.Color, err)
		}
		fixedColor = c
	}

	dst := imaging.Clone(img)

	lo, hi := responseRange(kps)
	for _, kp := range kps {
		c := fixedColor
		if c == nil {
			c = responseColor(kp.Response, lo, hi)
		}

		cx, cy := int(math.Round(kp.X)), int(math.Round(kp.Y))
		if !style.Rich {
			drawCircle(dst, cx, cy, 2, c)
			continue
		}

		radius := int(math.Round(kp.Size / 2))
		if radius < 1 {
			radius = 1
		}
		drawCircle(dst, cx, cy, radius, c)
		if kp.Angle >= 0 {
			rad := kp.Angle * math.Pi / 180
			ex := cx + int(math.Round(float64(radius)*math.Cos(rad)))
			ey := cy + int(math.Round(float64(radius)*math.Sin(rad)))
			drawLine(dst, cx, cy, ex, ey, c)
		}
	}

	if style.Label != "" {
		drawLabel(dst, 4, 4, style.Label)
	}

	return dst, nil
}

// DrawMatches places img1 and img2 side by side and connects every matched
// keypoint pair. QueryIdx indexes kps1 and TrainIdx indexes kps2.
func DrawMatches(img1 image.Image, kps1 []features.Keypoint, img2 image.Image, kps2 []features.Keypoint, matches []features.Match) (*image.NRGBA, error) {
	b1, b2 := img1.Bounds(), img2.Bounds()
	width := b1.Dx() + b2.Dx()
	height := b1.Dy()
	if b2.Dy() > height {
		height = b2.Dy()
	}

	dst := imaging.New(width, height, color.Black)
	dst = imaging.Paste(dst, img1, image.Pt(0, 0))
	dst = imaging.Paste(dst, img2, image.Pt(b1.Dx(), 0))

	for i, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(kps1) || m.TrainIdx < 0 || m.TrainIdx >= len(kps2) {
			return nil, fmt.Errorf("match %d references keypoint (%d,%d) out of range (%d,%d)",
				i, m.QueryIdx, m.TrainIdx, len(kps1), len(kps2))
		}
		c := matchColor(i, len(matches))
		p, q := kps1[m.QueryIdx], kps2[m.TrainIdx]
		x1, y1 := int(math.Round(p.X)), int(math.Round(p.Y))
		x2, y2 := int(math.Round(q.X))+b1.Dx(), int(math.Round(q.Y))

		drawCircle(dst, x1, y1, 3, c)
		drawCircle(dst, x2, y2, 3, c)
		drawLine(dst, x1, y1, x2, y2, c)
	}

	drawLabel(dst, 4, 4, fmt.Sprintf("%d matches", len(matches)))

	return dst, nil
}

func responseRange(kps []features.Keypoint) (lo, hi float64) {
	if len(kps) == 0 {
		return 0, 0
	}
	lo, hi = kps[0].Response, kps[0].Response
	for _, kp := range kps[1:] {
		lo = math.Min(lo, kp.Response)
		hi = math.Max(hi, kp.Response)
	}
	return lo, hi
}

// responseColor maps v in [lo, hi] onto a hue ramp from blue to red.
func responseColor(v, lo, hi float64) color.Color {
	t := 1.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	return colorful.Hsv(240*(1-t), 1, 1).Clamped()
}

// matchColor spreads n hues evenly around the color wheel.
func matchColor(i, n int) color.Color {
	if n < 1 {
		n = 1
	}
	return colorful.Hsv(360*float64(i)/float64(n), 0.9, 1).Clamped()
}

func drawLine(img draw.Image, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setClipped(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// drawCircle draws the outline of a circle with the midpoint algorithm.
func drawCircle(img draw.Image, cx, cy, r int, c color.Color) {
	x, y := r, 0
	e := 1 - r
	for x >= y {
		for _, p := range [8][2]int{{x, y}, {y, x}, {-y, x}, {-x, y}, {-x, -y}, {-y, -x}, {y, -x}, {x, -y}} {
			setClipped(img, cx+p[0], cy+p[1], c)
		}
		y++
		if e < 0 {
			e += 2*y + 1
		} else {
			x--
			e += 2*(y-x) + 1
		}
	}
}

func setClipped(img draw.Image, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel writes white text on a dark box with its top-left at (x, y).
func drawLabel(img draw.Image, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.White, Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()

	box := image.Rect(x-1, y-1, x+w+1, y+h+1).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(color.NRGBA{0, 0, 0, 180}), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

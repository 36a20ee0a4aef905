package features

import (
	"image"
	"math"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/corners"
)

// fastArc is the number of contiguous circle pixels required (TYPE_9_16).
const fastArc = 9

// fastKeypointSize matches the diameter of the Bresenham circle.
const fastKeypointSize = 7

// fastCircle holds the 16 offsets of a radius-3 Bresenham circle, in order.
var fastCircle = []image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// detectFAST runs the segment test: a pixel is a corner when fastArc
// contiguous circle pixels are all brighter than center+threshold or all
// darker than center-threshold. With NMS enabled, corners are kept only if
// their score is the maximum of their 3x3 neighborhood.
func detectFAST(gray *image.Gray, p FASTParams) []Keypoint {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 7 || height < 7 {
		return []Keypoint{}
	}

	scores := make([][]float64, height)
	for y := range scores {
		scores[y] = make([]float64, width)
	}

	at := func(x, y int) int {
		return int(gray.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
	}

	t := p.Threshold
	found := false
	var ring [16]int
	for y := 3; y < height-3; y++ {
		for x := 3; x < width-3; x++ {
			center := at(x, y)
			for i, off := range fastCircle {
				ring[i] = at(x+off.X, y+off.Y) - center
			}
			if s := fastScore(ring[:], t); s > 0 {
				scores[y][x] = s
				found = true
			}
		}
	}
	if !found {
		return []Keypoint{}
	}

	m, err := corners.FromRows(scores)
	if err != nil {
		return []Keypoint{}
	}

	window := 1
	if !p.NMS {
		window = 0
	}
	picked := corners.Pick(m, corners.Params{
		ApertureSize: window,
		MinResponse:  math.SmallestNonzeroFloat64,
	})

	kps := fromCorners(gray, picked)
	for i := range kps {
		kps[i].Size = fastKeypointSize
	}
	return kps
}

// fastScore returns 0 when the segment test fails, otherwise the sum of
// absolute differences beyond the threshold over the winning side.
func fastScore(diffs []int, t int) float64 {
	if hasArc(diffs, func(d int) bool { return d > t }) {
		return sideScore(diffs, t, 1)
	}
	if hasArc(diffs, func(d int) bool { return d < -t }) {
		return sideScore(diffs, t, -1)
	}
	return 0
}

// hasArc reports whether fastArc consecutive entries satisfy pass, with
// wrap-around.
func hasArc(diffs []int, pass func(int) bool) bool {
	n := len(diffs)
	run := 0
	for i := 0; i < n+fastArc-1; i++ {
		if pass(diffs[i%n]) {
			run++
			if run >= fastArc {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sideScore(diffs []int, t, sign int) float64 {
	sum := 0
	for _, d := range diffs {
		if v := d * sign; v > t {
			sum += v - t
		}
	}
	return float64(sum)
}

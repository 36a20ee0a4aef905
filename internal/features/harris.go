package features

import (
	"image"
	"math"
	"sort"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/corners"
)

// detectHarris computes the Harris response, scales it to 0..255,
// truncates to integer levels and keeps the local maxima above
// MinResponse.
func detectHarris(gray *image.Gray, p HarrisParams, workers int) ([]Keypoint, error) {
	raw, err := corners.HarrisResponse(gray, p.BlockSize, p.ApertureSize, p.K)
	if err != nil {
		return nil, err
	}
	levels := raw.Normalize(0, 255).Quantize()

	picked := corners.PickParallel(levels, p.Params, workers)
	return fromCorners(gray, picked), nil
}

// detectShiTomasi follows good-features-to-track: min-eigenvalue response,
// threshold relative to the strongest corner, 3x3 local maxima, then
// greedy suppression of weaker corners closer than MinDistance.
func detectShiTomasi(gray *image.Gray, p ShiTomasiParams) ([]Keypoint, error) {
	resp, err := corners.MinEigenResponse(gray, p.BlockSize, 3)
	if err != nil {
		return nil, err
	}
	_, best := resp.MinMax()
	if best <= 0 {
		return []Keypoint{}, nil
	}

	minDistance := p.MinDistance()
	maxCorners := int(float64(resp.Rows()*resp.Cols()) / math.Max(1.0, minDistance))

	// strictly above the quality threshold, 3x3 neighborhood
	candidates := corners.Pick(resp, corners.Params{
		ApertureSize: 1,
		MinResponse:  math.Nextafter(best*p.QualityLevel, math.Inf(1)),
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Response > candidates[j].Response
	})

	accepted := make([]corners.Keypoint, 0)
	minDist2 := minDistance * minDistance
	for _, c := range candidates {
		if len(accepted) >= maxCorners {
			break
		}
		keep := true
		for _, a := range accepted {
			dr := float64(c.Row - a.Row)
			dc := float64(c.Col - a.Col)
			if dr*dr+dc*dc < minDist2 {
				keep = false
				break
			}
		}
		if keep {
			accepted = append(accepted, c)
		}
	}

	kps := fromCorners(gray, accepted)
	for i := range kps {
		kps[i].Size = float64(p.BlockSize)
	}
	return kps, nil
}

// fromCorners converts picked pixels into image-space keypoints.
func fromCorners(gray *image.Gray, picked []corners.Keypoint) []Keypoint {
	origin := gray.Bounds().Min
	kps := make([]Keypoint, len(picked))
	for i, c := range picked {
		kps[i] = Keypoint{
			X:        float64(c.Col + origin.X),
			Y:        float64(c.Row + origin.Y),
			Size:     c.Size,
			Angle:    -1,
			Response: c.Response,
		}
	}
	return kps
}

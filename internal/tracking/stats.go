package tracking

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/features"
)

// FrameStats records what one frame produced.
type FrameStats struct {
	Index int    `json:"index"`
	Path  string `json:"path"`

	// Detected counts keypoints before the ROI and count limits.
	Detected  int `json:"detected"`
	Keypoints int `json:"keypoints"`

	// SizeMean and SizeStdDev describe the keypoint neighborhood sizes.
	SizeMean   float64 `json:"size_mean"`
	SizeStdDev float64 `json:"size_std_dev"`

	Described int `json:"described"`
	Matches   int `json:"matches"`

	DetectMs   float64 `json:"detect_ms"`
	DescribeMs float64 `json:"describe_ms"`
	MatchMs    float64 `json:"match_ms"`
}

// Summary aggregates FrameStats over a run.
type Summary struct {
	RunID      string `json:"run_id"`
	Detector   string `json:"detector"`
	Descriptor string `json:"descriptor"`
	Matcher    string `json:"matcher"`
	Selector   string `json:"selector"`

	Frames         int     `json:"frames"`
	TotalKeypoints int     `json:"total_keypoints"`
	MeanKeypoints  float64 `json:"mean_keypoints"`
	MeanSize       float64 `json:"mean_size"`
	SizeStdDev     float64 `json:"size_std_dev"`

	// MatchedFrames excludes the first frame, which has nothing to match.
	MatchedFrames int     `json:"matched_frames"`
	TotalMatches  int     `json:"total_matches"`
	MeanMatches   float64 `json:"mean_matches"`

	MeanDetectMs   float64 `json:"mean_detect_ms"`
	MeanDescribeMs float64 `json:"mean_describe_ms"`
	MeanMatchMs    float64 `json:"mean_match_ms"`

	Elapsed time.Duration `json:"elapsed"`
}

// sizeStats returns the mean and sample standard deviation of the keypoint
// sizes. A single keypoint has a deviation of 0.
func sizeStats(kps []features.Keypoint) (mean, std float64) {
	switch len(kps) {
	case 0:
		return 0, 0
	case 1:
		return kps[0].Size, 0
	}
	sizes := make([]float64, len(kps))
	for i, kp := range kps {
		sizes[i] = kp.Size
	}
	return stat.MeanStdDev(sizes, nil)
}

// summarize fills the aggregate fields of s from frames. Keypoint sizes are
// pooled with each frame weighted by its keypoint count.
func summarize(s *Summary, frames []FrameStats) {
	s.Frames = len(frames)
	if len(frames) == 0 {
		return
	}

	counts := make([]float64, len(frames))
	detect := make([]float64, len(frames))
	describe := make([]float64, len(frames))
	means := make([]float64, 0, len(frames))
	weights := make([]float64, 0, len(frames))
	var matches, matchMs []float64

	for i, f := range frames {
		s.TotalKeypoints += f.Keypoints
		counts[i] = float64(f.Keypoints)
		detect[i] = f.DetectMs
		describe[i] = f.DescribeMs
		if f.Keypoints > 0 {
			means = append(means, f.SizeMean)
			weights = append(weights, float64(f.Keypoints))
		}
		if i > 0 {
			s.TotalMatches += f.Matches
			matches = append(matches, float64(f.Matches))
			matchMs = append(matchMs, f.MatchMs)
		}
	}

	s.MeanKeypoints = stat.Mean(counts, nil)
	s.MeanDetectMs = stat.Mean(detect, nil)
	s.MeanDescribeMs = stat.Mean(describe, nil)
	if len(means) > 0 {
		s.MeanSize = stat.Mean(means, weights)
		s.SizeStdDev = pooledStdDev(frames, s.MeanSize)
	}
	s.MatchedFrames = len(matches)
	if len(matches) > 0 {
		s.MeanMatches = stat.Mean(matches, nil)
		s.MeanMatchMs = stat.Mean(matchMs, nil)
	}
}

// pooledStdDev combines per-frame means and deviations into the deviation
// of all keypoint sizes taken together.
func pooledStdDev(frames []FrameStats, mean float64) float64 {
	var ss float64
	n := 0
	for _, f := range frames {
		if f.Keypoints == 0 {
			continue
		}
		k := float64(f.Keypoints)
		d := f.SizeMean - mean
		ss += (k-1)*f.SizeStdDev*f.SizeStdDev + k*d*d
		n += f.Keypoints
	}
	if n < 2 {
		return 0
	}
	return math.Sqrt(ss / float64(n-1))
}

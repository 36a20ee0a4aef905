package features

import (
	"fmt"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/corners"
)

// HarrisParams configures the Harris detector.
type HarrisParams struct {
	corners.Params `yaml:",inline"`

	// K is the Harris free parameter.
	K float64 `json:"k" yaml:"k"`
}

// ShiTomasiParams configures the good-features-to-track detector.
type ShiTomasiParams struct {
	BlockSize    int     `json:"block_size" yaml:"block_size"`
	MaxOverlap   float64 `json:"max_overlap" yaml:"max_overlap"`     // fraction, 0 = no overlap
	QualityLevel float64 `json:"quality_level" yaml:"quality_level"` // relative to the best corner
}

// MinDistance is the smallest distance allowed between two corners.
func (p ShiTomasiParams) MinDistance() float64 {
	return (1.0 - p.MaxOverlap) * float64(p.BlockSize)
}

// FASTParams configures the FAST segment test.
type FASTParams struct {
	Threshold int  `json:"threshold" yaml:"threshold"`
	NMS       bool `json:"nms" yaml:"nms"`
}

// BRISKParams configures the BRISK extractor.
type BRISKParams struct {
	Threshold    int     `json:"threshold" yaml:"threshold"`
	Octaves      int     `json:"octaves" yaml:"octaves"`
	PatternScale float64 `json:"pattern_scale" yaml:"pattern_scale"`
}

// MatchParams configures descriptor matching.
type MatchParams struct {
	CrossCheck bool    `json:"cross_check" yaml:"cross_check"`
	KNNRatio   float64 `json:"knn_ratio" yaml:"knn_ratio"`
}

// Params bundles every tunable used by the Engine.
type Params struct {
	Harris    HarrisParams    `json:"harris" yaml:"harris"`
	ShiTomasi ShiTomasiParams `json:"shi_tomasi" yaml:"shi_tomasi"`
	FAST      FASTParams      `json:"fast" yaml:"fast"`
	BRISK     BRISKParams     `json:"brisk" yaml:"brisk"`
	Match     MatchParams     `json:"match" yaml:"match"`

	// Workers splits the Harris picker across goroutines; <= 1 runs it
	// inline.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultParams returns the settings used throughout the mid-term project.
func DefaultParams() Params {
	return Params{
		Harris: HarrisParams{
			Params: corners.Params{
				BlockSize:    2,
				ApertureSize: 3,
				MinResponse:  100,
			},
			K: 0.04,
		},
		ShiTomasi: ShiTomasiParams{
			BlockSize:    4,
			MaxOverlap:   0.0,
			QualityLevel: 0.01,
		},
		FAST: FASTParams{
			Threshold: 30,
			NMS:       true,
		},
		BRISK: BRISKParams{
			Threshold:    30,
			Octaves:      3,
			PatternScale: 1.0,
		},
		Match: MatchParams{
			CrossCheck: false,
			KNNRatio:   0.8,
		},
		Workers: 1,
	}
}

// Validate checks the parameters for values the detectors cannot use.
func (p Params) Validate() error {
	switch p.Harris.ApertureSize {
	case 1, 3, 5, 7:
	default:
		return fmt.Errorf("harris aperture size %d must be 1, 3, 5 or 7", p.Harris.ApertureSize)
	}
	if p.Harris.BlockSize < 1 {
		return fmt.Errorf("harris block size %d must be >= 1", p.Harris.BlockSize)
	}
	if p.ShiTomasi.BlockSize < 1 {
		return fmt.Errorf("shi-tomasi block size %d must be >= 1", p.ShiTomasi.BlockSize)
	}
	if p.ShiTomasi.QualityLevel <= 0 || p.ShiTomasi.QualityLevel >= 1 {
		return fmt.Errorf("shi-tomasi quality level %v must be in (0, 1)", p.ShiTomasi.QualityLevel)
	}
	if p.ShiTomasi.MaxOverlap < 0 || p.ShiTomasi.MaxOverlap > 1 {
		return fmt.Errorf("shi-tomasi max overlap %v must be in [0, 1]", p.ShiTomasi.MaxOverlap)
	}
	if p.FAST.Threshold < 1 || p.FAST.Threshold > 255 {
		return fmt.Errorf("fast threshold %d must be in [1, 255]", p.FAST.Threshold)
	}
	if p.BRISK.Threshold < 1 || p.BRISK.Threshold > 255 {
		return fmt.Errorf("brisk threshold %d must be in [1, 255]", p.BRISK.Threshold)
	}
	if p.BRISK.Octaves < 0 {
		return fmt.Errorf("brisk octaves %d must not be negative", p.BRISK.Octaves)
	}
	if p.BRISK.PatternScale <= 0 {
		return fmt.Errorf("brisk pattern scale %v must be positive", p.BRISK.PatternScale)
	}
	if p.Match.KNNRatio <= 0 || p.Match.KNNRatio > 1 {
		return fmt.Errorf("knn ratio %v must be in (0, 1]", p.Match.KNNRatio)
	}
	return nil
}

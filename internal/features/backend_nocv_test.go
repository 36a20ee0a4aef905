//go:build !withcv

package features

import (
	"errors"
	"testing"
)

func TestPureGoBackend_RejectsOpenCVAlgorithms(t *testing.T) {
	e := NewEngine(DefaultParams(), nil)
	img := createSquareImage(40, 10, 30)

	for _, d := range []DetectorType{DetectorBRISK, DetectorORB, DetectorAKAZE, DetectorSIFT} {
		if _, err := e.Detect(img, d); !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("%s: got %v, want ErrBackendUnavailable", d, err)
		}
	}

	kps := []Keypoint{{X: 20, Y: 20}}
	for _, d := range []DescriptorType{DescriptorBRISK, DescriptorORB, DescriptorFREAK, DescriptorAKAZE, DescriptorSIFT} {
		if _, _, err := e.Describe(img, kps, d); !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("%s: got %v, want ErrBackendUnavailable", d, err)
		}
	}

	desc := &Descriptors{Binary: [][]byte{{0x01}}}
	if _, err := e.Match(desc, desc, MatcherFLANN, SelectorNN); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("FLANN: got %v, want ErrBackendUnavailable", err)
	}
}

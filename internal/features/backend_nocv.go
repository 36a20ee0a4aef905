//go:build !withcv

package features

import (
	"image"
)

// unavailableBackend rejects every OpenCV-only algorithm.
type unavailableBackend struct{}

func newDefaultBackend() Backend { return unavailableBackend{} }

func (unavailableBackend) Name() string { return "pure-go" }

func (unavailableBackend) Detect(*image.Gray, DetectorType, Params) ([]Keypoint, error) {
	return nil, ErrBackendUnavailable
}

func (unavailableBackend) Describe(*image.Gray, []Keypoint, DescriptorType, Params) ([]Keypoint, *Descriptors, error) {
	return nil, nil, ErrBackendUnavailable
}

func (unavailableBackend) KnnMatchFLANN(*Descriptors, *Descriptors, int) ([][]Match, error) {
	return nil, ErrBackendUnavailable
}

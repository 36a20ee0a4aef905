package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType is returned when a detector, descriptor, matcher or
	// selector name is not recognized.
	ErrUnknownType = errors.New("unknown type")

	// ErrBackendUnavailable is returned for algorithms that need OpenCV when
	// the binary was built without the withcv tag.
	ErrBackendUnavailable = errors.New("algorithm requires OpenCV (build with -tags withcv)")

	// ErrInvalidInput is returned for empty images or mismatched descriptors.
	ErrInvalidInput = errors.New("invalid input")
)

// DetectorType selects a keypoint detector.
type DetectorType int

const (
	DetectorShiTomasi DetectorType = iota
	DetectorHarris
	DetectorFAST
	DetectorBRISK
	DetectorORB
	DetectorAKAZE
	DetectorSIFT
)

var detectorNames = []string{"SHITOMASI", "HARRIS", "FAST", "BRISK", "ORB", "AKAZE", "SIFT"}

func (d DetectorType) String() string {
	if int(d) < 0 || int(d) >= len(detectorNames) {
		return fmt.Sprintf("DetectorType(%d)", int(d))
	}
	return detectorNames[d]
}

// ParseDetectorType accepts a detector name in any case.
func ParseDetectorType(s string) (DetectorType, error) {
	i, err := parseName(s, detectorNames, "detector")
	return DetectorType(i), err
}

func (d DetectorType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DetectorType) UnmarshalText(b []byte) error {
	v, err := ParseDetectorType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DetectorTypes lists every detector in declaration order.
func DetectorTypes() []DetectorType {
	out := make([]DetectorType, len(detectorNames))
	for i := range out {
		out[i] = DetectorType(i)
	}
	return out
}

// DescriptorType selects a descriptor extractor.
type DescriptorType int

const (
	DescriptorBRISK DescriptorType = iota
	DescriptorBRIEF
	DescriptorORB
	DescriptorFREAK
	DescriptorAKAZE
	DescriptorSIFT
)

var descriptorNames = []string{"BRISK", "BRIEF", "ORB", "FREAK", "AKAZE", "SIFT"}

func (d DescriptorType) String() string {
	if int(d) < 0 || int(d) >= len(descriptorNames) {
		return fmt.Sprintf("DescriptorType(%d)", int(d))
	}
	return descriptorNames[d]
}

// ParseDescriptorType accepts a descriptor name in any case.
func ParseDescriptorType(s string) (DescriptorType, error) {
	i, err := parseName(s, descriptorNames, "descriptor")
	return DescriptorType(i), err
}

func (d DescriptorType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DescriptorType) UnmarshalText(b []byte) error {
	v, err := ParseDescriptorType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Binary reports whether the descriptor is a bit string compared with the
// Hamming norm. SIFT is the only floating-point descriptor.
func (d DescriptorType) Binary() bool {
	return d != DescriptorSIFT
}

// MatcherType selects how candidate matches are searched.
type MatcherType int

const (
	MatcherBruteForce MatcherType = iota
	MatcherFLANN
)

var matcherNames = []string{"MAT_BF", "MAT_FLANN"}

func (m MatcherType) String() string {
	if int(m) < 0 || int(m) >= len(matcherNames) {
		return fmt.Sprintf("MatcherType(%d)", int(m))
	}
	return matcherNames[m]
}

// ParseMatcherType accepts MAT_BF or MAT_FLANN in any case.
func ParseMatcherType(s string) (MatcherType, error) {
	i, err := parseName(s, matcherNames, "matcher")
	return MatcherType(i), err
}

func (m MatcherType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MatcherType) UnmarshalText(b []byte) error {
	v, err := ParseMatcherType(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SelectorType selects how the final match is picked among candidates.
type SelectorType int

const (
	SelectorNN SelectorType = iota
	SelectorKNN
)

var selectorNames = []string{"SEL_NN", "SEL_KNN"}

func (s SelectorType) String() string {
	if int(s) < 0 || int(s) >= len(selectorNames) {
		return fmt.Sprintf("SelectorType(%d)", int(s))
	}
	return selectorNames[s]
}

// ParseSelectorType accepts SEL_NN or SEL_KNN in any case.
func ParseSelectorType(s string) (SelectorType, error) {
	i, err := parseName(s, selectorNames, "selector")
	return SelectorType(i), err
}

func (s SelectorType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SelectorType) UnmarshalText(b []byte) error {
	v, err := ParseSelectorType(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func parseName(s string, names []string, kind string) (int, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range names {
		if n == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q (want one of %s)", ErrUnknownType, kind, s, strings.Join(names, ", "))
}

// Keypoint is a detected interest point in image coordinates.
type Keypoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Angle    float64 `json:"angle"` // degrees, -1 when not computed
	Response float64 `json:"response"`
	Octave   int     `json:"octave"`
}

// Descriptors holds one descriptor row per keypoint. Exactly one of Binary
// and Float is populated.
type Descriptors struct {
	Binary [][]byte    `json:"binary,omitempty"`
	Float  [][]float32 `json:"float,omitempty"`
}

// Len returns the number of descriptor rows.
func (d *Descriptors) Len() int {
	if d == nil {
		return 0
	}
	if d.Float != nil {
		return len(d.Float)
	}
	return len(d.Binary)
}

// IsBinary reports whether rows are bit strings.
func (d *Descriptors) IsBinary() bool {
	return d != nil && d.Float == nil
}

// Match pairs a query descriptor row with a train descriptor row.
type Match struct {
	QueryIdx int     `json:"query_idx"`
	TrainIdx int     `json:"train_idx"`
	Distance float64 `json:"distance"`
}

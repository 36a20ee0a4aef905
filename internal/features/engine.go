package features

import (
	"fmt"
	"image"
	"time"

	"github.com/ericwilliamsneu/SFND-2D-Feature-Tracking/internal/logger"
)

// Backend runs the algorithms that are delegated to OpenCV.
type Backend interface {
	// Name identifies the backend in the "backend" log field.
	Name() string

	// Detect runs one of BRISK, ORB, AKAZE or SIFT.
	Detect(gray *image.Gray, t DetectorType, p Params) ([]Keypoint, error)

	// Describe computes descriptors of type t. The returned keypoints may
	// be a subset of kps when the extractor drops points near the border.
	Describe(gray *image.Gray, kps []Keypoint, t DescriptorType, p Params) ([]Keypoint, *Descriptors, error)

	// KnnMatchFLANN returns up to k nearest train rows for every query row.
	KnnMatchFLANN(query, train *Descriptors, k int) ([][]Match, error)
}

// Engine dispatches detection, description and matching to the pure-Go
// implementations or the OpenCV backend, and logs the timing of each call.
type Engine struct {
	params  Params
	log     logger.Logger
	backend Backend
}

// NewEngine returns an Engine using the backend selected at build time.
// A nil logger discards output.
func NewEngine(params Params, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop{}
	}
	e := &Engine{
		params:  params,
		log:     log,
		backend: newDefaultBackend(),
	}
	log.Debug("engine", "engine ready", map[string]interface{}{"backend": e.backend.Name()})
	return e
}

// WithBackend replaces the OpenCV backend.
func (e *Engine) WithBackend(b Backend) *Engine {
	e.backend = b
	return e
}

// pureGo names the in-process implementations in the "backend" log field.
const pureGo = "go"

// Params returns the engine's parameters.
func (e *Engine) Params() Params { return e.params }

// Detect finds keypoints in a grayscale image.
func (e *Engine) Detect(gray *image.Gray, t DetectorType) ([]Keypoint, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	start := time.Now()
	var (
		kps []Keypoint
		err error
	)
	backend := pureGo
	switch t {
	case DetectorHarris:
		kps, err = detectHarris(gray, e.params.Harris, e.params.Workers)
	case DetectorShiTomasi:
		kps, err = detectShiTomasi(gray, e.params.ShiTomasi)
	case DetectorFAST:
		kps = detectFAST(gray, e.params.FAST)
	case DetectorBRISK, DetectorORB, DetectorAKAZE, DetectorSIFT:
		backend = e.backend.Name()
		kps, err = e.backend.Detect(gray, t, e.params)
	default:
		err = fmt.Errorf("%w: detector %s", ErrUnknownType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("%s detection failed: %w", t, err)
	}

	elapsed := time.Since(start)
	e.log.Info("detector", fmt.Sprintf("%s detection with n=%d keypoints in %.3f ms", t, len(kps), ms(elapsed)), map[string]interface{}{
		"detector":  t.String(),
		"backend":   backend,
		"keypoints": len(kps),
		"elapsed":   elapsed,
	})
	return kps, nil
}

// Describe computes one descriptor per keypoint. Keypoints the extractor
// cannot describe are dropped; the returned slice is aligned with the
// descriptor rows.
func (e *Engine) Describe(gray *image.Gray, kps []Keypoint, t DescriptorType) ([]Keypoint, *Descriptors, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	start := time.Now()
	var (
		kept []Keypoint
		desc *Descriptors
		err  error
	)
	backend := pureGo
	switch t {
	case DescriptorBRIEF:
		kept, desc = describeBRIEF(gray, kps)
	case DescriptorBRISK, DescriptorORB, DescriptorFREAK, DescriptorAKAZE, DescriptorSIFT:
		backend = e.backend.Name()
		kept, desc, err = e.backend.Describe(gray, kps, t, e.params)
	default:
		err = fmt.Errorf("%w: descriptor %s", ErrUnknownType, t)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s descriptor extraction failed: %w", t, err)
	}

	elapsed := time.Since(start)
	e.log.Info("descriptor", fmt.Sprintf("%s descriptor extraction in %.3f ms", t, ms(elapsed)), map[string]interface{}{
		"descriptor": t.String(),
		"backend":    backend,
		"keypoints":  len(kept),
		"dropped":    len(kps) - len(kept),
		"elapsed":    elapsed,
	})
	return kept, desc, nil
}

// Match finds correspondences from source (query) descriptors to reference
// (train) descriptors.
func (e *Engine) Match(src, ref *Descriptors, mt MatcherType, st SelectorType) ([]Match, error) {
	if src.Len() == 0 || ref.Len() == 0 {
		return []Match{}, nil
	}
	if src.IsBinary() != ref.IsBinary() {
		return nil, fmt.Errorf("%w: cannot match binary against float descriptors", ErrInvalidInput)
	}

	k := 1
	if st == SelectorKNN {
		k = 2
	} else if st != SelectorNN {
		return nil, fmt.Errorf("%w: selector %s", ErrUnknownType, st)
	}

	start := time.Now()
	var (
		knn [][]Match
		err error
	)
	backend := pureGo
	switch mt {
	case MatcherBruteForce:
		if e.params.Match.CrossCheck && st == SelectorNN {
			knn, err = crossCheckMatch(src, ref)
		} else {
			knn, err = bruteForceKnn(src, ref, k)
		}
	case MatcherFLANN:
		backend = e.backend.Name()
		knn, err = e.backend.KnnMatchFLANN(src, ref, k)
	default:
		err = fmt.Errorf("%w: matcher %s", ErrUnknownType, mt)
	}
	if err != nil {
		return nil, fmt.Errorf("%s matching failed: %w", mt, err)
	}

	var matches []Match
	if st == SelectorKNN {
		matches = ratioFilter(knn, e.params.Match.KNNRatio)
	} else {
		matches = firstOfEach(knn)
	}

	elapsed := time.Since(start)
	e.log.Info("matcher", fmt.Sprintf("%s/%s matched n=%d in %.3f ms", mt, st, len(matches), ms(elapsed)), map[string]interface{}{
		"matcher":   mt.String(),
		"selector":  st.String(),
		"backend":   backend,
		"matches":   len(matches),
		"discarded": src.Len() - len(matches),
		"elapsed":   elapsed,
	})
	return matches, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

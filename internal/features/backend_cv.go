//go:build withcv

package features

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// opencvBackend runs BRISK, ORB, AKAZE and SIFT through gocv. BRISK takes
// its threshold, octaves and pattern scale from Params.BRISK.
type opencvBackend struct{}

func newDefaultBackend() Backend { return opencvBackend{} }

func (opencvBackend) Name() string { return "opencv" }

// cvFeature2D is the subset of gocv's Feature2D wrappers used here.
type cvFeature2D interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

func newFeature2D(name string, p Params) (cvFeature2D, error) {
	switch name {
	case "BRISK":
		f := gocv.NewBRISKWithParams(p.BRISK.Threshold, p.BRISK.Octaves, float32(p.BRISK.PatternScale))
		return &f, nil
	case "ORB":
		f := gocv.NewORB()
		return &f, nil
	case "AKAZE":
		f := gocv.NewAKAZE()
		return &f, nil
	case "SIFT":
		f := gocv.NewSIFT()
		return &f, nil
	default:
		return nil, fmt.Errorf("%w: %s is not exposed by gocv", ErrBackendUnavailable, name)
	}
}

func (opencvBackend) Detect(gray *image.Gray, t DetectorType, p Params) ([]Keypoint, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	det, err := newFeature2D(t.String(), p)
	if err != nil {
		return nil, err
	}
	defer det.Close()

	return fromCV(det.Detect(src)), nil
}

func (opencvBackend) Describe(gray *image.Gray, kps []Keypoint, t DescriptorType, p Params) ([]Keypoint, *Descriptors, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	ext, err := newFeature2D(t.String(), p)
	if err != nil {
		return nil, nil, err
	}
	defer ext.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	kept, mat := ext.Compute(src, mask, toCV(kps))
	defer mat.Close()

	desc, err := descriptorsFromMat(mat)
	if err != nil {
		return nil, nil, err
	}
	return fromCV(kept), desc, nil
}

func (opencvBackend) KnnMatchFLANN(query, train *Descriptors, k int) ([][]Match, error) {
	// FLANN only indexes float data; binary descriptors are widened.
	q, err := floatMat(query)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	tr, err := floatMat(train)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	matcher := gocv.NewFlannBasedMatcher()
	defer matcher.Close()

	raw := matcher.KnnMatch(q, tr, k)
	out := make([][]Match, len(raw))
	for i, cands := range raw {
		out[i] = make([]Match, len(cands))
		for j, m := range cands {
			out[i][j] = Match{QueryIdx: m.QueryIdx, TrainIdx: m.TrainIdx, Distance: m.Distance}
		}
	}
	return out, nil
}

func toCV(kps []Keypoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
			ClassID:  -1,
		}
	}
	return out
}

func fromCV(kps []gocv.KeyPoint) []Keypoint {
	out := make([]Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}
	return out
}

func descriptorsFromMat(mat gocv.Mat) (*Descriptors, error) {
	rows, cols := mat.Rows(), mat.Cols()
	if mat.Empty() {
		return &Descriptors{Binary: [][]byte{}}, nil
	}

	switch mat.Type() {
	case gocv.MatTypeCV8U:
		data := mat.ToBytes()
		out := make([][]byte, rows)
		for r := range out {
			out[r] = append([]byte(nil), data[r*cols:(r+1)*cols]...)
		}
		return &Descriptors{Binary: out}, nil
	case gocv.MatTypeCV32F:
		data, err := mat.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("failed to read descriptors: %w", err)
		}
		out := make([][]float32, rows)
		for r := range out {
			out[r] = append([]float32(nil), data[r*cols:(r+1)*cols]...)
		}
		return &Descriptors{Float: out}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported descriptor mat type %v", ErrInvalidInput, mat.Type())
	}
}

func floatMat(d *Descriptors) (gocv.Mat, error) {
	rows := d.Len()
	if rows == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: no descriptors", ErrInvalidInput)
	}

	var cols int
	if d.IsBinary() {
		cols = len(d.Binary[0])
	} else {
		cols = len(d.Float[0])
	}
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if d.IsBinary() {
				mat.SetFloatAt(r, c, float32(d.Binary[r][c]))
			} else {
				mat.SetFloatAt(r, c, d.Float[r][c])
			}
		}
	}
	return mat, nil
}

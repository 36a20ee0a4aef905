package features

import (
	"image"
	"math"
	"math/rand"

	"github.com/anthonynsimon/bild/blur"
)

const (
	briefBytes      = 32 // 256 binary tests
	briefPatchSize  = 48
	briefKernelSize = 9
	briefSeed       = 0x5eed
)

// briefBorder is the margin a keypoint needs so every test point of the
// smoothed patch lies inside the image.
const briefBorder = briefPatchSize/2 + briefKernelSize/2

// briefPair is one intensity comparison inside the patch.
type briefPair struct {
	x1, y1, x2, y2 int
}

// briefPattern is sampled once from an isotropic Gaussian centered on the
// keypoint (sigma = patch/5), clipped to the patch.
var briefPattern = newBRIEFPattern()

func newBRIEFPattern() []briefPair {
	rng := rand.New(rand.NewSource(briefSeed))
	half := briefPatchSize / 2
	sigma := float64(briefPatchSize) / 5
	sample := func() int {
		v := int(math.Round(rng.NormFloat64() * sigma))
		if v < -half {
			return -half
		}
		if v > half {
			return half
		}
		return v
	}

	pairs := make([]briefPair, briefBytes*8)
	for i := range pairs {
		pairs[i] = briefPair{sample(), sample(), sample(), sample()}
	}
	return pairs
}

// describeBRIEF smooths the image and evaluates the binary test pattern
// around every keypoint far enough from the border.
func describeBRIEF(gray *image.Gray, kps []Keypoint) ([]Keypoint, *Descriptors) {
	bounds := gray.Bounds()
	smoothed := blur.Gaussian(gray, 2.0)

	// x, y are relative to the image origin; R == G == B for gray input
	at := func(x, y int) uint8 {
		return smoothed.Pix[y*smoothed.Stride+x*4]
	}

	kept := make([]Keypoint, 0, len(kps))
	rows := make([][]byte, 0, len(kps))
	for _, kp := range kps {
		cx := int(math.Round(kp.X)) - bounds.Min.X
		cy := int(math.Round(kp.Y)) - bounds.Min.Y
		if cx < briefBorder || cy < briefBorder || cx >= bounds.Dx()-briefBorder || cy >= bounds.Dy()-briefBorder {
			continue
		}

		desc := make([]byte, briefBytes)
		for i, p := range briefPattern {
			if at(cx+p.x1, cy+p.y1) < at(cx+p.x2, cy+p.y2) {
				desc[i/8] |= 1 << uint(i%8)
			}
		}
		kept = append(kept, kp)
		rows = append(rows, desc)
	}

	return kept, &Descriptors{Binary: rows}
}

package corners

import (
	"fmt"
	"image"
	"math"
)

// HarrisResponse computes the Harris corner measure for every pixel.
//
// Parameters:
//   - gray: Source image. Must be non-empty.
//   - blockSize: Side of the neighborhood over which the gradient covariance
//     is summed. Must be >= 1.
//   - apertureSize: Sobel aperture, one of 1, 3, 5, 7.
//   - k: Harris free parameter, typically 0.04 to 0.06.
//
// # Algorithm
//
//  1. Sobel derivatives Ix, Iy with the requested aperture
//  2. Covariance M = [ΣIx² ΣIxIy; ΣIxIy ΣIy²] over a blockSize block
//  3. R = det(M) - k * trace(M)²
//
// Border pixels use clamped (replicated) edge values. The raw response is
// returned; use Normalize to bring it into a fixed range.
func HarrisResponse(gray *image.Gray, blockSize, apertureSize int, k float64) (*ResponseMap, error) {
	return covarianceResponse(gray, blockSize, apertureSize, func(a, b, c float64) float64 {
		det := a*c - b*b
		trace := a + c
		return det - k*trace*trace
	})
}

// MinEigenResponse computes the smaller eigenvalue of the gradient
// covariance matrix for every pixel, the Shi-Tomasi corner score.
func MinEigenResponse(gray *image.Gray, blockSize, apertureSize int) (*ResponseMap, error) {
	return covarianceResponse(gray, blockSize, apertureSize, func(a, b, c float64) float64 {
		half := (a - c) / 2
		return (a+c)/2 - math.Sqrt(half*half+b*b)
	})
}

func covarianceResponse(gray *image.Gray, blockSize, apertureSize int, score func(a, b, c float64) float64) (*ResponseMap, error) {
	if gray == nil || gray.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidInput, blockSize)
	}
	deriv, smooth, err := sobelKernels(apertureSize)
	if err != nil {
		return nil, err
	}

	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	src := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src[y*width+x] = float64(gray.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
		}
	}

	ix := separable(src, width, height, deriv, smooth)
	iy := separable(src, width, height, smooth, deriv)

	xx := make([]float64, len(src))
	xy := make([]float64, len(src))
	yy := make([]float64, len(src))
	for i := range src {
		xx[i] = ix[i] * ix[i]
		xy[i] = ix[i] * iy[i]
		yy[i] = iy[i] * iy[i]
	}
	xx = boxSum(xx, width, height, blockSize)
	xy = boxSum(xy, width, height, blockSize)
	yy = boxSum(yy, width, height, blockSize)

	m := &ResponseMap{rows: height, cols: width, data: make([]float64, len(src))}
	for i := range m.data {
		m.data[i] = score(xx[i], xy[i], yy[i])
	}
	return m, nil
}

// sobelKernels returns the first-derivative and smoothing kernels of a
// Sobel operator with the given aperture.
func sobelKernels(aperture int) ([]float64, []float64, error) {
	switch aperture {
	case 1:
		return []float64{-1, 0, 1}, []float64{1}, nil
	case 3, 5, 7:
	default:
		return nil, nil, fmt.Errorf("%w: aperture size %d (want 1, 3, 5 or 7)", ErrInvalidInput, aperture)
	}

	smooth := binomial(aperture - 1)
	base := binomial(aperture - 2)
	deriv := make([]float64, aperture)
	// base convolved with [-1, 1]
	for i, v := range base {
		deriv[i] -= v
		deriv[i+1] += v
	}
	return deriv, smooth, nil
}

// binomial returns row n of Pascal's triangle.
func binomial(n int) []float64 {
	row := []float64{1}
	for i := 0; i < n; i++ {
		next := make([]float64, len(row)+1)
		for j, v := range row {
			next[j] += v
			next[j+1] += v
		}
		row = next
	}
	return row
}

// separable correlates src with kx along rows and then ky along columns.
func separable(src []float64, width, height int, kx, ky []float64) []float64 {
	tmp := make([]float64, len(src))
	rx := len(kx) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, w := range kx {
				px := clamp(x+i-rx, 0, width-1)
				sum += src[y*width+px] * w
			}
			tmp[y*width+x] = sum
		}
	}

	out := make([]float64, len(src))
	ry := len(ky) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for i, w := range ky {
				py := clamp(y+i-ry, 0, height-1)
				sum += tmp[py*width+x] * w
			}
			out[y*width+x] = sum
		}
	}
	return out
}

// boxSum sums each pixel's block x block neighborhood, anchored at block/2.
func boxSum(src []float64, width, height, block int) []float64 {
	anchor := block / 2
	out := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for dy := 0; dy < block; dy++ {
				py := clamp(y+dy-anchor, 0, height-1)
				for dx := 0; dx < block; dx++ {
					px := clamp(x+dx-anchor, 0, width-1)
					sum += src[py*width+px]
				}
			}
			out[y*width+x] = sum
		}
	}
	return out
}

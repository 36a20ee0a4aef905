package corners

import (
	"sync"
)

// Params controls the response operator and the local-maximum picker.
type Params struct {
	// BlockSize is the side of the neighborhood summed by the response
	// operator. The picker itself does not read it.
	BlockSize int `json:"block_size" yaml:"block_size"`

	// ApertureSize is the odd Sobel aperture. The picker uses it as the
	// window half-width and derives the keypoint size from it.
	ApertureSize int `json:"aperture_size" yaml:"aperture_size"`

	// MinResponse is the inclusive lower bound for a candidate response.
	MinResponse float64 `json:"min_response" yaml:"min_response"`
}

// WindowRadius returns the half-width of the square suppression window.
func (p Params) WindowRadius() int {
	d := (2 * p.ApertureSize) / 2
	if d < 0 {
		return 0
	}
	return d
}

// Keypoint is a pixel selected as a local response maximum.
type Keypoint struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Size     float64 `json:"size"`
	Response float64 `json:"response"`
}

// Pick scans the map in row-major order and returns every pixel whose
// response is at least p.MinResponse and equal to the largest qualifying
// response inside its clipped window.
//
// A nil map yields no keypoints.
func Pick(m *ResponseMap, p Params) []Keypoint {
	if m == nil {
		return []Keypoint{}
	}
	return pickRows(m, p, 0, m.rows)
}

// PickParallel returns the same keypoints as Pick, in the same order, with
// rows split across the given number of goroutines.
func PickParallel(m *ResponseMap, p Params, workers int) []Keypoint {
	if m == nil {
		return []Keypoint{}
	}
	if workers > m.rows {
		workers = m.rows
	}
	if workers <= 1 {
		return pickRows(m, p, 0, m.rows)
	}

	parts := make([][]Keypoint, workers)
	chunk := (m.rows + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > m.rows {
			end = m.rows
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			parts[w] = pickRows(m, p, start, end)
		}(w, start, end)
	}
	wg.Wait()

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	out := make([]Keypoint, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// pickRows runs the window test over rows [rowStart, rowEnd).
func pickRows(m *ResponseMap, p Params, rowStart, rowEnd int) []Keypoint {
	d := p.WindowRadius()
	size := float64(2 * p.ApertureSize)
	out := make([]Keypoint, 0)

	for r := rowStart; r < rowEnd; r++ {
		rMin, rMax := clamp(r-d, 0, m.rows-1), clamp(r+d, 0, m.rows-1)
		for c := 0; c < m.cols; c++ {
			cur := m.At(r, c)
			if cur < p.MinResponse {
				continue
			}

			cMin, cMax := clamp(c-d, 0, m.cols-1), clamp(c+d, 0, m.cols-1)
			maxInWindow := cur
			for wr := rMin; wr <= rMax; wr++ {
				row := m.data[wr*m.cols : (wr+1)*m.cols]
				for wc := cMin; wc <= cMax; wc++ {
					if v := row[wc]; v >= p.MinResponse && v > maxInWindow {
						maxInWindow = v
					}
				}
			}

			if cur == maxInWindow {
				out = append(out, Keypoint{Row: r, Col: c, Size: size, Response: cur})
			}
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

package corners

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidInput is returned when a map or image is empty, ragged, or the
// operator parameters are out of range.
var ErrInvalidInput = errors.New("invalid input")

// ResponseMap is a dense rows x cols grid of corner scores stored row-major.
//
// Values are not modified after construction; every transform returns a
// new map.
type ResponseMap struct {
	rows int
	cols int
	data []float64
}

// NewResponseMap returns a zero-filled map of the given size.
func NewResponseMap(rows, cols int) (*ResponseMap, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: map size %dx%d", ErrInvalidInput, rows, cols)
	}
	return &ResponseMap{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}, nil
}

// FromRows builds a map from a slice of equal-length rows. The input is
// copied. An empty input or rows of differing length are rejected.
func FromRows(values [][]float64) (*ResponseMap, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, fmt.Errorf("%w: empty response map", ErrInvalidInput)
	}
	cols := len(values[0])
	for r, row := range values {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidInput, r, len(row), cols)
		}
	}

	m, err := NewResponseMap(len(values), cols)
	if err != nil {
		return nil, err
	}
	for r, row := range values {
		copy(m.data[r*cols:(r+1)*cols], row)
	}
	return m, nil
}

// Rows returns the map height.
func (m *ResponseMap) Rows() int { return m.rows }

// Cols returns the map width.
func (m *ResponseMap) Cols() int { return m.cols }

// At returns the response at (row, col). The caller must keep the indices
// inside the map.
func (m *ResponseMap) At(row, col int) float64 {
	return m.data[row*m.cols+col]
}

// Row returns a copy of a single row.
func (m *ResponseMap) Row(row int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[row*m.cols:(row+1)*m.cols])
	return out
}

// MinMax returns the smallest and largest response in the map.
func (m *ResponseMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Mean returns the arithmetic mean of all responses.
func (m *ResponseMap) Mean() float64 {
	return stat.Mean(m.data, nil)
}

// Normalize linearly rescales the map so its minimum maps to lo and its
// maximum to hi. A constant map is mapped to lo everywhere.
func (m *ResponseMap) Normalize(lo, hi float64) *ResponseMap {
	out := &ResponseMap{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	min, max := m.MinMax()
	span := max - min
	if span == 0 {
		for i := range out.data {
			out.data[i] = lo
		}
		return out
	}
	scale := (hi - lo) / span
	for i, v := range m.data {
		out.data[i] = lo + (v-min)*scale
	}
	return out
}

// Quantize truncates every response toward zero, producing integer levels.
// Responses that differ only in their fractional part then compare equal
// in the picker.
func (m *ResponseMap) Quantize() *ResponseMap {
	out := &ResponseMap{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i, v := range m.data {
		out.data[i] = math.Trunc(v)
	}
	return out
}

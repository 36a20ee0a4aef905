package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/steakknife/hamming"
)

// distance returns the Hamming distance for binary rows and the L2
// distance for float rows.
func distance(a, b *Descriptors, i, j int) float64 {
	if a.IsBinary() {
		return float64(hamming.Bytes(a.Binary[i], b.Binary[j]))
	}
	var sum float64
	for k, v := range a.Float[i] {
		d := float64(v - b.Float[j][k])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func checkWidths(query, train *Descriptors) error {
	width := func(d *Descriptors, i int) int {
		if d.IsBinary() {
			return len(d.Binary[i])
		}
		return len(d.Float[i])
	}
	want := width(query, 0)
	for i := 0; i < query.Len(); i++ {
		if width(query, i) != want {
			return fmt.Errorf("%w: query row %d has width %d, want %d", ErrInvalidInput, i, width(query, i), want)
		}
	}
	for i := 0; i < train.Len(); i++ {
		if width(train, i) != want {
			return fmt.Errorf("%w: train row %d has width %d, want %d", ErrInvalidInput, i, width(train, i), want)
		}
	}
	return nil
}

// bruteForceKnn compares every query row with every train row and keeps
// the k closest, nearest first. Ties keep the lower train index.
func bruteForceKnn(query, train *Descriptors, k int) ([][]Match, error) {
	if err := checkWidths(query, train); err != nil {
		return nil, err
	}

	out := make([][]Match, query.Len())
	cands := make([]Match, train.Len())
	for i := 0; i < query.Len(); i++ {
		for j := 0; j < train.Len(); j++ {
			cands[j] = Match{QueryIdx: i, TrainIdx: j, Distance: distance(query, train, i, j)}
		}
		sort.SliceStable(cands, func(a, b int) bool {
			return cands[a].Distance < cands[b].Distance
		})
		n := k
		if n > len(cands) {
			n = len(cands)
		}
		out[i] = append([]Match(nil), cands[:n]...)
	}
	return out, nil
}

// crossCheckMatch keeps a nearest-neighbor pair only when it is mutual.
func crossCheckMatch(query, train *Descriptors) ([][]Match, error) {
	forward, err := bruteForceKnn(query, train, 1)
	if err != nil {
		return nil, err
	}
	backward, err := bruteForceKnn(train, query, 1)
	if err != nil {
		return nil, err
	}

	out := make([][]Match, 0, len(forward))
	for _, f := range forward {
		if len(f) == 0 {
			continue
		}
		b := backward[f[0].TrainIdx]
		if len(b) > 0 && b[0].TrainIdx == f[0].QueryIdx {
			out = append(out, f)
		}
	}
	return out, nil
}

// firstOfEach flattens k-NN lists into best matches.
func firstOfEach(knn [][]Match) []Match {
	out := make([]Match, 0, len(knn))
	for _, cands := range knn {
		if len(cands) > 0 {
			out = append(out, cands[0])
		}
	}
	return out
}

// ratioFilter applies the descriptor distance ratio test: the best match
// survives when its distance is below ratio times the second best. A query
// with a single candidate is kept.
func ratioFilter(knn [][]Match, ratio float64) []Match {
	out := make([]Match, 0, len(knn))
	for _, cands := range knn {
		switch {
		case len(cands) == 0:
		case len(cands) == 1:
			out = append(out, cands[0])
		case cands[0].Distance < ratio*cands[1].Distance:
			out = append(out, cands[0])
		}
	}
	return out
}

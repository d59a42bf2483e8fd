package align

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ZScore returns (x - mean) / std over the whole slice (population
// standard deviation, matching scipy's default). A zero-variance input
// returns all zeros rather than NaN.
func ZScore(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	mean := stat.Mean(x, nil)
	std := stat.PopStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// ZScoreRows z-scores a (trials x samples) matrix over all elements at
// once (the axis=None convention), preserving the row structure.
func ZScoreRows(rows [][]float64) [][]float64 {
	n := 0
	for _, row := range rows {
		n += len(row)
	}
	flat := make([]float64, 0, n)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	flat = ZScore(flat)

	out := make([][]float64, len(rows))
	off := 0
	for i, row := range rows {
		out[i] = flat[off : off+len(row)]
		off += len(row)
	}
	return out
}

// MaskedZScore computes mean and population std over only the samples
// where mask is true, then applies the transform to every sample.
// Confidence-gated channels are normalized this way so masked-out
// (zeroed) stretches do not bias the statistics.
func MaskedZScore(x []float64, mask []bool) ([]float64, error) {
	if len(x) != len(mask) {
		return nil, fmt.Errorf("masked zscore: %d samples vs %d mask entries", len(x), len(mask))
	}
	var selected []float64
	for i, v := range x {
		if mask[i] {
			selected = append(selected, v)
		}
	}
	out := make([]float64, len(x))
	if len(selected) == 0 {
		return out, nil
	}
	mean := stat.Mean(selected, nil)
	std := stat.PopStdDev(selected, nil)
	if std == 0 || math.IsNaN(std) {
		return out, nil
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, nil
}

// ZScoreNonZero normalizes using statistics of the non-zero samples
// only, applied to all samples. Used after row restriction, where zeros
// mark gated-out tongue samples.
func ZScoreNonZero(x []float64) []float64 {
	mask := make([]bool, len(x))
	for i, v := range x {
		mask[i] = v != 0
	}
	out, _ := MaskedZScore(x, mask)
	return out
}

// FlipIfInverted resolves the sign ambiguity of motion-decomposition
// components: the decomposition has no canonical sign convention, so a
// z-scored component whose median exceeds its mean by more than margin
// is assumed inverted (rest should dominate) and is negated. This is a
// documented heuristic, not a guaranteed orientation.
func FlipIfInverted(x []float64, margin float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if len(x) == 0 {
		return out
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	mean := stat.Mean(x, nil)
	if median > mean+margin {
		for i := range out {
			out[i] = -out[i]
		}
	}
	return out
}

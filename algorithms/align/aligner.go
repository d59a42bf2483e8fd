package align

import (
	"fmt"
	"math"
)

// Smoothing selects the pre-decimation smoother.
type Smoothing int

const (
	// BoxcarSmoothing is the default moving-average smoother.
	BoxcarSmoothing Smoothing = iota
	// MedianSmoothing is the running-median variant for outlier-prone
	// position channels.
	MedianSmoothing
)

// Aligner brings heterogeneous-rate channel traces onto one common time
// base: per-trial rows are concatenated, smoothed with a window of
// target-bin-width / native-sample-interval samples, and decimated by
// the same stride.
type Aligner struct {
	binWidth float64
}

// NewAligner creates an aligner targeting the given bin width (seconds).
func NewAligner(binWidth float64) (*Aligner, error) {
	if binWidth <= 0 {
		return nil, fmt.Errorf("aligner: bin width must be positive, got %g", binWidth)
	}
	return &Aligner{binWidth: binWidth}, nil
}

// BinWidth returns the target bin width in seconds.
func (a *Aligner) BinWidth() float64 { return a.binWidth }

// Window returns the smoothing/decimation stride for a channel sampled
// at the given native interval (seconds per sample).
func (a *Aligner) Window(nativeInterval float64) (int, error) {
	if nativeInterval <= 0 {
		return 0, fmt.Errorf("aligner: native sample interval must be positive, got %g", nativeInterval)
	}
	w := int(math.Round(a.binWidth / nativeInterval))
	if w < 1 {
		return 0, fmt.Errorf("aligner: bin width %g below native interval %g", a.binWidth, nativeInterval)
	}
	return w, nil
}

// AlignFlat smooths and decimates an already-concatenated channel.
func (a *Aligner) AlignFlat(flat []float64, nativeInterval float64, method Smoothing) ([]float64, error) {
	w, err := a.Window(nativeInterval)
	if err != nil {
		return nil, err
	}
	var smoothed []float64
	switch method {
	case BoxcarSmoothing:
		smoothed = MovingAverageSame(flat, w)
	case MedianSmoothing:
		smoothed = MedianFilterSame(flat, w)
	default:
		return nil, fmt.Errorf("aligner: unknown smoothing method %d", method)
	}
	return Decimate(smoothed, w), nil
}

// AlignRows concatenates per-trial rows and aligns the result. All
// trials must share a row length so the bin grid stays commensurate
// with trial boundaries.
func (a *Aligner) AlignRows(rows [][]float64, nativeInterval float64, method Smoothing) ([]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("aligner: no trials")
	}
	rowLen := len(rows[0])
	flat := make([]float64, 0, len(rows)*rowLen)
	for i, row := range rows {
		if len(row) != rowLen {
			return nil, fmt.Errorf("aligner: trial %d has %d samples, want %d", i, len(row), rowLen)
		}
		flat = append(flat, row...)
	}
	return a.AlignFlat(flat, nativeInterval, method)
}

// TruncateByTime keeps the samples whose timestamp is strictly below
// limit, clipping device traces that run past the video window.
func TruncateByTime(samples, timestamps []float64, limit float64) []float64 {
	n := len(samples)
	if len(timestamps) < n {
		n = len(timestamps)
	}
	var out []float64
	for i := range n {
		if timestamps[i] < limit {
			out = append(out, samples[i])
		}
	}
	return out
}

// SelectRows picks the rows at the given 0-based indices, the trial
// subsetting primitive for train/test partitioning.
func SelectRows(rows [][]float64, indices []int) ([][]float64, error) {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(rows) {
			return nil, fmt.Errorf("select rows: index %d out of range [0, %d)", idx, len(rows))
		}
		out[i] = rows[idx]
	}
	return out, nil
}

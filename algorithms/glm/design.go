package glm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Canonical predictor names in their fixed column order.
const (
	PredJawX      = "jaw_x"
	PredJawY      = "jaw_y"
	PredJawZ      = "jaw_z"
	PredTongueX   = "tongue_x"
	PredTongueY   = "tongue_y"
	PredTongueZ   = "tongue_z"
	PredBreathing = "breathing"
	PredWhisker   = "whisker"
	PredBody      = "body"
)

// DesignMatrix is a time-bins x predictors matrix with named columns.
type DesignMatrix struct {
	Names []string
	Data  *mat.Dense
}

// Rows returns the number of time bins.
func (m *DesignMatrix) Rows() int {
	r, _ := m.Data.Dims()
	return r
}

// Cols returns the number of predictors.
func (m *DesignMatrix) Cols() int {
	_, c := m.Data.Dims()
	return c
}

// Column returns a copy of the named predictor column.
func (m *DesignMatrix) Column(name string) ([]float64, error) {
	for j, n := range m.Names {
		if n == name {
			col := make([]float64, m.Rows())
			mat.Col(col, j, m.Data)
			return col, nil
		}
	}
	return nil, fmt.Errorf("design matrix: no predictor %q", name)
}

// Restrict returns a new matrix containing only the given row indices,
// in order.
func (m *DesignMatrix) Restrict(rows []int) (*DesignMatrix, error) {
	nRows := m.Rows()
	out := mat.NewDense(len(rows), m.Cols(), nil)
	for i, r := range rows {
		if r < 0 || r >= nRows {
			return nil, fmt.Errorf("design matrix: row %d out of range [0, %d)", r, nRows)
		}
		out.SetRow(i, m.Data.RawRowView(r))
	}
	return &DesignMatrix{Names: m.Names, Data: out}, nil
}

// Builder assembles named predictor columns into a DesignMatrix. Column
// length disagreement is a hard failure for the owning computation: it
// means the alignment upstream produced incommensurate bin grids.
type Builder struct {
	names []string
	cols  [][]float64
}

// NewBuilder creates an empty design-matrix builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a named predictor column.
func (b *Builder) Add(name string, col []float64) *Builder {
	b.names = append(b.names, name)
	b.cols = append(b.cols, col)
	return b
}

// Build validates and materializes the matrix.
func (b *Builder) Build() (*DesignMatrix, error) {
	if len(b.cols) == 0 {
		return nil, fmt.Errorf("design matrix: no predictors")
	}
	rows := len(b.cols[0])
	for j, col := range b.cols {
		if len(col) != rows {
			return nil, fmt.Errorf("design matrix: predictor %q has %d bins, want %d", b.names[j], len(col), rows)
		}
	}
	if rows == 0 {
		return nil, fmt.Errorf("design matrix: zero time bins")
	}
	data := mat.NewDense(rows, len(b.cols), nil)
	for j, col := range b.cols {
		data.SetCol(j, col)
	}
	return &DesignMatrix{Names: append([]string(nil), b.names...), Data: data}, nil
}

// SplitTrials partitions n trials (by position, in trial order) into a
// deterministic holdout: every 5th trial starting with the first is
// test, the rest train. Bit-identical across reruns by construction.
func SplitTrials(n int) (train, test []int) {
	for i := range n {
		if i%5 == 0 {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

// NonBoutIndices returns the time-bin indices lying at least guard
// seconds outside every [onset, offset] bout interval, for analyses
// that exclude licking-related variance.
func NonBoutIndices(numBins int, binWidth float64, onsets, offsets []float64, guard float64) ([]int, error) {
	if len(onsets) != len(offsets) {
		return nil, fmt.Errorf("non-bout indices: %d onsets vs %d offsets", len(onsets), len(offsets))
	}
	var keep []int
	for i := range numBins {
		t := float64(i) * binWidth
		inside := false
		for k := range onsets {
			if t > onsets[k]-guard && t < offsets[k]+guard {
				inside = true
				break
			}
		}
		if !inside {
			keep = append(keep, i)
		}
	}
	return keep, nil
}

// BinSpikes places per-trial spike trains on the concatenated session
// clock (spikes past the trial window are clipped, then offset by the
// trial's position) and counts them into numBins bins of binWidth.
func BinSpikes(spikes [][]float64, trialDuration, binWidth float64, numBins int) ([]float64, error) {
	if trialDuration <= 0 || binWidth <= 0 {
		return nil, fmt.Errorf("bin spikes: non-positive duration (%g) or bin width (%g)", trialDuration, binWidth)
	}
	counts := make([]float64, numBins)
	for trial, train := range spikes {
		offset := trialDuration * float64(trial)
		for _, t := range train {
			if t >= trialDuration || t < 0 {
				continue
			}
			bin := int((t + offset) / binWidth)
			if bin >= 0 && bin < numBins {
				counts[bin]++
			}
		}
	}
	return counts, nil
}

// Roll circularly shifts y by tau bins (positive tau moves samples
// toward higher indices, wrapping at the end).
func Roll(y []float64, tau int) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	shift := ((tau % n) + n) % n
	for i, v := range y {
		out[(i+shift)%n] = v
	}
	return out
}

package align

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovingAverageSame(t *testing.T) {
	x := []float64{1, 1, 1, 1, 1, 1}

	out := MovingAverageSame(x, 3)
	require.Len(t, out, len(x))
	// Interior samples see the full kernel, edges a truncated one.
	for i := 1; i < len(x)-1; i++ {
		assert.InDelta(t, 1.0, out[i], 1e-12, "sample %d", i)
	}
	assert.InDelta(t, 2.0/3, out[0], 1e-12)
	assert.InDelta(t, 2.0/3, out[len(x)-1], 1e-12)

	assert.Equal(t, x, MovingAverageSame(x, 1))
}

func TestMedianFilterSuppressesSpikes(t *testing.T) {
	x := []float64{5, 5, 5, 100, 5, 5, 5}
	out := MedianFilterSame(x, 3)
	require.Len(t, out, len(x))
	assert.InDelta(t, 5.0, out[3], 1e-12)
}

func TestDecimate(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	out := Decimate(x, 3)
	assert.Equal(t, []float64{3, 6, 9}, out)
	assert.Len(t, out, DecimatedLen(len(x), 3))

	assert.Nil(t, Decimate(x, 0))
	assert.Zero(t, DecimatedLen(2, 3))
}

func TestFourierResampleSinusoid(t *testing.T) {
	const n = 200
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 3 * float64(i) / n)
	}

	tests := []struct {
		name string
		num  int
	}{
		{"downsample", 120},
		{"upsample", 300},
		{"identity", n},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FourierResample(x, tt.num)
			require.NoError(t, err)
			require.Len(t, out, tt.num)
			// A low-frequency sinusoid survives resampling intact.
			for i := range out {
				want := math.Sin(2 * math.Pi * 3 * float64(i) / float64(tt.num))
				assert.InDelta(t, want, out[i], 1e-6, "sample %d", i)
			}
		})
	}

	_, err := FourierResample(nil, 10)
	assert.Error(t, err)
	_, err = FourierResample(x, 0)
	assert.Error(t, err)
}

func TestZScore(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	out := ZScore(x)

	mean, variance := 0.0, 0.0
	for _, v := range out {
		mean += v
	}
	mean /= float64(len(out))
	for _, v := range out {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(out))

	assert.InDelta(t, 0.0, mean, 1e-12)
	assert.InDelta(t, 1.0, variance, 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, ZScore([]float64{7, 7, 7}))
	assert.Empty(t, ZScore(nil))
}

func TestZScoreRowsSharedStatistics(t *testing.T) {
	rows := [][]float64{{0, 0, 0}, {10, 10, 10}}
	out := ZScoreRows(rows)
	require.Len(t, out, 2)
	// One population of {0,10}: both rows map symmetrically around 0.
	assert.InDelta(t, -1.0, out[0][0], 1e-12)
	assert.InDelta(t, 1.0, out[1][0], 1e-12)
}

func TestMaskedZScore(t *testing.T) {
	x := []float64{1, 2, 3, 100, 200}
	mask := []bool{true, true, true, false, false}

	out, err := MaskedZScore(x, mask)
	require.NoError(t, err)
	// Statistics come from {1,2,3}: mean 2, population std sqrt(2/3).
	std := math.Sqrt(2.0 / 3)
	assert.InDelta(t, -1/std, out[0], 1e-12)
	assert.InDelta(t, 0.0, out[1], 1e-12)
	assert.InDelta(t, (100-2.0)/std, out[3], 1e-9)

	_, err = MaskedZScore(x, mask[:2])
	assert.Error(t, err)

	allMasked, err := MaskedZScore([]float64{1, 2}, []bool{false, false})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, allMasked)
}

func TestZScoreNonZero(t *testing.T) {
	x := []float64{0, 0, 1, 2, 3, 0}
	out := ZScoreNonZero(x)
	// Gated-out zeros do not shape the statistics.
	std := math.Sqrt(2.0 / 3)
	assert.InDelta(t, (0-2.0)/std, out[0], 1e-12)
	assert.InDelta(t, 0.0, out[3], 1e-12)
}

func TestFlipIfInverted(t *testing.T) {
	// Mostly-high signal with rare dips: median above mean, flipped.
	inverted := []float64{1, 1, 1, 1, 1, 1, 1, 1, -5, -5}
	out := FlipIfInverted(inverted, 0.1)
	assert.InDelta(t, -1.0, out[0], 1e-12)
	assert.InDelta(t, 5.0, out[8], 1e-12)

	// Mostly-low signal with rare bursts: kept as-is.
	upright := []float64{0, 0, 0, 0, 0, 0, 0, 0, 5, 5}
	assert.Equal(t, upright, FlipIfInverted(upright, 0.1))
}

func TestTongueGate(t *testing.T) {
	side := [][]float64{{0.99, 0.99, 0.2}}
	bottom := [][]float64{{0.99, 0.5, 0.99}}

	gate, err := TongueGate(side, bottom, 0.95)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, gate[0])

	_, err = TongueGate(side, nil, 0.95)
	assert.Error(t, err)
	_, err = TongueGate(side, [][]float64{{0.99}}, 0.95)
	assert.Error(t, err)
}

func TestRebinarizeGate(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 0, 0}, RebinarizeGate([]float64{0.2, 1, 0.999, 0}))
}

func TestApplyGate(t *testing.T) {
	out, err := ApplyGate([]float64{3, 4, 5}, []float64{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 5}, out)

	_, err = ApplyGate([]float64{1}, []float64{1, 0})
	assert.Error(t, err)
}

func TestAlignerWindow(t *testing.T) {
	a, err := NewAligner(0.017)
	require.NoError(t, err)

	w, err := a.Window(0.0034)
	require.NoError(t, err)
	assert.Equal(t, 5, w)

	_, err = a.Window(0)
	assert.Error(t, err)
	_, err = a.Window(0.05)
	assert.Error(t, err)

	_, err = NewAligner(0)
	assert.Error(t, err)
}

func TestAlignRows(t *testing.T) {
	a, err := NewAligner(0.02)
	require.NoError(t, err)

	rows := [][]float64{make([]float64, 100), make([]float64, 100)}
	for _, row := range rows {
		for i := range row {
			row[i] = 1
		}
	}
	out, err := a.AlignRows(rows, 0.005, BoxcarSmoothing)
	require.NoError(t, err)
	// 200 samples at stride 4.
	assert.Len(t, out, DecimatedLen(200, 4))
	for i, v := range out {
		assert.InDelta(t, 1.0, v, 1e-12, "bin %d", i)
	}

	_, err = a.AlignRows([][]float64{{1, 2}, {1}}, 0.005, BoxcarSmoothing)
	assert.Error(t, err)
	_, err = a.AlignRows(nil, 0.005, BoxcarSmoothing)
	assert.Error(t, err)
}

func TestTruncateByTime(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	timestamps := []float64{0, 0.1, 0.2, 0.3}
	assert.Equal(t, []float64{1, 2}, TruncateByTime(samples, timestamps, 0.2))
	assert.Nil(t, TruncateByTime(samples, timestamps, 0))
}

func TestSelectRows(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	out, err := SelectRows(rows, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}, {1}}, out)

	_, err = SelectRows(rows, []int{3})
	assert.Error(t, err)
}

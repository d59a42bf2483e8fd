package tuning

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binCenters(numBins int) []float64 {
	width := 2 * math.Pi / float64(numBins)
	x := make([]float64, numBins)
	for i := range x {
		x[i] = (float64(i) + 0.5) * width
	}
	return x
}

func TestFitCosineRecovery(t *testing.T) {
	tests := []struct {
		name      string
		baseline  float64
		amplitude float64
		phase     float64
	}{
		{"quarter phase", 10, 3, math.Pi / 4},
		{"opposite phase", 5, 2, 3 * math.Pi / 2},
		{"near wrap", 8, 1, 6.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := binCenters(20)
			y := make([]float64, len(x))
			for i, v := range x {
				y[i] = tt.baseline + tt.amplitude*math.Cos(v-tt.phase)
			}
			phi, mi := FitCosine(x, y)
			assert.InDelta(t, tt.phase, phi, 1e-9)
			assert.InDelta(t, tt.amplitude, mi, 1e-9)
		})
	}
}

func TestFitCosineSkipsNaN(t *testing.T) {
	x := binCenters(20)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 4 + 2*math.Cos(v-1)
	}
	y[3] = math.NaN()
	y[17] = math.NaN()

	phi, mi := FitCosine(x, y)
	assert.InDelta(t, 1.0, phi, 1e-9)
	assert.InDelta(t, 2.0, mi, 1e-9)
}

func TestFitCosineDegenerate(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"too few bins", []float64{1, 2}, []float64{3, 4}},
		{"flat curve", binCenters(20), make([]float64, 20)},
		{"all nan", binCenters(4), []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phi, mi := FitCosine(tt.x, tt.y)
			assert.Zero(t, phi)
			assert.Zero(t, mi)
		})
	}
}

func TestNewCurveNormalization(t *testing.T) {
	const sampleRate = 100.0
	params := DefaultCurveParams(sampleRate)

	// Uniform occupancy of two samples per bin, spikes only in bin 0.
	width := 2 * math.Pi / float64(params.NumBins)
	var all []float64
	for i := range params.NumBins {
		all = append(all, (float64(i)+0.25)*width, (float64(i)+0.75)*width)
	}
	spikes := []float64{0.1 * width, 0.5 * width}

	curve, err := NewCurve(spikes, all, params)
	require.NoError(t, err)
	require.Len(t, curve.Rates, params.NumBins)

	// 2 spikes over 2 occupancy samples at 100 Hz.
	assert.InDelta(t, sampleRate, curve.Rates[0], 1e-9)
	for i := 1; i < params.NumBins; i++ {
		assert.Zero(t, curve.Rates[i], "bin %d", i)
	}
	assert.InDelta(t, width/2, curve.BinCenters[0], 1e-12)
}

func TestNewCurveEmptyBinIsNaN(t *testing.T) {
	params := CurveParams{NumBins: 4, SampleRate: 10}
	// Occupancy only in the first bin.
	curve, err := NewCurve([]float64{0.1}, []float64{0.1, 0.2}, params)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(curve.Rates[0]))
	for i := 1; i < 4; i++ {
		assert.True(t, math.IsNaN(curve.Rates[i]), "bin %d", i)
	}
}

func TestNewCurveValidation(t *testing.T) {
	_, err := NewCurve(nil, nil, CurveParams{NumBins: 0, SampleRate: 10})
	assert.Error(t, err)
	_, err = NewCurve(nil, nil, CurveParams{NumBins: 20, SampleRate: 0})
	assert.Error(t, err)
}

func TestPermutationTesterDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	all := make([]float64, 2000)
	for i := range all {
		all[i] = rng.Float64() * 2 * math.Pi
	}
	params := DefaultPermutationParams()
	curveParams := DefaultCurveParams(100)

	run := func() *PermutationResult {
		tester, err := NewPermutationTester(params)
		require.NoError(t, err)
		res, err := tester.Test(0.5, all, 50, curveParams)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.NullMI, second.NullMI)
	assert.Equal(t, first.PValue, second.PValue)
}

func TestPermutationTesterRanksTunedUnit(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11))
	all := make([]float64, 5000)
	for i := range all {
		all[i] = rng.Float64() * 2 * math.Pi
	}
	curveParams := DefaultCurveParams(100)

	// Strongly concentrated spike phases give a curve far above any
	// resampled null.
	var spikes []float64
	for range 200 {
		spikes = append(spikes, math.Pi+0.2*(rng.Float64()-0.5))
	}
	curve, err := NewCurve(spikes, all, curveParams)
	require.NoError(t, err)
	_, observed := FitCosine(curve.BinCenters, curve.Rates)

	tester, err := NewPermutationTester(DefaultPermutationParams())
	require.NoError(t, err)
	res, err := tester.Test(observed, all, len(spikes), curveParams)
	require.NoError(t, err)

	assert.Less(t, res.PValue, 0.05)
	assert.Len(t, res.NullMI, 100)
}

func TestPermutationTesterZeroObservedSaturates(t *testing.T) {
	all := []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}
	tester, err := NewPermutationTester(DefaultPermutationParams())
	require.NoError(t, err)
	res, err := tester.Test(0, all, 3, DefaultCurveParams(100))
	require.NoError(t, err)
	// Null indices are non-negative, so everything ties or exceeds.
	assert.InDelta(t, 1.0, res.PValue, 1e-12)
}

func TestPermutationTesterValidation(t *testing.T) {
	tester, err := NewPermutationTester(DefaultPermutationParams())
	require.NoError(t, err)
	_, err = tester.Test(0.5, nil, 10, DefaultCurveParams(100))
	assert.Error(t, err)
	_, err = tester.Test(0.5, []float64{1}, 0, DefaultCurveParams(100))
	assert.Error(t, err)
	_, err = NewPermutationTester(PermutationParams{NumPermutations: 0})
	assert.Error(t, err)
}

func TestKuiperTwoSameDistribution(t *testing.T) {
	// Interleaved uniform grids: the empirical CDFs never separate by
	// more than one step, so the statistic stays near zero.
	a := make([]float64, 400)
	b := make([]float64, 400)
	for i := range a {
		a[i] = float64(i) / 400
		b[i] = (float64(i) + 0.5) / 400
	}
	stat, fpp, err := KuiperTwo(a, b)
	require.NoError(t, err)
	assert.Less(t, stat, 0.02)
	assert.Greater(t, fpp, 0.5)
}

func TestKuiperTwoSeparatedSamples(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	a := make([]float64, 200)
	b := make([]float64, 200)
	for i := range a {
		a[i] = rng.Float64() * 0.5
		b[i] = 0.5 + rng.Float64()*0.5
	}
	stat, fpp, err := KuiperTwo(a, b)
	require.NoError(t, err)
	assert.Greater(t, stat, 0.9)
	assert.Less(t, fpp, 1e-6)
}

func TestKuiperTwoEmptySample(t *testing.T) {
	_, _, err := KuiperTwo(nil, []float64{1})
	assert.Error(t, err)
	_, _, err = KuiperTwo([]float64{1}, nil)
	assert.Error(t, err)
}

package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, sampleRate float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return x
}

func TestAnalyticSignalEnvelope(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"even length", 1024},
		{"odd length", 1023},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := sine(10, 1000, tt.n)
			analytic := AnalyticSignal(x)
			require.Len(t, analytic, tt.n)

			// Away from the edges the envelope of a unit sine is 1.
			env := Envelope(analytic)
			for i := tt.n / 4; i < 3*tt.n/4; i++ {
				assert.InDelta(t, 1.0, env[i], 0.02, "sample %d", i)
			}
		})
	}
}

func TestAnalyticSignalFrequency(t *testing.T) {
	const (
		sampleRate = 1000.0
		freq       = 10.0
	)
	x := sine(freq, sampleRate, 2048)
	ph := Angle(AnalyticSignal(x))
	inst := InstantaneousFrequency(ph, sampleRate)

	for i := len(inst) / 4; i < 3*len(inst)/4; i++ {
		assert.InDelta(t, freq, inst[i], 0.5, "sample %d", i)
	}
}

func TestAnalyticSignalEmpty(t *testing.T) {
	assert.Empty(t, AnalyticSignal(nil))
}

func TestUnwrap(t *testing.T) {
	// A wrapped linear ramp unwraps back to a straight line.
	const step = 0.3
	n := 100
	wrapped := make([]float64, n)
	for i := range wrapped {
		v := math.Mod(float64(i)*step+math.Pi, 2*math.Pi) - math.Pi
		wrapped[i] = v
	}
	out := Unwrap(wrapped)
	for i := 1; i < n; i++ {
		assert.InDelta(t, step, out[i]-out[i-1], 1e-9, "step %d", i)
	}
}

func TestBandpassFilterPassesBand(t *testing.T) {
	const sampleRate = 1000.0
	bf, err := NewBandpassFilter(sampleRate, 5, 20)
	require.NoError(t, err)

	inBand := bf.FiltFilt(sine(10, sampleRate, 4000))
	outBand := bf.FiltFilt(sine(200, sampleRate, 4000))

	rms := func(x []float64) float64 {
		s := 0.0
		for _, v := range x[len(x)/4 : 3*len(x)/4] {
			s += v * v
		}
		return math.Sqrt(s / float64(len(x)/2))
	}
	assert.Greater(t, rms(inBand), 10*rms(outBand))
}

func TestBandpassFilterValidation(t *testing.T) {
	tests := []struct {
		name             string
		fs, low, high    float64
	}{
		{"zero sample rate", 0, 3, 15},
		{"inverted band", 1000, 15, 3},
		{"zero low edge", 1000, 0, 15},
		{"above nyquist", 100, 3, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBandpassFilter(tt.fs, tt.low, tt.high)
			assert.Error(t, err)
		})
	}
}

func TestExtractorPhaseAdvances(t *testing.T) {
	const sampleRate = 200.0
	ex, err := NewExtractor(sampleRate, 3, 15)
	require.NoError(t, err)

	trials := [][]float64{
		sine(4, sampleRate, 400),
		sine(4, sampleRate, 400),
	}
	res, err := ex.Extract(trials)
	require.NoError(t, err)
	require.Len(t, res.Phase, 2)
	require.Len(t, res.Phase[0], 400)

	// Phase advances by roughly 2*pi*f/fs per sample mid-trial.
	unwrapped := Unwrap(res.Phase[0])
	want := 2 * math.Pi * 4 / sampleRate
	for i := 101; i < 300; i++ {
		assert.InDelta(t, want, unwrapped[i]-unwrapped[i-1], want/2, "sample %d", i)
	}
}

func TestExtractorRowLengthMismatch(t *testing.T) {
	ex, err := NewExtractor(200, 3, 15)
	require.NoError(t, err)
	_, err = ex.Extract([][]float64{make([]float64, 10), make([]float64, 11)})
	assert.Error(t, err)
}

func TestShiftPhaseRange(t *testing.T) {
	in := [][]float64{{-math.Pi + 1e-9, 0, math.Pi/2, math.Pi}}
	out := ShiftPhase(in)
	for _, v := range out[0] {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 2*math.Pi)
	}
	assert.InDelta(t, math.Pi, out[0][1], 1e-12)
}

func TestFlatten(t *testing.T) {
	flat := Flatten([][]float64{{1, 2}, {3}, {}, {4, 5}})
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, flat)
}

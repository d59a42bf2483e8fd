package bouts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pulseTrain builds a binary signal with rising edges at the given
// times (seconds), each pulse lasting pulseWidth seconds.
func pulseTrain(edges []float64, pulseWidth, binWidth, duration float64) []float64 {
	n := int(duration / binWidth)
	out := make([]float64, n)
	for _, e := range edges {
		start := int(e / binWidth)
		end := int((e + pulseWidth) / binWidth)
		for i := start; i < end && i < n; i++ {
			out[i] = 1
		}
	}
	return out
}

func TestRisingCrossingTimes(t *testing.T) {
	signal := []float64{0, 0, 1, 1, 0, 1, 0}
	times := RisingCrossingTimes(signal, 0.5, 0.1)
	require.Len(t, times, 2)
	assert.InDelta(t, 0.1, times[0], 1e-12)
	assert.InDelta(t, 0.4, times[1], 1e-12)
}

func TestFallingCrossingTimes(t *testing.T) {
	signal := []float64{1, 1, 0, 0, 1, 0}
	times := FallingCrossingTimes(signal, 0.5, 0.1)
	require.Len(t, times, 2)
	assert.InDelta(t, 0.1, times[0], 1e-12)
	assert.InDelta(t, 0.4, times[1], 1e-12)
}

func TestDetectSingleLickBout(t *testing.T) {
	const binWidth = 0.0034
	// Seven licks at 6.7 Hz starting at 1 s.
	var edges []float64
	for i := range 7 {
		edges = append(edges, 1.0+0.15*float64(i))
	}
	signal := pulseTrain(edges, 0.05, binWidth, 4)

	det, err := NewDetector(LickParams(binWidth))
	require.NoError(t, err)
	bouts, err := det.Detect(signal)
	require.NoError(t, err)

	require.Equal(t, 1, bouts.Len())
	assert.InDelta(t, 1.0, bouts.Onsets[0], 2*binWidth)
	assert.Greater(t, bouts.Offsets[0], bouts.Onsets[0])
}

func TestDetectSplitsBoutsAtGaps(t *testing.T) {
	const binWidth = 0.0034
	var edges []float64
	for i := range 5 {
		edges = append(edges, 0.5+0.15*float64(i))
	}
	// Second burst after a 3 s silent gap.
	for i := range 5 {
		edges = append(edges, 4.0+0.15*float64(i))
	}
	signal := pulseTrain(edges, 0.05, binWidth, 6)

	det, err := NewDetector(LickParams(binWidth))
	require.NoError(t, err)
	bouts, err := det.Detect(signal)
	require.NoError(t, err)

	require.Equal(t, 2, bouts.Len())
	assert.InDelta(t, 0.5, bouts.Onsets[0], 2*binWidth)
	assert.InDelta(t, 4.0, bouts.Onsets[1], 2*binWidth)
}

func TestDetectOrderingInvariant(t *testing.T) {
	const binWidth = 0.0034
	var edges []float64
	for burst := range 3 {
		base := 0.5 + 2.5*float64(burst)
		for i := range 4 {
			edges = append(edges, base+0.18*float64(i))
		}
	}
	signal := pulseTrain(edges, 0.06, binWidth, 9)

	det, err := NewDetector(LickParams(binWidth))
	require.NoError(t, err)
	bouts, err := det.Detect(signal)
	require.NoError(t, err)
	require.Greater(t, bouts.Len(), 0)

	for i := range bouts.Onsets {
		assert.Less(t, bouts.Onsets[i], bouts.Offsets[i], "bout %d", i)
		if i > 0 {
			assert.Greater(t, bouts.Onsets[i], bouts.Offsets[i-1], "bout %d", i)
		}
	}
}

func TestDetectRejectsOffBandCrossings(t *testing.T) {
	const binWidth = 0.0034
	// 1 Hz crossings sit below the 3-9 Hz lick band.
	edges := []float64{1, 2, 3, 4, 5}
	signal := pulseTrain(edges, 0.05, binWidth, 7)

	det, err := NewDetector(LickParams(binWidth))
	require.NoError(t, err)
	bouts, err := det.Detect(signal)
	require.NoError(t, err)
	assert.Zero(t, bouts.Len())
}

func TestDetectDeterministic(t *testing.T) {
	const binWidth = 0.0034
	var edges []float64
	for i := range 10 {
		edges = append(edges, 0.3+0.14*float64(i))
	}
	signal := pulseTrain(edges, 0.05, binWidth, 3)

	det, err := NewDetector(LickParams(binWidth))
	require.NoError(t, err)
	first, err := det.Detect(signal)
	require.NoError(t, err)
	second, err := det.Detect(signal)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetectWhiskRequiresConsecutiveCycles(t *testing.T) {
	const binWidth = 0.0034
	// One isolated admissible cycle: two crossings 0.1 s apart (10 Hz,
	// inside 1-25 Hz) with nothing after, so no second consecutive cycle.
	signal := pulseTrain([]float64{1.0, 1.1}, 0.03, binWidth, 3)
	for i := range signal {
		signal[i] *= 2 // Above the amplitude threshold of 1
	}

	det, err := NewDetector(WhiskParams(binWidth))
	require.NoError(t, err)
	bouts, err := det.Detect(signal)
	require.NoError(t, err)
	assert.Zero(t, bouts.Len())
}

func TestDetectorValidation(t *testing.T) {
	tests := []struct {
		name   string
		params DetectorParams
	}{
		{"zero bin width", DetectorParams{Threshold: 0.5, MinFreq: 3, MaxFreq: 9, MinConsecutive: 1, MaxMissedCycles: 2}},
		{"inverted band", DetectorParams{Threshold: 0.5, MinFreq: 9, MaxFreq: 3, MinConsecutive: 1, MaxMissedCycles: 2, BinWidth: 0.01}},
		{"zero consecutive", DetectorParams{Threshold: 0.5, MinFreq: 3, MaxFreq: 9, MinConsecutive: 0, MaxMissedCycles: 2, BinWidth: 0.01}},
		{"low missed cycles", DetectorParams{Threshold: 0.5, MinFreq: 3, MaxFreq: 9, MinConsecutive: 1, MaxMissedCycles: 1, BinWidth: 0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestInspirationOnsets(t *testing.T) {
	const (
		binWidth = 0.005
		freq     = 2.0
	)
	n := int(10 / binWidth)
	trace := make([]float64, n)
	ph := make([]float64, n)
	for i := range n {
		angle := 2 * math.Pi * freq * float64(i) * binWidth
		trace[i] = 1.4 * math.Sin(angle)
		// Shifted-phase convention: phase pi at the descending zero
		// crossing, wrapping each cycle.
		ph[i] = math.Mod(angle+math.Pi/2, 2*math.Pi)
	}

	onsets, err := InspirationOnsets(ph, trace, DefaultBreathingParams(binWidth))
	require.NoError(t, err)

	// Roughly one onset per cycle over 10 s at 2 Hz.
	assert.Greater(t, len(onsets), 15)
	assert.Less(t, len(onsets), 22)
	for i := 1; i < len(onsets); i++ {
		assert.InDelta(t, 1/freq, onsets[i]-onsets[i-1], 0.05, "interval %d", i)
	}
}

func TestInspirationOnsetsRejectsShallowCycles(t *testing.T) {
	const binWidth = 0.005
	n := int(5 / binWidth)
	trace := make([]float64, n) // Flat at 0: never falls through -0.5
	ph := make([]float64, n)
	for i := range n {
		ph[i] = math.Mod(2*math.Pi*2*float64(i)*binWidth, 2*math.Pi)
	}
	onsets, err := InspirationOnsets(ph, trace, DefaultBreathingParams(binWidth))
	require.NoError(t, err)
	assert.Empty(t, onsets)
}

func TestInspirationOnsetsValidation(t *testing.T) {
	_, err := InspirationOnsets([]float64{1}, []float64{1, 2}, DefaultBreathingParams(0.01))
	assert.Error(t, err)
	_, err = InspirationOnsets([]float64{1}, []float64{1}, BreathingParams{PhaseThreshold: math.Pi, AmplitudeThreshold: -0.5})
	assert.Error(t, err)
}

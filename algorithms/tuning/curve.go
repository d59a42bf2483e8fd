package tuning

import (
	"fmt"
	"math"
)

// CurveParams configures tuning-curve construction.
type CurveParams struct {
	NumBins    int     `json:"num_bins"`    // Phase bins over [0, 2*pi)
	SampleRate float64 `json:"sample_rate"` // Hz of the phase signal's source trace
}

// DefaultCurveParams returns the standard binning: 20 equal-width
// phase bins over [0, 2pi).
func DefaultCurveParams(sampleRate float64) CurveParams {
	return CurveParams{
		NumBins:    20,
		SampleRate: sampleRate,
	}
}

// Curve is a rate-normalized phase tuning curve: firing rate (Hz) as a
// function of behavioral phase. Normalizing spike counts by the phase
// occupancy of the whole session makes the curve robust to non-uniform
// phase coverage. Immutable once computed.
type Curve struct {
	BinCenters []float64 `json:"bin_centers"`
	Rates      []float64 `json:"rates"` // Hz; NaN where a bin was never occupied
}

// NewCurve builds the tuning curve from the spike-aligned phases and the
// full phase population of the same signal. Bins with zero occupancy
// yield NaN rates, which the cosine fit skips.
func NewCurve(spikePhases, allPhases []float64, params CurveParams) (*Curve, error) {
	if params.NumBins <= 0 {
		return nil, fmt.Errorf("tuning curve: bin count must be positive, got %d", params.NumBins)
	}
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("tuning curve: sample rate must be positive, got %g", params.SampleRate)
	}

	spikeCounts := histogram(spikePhases, params.NumBins)
	occupancy := histogram(allPhases, params.NumBins)

	binWidth := 2 * math.Pi / float64(params.NumBins)
	curve := &Curve{
		BinCenters: make([]float64, params.NumBins),
		Rates:      make([]float64, params.NumBins),
	}
	for i := range params.NumBins {
		curve.BinCenters[i] = (float64(i) + 0.5) * binWidth
		if occupancy[i] == 0 {
			curve.Rates[i] = math.NaN()
			continue
		}
		curve.Rates[i] = float64(spikeCounts[i]) / float64(occupancy[i]) * params.SampleRate
	}
	return curve, nil
}

// histogram counts phases into equal bins over [0, 2*pi). Values outside
// the range are clamped into the boundary bins rather than dropped; the
// +pi shift upstream keeps them vanishingly rare.
func histogram(phases []float64, numBins int) []int {
	counts := make([]int, numBins)
	binWidth := 2 * math.Pi / float64(numBins)
	for _, p := range phases {
		idx := int(p / binWidth)
		if idx < 0 {
			idx = 0
		}
		if idx >= numBins {
			idx = numBins - 1
		}
		counts[idx]++
	}
	return counts
}

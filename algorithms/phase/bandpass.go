package phase

import (
	"fmt"
	"math"
)

// BandpassFilter implements a digital bandpass filter using biquad topology.
//
// This implementation uses the cookbook formulas from Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
//
// Behavioral traces are filtered zero-phase (forward pass, then a second
// pass over the reversed output) so the instantaneous phase downstream is
// not skewed by filter group delay.
type BandpassFilter struct {
	sampleRate float64
	lowFreq    float64 // Lower band edge in Hz
	highFreq   float64 // Upper band edge in Hz
	qFactor    float64 // Quality factor (centerFreq/bandwidth)

	// Biquad coefficients
	b0, b1, b2 float64 // Numerator coefficients
	a0, a1, a2 float64 // Denominator coefficients

	// State variables for direct form II implementation
	x1, x2 float64 // Delay line
}

// NewBandpassFilter creates a bandpass filter for the band [lowFreq, highFreq].
//
// The center frequency is the geometric mean of the band edges and the Q
// factor follows from the bandwidth. Both edges must sit below Nyquist.
func NewBandpassFilter(sampleRate, lowFreq, highFreq float64) (*BandpassFilter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if lowFreq <= 0 || highFreq <= lowFreq {
		return nil, fmt.Errorf("invalid frequency band (%g, %g)", lowFreq, highFreq)
	}
	if highFreq >= sampleRate/2 {
		return nil, fmt.Errorf("upper band edge %g Hz at or above Nyquist (%g Hz)", highFreq, sampleRate/2)
	}

	centerFreq := math.Sqrt(lowFreq * highFreq)
	bf := &BandpassFilter{
		sampleRate: sampleRate,
		lowFreq:    lowFreq,
		highFreq:   highFreq,
		qFactor:    centerFreq / (highFreq - lowFreq),
	}

	bf.computeCoefficients(centerFreq)
	return bf, nil
}

// computeCoefficients calculates the biquad coefficients using the cookbook formula.
func (bf *BandpassFilter) computeCoefficients(centerFreq float64) {
	// Normalize frequency: w0 = 2*pi*f0/Fs
	w0 := 2.0 * math.Pi * centerFreq / bf.sampleRate

	// Prevent numerical issues at Nyquist
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)

	// Alpha parameter: alpha = sin(w0)/(2*Q)
	alpha := sinW0 / (2.0 * bf.qFactor)

	// Bandpass coefficients (cookbook formula)
	bf.b0 = alpha
	bf.b1 = 0.0
	bf.b2 = -alpha
	bf.a0 = 1.0 + alpha
	bf.a1 = -2.0 * cosW0
	bf.a2 = 1.0 - alpha

	// Normalize by a0 for direct form II implementation
	bf.b0 /= bf.a0
	bf.b1 /= bf.a0
	bf.b2 /= bf.a0
	bf.a1 /= bf.a0
	bf.a2 /= bf.a0
	bf.a0 = 1.0
}

// process applies the filter to a single sample.
// Uses Direct Form II biquad implementation for numerical stability.
func (bf *BandpassFilter) process(input float64) float64 {
	// w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
	w := input - bf.a1*bf.x1 - bf.a2*bf.x2

	// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
	output := bf.b0*w + bf.b1*bf.x1 + bf.b2*bf.x2

	bf.x2 = bf.x1
	bf.x1 = w

	return output
}

// Reset clears the filter's internal state (delay line).
// Called between trials so state never leaks across trial boundaries.
func (bf *BandpassFilter) Reset() {
	bf.x1, bf.x2 = 0.0, 0.0
}

// ProcessBuffer applies the filter causally to a buffer of samples.
func (bf *BandpassFilter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bf.process(sample)
	}
	return output
}

// FiltFilt applies the filter forward then backward, cancelling the phase
// response. Transients at the buffer edges are accepted as-is; trial
// boundary artifacts are a known, tolerated property of the analysis.
func (bf *BandpassFilter) FiltFilt(input []float64) []float64 {
	bf.Reset()
	forward := bf.ProcessBuffer(input)

	reverse(forward)
	bf.Reset()
	backward := bf.ProcessBuffer(forward)
	reverse(backward)

	return backward
}

// GetParameters returns the configured band edges and Q factor.
func (bf *BandpassFilter) GetParameters() (lowFreq, highFreq, qFactor float64) {
	return bf.lowFreq, bf.highFreq, bf.qFactor
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

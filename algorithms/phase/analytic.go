package phase

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// AnalyticSignal computes the analytic signal of a real trace via the
// frequency domain: negative frequencies are zeroed, positive
// frequencies doubled, DC (and Nyquist for even lengths) kept.
// The result's magnitude is the instantaneous amplitude envelope and its
// argument the instantaneous phase.
func AnalyticSignal(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return []complex128{}
	}

	spectrum := fft.FFTReal(x)

	// Hilbert weighting: h[0]=1, h[k]=2 for positive frequencies,
	// h[n/2]=1 at Nyquist for even n, 0 for negative frequencies.
	if n%2 == 0 {
		for k := 1; k < n/2; k++ {
			spectrum[k] *= 2
		}
		for k := n/2 + 1; k < n; k++ {
			spectrum[k] = 0
		}
	} else {
		for k := 1; k <= (n-1)/2; k++ {
			spectrum[k] *= 2
		}
		for k := (n + 1) / 2; k < n; k++ {
			spectrum[k] = 0
		}
	}

	return fft.IFFT(spectrum)
}

// Envelope returns the instantaneous amplitude of the analytic signal.
func Envelope(analytic []complex128) []float64 {
	amp := make([]float64, len(analytic))
	for i, z := range analytic {
		amp[i] = cmplx.Abs(z)
	}
	return amp
}

// Angle returns the instantaneous phase of the analytic signal in
// (-pi, pi]. Callers shift by +pi into [0, 2*pi) before binning.
func Angle(analytic []complex128) []float64 {
	ph := make([]float64, len(analytic))
	for i, z := range analytic {
		ph[i] = cmplx.Phase(z)
	}
	return ph
}

// Unwrap removes 2*pi discontinuities from a phase sequence in place,
// returning a copy with a continuous phase trajectory.
func Unwrap(ph []float64) []float64 {
	out := make([]float64, len(ph))
	copy(out, ph)
	for i := 1; i < len(out); i++ {
		d := out[i] - out[i-1]
		for d > math.Pi {
			out[i] -= 2 * math.Pi
			d = out[i] - out[i-1]
		}
		for d < -math.Pi {
			out[i] += 2 * math.Pi
			d = out[i] - out[i-1]
		}
	}
	return out
}

// InstantaneousFrequency returns the sample-to-sample frequency in Hz
// implied by the unwrapped phase derivative. Length is len(ph)-1.
func InstantaneousFrequency(ph []float64, sampleRate float64) []float64 {
	unwrapped := Unwrap(ph)
	if len(unwrapped) < 2 {
		return nil
	}
	freq := make([]float64, len(unwrapped)-1)
	for i := 1; i < len(unwrapped); i++ {
		freq[i-1] = (unwrapped[i] - unwrapped[i-1]) * sampleRate / (2 * math.Pi)
	}
	return freq
}

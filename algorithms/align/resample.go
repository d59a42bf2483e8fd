package align

import (
	"fmt"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// MovingAverageSame smooths the signal with a box kernel of the given
// window, returning a same-length output (edges see a truncated kernel's
// zero padding, matching a "same" convolution).
func MovingAverageSame(x []float64, window int) []float64 {
	if window <= 1 || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	out := make([]float64, len(x))
	// Kernel is centered; for even windows the extra tap leads, as in
	// numpy's convolve(..., 'same').
	left := (window - 1) / 2
	inv := 1 / float64(window)
	for i := range x {
		sum := 0.0
		for k := range window {
			j := i + left - k
			if j >= 0 && j < len(x) {
				sum += x[j]
			}
		}
		out[i] = sum * inv
	}
	return out
}

// MedianFilterSame applies a running median of the given window with
// zero padding at the edges, the variant used for outlier-prone
// position channels. Even windows are widened to the next odd size.
func MedianFilterSame(x []float64, window int) []float64 {
	if window <= 1 || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2
	out := make([]float64, len(x))
	buf := make([]float64, window)
	for i := range x {
		for k := range window {
			j := i - half + k
			if j >= 0 && j < len(x) {
				buf[k] = x[j]
			} else {
				buf[k] = 0
			}
		}
		tmp := make([]float64, window)
		copy(tmp, buf)
		sort.Float64s(tmp)
		out[i] = tmp[half]
	}
	return out
}

// Decimate keeps every window-th sample starting at index window
// (x[window::window]), the fixed-stride downsampling paired with the
// box smoothing above.
func Decimate(x []float64, window int) []float64 {
	if window <= 0 {
		return nil
	}
	var out []float64
	for i := window; i < len(x); i += window {
		out = append(out, x[i])
	}
	return out
}

// DecimatedLen returns len(Decimate(x, window)) without materializing it.
func DecimatedLen(n, window int) int {
	if window <= 0 || n <= window {
		return 0
	}
	return (n - 1) / window
}

// FourierResample resamples x to num samples in the frequency domain
// (periodic-signal assumption), used to bring the body-camera motion
// component onto the video time base.
func FourierResample(x []float64, num int) ([]float64, error) {
	n := len(x)
	if n == 0 || num <= 0 {
		return nil, fmt.Errorf("fourier resample: invalid sizes (%d -> %d)", n, num)
	}
	if num == n {
		out := make([]float64, n)
		copy(out, x)
		return out, nil
	}

	spectrum := fft.FFTReal(x)
	resized := make([]complex128, num)

	nMin := n
	if num < nMin {
		nMin = num
	}
	// Non-negative frequency bins to keep, then the matching negative
	// tail; the shared Nyquist bin of an even nMin is folded (down) or
	// split (up) to keep the output real.
	nyq := nMin/2 + 1
	copy(resized[:nyq], spectrum[:nyq])
	for k := 1; k <= nMin-nyq; k++ {
		resized[num-k] = spectrum[n-k]
	}
	if nMin%2 == 0 {
		if num < n {
			resized[nyq-1] += spectrum[n-(nyq-1)]
		} else if num > n {
			resized[nyq-1] /= 2
			resized[num-(nyq-1)] = resized[nyq-1]
		}
	}

	inverse := fft.IFFT(resized)
	scale := float64(num) / float64(n)
	out := make([]float64, num)
	for i, z := range inverse {
		out[i] = real(z) * scale
	}
	return out, nil
}

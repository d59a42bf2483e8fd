package bouts

// RisingCrossingTimes returns the times (seconds) at which the signal
// crosses the threshold upward: sample i is below the threshold and
// sample i+1 at or above it. binWidth is the sample interval.
func RisingCrossingTimes(signal []float64, threshold, binWidth float64) []float64 {
	var times []float64
	for i := 0; i+1 < len(signal); i++ {
		if signal[i] < threshold && signal[i+1] >= threshold {
			times = append(times, float64(i)*binWidth)
		}
	}
	return times
}

// FallingCrossingTimes returns the times at which the signal crosses the
// threshold downward: sample i above the threshold and sample i+1 at or
// below it.
func FallingCrossingTimes(signal []float64, threshold, binWidth float64) []float64 {
	var times []float64
	for i := 0; i+1 < len(signal); i++ {
		if signal[i] > threshold && signal[i+1] <= threshold {
			times = append(times, float64(i)*binWidth)
		}
	}
	return times
}

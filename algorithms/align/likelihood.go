package align

import "fmt"

// TongueGate combines two independent camera-view confidence traces
// into a binary visibility gate: 1 where both views exceed the
// threshold, 0 elsewhere. The product of two independent detections at
// 0.95 each keeps only frames where the tongue is unambiguously
// tracked.
func TongueGate(side, bottom [][]float64, threshold float64) ([][]float64, error) {
	if len(side) != len(bottom) {
		return nil, fmt.Errorf("tongue gate: %d side trials vs %d bottom trials", len(side), len(bottom))
	}
	gate := make([][]float64, len(side))
	for t := range side {
		if len(side[t]) != len(bottom[t]) {
			return nil, fmt.Errorf("tongue gate: trial %d has %d side frames vs %d bottom frames", t, len(side[t]), len(bottom[t]))
		}
		gate[t] = make([]float64, len(side[t]))
		for i := range side[t] {
			if side[t][i] > threshold && bottom[t][i] > threshold {
				gate[t][i] = 1
			}
		}
	}
	return gate, nil
}

// RebinarizeGate re-thresholds a smoothed-and-decimated gate at 1:
// after box averaging, only bins whose whole window was confident stay
// at exactly 1; everything else drops to 0.
func RebinarizeGate(gate []float64) []float64 {
	out := make([]float64, len(gate))
	for i, v := range gate {
		if v < 1 {
			out[i] = 0
		} else {
			out[i] = 1
		}
	}
	return out
}

// ApplyGate multiplies a channel by its binary gate elementwise.
func ApplyGate(x, gate []float64) ([]float64, error) {
	if len(x) != len(gate) {
		return nil, fmt.Errorf("apply gate: %d samples vs %d gate entries", len(x), len(gate))
	}
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * gate[i]
	}
	return out, nil
}

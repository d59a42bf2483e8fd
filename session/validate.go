package session

import "fmt"

// ExcludeTrials returns the trials not present in the exclusion set,
// preserving order.
func ExcludeTrials(trials []TrialID, excluded map[TrialID]bool) []TrialID {
	kept := make([]TrialID, 0, len(trials))
	for _, tr := range trials {
		if !excluded[tr] {
			kept = append(kept, tr)
		}
	}
	return kept
}

// FrameCountOutliers returns the trials whose trace length deviates from
// the expected frame count. These are the "bad video" trials excluded
// from every downstream computation.
func FrameCountOutliers(traces [][]float64, trials []TrialID, frames int) []TrialID {
	var bad []TrialID
	for i, trace := range traces {
		if len(trace) != frames {
			bad = append(bad, trials[i])
		}
	}
	return bad
}

// MedianFrameCount returns the per-trial sample count that the majority
// of traces share, used as the session's canonical frame count when no
// expected count is configured. Ties resolve toward the lower count.
func MedianFrameCount(traces [][]float64) int {
	if len(traces) == 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, trace := range traces {
		counts[len(trace)]++
	}
	best, bestN := 0, -1
	for length, n := range counts {
		if n > bestN || (n == bestN && length < best) {
			best, bestN = length, n
		}
	}
	return best
}

// ReshapeMotion splits a flat motion-decomposition trace into per-trial
// rows of the canonical frame count. The flat length must be an exact
// multiple of frames; anything else is structural corruption of the
// video pipeline output and fails the session (ErrBadVideo).
//
// Rows come back in direct numeric trial order. The upstream pipeline
// re-derived this ordering through a stringified sort that is the
// identity for its inputs; it is not reproduced here.
func ReshapeMotion(flat []float64, frames int) ([][]float64, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("invalid frame count %d", frames)
	}
	if len(flat)%frames != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d frames per trial", ErrBadVideo, len(flat), frames)
	}
	numTrials := len(flat) / frames
	rows := make([][]float64, numTrials)
	for i := range numTrials {
		rows[i] = flat[i*frames : (i+1)*frames]
	}
	return rows, nil
}

// CheckTrialCounts verifies that the spike-train trial count matches the
// tracking trial count for a session. A disagreement abandons the
// session computation (ErrTrialMismatch).
func CheckTrialCounts(spikeTrials, trackingTrials int) error {
	if spikeTrials != trackingTrials {
		return fmt.Errorf("%w: %d spike trials, %d tracking trials", ErrTrialMismatch, spikeTrials, trackingTrials)
	}
	return nil
}

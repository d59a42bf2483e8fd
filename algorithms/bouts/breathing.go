package bouts

import (
	"fmt"
	"math"
)

// BreathingParams configures inspiration-onset detection on a z-scored
// breathing trace and its instantaneous phase.
type BreathingParams struct {
	// PhaseThreshold is the phase value whose rising crossing marks a
	// candidate inspiration onset. The +pi-shifted convention puts it
	// at pi (the trough of the pressure signal).
	PhaseThreshold float64 `json:"phase_threshold"`

	// AmplitudeThreshold is the level (z-scored units) the raw trace
	// must fall through within the same cycle for the phase crossing
	// to count as a real inspiration.
	AmplitudeThreshold float64 `json:"amplitude_threshold"`

	// BinWidth is the sample interval in seconds.
	BinWidth float64 `json:"bin_width"`
}

// DefaultBreathingParams returns the standard inspiration-onset
// thresholds.
func DefaultBreathingParams(binWidth float64) BreathingParams {
	return BreathingParams{
		PhaseThreshold:     math.Pi,
		AmplitudeThreshold: -0.5,
		BinWidth:           binWidth,
	}
}

// InspirationOnsets detects inspiration onsets as rising crossings of
// the breathing phase through PhaseThreshold, keeping only crossings
// backed by a falling amplitude crossing before the next phase crossing.
// Phase detections without an amplitude trough in their cycle are noise
// (shallow or spurious cycles) and are rejected.
func InspirationOnsets(breathPhase, breathTrace []float64, params BreathingParams) ([]float64, error) {
	if len(breathPhase) != len(breathTrace) {
		return nil, fmt.Errorf("inspiration onsets: phase has %d samples, trace %d", len(breathPhase), len(breathTrace))
	}
	if params.BinWidth <= 0 {
		return nil, fmt.Errorf("inspiration onsets: bin width must be positive, got %g", params.BinWidth)
	}

	phaseOnsets := RisingCrossingTimes(breathPhase, params.PhaseThreshold, params.BinWidth)
	ampCrossings := FallingCrossingTimes(breathTrace, params.AmplitudeThreshold, params.BinWidth)

	var validated []float64
	j := 0
	for i := 0; i+1 < len(phaseOnsets); i++ {
		for j < len(ampCrossings) && ampCrossings[j] <= phaseOnsets[i] {
			j++
		}
		if j < len(ampCrossings) && ampCrossings[j] < phaseOnsets[i+1] {
			validated = append(validated, phaseOnsets[i])
		}
	}
	return validated, nil
}

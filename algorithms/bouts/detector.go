package bouts

import "fmt"

// DetectorParams configures bout detection for one rhythmic behavior.
type DetectorParams struct {
	// Threshold on the detection signal (likelihood gate, whisking
	// amplitude, ...). Onsets are rising crossings of this value.
	Threshold float64 `json:"threshold"`

	// Admissible cycle frequency band in Hz; crossings whose
	// inter-crossing frequency falls outside the band are noise and
	// are discarded.
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// MinConsecutive is how many consecutive admissible cycles a
	// crossing must start to survive (licking 1, whisking 2).
	MinConsecutive int `json:"min_consecutive"`

	// MaxMissedCycles is the surviving-onset gap that splits bouts; a
	// new bout starts when at least this many cycles went missing.
	MaxMissedCycles int `json:"max_missed_cycles"`

	// BinWidth is the sample interval of the detection signal, seconds.
	BinWidth float64 `json:"bin_width"`
}

// LickParams returns the lick-bout configuration:
// tongue-visibility gate at 0.5, 3-9 Hz.
func LickParams(binWidth float64) DetectorParams {
	return DetectorParams{
		Threshold:       0.5,
		MinFreq:         3,
		MaxFreq:         9,
		MinConsecutive:  1,
		MaxMissedCycles: 2,
		BinWidth:        binWidth,
	}
}

// WhiskParams returns the whisk-bout configuration: whisking amplitude
// threshold 1 (z-scored units), 1-25 Hz, two consecutive cycles.
func WhiskParams(binWidth float64) DetectorParams {
	return DetectorParams{
		Threshold:       1,
		MinFreq:         1,
		MaxFreq:         25,
		MinConsecutive:  2,
		MaxMissedCycles: 2,
		BinWidth:        binWidth,
	}
}

// Bouts holds parallel onset/offset timestamp arrays, one pair per bout.
// Invariant: Onsets[i] < Offsets[i] < Onsets[i+1]. Derived once from a
// trace; never mutated afterwards.
type Bouts struct {
	Onsets  []float64 `json:"onsets"`
	Offsets []float64 `json:"offsets"`
}

// Len returns the number of detected bouts.
func (b *Bouts) Len() int { return len(b.Onsets) }

// Detector segments a continuous (trial-concatenated) detection signal
// into bouts. Detection is deterministic: the same input always yields
// the same bouts.
type Detector struct {
	params DetectorParams
}

// NewDetector validates the parameters and creates a detector.
func NewDetector(params DetectorParams) (*Detector, error) {
	if params.BinWidth <= 0 {
		return nil, fmt.Errorf("bout detector: bin width must be positive, got %g", params.BinWidth)
	}
	if params.MinFreq <= 0 || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("bout detector: invalid frequency band (%g, %g)", params.MinFreq, params.MaxFreq)
	}
	if params.MinConsecutive < 1 {
		return nil, fmt.Errorf("bout detector: min consecutive cycles must be >= 1, got %d", params.MinConsecutive)
	}
	if params.MaxMissedCycles < 2 {
		return nil, fmt.Errorf("bout detector: max missed cycles must be >= 2, got %d", params.MaxMissedCycles)
	}
	return &Detector{params: params}, nil
}

// Detect finds bouts in the signal.
//
// Stages: rising threshold crossings; frequency gating (the reciprocal
// inter-crossing interval must sit inside the admissible band);
// consecutive-cycle gating; grouping of surviving onsets into bouts at
// gaps of MaxMissedCycles or more, with the first and last surviving
// onsets forced into the first and last bout (boundary correction). A
// bout's offset is the crossing two cycles after its last surviving
// onset, clamped to the final crossing.
func (d *Detector) Detect(signal []float64) (*Bouts, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("bout detector: empty signal")
	}

	crossings := RisingCrossingTimes(signal, d.params.Threshold, d.params.BinWidth)
	if len(crossings) < 2 {
		return &Bouts{}, nil
	}

	// Frequency gating. Candidate i owns the cycle [t_i, t_i+1).
	var admissible []int
	for i := 0; i+1 < len(crossings); i++ {
		f := 1 / (crossings[i+1] - crossings[i])
		if f > d.params.MinFreq && f < d.params.MaxFreq {
			admissible = append(admissible, i)
		}
	}

	// Consecutive-cycle gating: onset k survives when the next
	// MinConsecutive-1 admissible cycles follow back to back.
	var surviving []int
	for k := 0; k < len(admissible); k++ {
		ok := true
		for step := 1; step < d.params.MinConsecutive; step++ {
			if k+step >= len(admissible) || admissible[k+step] != admissible[k]+step {
				ok = false
				break
			}
		}
		if ok {
			surviving = append(surviving, admissible[k])
		}
	}
	if len(surviving) == 0 {
		return &Bouts{}, nil
	}

	// Group surviving onsets into bouts at large gaps.
	type span struct{ start, end int }
	var spans []span
	cur := span{start: surviving[0], end: surviving[0]}
	for _, idx := range surviving[1:] {
		if idx-cur.end >= d.params.MaxMissedCycles {
			spans = append(spans, cur)
			cur = span{start: idx, end: idx}
		} else {
			cur.end = idx
		}
	}
	spans = append(spans, cur)

	// A bout's offset is the crossing two cycles past its last onset,
	// clamped below the next bout's onset and the final crossing.
	var bouts Bouts
	for i, sp := range spans {
		offIdx := sp.end + 2
		if offIdx > len(crossings)-1 {
			offIdx = len(crossings) - 1
		}
		if i+1 < len(spans) && offIdx >= spans[i+1].start {
			offIdx = spans[i+1].start - 1
		}
		bouts.Onsets = append(bouts.Onsets, crossings[sp.start])
		bouts.Offsets = append(bouts.Offsets, crossings[offIdx])
	}

	for i := range bouts.Onsets {
		if bouts.Offsets[i] <= bouts.Onsets[i] {
			return nil, fmt.Errorf("bout detector: bout %d offset %g not after onset %g", i, bouts.Offsets[i], bouts.Onsets[i])
		}
		if i > 0 && bouts.Onsets[i] <= bouts.Offsets[i-1] {
			return nil, fmt.Errorf("bout detector: bout %d onset %g overlaps previous offset %g", i, bouts.Onsets[i], bouts.Offsets[i-1])
		}
	}
	return &bouts, nil
}

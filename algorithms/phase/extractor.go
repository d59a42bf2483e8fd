package phase

import (
	"fmt"
	"math"
)

// Extractor computes band-limited instantaneous phase and amplitude for
// per-trial behavioral traces: each trial row is band-pass filtered
// (zero-phase) and passed through the analytic-signal transform.
type Extractor struct {
	sampleRate float64
	lowFreq    float64
	highFreq   float64
}

// Result holds same-shape amplitude and phase matrices for one extraction.
// Phase is in (-pi, pi]; ShiftPhase moves it into [0, 2*pi).
type Result struct {
	Amplitude [][]float64 `json:"amplitude"`
	Phase     [][]float64 `json:"phase"`
}

// NewExtractor creates a phase/amplitude extractor for the band
// [lowFreq, highFreq] Hz at the given sampling rate.
func NewExtractor(sampleRate, lowFreq, highFreq float64) (*Extractor, error) {
	// Construct once to validate the band; each Extract builds fresh
	// filters so extractors are safe for concurrent use.
	if _, err := NewBandpassFilter(sampleRate, lowFreq, highFreq); err != nil {
		return nil, fmt.Errorf("phase extractor: %w", err)
	}
	return &Extractor{
		sampleRate: sampleRate,
		lowFreq:    lowFreq,
		highFreq:   highFreq,
	}, nil
}

// Extract computes instantaneous amplitude and phase for each trial row.
// All rows must share a length; filter edge values at the row boundaries
// are accepted without correction.
func (e *Extractor) Extract(traces [][]float64) (*Result, error) {
	if len(traces) == 0 {
		return nil, fmt.Errorf("phase extractor: no trials")
	}
	rowLen := len(traces[0])
	for i, row := range traces {
		if len(row) != rowLen {
			return nil, fmt.Errorf("phase extractor: trial %d has %d samples, want %d", i, len(row), rowLen)
		}
	}

	bf, err := NewBandpassFilter(e.sampleRate, e.lowFreq, e.highFreq)
	if err != nil {
		return nil, fmt.Errorf("phase extractor: %w", err)
	}

	res := &Result{
		Amplitude: make([][]float64, len(traces)),
		Phase:     make([][]float64, len(traces)),
	}
	for i, row := range traces {
		filtered := bf.FiltFilt(row)
		analytic := AnalyticSignal(filtered)
		res.Amplitude[i] = Envelope(analytic)
		res.Phase[i] = Angle(analytic)
	}
	return res, nil
}

// ShiftPhase returns the phase matrix shifted by +pi into [0, 2*pi),
// the convention used by the tuning and bout detection stages.
func ShiftPhase(ph [][]float64) [][]float64 {
	out := make([][]float64, len(ph))
	for i, row := range ph {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			s := v + math.Pi
			if s >= 2*math.Pi {
				s -= 2 * math.Pi
			}
			out[i][j] = s
		}
	}
	return out
}

// Flatten concatenates trial rows into one session-long sequence.
func Flatten(rows [][]float64) []float64 {
	n := 0
	for _, row := range rows {
		n += len(row)
	}
	flat := make([]float64, 0, n)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}

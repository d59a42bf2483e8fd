package analysis

import (
	"github.com/RyanBlaney/orofacial-tuning/algorithms/bouts"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/glm"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/tuning"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// TuningResult is one unit's phase tuning against a rhythmic behavioral
// channel.
type TuningResult struct {
	Unit            session.UnitID            `json:"unit"`
	PreferredPhase  float64                   `json:"preferred_phase"`
	ModulationIndex float64                   `json:"modulation_index"`
	Curve           *tuning.Curve             `json:"curve"`
	SpikeCount      int                       `json:"spike_count"`
	KuiperStat      float64                   `json:"kuiper_stat,omitempty"`
	KuiperFPP       float64                   `json:"kuiper_fpp,omitempty"`
	Permutation     *tuning.PermutationResult `json:"permutation,omitempty"`
}

// GLMResult is one unit's shifted Poisson GLM fit.
type GLMResult struct {
	Unit       session.UnitID `json:"unit"`
	Predictors []string       `json:"predictors"`
	Fit        *glm.UnitFit   `json:"fit"`

	// TestCounts is the unshifted held-out spike-count vector, kept so
	// downstream comparison against PredictedTest needs no refetch. Nil
	// for in-sample-only variants.
	TestCounts []float64 `json:"test_counts,omitempty"`
}

// MovementTimingResult collects the session-level movement event times,
// all on the concatenated session clock in seconds.
type MovementTimingResult struct {
	InspirationOnsets []float64    `json:"inspiration_onsets"`
	LickOnsets        []float64    `json:"lick_onsets"`
	LickBouts         *bouts.Bouts `json:"lick_bouts"`
	WhiskOnsets       []float64    `json:"whisk_onsets"`
	WhiskBouts        *bouts.Bouts `json:"whisk_bouts"`
}

// PSTH is an event-aligned spike histogram. Counts are summed over
// events per bin; Rates are the count normalized to Hz by event count
// and bin width.
type PSTH struct {
	Edges  []float64 `json:"edges"` // Bin left edges relative to the event, seconds
	Counts []float64 `json:"counts"`
	Rates  []float64 `json:"rates"`
	Events int       `json:"events"`
}

// PSTHResult is one unit's lick-bout-aligned PSTH.
type PSTHResult struct {
	Unit session.UnitID `json:"unit"`
	PSTH *PSTH          `json:"psth"`
}

// LickLatencyResult is one unit's response latency to lick bout onset.
type LickLatencyResult struct {
	Unit      session.UnitID `json:"unit"`
	Latency   float64        `json:"latency"` // Seconds after onset; meaningful only when Found
	Found     bool           `json:"found"`
	Baseline  float64        `json:"baseline"`  // Mean pre-onset count per bin
	Threshold float64        `json:"threshold"` // Poisson 95th-percentile count
}

// LickRateResult is one unit's per-lick firing rate as a function of the
// preceding inter-lick interval, with a linear fit across interval bins.
type LickRateResult struct {
	Unit       session.UnitID `json:"unit"`
	BinCenters []float64      `json:"bin_centers"` // Inter-lick interval, seconds
	MeanRates  []float64      `json:"mean_rates"`  // Hz
	Slope      float64        `json:"slope"`
	Intercept  float64        `json:"intercept"`
}

// DirectionTuningResult is one unit's lick-direction tuning over the
// eight peripheral water ports.
type DirectionTuningResult struct {
	Unit               session.UnitID `json:"unit"`
	PreferredDirection float64        `json:"preferred_direction"`
	ModulationIndex    float64        `json:"modulation_index"`
	Directions         []float64      `json:"directions"` // Radians
	Rates              []float64      `json:"rates"`      // Spikes per contact
}

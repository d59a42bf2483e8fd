package analysis

import (
	"fmt"

	"github.com/RyanBlaney/orofacial-tuning/algorithms/align"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/bouts"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/phase"
	"github.com/RyanBlaney/orofacial-tuning/logging"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// MovementTiming extracts the session's movement event times on the
// concatenated session clock: inspiration onsets from the breathing
// trace, lick onsets and bouts from the tongue visibility gate, whisk
// onsets and bouts from the whisking amplitude envelope.
func (p *Pipeline) MovementTiming() (*MovementTimingResult, error) {
	excl, err := p.store.VideoExclusions()
	if err != nil {
		return nil, fmt.Errorf("movement timing: fetch exclusions: %w", err)
	}
	trials, err := p.store.TrialIDs()
	if err != nil {
		return nil, fmt.Errorf("movement timing: fetch trials: %w", err)
	}
	trials = excludeAll(trials, excl)
	if len(trials) == 0 {
		return nil, fmt.Errorf("movement timing: no trials after exclusions")
	}

	ch, err := p.loadChannels(trials)
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	interval := p.config.VideoSampleInterval
	videoRate := 1 / interval
	result := &MovementTimingResult{}

	// Licking: the native-rate gate gives both the raw onsets and the
	// frequency-gated bouts.
	gateFlat := concatRows(ch.gate)
	result.LickOnsets = bouts.RisingCrossingTimes(gateFlat, 0.5, interval)
	lickDet, err := bouts.NewDetector(bouts.LickParams(interval))
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	result.LickBouts, err = lickDet.Detect(gateFlat)
	if err != nil {
		return nil, fmt.Errorf("movement timing: lick bouts: %w", err)
	}

	// Breathing: bring the device-rate trace onto the video grid, then
	// take phase crossings validated by the amplitude trough.
	aligner, err := align.NewAligner(interval)
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	breathRows := make([][]float64, len(ch.breathing))
	for t, row := range ch.breathing {
		breathRows[t], err = aligner.AlignFlat(row, ch.breathingInterval, align.BoxcarSmoothing)
		if err != nil {
			return nil, fmt.Errorf("movement timing: align breathing trial %d: %w", trials[t], err)
		}
	}
	breathSamples := len(breathRows[0])
	for t, row := range breathRows {
		if len(row) != breathSamples {
			return nil, fmt.Errorf("movement timing: breathing trial %d has %d bins, want %d", trials[t], len(row), breathSamples)
		}
	}
	breathExtractor, err := phase.NewExtractor(videoRate, p.config.BreathingBand[0], p.config.BreathingBand[1])
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	breathPhase, err := breathExtractor.Extract(breathRows)
	if err != nil {
		return nil, fmt.Errorf("movement timing: breathing phase: %w", err)
	}
	result.InspirationOnsets, err = bouts.InspirationOnsets(
		phase.Flatten(phase.ShiftPhase(breathPhase.Phase)),
		concatRows(breathRows),
		bouts.DefaultBreathingParams(interval),
	)
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}

	// Whisking: the amplitude envelope of the sign-corrected motion
	// component drives the whisk detector.
	whiskRows := make([][]float64, len(ch.whisker))
	for t, row := range ch.whisker {
		whiskRows[t] = align.FlipIfInverted(row, p.config.SVDFlipMargin)
	}
	whiskExtractor, err := phase.NewExtractor(videoRate, p.config.WhiskerBand[0], p.config.WhiskerBand[1])
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	whisk, err := whiskExtractor.Extract(whiskRows)
	if err != nil {
		return nil, fmt.Errorf("movement timing: whisking phase: %w", err)
	}
	ampFlat := phase.Flatten(whisk.Amplitude)
	whiskParams := bouts.WhiskParams(interval)
	result.WhiskOnsets = bouts.RisingCrossingTimes(ampFlat, whiskParams.Threshold, interval)
	whiskDet, err := bouts.NewDetector(whiskParams)
	if err != nil {
		return nil, fmt.Errorf("movement timing: %w", err)
	}
	result.WhiskBouts, err = whiskDet.Detect(ampFlat)
	if err != nil {
		return nil, fmt.Errorf("movement timing: whisk bouts: %w", err)
	}

	p.logger.Info("movement timing complete", logging.Fields{
		"inspirations": len(result.InspirationOnsets),
		"lick_bouts":   result.LickBouts.Len(),
		"whisk_bouts":  result.WhiskBouts.Len(),
	})
	return result, nil
}

// excludeAll drops every annotated bad/missing trial.
func excludeAll(trials []session.TrialID, excl session.VideoExclusions) []session.TrialID {
	return session.ExcludeTrials(trials, excl.All())
}

// concatRows joins per-trial rows into one session-long trace.
func concatRows(rows [][]float64) []float64 {
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

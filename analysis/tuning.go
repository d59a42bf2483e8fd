package analysis

import (
	"fmt"

	"github.com/RyanBlaney/orofacial-tuning/algorithms/align"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/phase"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/tuning"
	"github.com/RyanBlaney/orofacial-tuning/logging"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// spikePhaseSamples maps trial-relative spike times onto the per-trial
// phase rows, dropping spikes past the row's sample range.
func spikePhaseSamples(trains []session.SpikeTrain, ph [][]float64, sampleRate float64) []float64 {
	var out []float64
	for t, train := range trains {
		if t >= len(ph) {
			break
		}
		row := ph[t]
		for _, d := range train {
			idx := int(d * sampleRate)
			if idx >= 0 && idx < len(row) {
				out = append(out, row[idx])
			}
		}
	}
	return out
}

// equalLengthRows keeps the rows matching the canonical length, returning
// them with the positions they came from.
func equalLengthRows(rows [][]float64, length int) ([][]float64, []int) {
	var kept [][]float64
	var positions []int
	for i, row := range rows {
		if len(row) == length {
			kept = append(kept, row)
			positions = append(positions, i)
		}
	}
	return kept, positions
}

// selectPositions picks the spike trains at the given positions.
func selectPositions(trains []session.SpikeTrain, positions []int) []session.SpikeTrain {
	out := make([]session.SpikeTrain, len(positions))
	for i, pos := range positions {
		out[i] = trains[pos]
	}
	return out
}

// JawTuning computes each unit's tuning to jaw movement phase: the
// side-view jaw trace is band-pass filtered and phase-extracted, spike
// phases are tested against the session phase population (two-sample
// Kuiper), and the cosine-fit modulation index is ranked against a
// resampled null.
func (p *Pipeline) JawTuning() ([]TuningResult, error) {
	excl, err := p.store.VideoExclusions()
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: fetch exclusions: %w", err)
	}
	excluded := make(map[session.TrialID]bool)
	for _, group := range [][]session.TrialID{excl.BadSide, excl.MissingSide} {
		for _, tr := range group {
			excluded[tr] = true
		}
	}

	trials, units, err := p.keptTrials(excluded)
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: %w", err)
	}
	traces, err := p.store.JawTrace(session.ViewSide, trials)
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: fetch jaw traces: %w", err)
	}
	sampleRate, err := p.store.SamplingRate(session.ViewSide)
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: fetch sampling rate: %w", err)
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: %w", err)
	}
	if err := session.CheckTrialCounts(len(spikes[0]), len(traces)); err != nil {
		return nil, fmt.Errorf("jaw tuning: %w", err)
	}

	// Trials with an off-count trace slip past the annotation sometimes;
	// drop them against the session's dominant frame count.
	frames := session.MedianFrameCount(traces)
	goodTraces, positions := equalLengthRows(traces, frames)
	if len(goodTraces) == 0 {
		return nil, fmt.Errorf("jaw tuning: no trials at frame count %d", frames)
	}

	extractor, err := phase.NewExtractor(sampleRate, p.config.JawBand[0], p.config.JawBand[1])
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: %w", err)
	}
	extracted, err := extractor.Extract(goodTraces)
	if err != nil {
		return nil, fmt.Errorf("jaw tuning: %w", err)
	}
	shifted := phase.ShiftPhase(extracted.Phase)
	allPhases := phase.Flatten(shifted)

	curveParams := tuning.CurveParams{NumBins: p.config.PhaseBins, SampleRate: sampleRate}
	permParams := tuning.PermutationParams{NumPermutations: p.config.Permutations, Seed: 1}

	results := make([]TuningResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		spikePhases := spikePhaseSamples(selectPositions(spikes[i], positions), shifted, sampleRate)
		if len(spikePhases) == 0 {
			return fmt.Errorf("no spikes within tracked frames")
		}

		stat, fpp, err := tuning.KuiperTwo(spikePhases, allPhases)
		if err != nil {
			return err
		}
		curve, err := tuning.NewCurve(spikePhases, allPhases, curveParams)
		if err != nil {
			return err
		}
		preferred, mi := tuning.FitCosine(curve.BinCenters, curve.Rates)

		tester, err := tuning.NewPermutationTester(permParams)
		if err != nil {
			return err
		}
		perm, err := tester.Test(mi, allPhases, len(spikePhases), curveParams)
		if err != nil {
			return err
		}

		results[i] = TuningResult{
			Unit:            units[i],
			PreferredPhase:  preferred,
			ModulationIndex: mi,
			Curve:           curve,
			SpikeCount:      len(spikePhases),
			KuiperStat:      stat,
			KuiperFPP:       fpp,
			Permutation:     perm,
		}
		return nil
	})

	ok := p.collectUnitErrors("jaw_tuning", units, errs)
	p.logger.Info("jaw tuning complete", logging.Fields{
		"units": ok, "trials": len(goodTraces), "frames": frames,
	})
	return compactTuning(results, errs), nil
}

// BreathingTuning computes each unit's tuning to breathing phase over the
// first seconds of each trial, on the downsampled airflow trace.
func (p *Pipeline) BreathingTuning() ([]TuningResult, error) {
	trials, units, err := p.keptTrials(nil)
	if err != nil {
		return nil, fmt.Errorf("breathing tuning: %w", err)
	}
	breathing, err := p.store.Breathing(trials)
	if err != nil {
		return nil, fmt.Errorf("breathing tuning: fetch breathing: %w", err)
	}
	if len(breathing) == 0 {
		return nil, fmt.Errorf("breathing tuning: no breathing trials")
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("breathing tuning: %w", err)
	}
	if err := session.CheckTrialCounts(len(spikes[0]), len(breathing)); err != nil {
		return nil, fmt.Errorf("breathing tuning: %w", err)
	}

	ds := p.config.BreathingDownsample
	if ds < 1 {
		ds = 1
	}
	rows := make([][]float64, len(breathing))
	var sampleRate float64
	for t, trace := range breathing {
		if len(trace.Timestamps) < 2 {
			continue
		}
		dt := trace.Timestamps[1] - trace.Timestamps[0]
		if sampleRate == 0 && dt > 0 {
			sampleRate = 1 / dt / float64(ds)
		}
		windowed := align.TruncateByTime(trace.Samples, trace.Timestamps, p.config.BreathingWindow)
		var row []float64
		for i := 0; i < len(windowed); i += ds {
			row = append(row, windowed[i])
		}
		rows[t] = row
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("breathing tuning: cannot derive sampling rate from timestamps")
	}

	samples := session.MedianFrameCount(rows)
	goodRows, positions := equalLengthRows(rows, samples)
	if len(goodRows) == 0 {
		return nil, fmt.Errorf("breathing tuning: no trials at sample count %d", samples)
	}

	extractor, err := phase.NewExtractor(sampleRate, p.config.BreathingBand[0], p.config.BreathingBand[1])
	if err != nil {
		return nil, fmt.Errorf("breathing tuning: %w", err)
	}
	extracted, err := extractor.Extract(goodRows)
	if err != nil {
		return nil, fmt.Errorf("breathing tuning: %w", err)
	}
	shifted := phase.ShiftPhase(extracted.Phase)
	allPhases := phase.Flatten(shifted)
	curveParams := tuning.CurveParams{NumBins: p.config.PhaseBins, SampleRate: sampleRate}

	results := make([]TuningResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		spikePhases := spikePhaseSamples(selectPositions(spikes[i], positions), shifted, sampleRate)
		if len(spikePhases) == 0 {
			return fmt.Errorf("no spikes within breathing window")
		}
		curve, err := tuning.NewCurve(spikePhases, allPhases, curveParams)
		if err != nil {
			return err
		}
		preferred, mi := tuning.FitCosine(curve.BinCenters, curve.Rates)
		results[i] = TuningResult{
			Unit:            units[i],
			PreferredPhase:  preferred,
			ModulationIndex: mi,
			Curve:           curve,
			SpikeCount:      len(spikePhases),
		}
		return nil
	})

	ok := p.collectUnitErrors("breathing_tuning", units, errs)
	p.logger.Info("breathing tuning complete", logging.Fields{
		"units": ok, "trials": len(goodRows), "sample_rate": sampleRate,
	})
	return compactTuning(results, errs), nil
}

// WhiskerTuning computes each unit's tuning to whisking phase, extracted
// from the leading whisker-pad motion component.
func (p *Pipeline) WhiskerTuning() ([]TuningResult, error) {
	trials, units, err := p.keptTrials(nil)
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	flat, err := p.store.MotionSVD()
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: fetch motion: %w", err)
	}
	rows, err := session.ReshapeMotion(flat, p.config.FrameCount)
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	if err := session.CheckTrialCounts(len(spikes[0]), len(rows)); err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	sampleRate, err := p.store.SamplingRate(session.ViewBottom)
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: fetch sampling rate: %w", err)
	}

	rows = align.ZScoreRows(rows)
	extractor, err := phase.NewExtractor(sampleRate, p.config.WhiskerBand[0], p.config.WhiskerBand[1])
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	extracted, err := extractor.Extract(rows)
	if err != nil {
		return nil, fmt.Errorf("whisker tuning: %w", err)
	}
	shifted := phase.ShiftPhase(extracted.Phase)
	allPhases := phase.Flatten(shifted)
	curveParams := tuning.CurveParams{NumBins: p.config.PhaseBins, SampleRate: sampleRate}

	results := make([]TuningResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		spikePhases := spikePhaseSamples(spikes[i], shifted, sampleRate)
		if len(spikePhases) == 0 {
			return fmt.Errorf("no spikes within tracked frames")
		}
		curve, err := tuning.NewCurve(spikePhases, allPhases, curveParams)
		if err != nil {
			return err
		}
		preferred, mi := tuning.FitCosine(curve.BinCenters, curve.Rates)
		results[i] = TuningResult{
			Unit:            units[i],
			PreferredPhase:  preferred,
			ModulationIndex: mi,
			Curve:           curve,
			SpikeCount:      len(spikePhases),
		}
		return nil
	})

	ok := p.collectUnitErrors("whisker_tuning", units, errs)
	p.logger.Info("whisker tuning complete", logging.Fields{
		"units": ok, "trials": len(rows),
	})
	return compactTuning(results, errs), nil
}

// compactTuning drops the slots of skipped units.
func compactTuning(results []TuningResult, errs []error) []TuningResult {
	out := make([]TuningResult, 0, len(results))
	for i, r := range results {
		if errs[i] == nil {
			out = append(out, r)
		}
	}
	return out
}

package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RyanBlaney/orofacial-tuning/logging"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// Event-aligned histogram parameters shared by the lick-locked analyses.
const (
	psthBefore        = 0.5   // Seconds before the event
	psthAfter         = 0.5   // Seconds after the event
	psthBin           = 0.001 // Seconds
	latencyBefore     = 1.0
	latencyAfter      = 0.5
	latencyQuantile   = 0.95
	lickRateBefore    = 0.025 // Per-lick counting window, seconds before contact
	lickRateAfter     = 0.075
	lickRateIntervals = 10 // Inter-lick interval bins
)

// eventPSTH bins spike times relative to each event. Spikes and events
// share the concatenated session clock.
func eventPSTH(spikeTimes, events []float64, before, after, bin float64) *PSTH {
	numBins := int(math.Round((before + after) / bin))
	psth := &PSTH{
		Edges:  make([]float64, numBins),
		Counts: make([]float64, numBins),
		Rates:  make([]float64, numBins),
		Events: len(events),
	}
	for i := range numBins {
		psth.Edges[i] = -before + float64(i)*bin
	}
	for _, ev := range events {
		for _, t := range spikeTimes {
			d := t - ev
			if d < -before || d >= after {
				continue
			}
			idx := int((d + before) / bin)
			if idx >= 0 && idx < numBins {
				psth.Counts[idx]++
			}
		}
	}
	if len(events) > 0 {
		for i := range psth.Rates {
			psth.Rates[i] = psth.Counts[i] / (float64(len(events)) * bin)
		}
	}
	return psth
}

// sessionSpikeTimes concatenates per-trial spike trains onto the session
// clock, clipping spikes outside the trial window.
func sessionSpikeTimes(trains []session.SpikeTrain, trialDuration float64) []float64 {
	var out []float64
	for trial, train := range trains {
		offset := trialDuration * float64(trial)
		for _, t := range train {
			if t < 0 || t >= trialDuration {
				continue
			}
			out = append(out, t+offset)
		}
	}
	return out
}

// UnitPsth computes each unit's spike histogram around lick bout onsets.
func (p *Pipeline) UnitPsth(timing *MovementTimingResult) ([]PSTHResult, error) {
	if timing == nil || timing.LickBouts == nil {
		return nil, fmt.Errorf("unit psth: nil movement timing")
	}
	if timing.LickBouts.Len() == 0 {
		return nil, fmt.Errorf("unit psth: no lick bouts")
	}
	spikes, units, err := p.sessionSpikes()
	if err != nil {
		return nil, fmt.Errorf("unit psth: %w", err)
	}

	results := make([]PSTHResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		results[i] = PSTHResult{
			Unit: units[i],
			PSTH: eventPSTH(spikes[i], timing.LickBouts.Onsets, psthBefore, psthAfter, psthBin),
		}
		return nil
	})

	ok := p.collectUnitErrors("unit_psth", units, errs)
	p.logger.Info("unit psth complete", logging.Fields{
		"units": ok, "events": timing.LickBouts.Len(),
	})
	return results, nil
}

// LickLatency estimates each unit's response latency to lick bout onset:
// the first post-onset millisecond bin (confirmed by its successor)
// whose spike count exceeds the 95th percentile of a Poisson null with
// the pre-onset mean.
func (p *Pipeline) LickLatency(timing *MovementTimingResult) ([]LickLatencyResult, error) {
	if timing == nil || timing.LickBouts == nil || timing.LickBouts.Len() == 0 {
		return nil, fmt.Errorf("lick latency: no lick bouts")
	}
	spikes, units, err := p.sessionSpikes()
	if err != nil {
		return nil, fmt.Errorf("lick latency: %w", err)
	}

	results := make([]LickLatencyResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		psth := eventPSTH(spikes[i], timing.LickBouts.Onsets, latencyBefore, latencyAfter, psthBin)

		baselineBins := int(latencyBefore / psthBin)
		baseline := stat.Mean(psth.Counts[:baselineBins], nil)
		threshold := poissonQuantile(baseline, latencyQuantile)

		res := LickLatencyResult{
			Unit:      units[i],
			Baseline:  baseline,
			Threshold: threshold,
		}
		for b := baselineBins; b+1 < len(psth.Counts); b++ {
			if psth.Counts[b] > threshold && psth.Counts[b+1] > threshold {
				res.Latency = psth.Edges[b]
				res.Found = true
				break
			}
		}
		results[i] = res
		return nil
	})

	ok := p.collectUnitErrors("lick_latency", units, errs)
	p.logger.Info("lick latency complete", logging.Fields{"units": ok})
	return results, nil
}

// LickRate relates each unit's per-lick firing rate to the preceding
// inter-lick interval: licks inside bouts are counted in a short window
// around each contact, rates are averaged within interval bins, and a
// line is fit across the bins.
func (p *Pipeline) LickRate(timing *MovementTimingResult) ([]LickRateResult, error) {
	if timing == nil || timing.LickBouts == nil {
		return nil, fmt.Errorf("lick rate: nil movement timing")
	}
	licks := licksInBouts(timing.LickOnsets, timing.LickBouts.Onsets, timing.LickBouts.Offsets)
	if len(licks) < 2 {
		return nil, fmt.Errorf("lick rate: %d licks inside bouts", len(licks))
	}
	spikes, units, err := p.sessionSpikes()
	if err != nil {
		return nil, fmt.Errorf("lick rate: %w", err)
	}

	// Pair every lick after the first with its preceding interval.
	intervals := make([]float64, 0, len(licks)-1)
	events := make([]float64, 0, len(licks)-1)
	for k := 1; k < len(licks); k++ {
		intervals = append(intervals, licks[k]-licks[k-1])
		events = append(events, licks[k])
	}
	minIv, maxIv := intervals[0], intervals[0]
	for _, iv := range intervals {
		minIv = math.Min(minIv, iv)
		maxIv = math.Max(maxIv, iv)
	}
	if maxIv == minIv {
		return nil, fmt.Errorf("lick rate: degenerate inter-lick intervals")
	}
	ivWidth := (maxIv - minIv) / lickRateIntervals

	results := make([]LickRateResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		sums := make([]float64, lickRateIntervals)
		counts := make([]float64, lickRateIntervals)
		for k, ev := range events {
			rate := countInWindow(spikes[i], ev-lickRateBefore, ev+lickRateAfter) / (lickRateBefore + lickRateAfter)
			bin := int((intervals[k] - minIv) / ivWidth)
			if bin >= lickRateIntervals {
				bin = lickRateIntervals - 1
			}
			sums[bin] += rate
			counts[bin]++
		}

		var centers, means []float64
		for b := range lickRateIntervals {
			if counts[b] == 0 {
				continue
			}
			centers = append(centers, minIv+(float64(b)+0.5)*ivWidth)
			means = append(means, sums[b]/counts[b])
		}
		if len(centers) < 2 {
			return fmt.Errorf("only %d occupied interval bins", len(centers))
		}
		intercept, slope := stat.LinearRegression(centers, means, nil, false)
		results[i] = LickRateResult{
			Unit:       units[i],
			BinCenters: centers,
			MeanRates:  means,
			Slope:      slope,
			Intercept:  intercept,
		}
		return nil
	})

	ok := p.collectUnitErrors("lick_rate", units, errs)
	p.logger.Info("lick rate complete", logging.Fields{
		"units": ok, "licks": len(events),
	})
	return compactLickRate(results, errs), nil
}

// sessionSpikes fetches every unit's spikes on the session clock for the
// kept trials.
func (p *Pipeline) sessionSpikes() ([][]float64, []session.UnitID, error) {
	excl, err := p.store.VideoExclusions()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch exclusions: %w", err)
	}
	trials, units, err := p.keptTrials(excl.All())
	if err != nil {
		return nil, nil, err
	}
	trains, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, nil, err
	}
	trialDuration := p.config.TrialDuration()
	out := make([][]float64, len(units))
	for i := range units {
		out[i] = sessionSpikeTimes(trains[i], trialDuration)
	}
	return out, units, nil
}

// poissonQuantile is the smallest count whose Poisson CDF reaches q.
// A zero-rate baseline yields 0.
func poissonQuantile(lambda, q float64) float64 {
	if lambda <= 0 {
		return 0
	}
	dist := distuv.Poisson{Lambda: lambda}
	for k := 0.0; ; k++ {
		if dist.CDF(k) >= q {
			return k
		}
	}
}

// licksInBouts keeps the lick onsets falling inside a bout interval.
func licksInBouts(licks, onsets, offsets []float64) []float64 {
	var out []float64
	for _, t := range licks {
		for k := range onsets {
			if t >= onsets[k] && t <= offsets[k] {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// countInWindow counts spike times in [from, to).
func countInWindow(spikes []float64, from, to float64) float64 {
	n := 0.0
	for _, t := range spikes {
		if t >= from && t < to {
			n++
		}
	}
	return n
}

// compactLickRate drops the slots of skipped units.
func compactLickRate(results []LickRateResult, errs []error) []LickRateResult {
	out := make([]LickRateResult, 0, len(results))
	for i, r := range results {
		if errs[i] == nil {
			out = append(out, r)
		}
	}
	return out
}

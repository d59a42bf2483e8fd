package analysis

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/orofacial-tuning/algorithms/tuning"
	"github.com/RyanBlaney/orofacial-tuning/logging"
)

// Per-contact spike counting window, seconds around tongue contact.
const (
	contactBefore = 0.05
	contactAfter  = 0.1
)

// directionPorts lists the eight peripheral water ports in angular
// order, starting at direction 0 and advancing counterclockwise. Port 5
// is the center port and carries no direction.
var directionPorts = [8]int{9, 8, 7, 4, 1, 2, 3, 6}

// DirectionTuning computes each unit's tuning over the eight lick
// directions. contacts holds per-trial tongue contact times
// (trial-relative, seconds) and ports the water port cued on each
// trial; both run parallel to the session's trial order.
func (p *Pipeline) DirectionTuning(contacts [][]float64, ports []int) ([]DirectionTuningResult, error) {
	trials, units, err := p.keptTrials(nil)
	if err != nil {
		return nil, fmt.Errorf("direction tuning: %w", err)
	}
	if len(contacts) != len(trials) || len(ports) != len(trials) {
		return nil, fmt.Errorf("direction tuning: %d trials, %d contact lists, %d ports", len(trials), len(contacts), len(ports))
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("direction tuning: %w", err)
	}

	portIndex := make(map[int]int, len(directionPorts))
	for k, port := range directionPorts {
		portIndex[port] = k
	}
	directions := make([]float64, len(directionPorts))
	for k := range directions {
		directions[k] = float64(k) * math.Pi / 4
	}

	results := make([]DirectionTuningResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		spikeSums := make([]float64, len(directionPorts))
		contactCounts := make([]float64, len(directionPorts))
		for t := range trials {
			k, ok := portIndex[ports[t]]
			if !ok {
				continue // Center port or unknown
			}
			for _, c := range contacts[t] {
				spikeSums[k] += countInWindow(spikes[i][t], c-contactBefore, c+contactAfter)
				contactCounts[k]++
			}
		}

		rates := make([]float64, len(directionPorts))
		sampled := 0
		for k := range rates {
			if contactCounts[k] == 0 {
				rates[k] = math.NaN()
				continue
			}
			rates[k] = spikeSums[k] / contactCounts[k]
			sampled++
		}
		if sampled < 3 {
			return fmt.Errorf("only %d directions with contacts", sampled)
		}

		preferred, mi := tuning.FitCosine(directions, rates)
		results[i] = DirectionTuningResult{
			Unit:               units[i],
			PreferredDirection: preferred,
			ModulationIndex:    mi,
			Directions:         directions,
			Rates:              rates,
		}
		return nil
	})

	ok := p.collectUnitErrors("direction_tuning", units, errs)
	p.logger.Info("direction tuning complete", logging.Fields{"units": ok})
	return compactDirection(results, errs), nil
}

// compactDirection drops the slots of skipped units.
func compactDirection(results []DirectionTuningResult, errs []error) []DirectionTuningResult {
	out := make([]DirectionTuningResult, 0, len(results))
	for i, r := range results {
		if errs[i] == nil {
			out = append(out, r)
		}
	}
	return out
}

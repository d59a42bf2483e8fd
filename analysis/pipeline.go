package analysis

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/orofacial-tuning/logging"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// Pipeline runs the session-level analyses against a record store. All
// methods compute one full session; per-unit work runs concurrently,
// per-unit failures are logged and skipped, structural failures abandon
// the session.
type Pipeline struct {
	store  session.Store
	config Config
	logger logging.Logger
}

// NewPipeline creates a pipeline. A nil logger falls back to the global
// logger.
func NewPipeline(store session.Store, config Config, logger logging.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("pipeline: nil store")
	}
	if config.FrameCount <= 0 {
		return nil, fmt.Errorf("pipeline: frame count must be positive, got %d", config.FrameCount)
	}
	if config.VideoSampleInterval <= 0 {
		return nil, fmt.Errorf("pipeline: video sample interval must be positive, got %g", config.VideoSampleInterval)
	}
	if config.BinWidth < config.VideoSampleInterval {
		return nil, fmt.Errorf("pipeline: bin width %g below video sample interval %g", config.BinWidth, config.VideoSampleInterval)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Pipeline{store: store, config: config, logger: logger}, nil
}

// keptTrials returns the session's trials minus the excluded set, along
// with the units. An empty unit list is ErrNoUnits.
func (p *Pipeline) keptTrials(excluded map[session.TrialID]bool) ([]session.TrialID, []session.UnitID, error) {
	trials, err := p.store.TrialIDs()
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: fetch trials: %w", err)
	}
	units, err := p.store.Units()
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: fetch units: %w", err)
	}
	if len(units) == 0 {
		return nil, nil, session.ErrNoUnits
	}
	return session.ExcludeTrials(trials, excluded), units, nil
}

// fetchSpikes fetches every unit's spike trains for the given trials.
// Fetching happens up front and serially so the store never sees
// concurrent calls.
func (p *Pipeline) fetchSpikes(units []session.UnitID, trials []session.TrialID) ([][]session.SpikeTrain, error) {
	spikes := make([][]session.SpikeTrain, len(units))
	for i, unit := range units {
		trains, err := p.store.TrialSpikes(unit, trials)
		if err != nil {
			return nil, fmt.Errorf("pipeline: fetch spikes for unit %d: %w", unit, err)
		}
		spikes[i] = trains
	}
	return spikes, nil
}

// forEachUnit runs fn(i) for each unit index with bounded concurrency.
// fn errors mark the unit skipped; the returned slice has one entry per
// unit, nil for success.
func (p *Pipeline) forEachUnit(n int, fn func(i int) error) []error {
	workers := p.config.Workers
	if workers <= 0 || workers > n {
		workers = n
	}
	errs := make([]error, n)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = fn(i)
		}()
	}
	wg.Wait()
	return errs
}

// collectUnitErrors logs per-unit failures and reports how many units
// succeeded.
func (p *Pipeline) collectUnitErrors(what string, units []session.UnitID, errs []error) int {
	ok := 0
	for i, err := range errs {
		if err != nil {
			p.logger.Warn("unit skipped", logging.Fields{
				"analysis": what,
				"unit":     int(units[i]),
				"reason":   err.Error(),
			})
			continue
		}
		ok++
	}
	return ok
}

package analysis

import (
	"fmt"

	"github.com/RyanBlaney/orofacial-tuning/algorithms/align"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/bouts"
	"github.com/RyanBlaney/orofacial-tuning/algorithms/glm"
	"github.com/RyanBlaney/orofacial-tuning/logging"
	"github.com/RyanBlaney/orofacial-tuning/session"
)

// GLMFit fits each unit's shifted Poisson GLM on the full behavioral
// design matrix, with an every-5th-trial holdout for out-of-sample
// evaluation.
func (p *Pipeline) GLMFit() ([]GLMResult, error) {
	excl, err := p.store.VideoExclusions()
	if err != nil {
		return nil, fmt.Errorf("glm fit: fetch exclusions: %w", err)
	}
	trials, units, err := p.keptTrials(excl.All())
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}
	ch, err := p.loadChannels(trials)
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}

	trainPos, testPos := glm.SplitTrials(len(trials))
	trainSet, err := p.alignChannels(ch, trainPos, align.BoxcarSmoothing)
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}
	testSet, err := p.alignChannels(ch, testPos, align.BoxcarSmoothing)
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}
	trainDM, err := trainSet.matrix()
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}
	testDM, err := testSet.matrix()
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}

	fitter, err := glm.NewShiftedFitter(glm.DefaultShiftedParams())
	if err != nil {
		return nil, fmt.Errorf("glm fit: %w", err)
	}

	trialDuration := p.config.TrialDuration()
	results := make([]GLMResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		yTrain, err := glm.BinSpikes(trainsToSlices(selectPositions(spikes[i], trainPos)), trialDuration, p.config.BinWidth, trainDM.Rows())
		if err != nil {
			return err
		}
		yTest, err := glm.BinSpikes(trainsToSlices(selectPositions(spikes[i], testPos)), trialDuration, p.config.BinWidth, testDM.Rows())
		if err != nil {
			return err
		}
		fit, err := fitter.Fit(trainDM, testDM, yTrain, yTest)
		if err != nil {
			return err
		}
		results[i] = GLMResult{
			Unit:       units[i],
			Predictors: trainDM.Names,
			Fit:        fit,
			TestCounts: yTest,
		}
		return nil
	})

	ok := p.collectUnitErrors("glm_fit", units, errs)
	p.logger.Info("glm fit complete", logging.Fields{
		"units": ok, "train_bins": trainDM.Rows(), "test_bins": testDM.Rows(),
	})
	return compactGLM(results, errs), nil
}

// GLMFitNoLick refits the GLM on the time bins outside lick bouts (with
// a guard margin), isolating behavioral coding that is not lick-locked.
// Fits are in-sample only.
func (p *Pipeline) GLMFitNoLick() ([]GLMResult, error) {
	return p.glmFitNonBout(false)
}

// GLMFitNoLickBody is the non-lick fit extended with the body-camera
// motion component as a ninth predictor; the six tracking channels use
// median smoothing to suppress tracking glitches.
func (p *Pipeline) GLMFitNoLickBody() ([]GLMResult, error) {
	return p.glmFitNonBout(true)
}

func (p *Pipeline) glmFitNonBout(withBody bool) ([]GLMResult, error) {
	what := "glm fit no-lick"
	if withBody {
		what = "glm fit no-lick body"
	}

	excl, err := p.store.VideoExclusions()
	if err != nil {
		return nil, fmt.Errorf("%s: fetch exclusions: %w", what, err)
	}
	trials, units, err := p.keptTrials(excl.All())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	spikes, err := p.fetchSpikes(units, trials)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	ch, err := p.loadChannels(trials)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	method := align.BoxcarSmoothing
	if withBody {
		method = align.MedianSmoothing
	}
	positions := allPositions(len(trials))
	set, err := p.alignChannels(ch, positions, method)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	if withBody {
		bodyCol, err := p.bodyColumn(trials, set.bins)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		set.names = append(set.names, glm.PredBody)
		set.cols = append(set.cols, bodyCol)
		for j, name := range set.names {
			if name == glm.PredWhisker || name == glm.PredBody {
				set.cols[j] = align.FlipIfInverted(set.cols[j], p.config.SVDFlipMargin)
			}
		}
	}

	lickBouts, err := p.lickBouts(ch, positions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	nonBout, err := glm.NonBoutIndices(set.bins, p.config.BinWidth, lickBouts.Onsets, lickBouts.Offsets, p.config.LickGuard)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if len(nonBout) == 0 {
		return nil, fmt.Errorf("%s: no bins outside lick bouts", what)
	}

	totalBins := set.bins
	if err := set.restrict(nonBout); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	set.renormalize()
	dm, err := set.matrix()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	fitter, err := glm.NewShiftedFitter(glm.DefaultShiftedParams())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	trialDuration := p.config.TrialDuration()
	results := make([]GLMResult, len(units))
	errs := p.forEachUnit(len(units), func(i int) error {
		yAll, err := glm.BinSpikes(trainsToSlices(spikes[i]), trialDuration, p.config.BinWidth, totalBins)
		if err != nil {
			return err
		}
		y := make([]float64, len(nonBout))
		for k, idx := range nonBout {
			y[k] = yAll[idx]
		}
		fit, err := fitter.Fit(dm, nil, y, nil)
		if err != nil {
			return err
		}
		results[i] = GLMResult{Unit: units[i], Predictors: dm.Names, Fit: fit}
		return nil
	})

	ok := p.collectUnitErrors(what, units, errs)
	p.logger.Info("glm fit complete", logging.Fields{
		"analysis": what, "units": ok, "bins": len(nonBout), "total_bins": totalBins,
	})
	return compactGLM(results, errs), nil
}

// bodyColumn builds the body-motion predictor: the session's leading
// body component, z-scored, restricted to the kept trials and Fourier
// resampled onto the video bin grid.
func (p *Pipeline) bodyColumn(trials []session.TrialID, bins int) ([]float64, error) {
	flat, err := p.store.BodySVD()
	if err != nil {
		return nil, fmt.Errorf("fetch body component: %w", err)
	}
	rows, err := session.ReshapeMotion(flat, p.config.FrameCountBody)
	if err != nil {
		return nil, err
	}
	rows = align.ZScoreRows(rows)
	kept, err := motionRowsFor(rows, trials)
	if err != nil {
		return nil, err
	}
	var joined []float64
	for _, row := range kept {
		joined = append(joined, row...)
	}
	return align.FourierResample(joined, bins)
}

// lickBouts detects lick bouts on the native-rate tongue gate of the
// given trial partition.
func (p *Pipeline) lickBouts(ch *sessionChannels, positions []int) (*bouts.Bouts, error) {
	rows, err := align.SelectRows(ch.gate, positions)
	if err != nil {
		return nil, err
	}
	var flat []float64
	for _, row := range rows {
		flat = append(flat, row...)
	}
	det, err := bouts.NewDetector(bouts.LickParams(p.config.VideoSampleInterval))
	if err != nil {
		return nil, err
	}
	return det.Detect(flat)
}

// compactGLM drops the slots of skipped units.
func compactGLM(results []GLMResult, errs []error) []GLMResult {
	out := make([]GLMResult, 0, len(results))
	for i, r := range results {
		if errs[i] == nil {
			out = append(out, r)
		}
	}
	return out
}

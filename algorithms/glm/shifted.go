package glm

import "fmt"

// ShiftedParams configures the temporal-shift sweep.
type ShiftedParams struct {
	MinShift int       `json:"min_shift"` // Bins, inclusive
	MaxShift int       `json:"max_shift"` // Bins, inclusive
	Fit      FitParams `json:"fit"`
}

// DefaultShiftedParams sweeps shifts of -5..+5 bins.
func DefaultShiftedParams() ShiftedParams {
	return ShiftedParams{
		MinShift: -5,
		MaxShift: 5,
		Fit:      DefaultFitParams(),
	}
}

// ShiftResult is the outcome for one temporal shift. A failed fit keeps
// Converged false with zero-valued slots; failure is a value here, never
// a silent default.
type ShiftResult struct {
	Tau           int       `json:"tau"`
	Converged     bool      `json:"converged"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Weights       []float64 `json:"weights"` // Intercept first
	R2            float64   `json:"r2"`      // In-sample pseudo-R2
	R2Test        float64   `json:"r2_test"` // Held-out pseudo-R2
	PredictedTest []float64 `json:"predicted_test"`
}

// UnitFit collects one unit's results across the shift window.
type UnitFit struct {
	Shifts  []int         `json:"shifts"`
	Results []ShiftResult `json:"results"`
}

// BestShift returns the shift with the highest in-sample pseudo-R2
// among converged fits, or false if none converged.
func (u *UnitFit) BestShift() (int, bool) {
	best, found := 0, false
	bestR2 := 0.0
	for _, r := range u.Results {
		if r.Converged && (!found || r.R2 > bestR2) {
			best, bestR2, found = r.Tau, r.R2, true
		}
	}
	return best, found
}

// ShiftedFitter fits a Poisson GLM at each temporal shift between the
// spike counts and the predictors, probing the latency that best
// explains firing.
type ShiftedFitter struct {
	params ShiftedParams
	glm    *PoissonGLM
}

// NewShiftedFitter creates a fitter sweeping the configured window.
func NewShiftedFitter(params ShiftedParams) (*ShiftedFitter, error) {
	if params.MinShift > params.MaxShift {
		return nil, fmt.Errorf("shifted fitter: empty shift window [%d, %d]", params.MinShift, params.MaxShift)
	}
	g, err := NewPoissonGLM(params.Fit)
	if err != nil {
		return nil, fmt.Errorf("shifted fitter: %w", err)
	}
	return &ShiftedFitter{params: params, glm: g}, nil
}

// Fit sweeps the shift window for one unit. test and yTest may be nil
// for in-sample-only analyses. The per-shift response is the circularly
// rolled spike-count vector; each shift fits independently and a
// failure zero-fills only that shift's slot.
func (f *ShiftedFitter) Fit(train, test *DesignMatrix, yTrain, yTest []float64) (*UnitFit, error) {
	if train.Rows() != len(yTrain) {
		return nil, fmt.Errorf("shifted fitter: %d train rows vs %d train bins", train.Rows(), len(yTrain))
	}
	if test != nil && test.Rows() != len(yTest) {
		return nil, fmt.Errorf("shifted fitter: %d test rows vs %d test bins", test.Rows(), len(yTest))
	}

	numShifts := f.params.MaxShift - f.params.MinShift + 1
	fit := &UnitFit{
		Shifts:  make([]int, 0, numShifts),
		Results: make([]ShiftResult, 0, numShifts),
	}

	for tau := f.params.MinShift; tau <= f.params.MaxShift; tau++ {
		fit.Shifts = append(fit.Shifts, tau)

		rolled := Roll(yTrain, tau)
		out, err := f.glm.Fit(train, rolled)
		if err != nil {
			fit.Results = append(fit.Results, ShiftResult{
				Tau:           tau,
				FailureReason: err.Error(),
				Weights:       make([]float64, train.Cols()+1),
			})
			continue
		}

		res := ShiftResult{
			Tau:       tau,
			Converged: true,
			Weights:   out.Weights,
			R2:        PseudoR2(rolled, out.Fitted),
		}
		if test != nil {
			rolledTest := Roll(yTest, tau)
			predicted, err := Predict(test, out.Weights)
			if err != nil {
				return nil, fmt.Errorf("shifted fitter: %w", err)
			}
			res.R2Test = PseudoR2(rolledTest, predicted)
			res.PredictedTest = predicted
		}
		fit.Results = append(fit.Results, res)
	}
	return fit, nil
}

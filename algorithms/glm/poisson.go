package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FitParams controls the iteratively reweighted least squares loop.
type FitParams struct {
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"` // Relative deviance change
}

// DefaultFitParams mirrors the statsmodels IRLS defaults closely enough
// for well-posed problems to agree to several digits.
func DefaultFitParams() FitParams {
	return FitParams{
		MaxIterations: 25,
		Tolerance:     1e-8,
	}
}

// PoissonGLM fits count ~ Poisson(exp(intercept + X*w)) by IRLS.
type PoissonGLM struct {
	params FitParams
}

// NewPoissonGLM creates a fitter with the given parameters.
func NewPoissonGLM(params FitParams) (*PoissonGLM, error) {
	if params.MaxIterations <= 0 {
		return nil, fmt.Errorf("poisson glm: max iterations must be positive, got %d", params.MaxIterations)
	}
	if params.Tolerance <= 0 {
		return nil, fmt.Errorf("poisson glm: tolerance must be positive, got %g", params.Tolerance)
	}
	return &PoissonGLM{params: params}, nil
}

// FitOutput holds one converged fit. Weights[0] is the intercept,
// followed by one weight per design-matrix column.
type FitOutput struct {
	Weights    []float64 `json:"weights"`
	Fitted     []float64 `json:"fitted"` // exp(eta) on the training rows
	Deviance   float64   `json:"deviance"`
	Iterations int       `json:"iterations"`
}

// linkClip bounds the linear predictor so exp never overflows; counts
// implied by |eta| = 30 are far outside any physiological rate.
const linkClip = 30.0

// Fit runs IRLS on the design matrix (no intercept column; one is
// prepended internally) against the response counts. Non-convergence
// and singular weighted normal equations are errors; callers decide
// whether that zero-fills a slot or aborts.
func (g *PoissonGLM) Fit(dm *DesignMatrix, y []float64) (*FitOutput, error) {
	n := dm.Rows()
	if n != len(y) {
		return nil, fmt.Errorf("poisson glm: %d design rows vs %d response bins", n, len(y))
	}
	p := dm.Cols() + 1
	if n < p {
		return nil, fmt.Errorf("poisson glm: %d rows for %d parameters", n, p)
	}

	// Start from the intercept-only model.
	meanY := 0.0
	for _, v := range y {
		if v < 0 {
			return nil, fmt.Errorf("poisson glm: negative count %g", v)
		}
		meanY += v
	}
	meanY /= float64(n)
	beta := make([]float64, p)
	beta[0] = math.Log(meanY + 1e-8)

	eta := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	w := make([]float64, n)

	xtwx := mat.NewSymDense(p, nil)
	xtwz := mat.NewVecDense(p, nil)
	var sol mat.VecDense
	var chol mat.Cholesky

	devOld := math.Inf(1)
	for iter := 1; iter <= g.params.MaxIterations; iter++ {
		for i := range n {
			e := beta[0]
			row := dm.Data.RawRowView(i)
			for j, x := range row {
				e += beta[j+1] * x
			}
			if e > linkClip {
				e = linkClip
			} else if e < -linkClip {
				e = -linkClip
			}
			eta[i] = e
			mu[i] = math.Exp(e)
			w[i] = mu[i]
			z[i] = e + (y[i]-mu[i])/mu[i]
		}

		// Weighted normal equations with the implicit leading 1s column.
		for a := range p {
			xtwz.SetVec(a, 0)
			for b := a; b < p; b++ {
				xtwx.SetSym(a, b, 0)
			}
		}
		for i := range n {
			row := dm.Data.RawRowView(i)
			wi := w[i]
			for a := range p {
				xa := 1.0
				if a > 0 {
					xa = row[a-1]
				}
				xtwz.SetVec(a, xtwz.AtVec(a)+wi*xa*z[i])
				for b := a; b < p; b++ {
					xb := 1.0
					if b > 0 {
						xb = row[b-1]
					}
					xtwx.SetSym(a, b, xtwx.At(a, b)+wi*xa*xb)
				}
			}
		}

		if ok := chol.Factorize(xtwx); !ok {
			return nil, fmt.Errorf("poisson glm: singular weighted normal equations at iteration %d", iter)
		}
		if err := chol.SolveVecTo(&sol, xtwz); err != nil {
			return nil, fmt.Errorf("poisson glm: solve failed at iteration %d: %w", iter, err)
		}
		for a := range p {
			beta[a] = sol.AtVec(a)
		}

		dev := deviance(y, mu)
		if math.Abs(dev-devOld) < g.params.Tolerance*(math.Abs(dev)+0.1) {
			return &FitOutput{
				Weights:    beta,
				Fitted:     g.ratesFor(dm, beta),
				Deviance:   dev,
				Iterations: iter,
			}, nil
		}
		devOld = dev
	}
	return nil, fmt.Errorf("poisson glm: no convergence in %d iterations", g.params.MaxIterations)
}

// Predict applies fitted weights (intercept first) to a design matrix,
// returning predicted rates exp(intercept + X*w).
func Predict(dm *DesignMatrix, weights []float64) ([]float64, error) {
	if len(weights) != dm.Cols()+1 {
		return nil, fmt.Errorf("poisson glm: %d weights for %d predictors", len(weights), dm.Cols())
	}
	out := make([]float64, dm.Rows())
	for i := range out {
		e := weights[0]
		row := dm.Data.RawRowView(i)
		for j, x := range row {
			e += weights[j+1] * x
		}
		if e > linkClip {
			e = linkClip
		} else if e < -linkClip {
			e = -linkClip
		}
		out[i] = math.Exp(e)
	}
	return out, nil
}

func (g *PoissonGLM) ratesFor(dm *DesignMatrix, beta []float64) []float64 {
	rates, _ := Predict(dm, beta)
	return rates
}

// deviance is the Poisson deviance 2*sum(y*log(y/mu) - (y - mu)), with
// the y=0 limit handled exactly.
func deviance(y, mu []float64) float64 {
	d := 0.0
	for i := range y {
		if y[i] > 0 {
			d += y[i]*math.Log(y[i]/mu[i]) - (y[i] - mu[i])
		} else {
			d += mu[i]
		}
	}
	return 2 * d
}

// PseudoR2 is 1 - SSE/SST of the response residuals, the goodness-of-fit
// proxy used for these count models. Zero-variance responses yield 0.
func PseudoR2(y, predicted []float64) float64 {
	if len(y) == 0 || len(y) != len(predicted) {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	sst := 0.0
	sse := 0.0
	for i := range y {
		sst += (y[i] - mean) * (y[i] - mean)
		sse += (y[i] - predicted[i]) * (y[i] - predicted[i])
	}
	if sst == 0 {
		return 0
	}
	return 1 - sse/sst
}

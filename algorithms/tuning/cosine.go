package tuning

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FitCosine least-squares fits y = a + b*cos(x - phi) to a tuning curve
// and returns the preferred phase phi in [0, 2*pi) and the modulation
// index b >= 0 (the cosine amplitude; 0 means no phase preference).
//
// The model is linearized as a + p*cos(x) + q*sin(x) with b = hypot(p, q)
// and phi = atan2(q, p). NaN samples (unoccupied bins) are dropped before
// fitting. Degenerate inputs - fewer than three usable bins, zero
// variance, or a rank-deficient system - return (0, 0) rather than NaN.
func FitCosine(x, y []float64) (preferredPhase, modulationIndex float64) {
	if len(x) != len(y) {
		return 0, 0
	}

	var xs, ys []float64
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(ys) < 3 {
		return 0, 0
	}

	mean := 0.0
	for _, v := range ys {
		mean += v
	}
	mean /= float64(len(ys))
	variance := 0.0
	for _, v := range ys {
		variance += (v - mean) * (v - mean)
	}
	if variance == 0 {
		return 0, 0
	}

	design := mat.NewDense(len(xs), 3, nil)
	for i, v := range xs {
		design.Set(i, 0, 1)
		design.Set(i, 1, math.Cos(v))
		design.Set(i, 2, math.Sin(v))
	}
	rhs := mat.NewVecDense(len(ys), ys)

	var coef mat.VecDense
	if err := coef.SolveVec(design, rhs); err != nil {
		return 0, 0
	}

	p := coef.AtVec(1)
	q := coef.AtVec(2)
	b := math.Hypot(p, q)
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, 0
	}

	phi := math.Atan2(q, p)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi, b
}

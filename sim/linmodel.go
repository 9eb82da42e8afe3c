package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ModelFitError reports a numerically failed model fit (singular design,
// separation, non-convergence). It is surfaced to the driver rather than
// swallowed: a silently dropped replicate biases aggregate results.
type ModelFitError struct {
	Model  string
	Reason string
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("%s fit failed: %s", e.Model, e.Reason)
}

// FitWLS solves weighted least squares of y on the design matrix x. A nil
// weight slice means ordinary least squares. Weights must be non-negative;
// the solve goes through QR on the row-rescaled system, so no normal-matrix
// inversion is formed.
func FitWLS(x *mat.Dense, y, w []float64) ([]float64, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("design has %d rows but response has %d", n, len(y))
	}
	if w != nil && len(w) != n {
		return nil, fmt.Errorf("design has %d rows but weights have %d", n, len(w))
	}
	if n < p {
		return nil, &ModelFitError{Model: "wls", Reason: fmt.Sprintf("%d rows for %d coefficients", n, p)}
	}

	xs := mat.NewDense(n, p, nil)
	ys := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		s := 1.0
		if w != nil {
			if w[i] < 0 || math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
				return nil, &ModelFitError{Model: "wls", Reason: fmt.Sprintf("invalid weight %g at row %d", w[i], i)}
			}
			s = math.Sqrt(w[i])
		}
		for j := 0; j < p; j++ {
			xs.Set(i, j, s*x.At(i, j))
		}
		ys.Set(i, 0, s*y[i])
	}

	var qr mat.QR
	qr.Factorize(xs)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, ys); err != nil {
		return nil, &ModelFitError{Model: "wls", Reason: err.Error()}
	}

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = sol.At(j, 0)
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, &ModelFitError{Model: "wls", Reason: "non-finite coefficient (singular design)"}
		}
	}
	return coef, nil
}

// Predict returns x · coef as a slice.
func Predict(x *mat.Dense, coef []float64) []float64 {
	n, p := x.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < p; j++ {
			eta += x.At(i, j) * coef[j]
		}
		out[i] = eta
	}
	return out
}

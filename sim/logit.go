package sim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	maxIRLSIter = 50
	irlsTol     = 1e-9

	// etaSeparationBound flags (quasi-)complete separation: a working
	// linear predictor this large drives fitted probabilities to 0/1 and
	// the IRLS weights to underflow.
	etaSeparationBound = 30.0
)

// LogitFitter fits a binary-response model of y (0/1) on the design matrix
// x with optional prior observation weights, returning coefficients in
// design order. It is a strategy point: the permutation-weighting classifier
// and the IPW propensity model both accept any LogitFitter.
type LogitFitter func(x *mat.Dense, y, priorW []float64) ([]float64, error)

// FitLogit is the default LogitFitter: maximum-likelihood logistic
// regression via iteratively reweighted least squares. Returns
// ModelFitError on separation, singular designs, or non-convergence.
func FitLogit(x *mat.Dense, y, priorW []float64) ([]float64, error) {
	n, p := x.Dims()
	coef := make([]float64, p)

	eta := make([]float64, n)
	z := make([]float64, n)
	w := make([]float64, n)

	for iter := 0; iter < maxIRLSIter; iter++ {
		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < p; j++ {
				e += x.At(i, j) * coef[j]
			}
			if math.Abs(e) > etaSeparationBound {
				return nil, &ModelFitError{Model: "logit", Reason: "separation detected (diverging linear predictor)"}
			}
			eta[i] = e

			mu := logistic(e)
			v := mu * (1 - mu)
			z[i] = e + (y[i]-mu)/v
			w[i] = v
			if priorW != nil {
				w[i] *= priorW[i]
			}
		}

		next, err := FitWLS(x, z, w)
		if err != nil {
			return nil, &ModelFitError{Model: "logit", Reason: err.Error()}
		}

		delta := 0.0
		for j := 0; j < p; j++ {
			if d := math.Abs(next[j] - coef[j]); d > delta {
				delta = d
			}
		}
		coef = next
		if delta < irlsTol {
			return coef, nil
		}
	}
	return nil, &ModelFitError{Model: "logit", Reason: "IRLS did not converge"}
}

// PredictProb returns fitted probabilities logistic(x · coef).
func PredictProb(x *mat.Dense, coef []float64) []float64 {
	eta := Predict(x, coef)
	for i, e := range eta {
		eta[i] = logistic(e)
	}
	return eta
}

func logistic(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}

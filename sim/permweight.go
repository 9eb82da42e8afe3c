package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// DegenerateWeightError reports a classifier probability at (or clipped
// against) 1, whose odds — and therefore the unit's regression weight —
// would be infinite.
type DegenerateWeightError struct {
	Unit int
	Prob float64
}

func (e *DegenerateWeightError) Error() string {
	return fmt.Sprintf("degenerate permutation weight for unit %d: classifier probability %g", e.Unit, e.Prob)
}

// PermWeightConfig configures the permutation weighting engine.
type PermWeightConfig struct {
	Draws    int         // number of independent permutation draws (B)
	Terms    Formula     // classifier design; nil means DefaultClassifierTerms
	Fitter   LogitFitter // classifier strategy; nil means FitLogit
	ProbClip float64     // clip probabilities into [ProbClip, 1-ProbClip]; 0 raises DegenerateWeightError instead
}

// DefaultPermWeightConfig returns the engine defaults: 10 draws, logistic
// classifier on the full exposure × covariate design, probabilities clipped
// at 1e-6.
func DefaultPermWeightConfig() PermWeightConfig {
	return PermWeightConfig{
		Draws:    10,
		Terms:    DefaultClassifierTerms(),
		Fitter:   FitLogit,
		ProbClip: 1e-6,
	}
}

// Validate checks the configuration.
func (cfg PermWeightConfig) Validate() error {
	if cfg.Draws < 1 {
		return fmt.Errorf("permutation draws must be >= 1, got %d", cfg.Draws)
	}
	if cfg.ProbClip < 0 || cfg.ProbClip >= 0.5 {
		return fmt.Errorf("probability clip must lie in [0, 0.5), got %g", cfg.ProbClip)
	}
	return nil
}

// EstimateWeights estimates a density-ratio weight per unit by the
// permutation trick: permuting the treatment column destroys the
// treatment–covariate dependence, producing a sample from the
// product-of-marginals distribution, and a classifier trained to tell
// observed rows (label 0) from permuted rows (label 1) recovers the ratio
// Pr(A)Pr(X)/Pr(A,X) through its odds.
//
// The procedure runs cfg.Draws times with independent permutations and
// averages the per-unit weights element-wise. Every returned weight is
// finite and positive.
func EstimateWeights(ds *SimulationDataset, cfg PermWeightConfig, rng *rand.Rand) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	terms := cfg.Terms
	if terms == nil {
		terms = DefaultClassifierTerms()
	}
	fitter := cfg.Fitter
	if fitter == nil {
		fitter = FitLogit
	}

	n := ds.N()
	acc := make([]float64, n)

	for b := 0; b < cfg.Draws; b++ {
		permuted, err := PermuteTreatment(ds, rng)
		if err != nil {
			return nil, err
		}

		xObs := terms.Matrix(ds)
		xPerm := terms.Matrix(permuted)
		stacked, labels := stackClassificationSet(xObs, xPerm)

		coef, err := fitter(stacked, labels, nil)
		if err != nil {
			return nil, fmt.Errorf("permutation draw %d: %w", b, err)
		}

		// Predict on the observed rows only; the permuted copies exist
		// just to train the discriminator.
		probs := PredictProb(xObs, coef)
		for i, p := range probs {
			if cfg.ProbClip > 0 {
				if p < cfg.ProbClip {
					p = cfg.ProbClip
				} else if p > 1-cfg.ProbClip {
					p = 1 - cfg.ProbClip
				}
			} else if p >= 1 {
				return nil, &DegenerateWeightError{Unit: i, Prob: p}
			}
			acc[i] += p / (1 - p)
		}
	}

	for i := range acc {
		acc[i] /= float64(cfg.Draws)
	}
	return acc, nil
}

// stackClassificationSet stacks the observed design (label 0) over the
// permuted design (label 1) into one 2n-row training set.
func stackClassificationSet(xObs, xPerm *mat.Dense) (*mat.Dense, []float64) {
	n, p := xObs.Dims()
	stacked := mat.NewDense(2*n, p, nil)
	labels := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			stacked.Set(i, j, xObs.At(i, j))
			stacked.Set(n+i, j, xPerm.At(i, j))
		}
		labels[n+i] = 1
	}
	return stacked, labels
}

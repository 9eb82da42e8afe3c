package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Weighting selects how an Estimator weights the marginal model fit.
type Weighting string

const (
	// WeightingNone fits the marginal model unweighted (naive estimator).
	WeightingNone Weighting = "none"
	// WeightingPropensity uses stabilized inverse-probability weights from
	// a fitted propensity model.
	WeightingPropensity Weighting = "propensity"
	// WeightingPermutation uses density-ratio weights from the permutation
	// weighting engine.
	WeightingPermutation Weighting = "permutation"
)

// Estimator is an explicit configuration value: formula, fitter, and
// hyperparameters, with Fit as the single entry point. No fitted state is
// captured between calls.
type Estimator struct {
	Name      string
	Marginal  Formula   // model whose coefficients are reported; nil means MarginalModelTerms
	Weighting Weighting

	// Propensity configures WeightingPropensity.
	Propensity Formula

	// PermWeight configures WeightingPermutation.
	PermWeight PermWeightConfig

	// Logit fits the propensity model; nil means FitLogit.
	Logit LogitFitter
}

// Coef is one named fitted coefficient.
type Coef struct {
	Term  string
	Value float64
}

// EstimationResult holds the fitted marginal-model coefficients for one
// estimator on one dataset.
type EstimationResult struct {
	Method string
	Coefs  []Coef
}

// Coef returns the coefficient for the named term.
func (r *EstimationResult) Coef(term string) (float64, bool) {
	for _, c := range r.Coefs {
		if c.Term == term {
			return c.Value, true
		}
	}
	return 0, false
}

// NewNaiveEstimator returns the unweighted OLS estimator of the marginal
// model.
func NewNaiveEstimator() Estimator {
	return Estimator{Name: "naive", Weighting: WeightingNone}
}

// NewIPWEstimator returns a stabilized inverse-probability-weighted
// estimator whose propensity model uses the given adjustment terms.
func NewIPWEstimator(name string, propensity Formula) Estimator {
	return Estimator{Name: name, Weighting: WeightingPropensity, Propensity: propensity}
}

// NewPermWeightEstimator returns the permutation-weighted estimator.
func NewPermWeightEstimator(cfg PermWeightConfig) Estimator {
	return Estimator{Name: "permutation", Weighting: WeightingPermutation, PermWeight: cfg}
}

// NewEstimatorBank resolves estimator names from a scenario into configured
// Estimator values. Recognized names: naive, ipw, ipw-misspecified,
// permutation.
func NewEstimatorBank(names []string, permCfg PermWeightConfig) ([]Estimator, error) {
	bank := make([]Estimator, 0, len(names))
	for _, name := range names {
		switch name {
		case "naive":
			bank = append(bank, NewNaiveEstimator())
		case "ipw":
			bank = append(bank, NewIPWEstimator("ipw", PropensityTerms()))
		case "ipw-misspecified":
			bank = append(bank, NewIPWEstimator("ipw-misspecified", MisspecifiedPropensityTerms()))
		case "permutation":
			bank = append(bank, NewPermWeightEstimator(permCfg))
		default:
			return nil, fmt.Errorf("unknown estimator %q", name)
		}
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("estimator bank is empty")
	}
	return bank, nil
}

// Fit runs the estimator against one dataset. rng feeds the permutation
// draws of the permutation-weighted estimator; the naive and IPW estimators
// are deterministic given the dataset and ignore it.
func (e *Estimator) Fit(ds *SimulationDataset, rng *rand.Rand) (*EstimationResult, error) {
	marginal := e.Marginal
	if marginal == nil {
		marginal = MarginalModelTerms()
	}

	var (
		weights []float64
		err     error
	)
	switch e.Weighting {
	case WeightingNone:
		weights = nil
	case WeightingPropensity:
		weights, err = e.stabilizedWeights(ds)
	case WeightingPermutation:
		weights, err = EstimateWeights(ds, e.PermWeight, rng)
	default:
		err = fmt.Errorf("unknown weighting %q", e.Weighting)
	}
	if err != nil {
		return nil, fmt.Errorf("estimator %s: %w", e.Name, err)
	}

	x := marginal.Matrix(ds)
	coef, err := FitWLS(x, ds.Outcome, weights)
	if err != nil {
		return nil, fmt.Errorf("estimator %s: %w", e.Name, err)
	}

	names := marginal.Names()
	result := &EstimationResult{Method: e.Name, Coefs: make([]Coef, len(coef))}
	for i, c := range coef {
		result.Coefs[i] = Coef{Term: names[i], Value: c}
	}
	return result, nil
}

// stabilizedWeights fits the propensity model and returns
// w_i = Pr(A = a_i) / Pr(A = a_i | X_i), the marginal prevalence of the
// observed treatment level over its fitted propensity.
func (e *Estimator) stabilizedWeights(ds *SimulationDataset) ([]float64, error) {
	if e.Propensity == nil {
		return nil, fmt.Errorf("propensity terms not configured")
	}
	fitter := e.Logit
	if fitter == nil {
		fitter = FitLogit
	}

	x := e.Propensity.Matrix(ds)
	coef, err := fitter(x, ds.Treat, nil)
	if err != nil {
		return nil, err
	}
	probs := PredictProb(x, coef)

	pbar := stat.Mean(ds.Treat, nil)
	n := ds.N()
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		num, den := pbar, probs[i]
		if ds.Treat[i] == 0 {
			num, den = 1-pbar, 1-probs[i]
		}
		if den <= 0 {
			return nil, &ModelFitError{Model: "propensity", Reason: fmt.Sprintf("zero fitted probability for unit %d", i)}
		}
		w[i] = num / den
	}
	return w, nil
}

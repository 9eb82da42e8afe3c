package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestPermWeightConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultPermWeightConfig().Validate())

	bad := DefaultPermWeightConfig()
	bad.Draws = 0
	assert.Error(t, bad.Validate())

	bad = DefaultPermWeightConfig()
	bad.ProbClip = 0.5
	assert.Error(t, bad.Validate())
}

func TestEstimateWeights_PositiveAndFinite(t *testing.T) {
	g := testGraph(t, 300, 5, 42)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(42), 0))
	require.NoError(t, err)

	cfg := DefaultPermWeightConfig()
	cfg.Draws = 3
	w, err := EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(42), 1))
	require.NoError(t, err)

	require.Len(t, w, ds.N())
	for i, wi := range w {
		assert.Greater(t, wi, 0.0, "weight %d", i)
		assert.False(t, math.IsInf(wi, 0), "weight %d", i)
		assert.False(t, math.IsNaN(wi), "weight %d", i)
	}
}

func TestEstimateWeights_IndependenceGivesUnitWeights(t *testing.T) {
	// Treatment drawn independently of all covariates: there is no
	// dependence to break, so the density ratio is 1 and the average
	// weight must sit near 1.
	g := testGraph(t, 800, 5, 7)
	params := testGenParams()
	params.Gamma = []float64{0.2, 0, 0, 0, 0}
	ds, err := GenerateDataset(g, params, ReplicateRNG(NewSimulationKey(7), 0))
	require.NoError(t, err)

	cfg := DefaultPermWeightConfig()
	cfg.Draws = 5
	w, err := EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(7), 1))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, stat.Mean(w, nil), 0.15)
}

func TestEstimateWeights_Deterministic(t *testing.T) {
	g := testGraph(t, 200, 4, 3)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(3), 0))
	require.NoError(t, err)

	cfg := DefaultPermWeightConfig()
	cfg.Draws = 2
	w1, err := EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(3), 1))
	require.NoError(t, err)
	w2, err := EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(3), 1))
	require.NoError(t, err)
	assert.Equal(t, w1, w2)
}

func TestEstimateWeights_DegenerateProbability(t *testing.T) {
	g := testGraph(t, 40, 3, 5)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(5), 0))
	require.NoError(t, err)

	// A classifier stub that claims certainty for every row. With clipping
	// disabled this must surface DegenerateWeightError.
	certain := func(x *mat.Dense, y, priorW []float64) ([]float64, error) {
		_, p := x.Dims()
		coef := make([]float64, p)
		coef[0] = 1e6 // drives logistic(eta) to exactly 1 in float64
		return coef, nil
	}

	cfg := PermWeightConfig{Draws: 1, Terms: MarginalModelTerms(), Fitter: certain, ProbClip: 0}
	_, err = EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(5), 1))
	var degen *DegenerateWeightError
	require.ErrorAs(t, err, &degen)

	// With clipping enabled the same stub yields large but finite weights.
	cfg.ProbClip = 1e-6
	w, err := EstimateWeights(ds, cfg, ReplicateRNG(NewSimulationKey(5), 1))
	require.NoError(t, err)
	for _, wi := range w {
		assert.False(t, math.IsInf(wi, 0))
	}
}

func TestStackClassificationSet_Layout(t *testing.T) {
	xObs := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	xPerm := mat.NewDense(2, 2, []float64{5, 6, 7, 8})

	stacked, labels := stackClassificationSet(xObs, xPerm)
	r, c := stacked.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{0, 0, 1, 1}, labels)
	assert.Equal(t, 1.0, stacked.At(0, 0))
	assert.Equal(t, 5.0, stacked.At(2, 0))
	assert.Equal(t, 8.0, stacked.At(3, 1))
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestNewEstimatorBank(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{"default bank", []string{"naive", "ipw", "permutation"}, false},
		{"with misspecified ipw", []string{"naive", "ipw-misspecified"}, false},
		{"unknown name", []string{"naive", "matching"}, true},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := NewEstimatorBank(tt.names, DefaultPermWeightConfig())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, bank, len(tt.names))
			for i, e := range bank {
				assert.Equal(t, tt.names[i], e.Name)
			}
		})
	}
}

func TestEstimationResult_CoefLookup(t *testing.T) {
	r := &EstimationResult{
		Method: "naive",
		Coefs:  []Coef{{Term: "1", Value: 2}, {Term: "a", Value: 1.5}},
	}
	v, ok := r.Coef("a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	_, ok = r.Coef("fa")
	assert.False(t, ok)
}

func TestNaiveEstimator_UnconfoundedRecovery(t *testing.T) {
	// With treatment independent of covariates there is no confounding,
	// so even the naive estimator recovers the effects.
	g := testGraph(t, 1500, 5, 42)
	params := testGenParams()
	params.Gamma = []float64{0, 0, 0, 0, 0}
	ds, err := GenerateDataset(g, params, ReplicateRNG(NewSimulationKey(42), 0))
	require.NoError(t, err)

	est := NewNaiveEstimator()
	result, err := est.Fit(ds, ReplicateRNG(NewSimulationKey(42), 1))
	require.NoError(t, err)
	assert.Equal(t, "naive", result.Method)

	a, ok := result.Coef("a")
	require.True(t, ok)
	assert.InDelta(t, params.Beta[1], a, 0.5)

	fa, ok := result.Coef("fa")
	require.True(t, ok)
	assert.InDelta(t, params.Beta[2], fa, 1.0)
}

func TestIPWEstimator_StabilizedWeights(t *testing.T) {
	g := testGraph(t, 600, 5, 11)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(11), 0))
	require.NoError(t, err)

	est := NewIPWEstimator("ipw", PropensityTerms())
	w, err := est.stabilizedWeights(ds)
	require.NoError(t, err)
	require.Len(t, w, ds.N())

	// Stabilized weights are positive and average near 1.
	for i, wi := range w {
		assert.Greater(t, wi, 0.0, "weight %d", i)
	}
	assert.InDelta(t, 1.0, stat.Mean(w, nil), 0.1)
}

func TestEstimator_FitReportsMarginalTerms(t *testing.T) {
	g := testGraph(t, 300, 4, 3)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(3), 0))
	require.NoError(t, err)

	permCfg := DefaultPermWeightConfig()
	permCfg.Draws = 2
	bank, err := NewEstimatorBank([]string{"naive", "ipw", "permutation"}, permCfg)
	require.NoError(t, err)

	for i := range bank {
		result, err := bank[i].Fit(ds, ReplicateRNG(NewSimulationKey(3), 1))
		require.NoError(t, err, bank[i].Name)
		require.Len(t, result.Coefs, 3)
		assert.Equal(t, "1", result.Coefs[0].Term)
		assert.Equal(t, "a", result.Coefs[1].Term)
		assert.Equal(t, "fa", result.Coefs[2].Term)
	}
}

func TestEstimator_UnknownWeighting(t *testing.T) {
	g := testGraph(t, 50, 3, 1)
	ds, err := GenerateDataset(g, testGenParams(), ReplicateRNG(NewSimulationKey(1), 0))
	require.NoError(t, err)

	est := Estimator{Name: "bogus", Weighting: Weighting("bogus")}
	_, err = est.Fit(ds, ReplicateRNG(NewSimulationKey(1), 1))
	assert.Error(t, err)
}

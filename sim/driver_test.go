package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interference-sim/interference-sim/sim/report"
)

func testDriver(t *testing.T, replicates, workers int, onFailure FailurePolicy, bank []Estimator) *Driver {
	t.Helper()
	g := testGraph(t, 120, 4, 42)
	cfg := NewDriverConfig(replicates, workers,
		testGenParams(),
		Oracle{Treatment: 2, Spill: 0},
		onFailure,
	)
	d, err := NewDriver(cfg, g, bank, NewSimulationKey(42))
	require.NoError(t, err)
	return d
}

func quickBank(t *testing.T) []Estimator {
	t.Helper()
	permCfg := DefaultPermWeightConfig()
	permCfg.Draws = 2
	bank, err := NewEstimatorBank([]string{"naive", "ipw", "permutation"}, permCfg)
	require.NoError(t, err)
	return bank
}

func TestDriverConfig_Validate(t *testing.T) {
	cfg := NewDriverConfig(10, 0, testGenParams(), Oracle{}, FailureRecord)
	assert.NoError(t, cfg.Validate())

	cfg.Replicates = 0
	assert.Error(t, cfg.Validate())

	cfg = NewDriverConfig(10, 0, testGenParams(), Oracle{}, FailurePolicy("skip"))
	assert.Error(t, cfg.Validate())

	bad := testGenParams()
	bad.Gamma = bad.Gamma[:2]
	cfg = NewDriverConfig(10, 0, bad, Oracle{}, FailureRecord)
	assert.Error(t, cfg.Validate())
}

func TestDriver_RecordShape(t *testing.T) {
	d := testDriver(t, 5, 0, FailureRecord, quickBank(t))
	table, err := d.Run()
	require.NoError(t, err)

	// replicates × methods × 2 parameters, in replicate order.
	assert.Len(t, table.Records, 5*3*2)
	assert.Empty(t, table.Failures)

	seen := map[string]int{}
	for _, r := range table.Records {
		assert.Contains(t, []string{report.ParamTreatment, report.ParamSpill}, r.Param)
		assert.InDelta(t, r.Estimate-biasOracle(r.Param), r.Bias, 1e-12)
		seen[r.Method]++
	}
	assert.Equal(t, map[string]int{"naive": 10, "ipw": 10, "permutation": 10}, seen)

	for i := 1; i < len(table.Records); i++ {
		assert.LessOrEqual(t, table.Records[i-1].Replicate, table.Records[i].Replicate)
	}

	assert.Equal(t, 5, d.Metrics.ReplicatesRun)
	assert.Equal(t, 3, d.Metrics.MethodsRun)
	assert.Equal(t, 0, d.Metrics.FailuresRecorded)
}

// biasOracle mirrors the oracle wired into testDriver.
func biasOracle(param string) float64 {
	if param == report.ParamTreatment {
		return 2
	}
	return 0
}

func TestDriver_ParallelMatchesSequential(t *testing.T) {
	// Per-replicate streams make the run reproducible for any worker count.
	seq, err := testDriver(t, 8, 1, FailureRecord, quickBank(t)).Run()
	require.NoError(t, err)
	par, err := testDriver(t, 8, 4, FailureRecord, quickBank(t)).Run()
	require.NoError(t, err)

	assert.Equal(t, seq.Records, par.Records)
	assert.Equal(t, seq.Failures, par.Failures)
}

func TestDriver_FailurePolicyRecord(t *testing.T) {
	bank := quickBank(t)
	bank = append(bank, Estimator{Name: "broken", Weighting: Weighting("bogus")})

	d := testDriver(t, 4, 0, FailureRecord, bank)
	table, err := d.Run()
	require.NoError(t, err)

	// The broken estimator fails every replicate; the rest still report.
	assert.Len(t, table.Records, 4*3*2)
	require.Len(t, table.Failures, 4)
	for _, f := range table.Failures {
		assert.Equal(t, "broken", f.Method)
		assert.NotEmpty(t, f.Reason)
	}
	assert.Equal(t, 4, d.Metrics.FailuresRecorded)
}

func TestDriver_FailurePolicyAbort(t *testing.T) {
	bank := []Estimator{{Name: "broken", Weighting: Weighting("bogus")}}
	d := testDriver(t, 4, 0, FailureAbort, bank)
	_, err := d.Run()
	assert.Error(t, err)
}

func TestNewDriver_RejectsMissingPieces(t *testing.T) {
	g := testGraph(t, 50, 3, 1)
	cfg := NewDriverConfig(2, 0, testGenParams(), Oracle{}, FailureRecord)

	_, err := NewDriver(cfg, nil, quickBank(t), NewSimulationKey(1))
	assert.Error(t, err)

	_, err = NewDriver(cfg, g, nil, NewSimulationKey(1))
	assert.Error(t, err)
}

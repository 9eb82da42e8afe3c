package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/interference-sim/interference-sim/sim/report"
)

// FailurePolicy decides what the driver does when one replicate's
// generation or fit fails.
type FailurePolicy string

const (
	// FailureAbort stops the whole run on the first failure.
	FailureAbort FailurePolicy = "abort"
	// FailureRecord logs the failure, keeps a FailureRecord in the result
	// table, and continues with the remaining replicates.
	FailureRecord FailurePolicy = "record"
)

// Oracle holds the ground-truth marginal-model parameters bias is computed
// against.
type Oracle struct {
	Treatment float64 // true own-treatment coefficient
	Spill     float64 // true treated-neighbor-proportion coefficient
}

// DriverConfig groups simulation driver parameters.
type DriverConfig struct {
	Replicates int
	Workers    int // replicate-level parallelism; <=1 means sequential
	Params     GenParams
	Oracle     Oracle
	OnFailure  FailurePolicy
}

// Validate checks the driver configuration.
func (cfg DriverConfig) Validate() error {
	if cfg.Replicates < 1 {
		return fmt.Errorf("replicates must be >= 1, got %d", cfg.Replicates)
	}
	if cfg.OnFailure != FailureAbort && cfg.OnFailure != FailureRecord {
		return fmt.Errorf("unknown failure policy %q", cfg.OnFailure)
	}
	return cfg.Params.Validate()
}

// Driver runs the replicate loop: fresh dataset per replicate over the
// shared immutable graph, every estimator in the bank against it, and one
// tidy bias record per (replicate, method, parameter).
type Driver struct {
	cfg   DriverConfig
	graph *AdjacencyGraph
	bank  []Estimator
	key   SimulationKey

	Metrics Metrics
}

// NewDriver creates a Driver over a generated graph and estimator bank.
func NewDriver(cfg DriverConfig, graph *AdjacencyGraph, bank []Estimator, key SimulationKey) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, fmt.Errorf("driver needs a graph")
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("driver needs at least one estimator")
	}
	return &Driver{cfg: cfg, graph: graph, bank: bank, key: key}, nil
}

// Run executes every replicate and returns the merged bias table. Each
// replicate draws from its own deterministic stream (see ReplicateRNG), so
// the output is identical for any worker count; workers only share the
// read-only graph and write to their own per-replicate buffers, merged by
// replicate index at the end.
func (d *Driver) Run() (*report.BiasTable, error) {
	records := make([][]report.BiasRecord, d.cfg.Replicates)
	failures := make([][]report.FailureRecord, d.cfg.Replicates)

	var g errgroup.Group
	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for rep := 0; rep < d.cfg.Replicates; rep++ {
		rep := rep
		g.Go(func() error {
			recs, fails, err := d.runReplicate(rep)
			if err != nil {
				return err
			}
			records[rep] = recs
			failures[rep] = fails
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := report.NewBiasTable()
	for rep := 0; rep < d.cfg.Replicates; rep++ {
		table.Append(records[rep]...)
		for _, f := range failures[rep] {
			table.AppendFailure(f)
		}
	}

	d.Metrics.ReplicatesRun = d.cfg.Replicates
	d.Metrics.MethodsRun = len(d.bank)
	d.Metrics.FailuresRecorded = len(table.Failures)
	return table, nil
}

// runReplicate generates one dataset and fits the whole bank against it.
func (d *Driver) runReplicate(rep int) ([]report.BiasRecord, []report.FailureRecord, error) {
	rng := ReplicateRNG(d.key, rep)

	ds, err := GenerateDataset(d.graph, d.cfg.Params, rng)
	if err != nil {
		if d.cfg.OnFailure == FailureAbort {
			return nil, nil, fmt.Errorf("replicate %d: %w", rep, err)
		}
		logrus.Warnf("replicate %d: dataset generation failed: %v", rep, err)
		return nil, []report.FailureRecord{{Replicate: rep, Method: "generate", Reason: err.Error()}}, nil
	}

	var recs []report.BiasRecord
	var fails []report.FailureRecord
	for i := range d.bank {
		result, err := d.bank[i].Fit(ds, rng)
		if err != nil {
			if d.cfg.OnFailure == FailureAbort {
				return nil, nil, fmt.Errorf("replicate %d: %w", rep, err)
			}
			logrus.Warnf("replicate %d: %v", rep, err)
			fails = append(fails, report.FailureRecord{Replicate: rep, Method: d.bank[i].Name, Reason: err.Error()})
			continue
		}

		a, ok := result.Coef(report.ParamTreatment)
		if !ok {
			return nil, nil, fmt.Errorf("replicate %d: estimator %s reported no %q coefficient", rep, result.Method, report.ParamTreatment)
		}
		fa, ok := result.Coef(report.ParamSpill)
		if !ok {
			return nil, nil, fmt.Errorf("replicate %d: estimator %s reported no %q coefficient", rep, result.Method, report.ParamSpill)
		}

		recs = append(recs,
			report.BiasRecord{Replicate: rep, Method: result.Method, Param: report.ParamTreatment, Estimate: a, Bias: a - d.cfg.Oracle.Treatment},
			report.BiasRecord{Replicate: rep, Method: result.Method, Param: report.ParamSpill, Estimate: fa, Bias: fa - d.cfg.Oracle.Spill},
		)
	}
	return recs, fails, nil
}

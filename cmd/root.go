package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/interference-sim/interference-sim/sim"
	"github.com/interference-sim/interference-sim/sim/report"
	"github.com/interference-sim/interference-sim/sim/scenario"
)

// graphRetries bounds fresh degree-sequence draws when a drawn sequence
// turns out to be unrealizable.
const graphRetries = 3

var (
	// CLI flags for the simulation run
	seed             int64     // Master seed for the whole run
	logLevel         string    // Log verbosity level
	scenarioPath     string    // Optional YAML scenario file (overrides the flags below)
	units            int       // Number of units n
	maxDegree        int       // Degree bound of the random graph
	replicates       int       // Number of simulation replicates
	permutationDraws int       // Permutation draws B per weight estimate
	workers          int       // Replicate-level parallelism (0/1 = sequential)
	gammaCoeffs      []float64 // Treatment-assignment model coefficients
	betaCoeffs       []float64 // Outcome model coefficients
	oracleTreatment  float64   // Ground-truth own-treatment effect
	oracleSpill      float64   // Ground-truth neighbor-treatment effect
	estimators       []string  // Estimator bank (naive, ipw, ipw-misspecified, permutation)
	onFailure        string    // Failure policy: abort or record
	probClip         float64   // Classifier probability clip (0 disables)
	output           string    // CSV path for the tidy bias table
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "interference-sim",
	Short: "Monte Carlo simulator for causal effect estimation under network interference",
}

// runCmd executes the simulation using a scenario file or CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the permutation-weighting simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		spec, err := resolveSpec(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		logrus.Infof("Starting simulation with n=%d, maxDegree=%d, replicates=%d, B=%d, gamma=%v, beta=%v",
			spec.Units, spec.MaxDegree, spec.Replicates, spec.PermutationDraws, spec.Gamma, spec.Beta)

		startTime := time.Now()

		key := sim.NewSimulationKey(spec.Seed)
		prng := sim.NewPartitionedRNG(key)

		graph, err := generateGraph(spec, prng)
		if err != nil {
			logrus.Fatalf("Graph generation failed: %v", err)
		}

		permCfg := sim.DefaultPermWeightConfig()
		permCfg.Draws = spec.PermutationDraws
		permCfg.ProbClip = *spec.ProbClip

		bank, err := sim.NewEstimatorBank(spec.Estimators, permCfg)
		if err != nil {
			logrus.Fatalf("Invalid estimator bank: %v", err)
		}

		cfg := sim.NewDriverConfig(
			spec.Replicates,
			spec.Workers,
			sim.GenParams{Gamma: spec.Gamma, Beta: spec.Beta},
			sim.Oracle{Treatment: spec.Oracle.Treatment, Spill: spec.Oracle.Spill},
			sim.FailurePolicy(spec.OnFailure),
		)
		driver, err := sim.NewDriver(cfg, graph, bank, key)
		if err != nil {
			logrus.Fatalf("Driver setup failed: %v", err)
		}

		table, err := driver.Run()
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		driver.Metrics.Print(table, startTime)

		if spec.Output != "" {
			if err := writeBiasCSV(table, spec.Output); err != nil {
				logrus.Fatalf("Writing bias table failed: %v", err)
			}
			logrus.Infof("Bias table written to %s", spec.Output)
		}

		logrus.Info("Simulation complete.")
	},
}

// resolveSpec builds the run configuration from the scenario file when one
// is given, otherwise from the CLI flags.
func resolveSpec(cmd *cobra.Command) (*scenario.Spec, error) {
	if scenarioPath != "" {
		return scenario.Load(scenarioPath)
	}
	spec := &scenario.Spec{
		Seed:             seed,
		Units:            units,
		MaxDegree:        maxDegree,
		Replicates:       replicates,
		PermutationDraws: permutationDraws,
		Workers:          workers,
		Gamma:            gammaCoeffs,
		Beta:             betaCoeffs,
		Oracle:           scenario.OracleSpec{Treatment: oracleTreatment, Spill: oracleSpill},
		Estimators:       estimators,
		OnFailure:        onFailure,
		Output:           output,
	}
	if cmd.Flags().Changed("prob-clip") {
		spec.ProbClip = &probClip
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// generateGraph draws the shared network, retrying with a fresh degree draw
// on an unrealizable sequence.
func generateGraph(spec *scenario.Spec, prng *sim.PartitionedRNG) (*sim.AdjacencyGraph, error) {
	rng := prng.ForSubsystem(sim.SubsystemGraph)
	var lastErr error
	for attempt := 0; attempt < graphRetries; attempt++ {
		graph, err := sim.GenerateGraph(spec.Units, spec.MaxDegree, rng)
		if err == nil {
			return graph, nil
		}
		lastErr = err
		var infeasible *sim.InfeasibleDegreeSequenceError
		if !errors.As(err, &infeasible) {
			return nil, err
		}
		logrus.Warnf("Degree sequence not realizable (attempt %d/%d), redrawing", attempt+1, graphRetries)
	}
	return nil, lastErr
}

// writeBiasCSV writes the tidy bias table to the given path.
func writeBiasCSV(table *report.BiasTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(table, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for the whole run")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (overrides the remaining flags)")

	// Network and replication configs
	runCmd.Flags().IntVar(&units, "units", scenario.DefaultUnits, "Number of units in the network")
	runCmd.Flags().IntVar(&maxDegree, "max-degree", scenario.DefaultMaxDegree, "Degree bound of the random graph")
	runCmd.Flags().IntVar(&replicates, "replicates", scenario.DefaultReplicates, "Number of simulation replicates")
	runCmd.Flags().IntVar(&permutationDraws, "permutation-draws", scenario.DefaultPermutationDraws, "Permutation draws per weight estimate")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Replicate-level parallelism (0 = sequential)")

	// Generative model configs
	runCmd.Flags().Float64SliceVar(&gammaCoeffs, "gamma", []float64{0.1, 0.2, 0, 0.2, 0.2}, "Comma-separated treatment model coefficients")
	runCmd.Flags().Float64SliceVar(&betaCoeffs, "beta", []float64{2, 2, 0, -1.5, 2, -3, -3}, "Comma-separated outcome model coefficients")
	runCmd.Flags().Float64Var(&oracleTreatment, "oracle-treatment", 2, "Ground-truth own-treatment effect")
	runCmd.Flags().Float64Var(&oracleSpill, "oracle-spill", 0, "Ground-truth neighbor-treatment effect")

	// Estimation configs
	runCmd.Flags().StringSliceVar(&estimators, "estimators", nil, "Estimator bank (naive, ipw, ipw-misspecified, permutation)")
	runCmd.Flags().StringVar(&onFailure, "on-failure", scenario.DefaultOnFailure, "Replicate failure policy: abort or record")
	runCmd.Flags().Float64Var(&probClip, "prob-clip", scenario.DefaultProbClip, "Classifier probability clip (0 raises on degenerate weights)")
	runCmd.Flags().StringVar(&output, "output", "", "CSV path for the tidy bias table")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

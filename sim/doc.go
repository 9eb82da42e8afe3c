// Package sim provides the Monte Carlo engine for estimating causal effects
// under network interference via permutation weighting.
//
// # Reading Guide
//
// Start with these three files to understand the pipeline:
//   - graph.go: the shared random network (bounded-degree simple graph)
//   - dataset.go: one synthetic draw of covariates, treatment, and outcome
//   - driver.go: the replicate loop and tidy bias-record collection
//
// # Architecture
//
// A run is: GenerateGraph once; then per replicate GenerateDataset, fit
// every Estimator in the bank, and record bias against the oracle. The
// permutation-weighted estimator calls EstimateWeights (permweight.go),
// which trains a classifier to tell observed rows from
// treatment-permuted rows and converts its fitted odds into density-ratio
// regression weights.
//
// Sub-packages:
//   - sim/report: tidy bias records, aggregation, CSV round trip
//   - sim/scenario: YAML run configuration
//
// # Key extension points
//
//   - Formula / Term (design.go): enumerated design-matrix terms; all
//     generative and fitted models are declared as term lists.
//   - LogitFitter (logit.go): classifier/propensity strategy; FitLogit
//     (IRLS logistic regression) is the default.
//   - Estimator (estimator.go): a configuration value with a single Fit
//     entry point; NewEstimatorBank resolves scenario names.
package sim

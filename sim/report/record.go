// Package report provides tidy per-replicate result records for the
// simulation driver. It has no dependency on sim/ — it stores pure data
// types plus their aggregation and CSV round trip.
package report

// Parameter names the marginal-model coefficients tracked for bias.
const (
	ParamTreatment = "a"  // own-treatment coefficient
	ParamSpill     = "fa" // treated-neighbor-proportion coefficient
)

// BiasRecord captures one estimate of one parameter by one method on one
// replicate, in tidy (long) form.
type BiasRecord struct {
	Replicate int
	Method    string
	Param     string
	Estimate  float64
	Bias      float64 // Estimate minus the oracle value
}

// FailureRecord captures a replicate a method failed on, so failed fits are
// reported rather than silently dropped.
type FailureRecord struct {
	Replicate int
	Method    string
	Reason    string
}

// Tracks run-wide counters and prints the end-of-run bias report.

package sim

import (
	"fmt"
	"time"

	"github.com/interference-sim/interference-sim/sim/report"
)

// Metrics aggregates statistics about the simulation run for final
// reporting.
type Metrics struct {
	ReplicatesRun    int // replicates executed
	MethodsRun       int // estimators in the bank
	FailuresRecorded int // replicate × method failures kept under FailureRecord
}

// Print displays aggregated metrics and the per-(method, parameter) bias
// summary at the end of the run.
func (m *Metrics) Print(table *report.BiasTable, startTime time.Time) {
	summary := report.Summarize(table)

	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Replicates Run       : %d\n", m.ReplicatesRun)
	fmt.Printf("Estimators           : %d\n", m.MethodsRun)
	fmt.Printf("Bias Records         : %d\n", summary.TotalRecords)
	fmt.Printf("Recorded Failures    : %d\n", summary.TotalFailures)
	fmt.Printf("Wall Time            : %v\n", time.Since(startTime).Round(time.Millisecond))

	if len(summary.Cells) > 0 {
		fmt.Println("=== Mean Absolute Bias ===")
		for _, c := range summary.Cells {
			fmt.Printf("%-18s %-4s : %.4f (mean bias %+.4f over %d replicates)\n",
				c.Method, c.Param, c.MeanAbsBias, c.MeanBias, c.Replicates)
		}
	}
}

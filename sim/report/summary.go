package report

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// MethodParamSummary aggregates one (method, parameter) cell of the bias
// table.
type MethodParamSummary struct {
	Method       string
	Param        string
	Replicates   int
	MeanEstimate float64
	MeanBias     float64
	MeanAbsBias  float64
	MaxAbsBias   float64
}

// TableSummary aggregates a full BiasTable.
type TableSummary struct {
	TotalRecords  int
	TotalFailures int
	Cells         []MethodParamSummary // sorted by method, then parameter
}

// Summarize computes per-(method, parameter) aggregate statistics. Safe for
// nil or empty tables (returns zero-value fields).
func Summarize(t *BiasTable) *TableSummary {
	summary := &TableSummary{}
	if t == nil {
		return summary
	}
	summary.TotalRecords = len(t.Records)
	summary.TotalFailures = len(t.Failures)

	type key struct{ method, param string }
	groups := make(map[key][]BiasRecord)
	for _, r := range t.Records {
		k := key{r.Method, r.Param}
		groups[k] = append(groups[k], r)
	}

	for k, records := range groups {
		estimates := make([]float64, len(records))
		biases := make([]float64, len(records))
		absBiases := make([]float64, len(records))
		maxAbs := 0.0
		for i, r := range records {
			estimates[i] = r.Estimate
			biases[i] = r.Bias
			absBiases[i] = math.Abs(r.Bias)
			if absBiases[i] > maxAbs {
				maxAbs = absBiases[i]
			}
		}

		// stats.Mean errors only on empty input, which cannot happen here.
		meanEst, _ := stats.Mean(estimates)
		meanBias, _ := stats.Mean(biases)
		meanAbs, _ := stats.Mean(absBiases)

		summary.Cells = append(summary.Cells, MethodParamSummary{
			Method:       k.method,
			Param:        k.param,
			Replicates:   len(records),
			MeanEstimate: meanEst,
			MeanBias:     meanBias,
			MeanAbsBias:  meanAbs,
			MaxAbsBias:   maxAbs,
		})
	}

	sort.Slice(summary.Cells, func(i, j int) bool {
		if summary.Cells[i].Method != summary.Cells[j].Method {
			return summary.Cells[i].Method < summary.Cells[j].Method
		}
		return summary.Cells[i].Param < summary.Cells[j].Param
	})
	return summary
}

// Cell returns the summary cell for the given method and parameter.
func (s *TableSummary) Cell(method, param string) (MethodParamSummary, bool) {
	for _, c := range s.Cells {
		if c.Method == method && c.Param == param {
			return c, true
		}
	}
	return MethodParamSummary{}, false
}

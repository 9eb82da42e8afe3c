package sim

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Var enumerates the dataset columns a model term may reference. Formulas
// are built from these rather than from symbolic strings, so a term list is
// checkable at construction time.
type Var int

const (
	VarTreat       Var = iota // treatment indicator A
	VarTreatedFrac            // proportion of treated neighbors fA
	VarAbsZ1                  // |Z1|
	VarZ2                     // Z2
	VarNeighborZ              // one-hop neighbor sum of |Z1|
)

var varNames = map[Var]string{
	VarTreat:       "a",
	VarTreatedFrac: "fa",
	VarAbsZ1:       "absz1",
	VarZ2:          "z2",
	VarNeighborZ:   "nbrz",
}

func (v Var) String() string {
	if name, ok := varNames[v]; ok {
		return name
	}
	return "unknown"
}

// column resolves a Var to its dataset column.
func (ds *SimulationDataset) column(v Var) []float64 {
	switch v {
	case VarTreat:
		return ds.Treat
	case VarTreatedFrac:
		return ds.TreatedFrac
	case VarAbsZ1:
		return ds.AbsZ1
	case VarZ2:
		return ds.Z2
	case VarNeighborZ:
		return ds.NeighborZ
	}
	return nil
}

// Term is one design-matrix column: the product of its factor columns.
// No factors means the intercept.
type Term struct {
	Factors []Var
}

// Intercept returns the constant term.
func Intercept() Term {
	return Term{}
}

// Main returns a main-effect term for a single variable.
func Main(v Var) Term {
	return Term{Factors: []Var{v}}
}

// Interact returns an interaction term: the element-wise product of the
// given variables.
func Interact(vs ...Var) Term {
	return Term{Factors: vs}
}

// Name renders the term in compact formula notation, e.g. "1", "a",
// "absz1:z2".
func (t Term) Name() string {
	if len(t.Factors) == 0 {
		return "1"
	}
	parts := make([]string, len(t.Factors))
	for i, v := range t.Factors {
		parts[i] = v.String()
	}
	return strings.Join(parts, ":")
}

// ValueAt evaluates the term for unit i of the dataset.
func (t Term) ValueAt(ds *SimulationDataset, i int) float64 {
	val := 1.0
	for _, v := range t.Factors {
		col := ds.column(v)
		if col == nil {
			return math.NaN()
		}
		val *= col[i]
	}
	return val
}

// Formula is an ordered list of design terms. Coefficient vectors are
// aligned with formula order throughout.
type Formula []Term

// Names returns the term names in formula order.
func (f Formula) Names() []string {
	names := make([]string, len(f))
	for i, t := range f {
		names[i] = t.Name()
	}
	return names
}

// Matrix evaluates the formula against every unit of the dataset, producing
// the n × len(f) design matrix.
func (f Formula) Matrix(ds *SimulationDataset) *mat.Dense {
	n := ds.N()
	x := mat.NewDense(n, len(f), nil)
	for j, t := range f {
		for i := 0; i < n; i++ {
			x.Set(i, j, t.ValueAt(ds, i))
		}
	}
	return x
}

// TreatmentModelTerms is the design of the generative treatment-assignment
// model; gamma coefficients follow this order.
func TreatmentModelTerms() Formula {
	return Formula{
		Intercept(),
		Main(VarAbsZ1),
		Main(VarZ2),
		Interact(VarAbsZ1, VarZ2),
		Main(VarNeighborZ),
	}
}

// OutcomeModelTerms is the design of the generative outcome model; beta
// coefficients follow this order.
func OutcomeModelTerms() Formula {
	return Formula{
		Intercept(),
		Main(VarTreat),
		Main(VarTreatedFrac),
		Main(VarAbsZ1),
		Main(VarZ2),
		Interact(VarAbsZ1, VarZ2),
		Main(VarNeighborZ),
	}
}

// MarginalModelTerms is the marginal structural model every estimator fits:
// outcome on intercept, own treatment, and treated-neighbor proportion.
func MarginalModelTerms() Formula {
	return Formula{
		Intercept(),
		Main(VarTreat),
		Main(VarTreatedFrac),
	}
}

// PropensityTerms is the correctly specified adjustment set for the
// propensity model used by the IPW estimator.
func PropensityTerms() Formula {
	return TreatmentModelTerms()
}

// MisspecifiedPropensityTerms omits the network confounder (and its
// interaction), the classic wrongly specified adjustment set under
// interference.
func MisspecifiedPropensityTerms() Formula {
	return Formula{
		Intercept(),
		Main(VarAbsZ1),
		Main(VarZ2),
	}
}

// DefaultClassifierTerms is the design for the permutation-weighting
// classifier: exposure terms, covariate terms, and the full set of
// exposure × covariate interactions. The interactions carry the signal — a
// permutation changes nothing about either marginal, only the joint.
func DefaultClassifierTerms() Formula {
	exposures := []Var{VarTreat, VarTreatedFrac}
	f := Formula{
		Intercept(),
		Main(VarTreat),
		Main(VarTreatedFrac),
		Main(VarAbsZ1),
		Main(VarZ2),
		Interact(VarAbsZ1, VarZ2),
		Main(VarNeighborZ),
	}
	for _, e := range exposures {
		f = append(f,
			Interact(e, VarAbsZ1),
			Interact(e, VarZ2),
			Interact(e, VarAbsZ1, VarZ2),
			Interact(e, VarNeighborZ),
		)
	}
	return f
}

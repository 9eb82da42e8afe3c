package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ZeroDegreeUnitError reports a unit with no neighbors, for which the
// treated-neighbor proportion is undefined. GenerateGraph never produces
// such units (degrees are drawn from {1..maxDegree}); this guards
// hand-constructed graphs.
type ZeroDegreeUnitError struct {
	Unit int
}

func (e *ZeroDegreeUnitError) Error() string {
	return fmt.Sprintf("unit %d has degree 0: treated-neighbor proportion undefined", e.Unit)
}

// GenParams holds the generative coefficient vectors. Gamma parameterizes
// the logistic treatment-assignment model over TreatmentModelTerms; Beta
// parameterizes the linear outcome model over OutcomeModelTerms.
type GenParams struct {
	Gamma []float64
	Beta  []float64
}

// Validate checks both coefficient vectors against their design terms.
func (p GenParams) Validate() error {
	if got, want := len(p.Gamma), len(TreatmentModelTerms()); got != want {
		return fmt.Errorf("gamma has %d coefficients, treatment model needs %d", got, want)
	}
	if got, want := len(p.Beta), len(OutcomeModelTerms()); got != want {
		return fmt.Errorf("beta has %d coefficients, outcome model needs %d", got, want)
	}
	return nil
}

// SimulationDataset is one synthetic draw of covariates, treatment, and
// outcome over a shared graph. Fields are parallel column slices indexed by
// unit; the struct is treated as immutable once generated.
type SimulationDataset struct {
	Graph *AdjacencyGraph

	AbsZ1     []float64 // |Z1|, Z1 ~ Normal(0,1)
	Z2        []float64 // Bernoulli(0.5), as 0/1
	NeighborZ []float64 // one-hop neighbor sum of |Z1| (the network confounder)

	Treat           []float64 // treatment indicator A, as 0/1
	NeighborTreated []float64 // count of treated neighbors
	TreatedFrac     []float64 // proportion of treated neighbors

	Outcome []float64 // Y ~ Normal(outcome linear predictor, 1)
}

// N returns the number of units.
func (ds *SimulationDataset) N() int {
	return len(ds.AbsZ1)
}

// GenerateDataset draws one SimulationDataset over the given graph:
//
//  1. Z1 ~ Normal(0,1) per unit; |Z1| kept.
//  2. Z2 ~ Bernoulli(0.5).
//  3. NeighborZ_i = sum of |Z1| over neighbors of i.
//  4. A_i ~ Bernoulli(logistic(gamma · treatment design row i)).
//  5. Treated-neighbor count and proportion against the graph.
//  6. Y_i ~ Normal(beta · outcome design row i, 1).
//
// Neighbor aggregates need the whole Z1/A vectors, so each step runs over
// all units before the next begins.
func GenerateDataset(g *AdjacencyGraph, params GenParams, rng *rand.Rand) (*SimulationDataset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	n := g.NumUnits()
	ds := &SimulationDataset{
		Graph: g,
		AbsZ1: make([]float64, n),
		Z2:    make([]float64, n),
		Treat: make([]float64, n),
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	coin := distuv.Bernoulli{P: 0.5, Src: rng}
	for i := 0; i < n; i++ {
		z1 := norm.Rand()
		if z1 < 0 {
			z1 = -z1
		}
		ds.AbsZ1[i] = z1
		ds.Z2[i] = coin.Rand()
	}

	ds.NeighborZ = g.NeighborSum(ds.AbsZ1)

	terms := TreatmentModelTerms()
	for i := 0; i < n; i++ {
		eta := 0.0
		for k, t := range terms {
			eta += params.Gamma[k] * t.ValueAt(ds, i)
		}
		ds.Treat[i] = distuv.Bernoulli{P: logistic(eta), Src: rng}.Rand()
	}

	count, frac, err := neighborTreatment(g, ds.Treat)
	if err != nil {
		return nil, err
	}
	ds.NeighborTreated = count
	ds.TreatedFrac = frac

	ds.Outcome = make([]float64, n)
	outTerms := OutcomeModelTerms()
	for i := 0; i < n; i++ {
		mu := 0.0
		for k, t := range outTerms {
			mu += params.Beta[k] * t.ValueAt(ds, i)
		}
		ds.Outcome[i] = distuv.Normal{Mu: mu, Sigma: 1, Src: rng}.Rand()
	}

	return ds, nil
}

// PermuteTreatment returns a copy of ds whose treatment column has been
// permuted uniformly at random across units, with neighbor-treatment
// aggregates recomputed against the original graph. Covariates and outcome
// are shared with the source dataset (they are never mutated), so the copy
// is cheap and transient.
func PermuteTreatment(ds *SimulationDataset, rng *rand.Rand) (*SimulationDataset, error) {
	n := ds.N()
	perm := rng.Perm(n)

	treat := make([]float64, n)
	for i, j := range perm {
		treat[i] = ds.Treat[j]
	}

	count, frac, err := neighborTreatment(ds.Graph, treat)
	if err != nil {
		return nil, err
	}

	return &SimulationDataset{
		Graph:           ds.Graph,
		AbsZ1:           ds.AbsZ1,
		Z2:              ds.Z2,
		NeighborZ:       ds.NeighborZ,
		Treat:           treat,
		NeighborTreated: count,
		TreatedFrac:     frac,
		Outcome:         ds.Outcome,
	}, nil
}

// neighborTreatment computes, per unit, the count and proportion of treated
// neighbors for the given 0/1 treatment vector.
func neighborTreatment(g *AdjacencyGraph, treat []float64) (count, frac []float64, err error) {
	n := g.NumUnits()
	count = g.NeighborSum(treat)
	frac = make([]float64, n)
	for i := 0; i < n; i++ {
		deg := g.Degree(i)
		if deg == 0 {
			return nil, nil, &ZeroDegreeUnitError{Unit: i}
		}
		frac[i] = count[i] / float64(deg)
	}
	return count, frac, nil
}

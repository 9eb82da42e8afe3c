package sim

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph/simple"
)

// realizeAttempts bounds the number of stub-matching restarts before a
// degree sequence is reported as unrealizable.
const realizeAttempts = 200

// InfeasibleDegreeSequenceError reports that no simple graph realizing the
// drawn degree sequence was found. Callers should retry graph generation
// with a fresh seed or treat the run as failed.
type InfeasibleDegreeSequenceError struct {
	Attempts int
}

func (e *InfeasibleDegreeSequenceError) Error() string {
	return fmt.Sprintf("degree sequence not realizable as a simple graph after %d attempts", e.Attempts)
}

// AdjacencyGraph is an undirected simple graph over units 0..n-1, stored as
// sorted neighbor lists. It is generated once per simulation run, shared by
// every replicate, and never mutated after construction.
type AdjacencyGraph struct {
	maxDegree int
	neighbors [][]int
}

// NumUnits returns the number of units (rows/columns of the adjacency matrix).
func (g *AdjacencyGraph) NumUnits() int {
	return len(g.neighbors)
}

// MaxDegree returns the configured degree bound the graph was generated under.
func (g *AdjacencyGraph) MaxDegree() int {
	return g.maxDegree
}

// Degree returns the number of neighbors of unit i.
func (g *AdjacencyGraph) Degree(i int) int {
	return len(g.neighbors[i])
}

// Neighbors returns the sorted neighbor list of unit i. The returned slice
// is owned by the graph and must not be modified.
func (g *AdjacencyGraph) Neighbors(i int) []int {
	return g.neighbors[i]
}

// HasEdge reports whether units i and j are adjacent.
func (g *AdjacencyGraph) HasEdge(i, j int) bool {
	ns := g.neighbors[i]
	k := sort.SearchInts(ns, j)
	return k < len(ns) && ns[k] == j
}

// NeighborSum returns, for every unit, the sum of vals over its neighbors.
// This is a one-hop graph convolution: out_i = sum_{j adjacent to i} vals_j.
func (g *AdjacencyGraph) NeighborSum(vals []float64) []float64 {
	out := make([]float64, len(g.neighbors))
	for i, ns := range g.neighbors {
		s := 0.0
		for _, j := range ns {
			s += vals[j]
		}
		out[i] = s
	}
	return out
}

// Validate checks the structural invariants: no self-loops, symmetric
// adjacency, and every degree within [1, maxDegree].
func (g *AdjacencyGraph) Validate() error {
	for i, ns := range g.neighbors {
		if len(ns) < 1 || len(ns) > g.maxDegree {
			return fmt.Errorf("unit %d has degree %d, want within [1, %d]", i, len(ns), g.maxDegree)
		}
		for _, j := range ns {
			if j == i {
				return fmt.Errorf("unit %d has a self-loop", i)
			}
			if !g.HasEdge(j, i) {
				return fmt.Errorf("edge %d-%d is not symmetric", i, j)
			}
		}
	}
	return nil
}

// GenerateGraph draws a random simple graph over n units whose degrees are
// uniform on {1..maxDegree}. If the drawn degree sum is odd, one unit's
// degree is bumped to restore parity (handshake lemma). The exact sequence
// is then realized by random stub matching with restarts, rejecting
// self-loops and multi-edges.
func GenerateGraph(n, maxDegree int, rng *rand.Rand) (*AdjacencyGraph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("graph size must be positive, got %d", n)
	}
	if maxDegree < 1 || maxDegree >= n {
		return nil, fmt.Errorf("max degree must lie in [1, n-1], got %d with n=%d", maxDegree, n)
	}

	degrees := make([]int, n)
	sum := 0
	for i := range degrees {
		degrees[i] = 1 + rng.Intn(maxDegree)
		sum += degrees[i]
	}
	if sum%2 == 1 {
		if err := fixParity(degrees, maxDegree, rng); err != nil {
			return nil, err
		}
	}

	if !graphical(degrees) {
		// Cannot happen for uniform draws with maxDegree < n, but the
		// realization loop below would spin forever on a bad sequence.
		return nil, &InfeasibleDegreeSequenceError{Attempts: 0}
	}

	neighbors, err := realizeDegreeSequence(degrees, rng)
	if err != nil {
		return nil, err
	}
	return &AdjacencyGraph{maxDegree: maxDegree, neighbors: neighbors}, nil
}

// fixParity increments a uniformly chosen unit whose degree is below the
// bound; if every unit is saturated it decrements one with degree > 1 instead.
func fixParity(degrees []int, maxDegree int, rng *rand.Rand) error {
	var below, above []int
	for i, d := range degrees {
		if d < maxDegree {
			below = append(below, i)
		}
		if d > 1 {
			above = append(above, i)
		}
	}
	switch {
	case len(below) > 0:
		degrees[below[rng.Intn(len(below))]]++
	case len(above) > 0:
		degrees[above[rng.Intn(len(above))]]--
	default:
		// maxDegree == 1 with an odd unit count: no simple perfect matching.
		return &InfeasibleDegreeSequenceError{Attempts: 0}
	}
	return nil
}

// graphical applies the Erdős–Gallai criterion to the degree sequence.
func graphical(degrees []int) bool {
	n := len(degrees)
	d := make([]int, n)
	copy(d, degrees)
	sort.Sort(sort.Reverse(sort.IntSlice(d)))

	sum := 0
	for _, v := range d {
		sum += v
	}
	if sum%2 == 1 {
		return false
	}

	prefix := 0
	for k := 1; k <= n; k++ {
		prefix += d[k-1]
		rhs := k * (k - 1)
		for i := k; i < n; i++ {
			if d[i] < k {
				rhs += d[i]
			} else {
				rhs += k
			}
		}
		if prefix > rhs {
			return false
		}
	}
	return true
}

// realizeDegreeSequence performs random stub matching: each unit contributes
// degree-many stubs, the stub list is shuffled, and consecutive pairs become
// edges. A pairing that produces a self-loop or duplicate edge is discarded
// and retried from scratch.
func realizeDegreeSequence(degrees []int, rng *rand.Rand) ([][]int, error) {
	n := len(degrees)
	var stubs []int
	for i, d := range degrees {
		for k := 0; k < d; k++ {
			stubs = append(stubs, i)
		}
	}

	for attempt := 0; attempt < realizeAttempts; attempt++ {
		rng.Shuffle(len(stubs), func(a, b int) {
			stubs[a], stubs[b] = stubs[b], stubs[a]
		})

		g := simple.NewUndirectedGraph()
		for i := 0; i < n; i++ {
			g.AddNode(simple.Node(i))
		}

		ok := true
		for k := 0; k < len(stubs); k += 2 {
			u, v := stubs[k], stubs[k+1]
			if u == v || g.HasEdgeBetween(int64(u), int64(v)) {
				ok = false
				break
			}
			g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
		}
		if !ok {
			continue
		}

		neighbors := make([][]int, n)
		for i := 0; i < n; i++ {
			it := g.From(int64(i))
			ns := make([]int, 0, degrees[i])
			for it.Next() {
				ns = append(ns, int(it.Node().ID()))
			}
			sort.Ints(ns)
			neighbors[i] = ns
		}
		return neighbors, nil
	}
	return nil, &InfeasibleDegreeSequenceError{Attempts: realizeAttempts}
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitWLS_ExactOnNoiselessData(t *testing.T) {
	// y = 1 + 2*x1 - 3*x2 exactly.
	want := []float64{1, 2, -3}
	x := mat.NewDense(6, 3, []float64{
		1, 0, 0,
		1, 1, 0,
		1, 0, 1,
		1, 2, 1,
		1, -1, 2,
		1, 3, -1,
	})
	y := make([]float64, 6)
	for i := 0; i < 6; i++ {
		y[i] = want[0]*x.At(i, 0) + want[1]*x.At(i, 1) + want[2]*x.At(i, 2)
	}

	coef, err := FitWLS(x, y, nil)
	require.NoError(t, err)
	for j := range want {
		assert.InDelta(t, want[j], coef[j], 1e-10)
	}
}

func TestFitWLS_WeightTwoEqualsRowDuplication(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	y := []float64{0.1, 1.9, 4.2, 5.8}

	// Weighting row 1 by 2 must match duplicating it.
	weighted, err := FitWLS(x, y, []float64{1, 2, 1, 1})
	require.NoError(t, err)

	xdup := mat.NewDense(5, 2, []float64{
		1, 0,
		1, 1,
		1, 1,
		1, 2,
		1, 3,
	})
	ydup := []float64{0.1, 1.9, 1.9, 4.2, 5.8}
	duplicated, err := FitWLS(xdup, ydup, nil)
	require.NoError(t, err)

	for j := range weighted {
		assert.InDelta(t, duplicated[j], weighted[j], 1e-10)
	}
}

func TestFitWLS_SingularDesign(t *testing.T) {
	// Second column is a copy of the first.
	x := mat.NewDense(4, 2, []float64{
		1, 1,
		1, 1,
		1, 1,
		1, 1,
	})
	y := []float64{1, 2, 3, 4}

	_, err := FitWLS(x, y, nil)
	var fitErr *ModelFitError
	assert.ErrorAs(t, err, &fitErr)
}

func TestFitWLS_RejectsBadInput(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 0, 1, 1, 1, 2})

	_, err := FitWLS(x, []float64{1, 2}, nil)
	assert.Error(t, err, "response length mismatch")

	_, err = FitWLS(x, []float64{1, 2, 3}, []float64{1, 1})
	assert.Error(t, err, "weight length mismatch")

	_, err = FitWLS(x, []float64{1, 2, 3}, []float64{1, -1, 1})
	assert.Error(t, err, "negative weight")
}

func TestPredict_LinearCombination(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 1, -1})
	got := Predict(x, []float64{0.5, 2})
	assert.InDelta(t, 4.5, got[0], 1e-12)
	assert.InDelta(t, -1.5, got[1], 1e-12)
}

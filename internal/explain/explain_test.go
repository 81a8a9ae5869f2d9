package explain_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"frauddetect/internal/explain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// linear is a Predictor returning bias + w·x.
type linear struct {
	w    []float64
	bias float64
}

func (m linear) PredictProba(X [][]float64) (ps []float64) {
	ps = make([]float64, len(X))
	for i, x := range X {
		ps[i] = m.bias + floats.Dot(m.w, x)
	}

	return ps
}

// product is a Predictor with an interaction between the first two
// features.
type product struct{}

func (product) PredictProba(X [][]float64) (ps []float64) {
	ps = make([]float64, len(X))
	for i, x := range X {
		ps[i] = x[0]*x[1] + x[2]
	}

	return ps
}

func TestShapley_linear(t *testing.T) {
	m := linear{w: []float64{1, -2, 0.5, 0}, bias: 0.1}
	x := []float64{1, 2, 3, 4}
	base := []float64{0, 1, 1, 0}

	e, err := explain.Shapley(m, x, base, explain.ShapleyOptions{})
	require.NoError(t, err)

	want := []float64{1, -2, 1, 0}
	for j := range want {
		assert.InDelta(t, want[j], e.Values[j], 1e-12, "feature %d", j)
	}

	assert.InDelta(t, 0.1-2+0.5, e.Base, 1e-12)
	assert.InDelta(t, 0.1+1-4+1.5, e.Prediction, 1e-12)
}

func TestShapley_interaction(t *testing.T) {
	x := []float64{2, 2, 1}
	base := []float64{0, 0, 0}

	e, err := explain.Shapley(product{}, x, base, explain.ShapleyOptions{})
	require.NoError(t, err)

	// Efficiency and symmetry.
	assert.InDelta(t, e.Prediction-e.Base, floats.Sum(e.Values), 1e-12)
	assert.InDelta(t, e.Values[0], e.Values[1], 1e-12)
	assert.InDelta(t, 2.0, e.Values[0], 1e-12)
	assert.InDelta(t, 1.0, e.Values[2], 1e-12)
}

func TestShapley_sampled(t *testing.T) {
	n := explain.MaxExactFeatures + 2
	w := make([]float64, n)
	x := make([]float64, n)
	for j := range n {
		w[j] = float64(j%3) - 1
		x[j] = float64(j)
	}

	e, err := explain.Shapley(linear{w: w}, x, make([]float64, n), explain.ShapleyOptions{
		Samples: 20,
		Seed:    1,
	})
	require.NoError(t, err)
	require.Len(t, e.Values, n)

	// Every permutation of a linear model yields the exact values.
	for j := range n {
		assert.InDelta(t, w[j]*x[j], e.Values[j], 1e-9)
	}

	assert.InDelta(t, e.Prediction-e.Base, floats.Sum(e.Values), 1e-9)
}

func TestShapley_length(t *testing.T) {
	_, err := explain.Shapley(product{}, []float64{1, 2, 3}, []float64{1}, explain.ShapleyOptions{})
	assert.ErrorIs(t, err, explain.ErrLength)
}

func TestMeanAbs(t *testing.T) {
	got := explain.MeanAbs([][]float64{{1, -2}, {-3, 0}})
	assert.Equal(t, []float64{2, 1}, got)
	assert.Nil(t, explain.MeanAbs(nil))
}

func TestLIME_linear(t *testing.T) {
	m := linear{w: []float64{0.3, -0.7, 0}, bias: 0.2}
	x := []float64{1, 0.5, -1}

	s, err := explain.LIME(m, x, []float64{1, 2, 0}, explain.LIMEOptions{
		Samples: 300,
		Ridge:   1e-9,
		Seed:    3,
	})
	require.NoError(t, err)

	for j := range m.w {
		assert.InDelta(t, m.w[j], s.Weights[j], 1e-6, "feature %d", j)
	}

	assert.InDelta(t, m.bias, s.Intercept, 1e-6)
	assert.InDelta(t, s.Prediction, s.LocalPrediction, 1e-6)
	assert.InDelta(t, 1.0, s.Score, 1e-6)
}

func TestLIME_length(t *testing.T) {
	_, err := explain.LIME(product{}, []float64{1, 2, 3}, []float64{1}, explain.LIMEOptions{})
	assert.ErrorIs(t, err, explain.ErrLength)
}

func TestPermutationImportance(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	X := make([][]float64, 400)
	y := make([]int, len(X))
	for i := range X {
		X[i] = []float64{rng.Float64(), rng.Float64()}
		if X[i][0] > 0.5 {
			y[i] = 1
		}
	}

	m := linear{w: []float64{1, 0}}
	imp := explain.PermutationImportance(m, X, y, []string{"signal", "noise"}, 3, 9)
	require.Len(t, imp, 2)

	assert.Equal(t, "signal", imp[0].Feature)
	assert.Greater(t, imp[0].Mean, 0.3)
	assert.Equal(t, "noise", imp[1].Feature)
	assert.Zero(t, imp[1].Mean)
	assert.Zero(t, imp[1].Std)

	assert.Nil(t, explain.PermutationImportance(m, nil, nil, []string{"signal"}, 1, 1))
}

func TestSummaryPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "shap.png")
	err := explain.SummaryPlot(path, "Feature importance", []string{"a", "b", "c"}, []float64{0.1, 0.3, 0.2})
	require.NoError(t, err)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())

	err = explain.SummaryPlot(path, "", []string{"a"}, nil)
	assert.ErrorIs(t, err, explain.ErrLength)
}

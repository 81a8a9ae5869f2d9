package models_test

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"testing"

	"frauddetect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns n rows where the label is 1 when the first feature is
// above 0.7.  The second feature is noise.
func separable(n int, seed int64) (X [][]float64, y []int) {
	rng := rand.New(rand.NewSource(seed))

	X = make([][]float64, n)
	y = make([]int, n)
	for i := range n {
		X[i] = []float64{rng.Float64(), rng.Float64()}
		if X[i][0] > 0.7 {
			y[i] = 1
		}
	}

	return X, y
}

func accuracy(y, p []int) (acc float64) {
	var ok int
	for i := range y {
		if y[i] == p[i] {
			ok++
		}
	}

	return float64(ok) / float64(len(y))
}

func testParams() (p models.Params) {
	p = models.DefaultParams()
	p.Estimators = 10
	p.MinSamples = 10
	p.LearningRate = 0.5

	return p
}

func TestModels_fit(t *testing.T) {
	X, y := separable(600, 1)
	Xt, yt := separable(300, 2)

	testCases := []struct {
		algo     string
		wantName string
	}{{
		algo:     "dt",
		wantName: "DecisionTree",
	}, {
		algo:     "rf",
		wantName: "RandomForest",
	}, {
		algo:     "bagging",
		wantName: "Bagging",
	}, {
		algo:     "gb",
		wantName: "GradientBoosting",
	}}

	for _, tc := range testCases {
		t.Run(tc.algo, func(t *testing.T) {
			m, err := models.New(tc.algo, testParams())
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, m.Name())

			require.NoError(t, m.Fit(X, y))

			assert.Greater(t, accuracy(yt, m.Predict(Xt)), 0.9)

			for _, p := range m.PredictProba(Xt) {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
		})
	}
}

func TestModels_deterministic(t *testing.T) {
	X, y := separable(400, 3)

	for _, algo := range []string{"dt", "rf", "bagging", "gb"} {
		t.Run(algo, func(t *testing.T) {
			a, err := models.New(algo, testParams())
			require.NoError(t, err)
			require.NoError(t, a.Fit(X, y))

			b, err := models.New(algo, testParams())
			require.NoError(t, err)
			require.NoError(t, b.Fit(X, y))

			assert.Equal(t, a.PredictProba(X), b.PredictProba(X))
		})
	}
}

func TestModels_errors(t *testing.T) {
	_, err := models.New("svm", testParams())
	assert.ErrorIs(t, err, models.ErrUnknownAlgorithm)

	for _, algo := range []string{"dt", "rf", "bagging", "gb"} {
		m, err := models.New(algo, testParams())
		require.NoError(t, err)

		assert.ErrorIs(t, m.Fit(nil, nil), models.ErrEmptyDataset)
		assert.ErrorIs(t, m.Fit([][]float64{{1}, {2}}, []int{1}), models.ErrShapeMismatch)
		assert.ErrorIs(t, m.Fit([][]float64{{1, 2}, {2}}, []int{1, 0}), models.ErrShapeMismatch)
		assert.Error(t, m.Fit([][]float64{{1}, {2}}, []int{1, 3}))
	}
}

func TestModels_unfitted(t *testing.T) {
	X := [][]float64{{1, 2}}

	assert.Equal(t, []float64{0.5}, models.NewDecisionTree().PredictProba(X))
	assert.Equal(t, []float64{0.5}, models.NewRandomForest().PredictProba(X))
	assert.Equal(t, []float64{0.5}, models.NewGradientBoosting().PredictProba(X))
}

func TestModels_gob(t *testing.T) {
	X, y := separable(300, 4)

	for _, algo := range []string{"dt", "rf", "bagging", "gb"} {
		t.Run(algo, func(t *testing.T) {
			m, err := models.New(algo, testParams())
			require.NoError(t, err)
			require.NoError(t, m.Fit(X, y))

			buf := &bytes.Buffer{}
			require.NoError(t, gob.NewEncoder(buf).Encode(&m))

			var got models.Model
			require.NoError(t, gob.NewDecoder(buf).Decode(&got))

			assert.Equal(t, m.Name(), got.Name())
			assert.Equal(t, m.PredictProba(X), got.PredictProba(X))
		})
	}
}

func TestRandomForest_classWeight(t *testing.T) {
	// Few positives: balanced weights push scores of positives up.
	rng := rand.New(rand.NewSource(5))
	X := make([][]float64, 1000)
	y := make([]int, 1000)
	for i := range X {
		X[i] = []float64{rng.Float64()}
		if X[i][0] > 0.95 && rng.Float64() < 0.6 {
			y[i] = 1
		}
	}

	score := func(weight string) (mean float64) {
		rf := models.NewRandomForest()
		rf.NEstimators = 5
		rf.MinSamples = 20
		rf.ClassWeight = weight
		require.NoError(t, rf.Fit(X, y))

		var n int
		for i, p := range rf.PredictProba(X) {
			if y[i] == 1 {
				mean += p
				n++
			}
		}

		return mean / float64(n)
	}

	assert.Greater(t, score(models.ClassWeightBalanced), score(""))
}

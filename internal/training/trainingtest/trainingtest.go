// Package trainingtest contains test utilities for packages serving trained
// artifacts.
package trainingtest

import (
	"testing"
	"time"

	"frauddetect/internal/data"
	"frauddetect/internal/features"
	"frauddetect/internal/models"
	"frauddetect/internal/training"

	"github.com/stretchr/testify/require"
)

// ConstModel is a [models.Model] predicting the same probability for every
// row.
type ConstModel struct {
	P float64
}

// type check
var _ models.Model = (*ConstModel)(nil)

// Fit implements the [models.Model] interface for *ConstModel.
func (m *ConstModel) Fit(_ [][]float64, _ []int) (err error) { return nil }

// Predict implements the [models.Model] interface for *ConstModel.
func (m *ConstModel) Predict(X [][]float64) (out []int) {
	out = make([]int, len(X))
	if m.P >= 0.5 {
		for i := range out {
			out[i] = 1
		}
	}

	return out
}

// PredictProba implements the [models.Model] interface for *ConstModel.
func (m *ConstModel) PredictProba(X [][]float64) (ps []float64) {
	ps = make([]float64, len(X))
	for i := range ps {
		ps[i] = m.P
	}

	return ps
}

// Name implements the [models.Model] interface for *ConstModel.
func (m *ConstModel) Name() (name string) { return "Const" }

// Transactions returns n synthetic transactions located in a few countries.
func Transactions(n int) (txs []data.Transaction) {
	countries := []string{"United States", "Japan", "China"}

	txs = data.NewGenerator(1, 0.2).Transactions(n)
	for i := range txs {
		txs[i].Country = countries[i%len(countries)]
	}

	return txs
}

// NewArtifact returns an artifact with a pipeline fitted on synthetic
// transactions, the model m and a threshold of 0.5.  m is not fitted.
func NewArtifact(tb testing.TB, m models.Model) (a *training.Artifact) {
	tb.Helper()

	p := &features.Pipeline{}
	X, _, err := p.Fit(features.Engineer(Transactions(200)))
	require.NoError(tb, err)

	baseline := make([]float64, len(X[0]))
	for _, row := range X {
		for j, v := range row {
			baseline[j] += v / float64(len(X))
		}
	}

	return &training.Artifact{
		TrainedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Model:     m,
		Pipeline:  p,
		Algorithm: "const",
		Baseline:  baseline,
		Threshold: 0.5,
	}
}

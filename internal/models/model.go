// Package models contains the classifiers used to score transactions.  All
// of them are trees or ensembles of trees fitted from scratch.
package models

import (
	"encoding/gob"
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrEmptyDataset is returned when a model is fitted on no rows.
	ErrEmptyDataset errors.Error = "empty dataset"

	// ErrShapeMismatch is returned when the rows and the labels of a dataset
	// do not match.
	ErrShapeMismatch errors.Error = "shape mismatch"

	// ErrUnknownAlgorithm is returned by [New] for an unsupported algorithm.
	ErrUnknownAlgorithm errors.Error = "unknown algorithm"
)

// Model is a binary classifier.
type Model interface {
	// Fit trains the model on the rows of X labeled with y, 0 or 1.
	Fit(X [][]float64, y []int) error

	// Predict returns the predicted class of every row of X using a 0.5
	// threshold.
	Predict(X [][]float64) []int

	// PredictProba returns the probability of the positive class for every
	// row of X.
	PredictProba(X [][]float64) []float64

	// Name returns the human-readable name of the algorithm.
	Name() string
}

// ClassWeightBalanced weights every class inversely to its frequency.
const ClassWeightBalanced = "balanced"

// Params are the hyperparameters shared by the constructors of [New].
type Params struct {
	// ClassWeight is either empty or [ClassWeightBalanced].  It applies to
	// decision trees and forests.
	ClassWeight string

	// Seed makes fitting deterministic.
	Seed int64

	Estimators int
	MaxDepth   int
	MinSamples int

	// LearningRate is the shrinkage of gradient boosting.
	LearningRate float64

	// ScalePosWeight is the weight of positive rows in gradient boosting.
	// Values not greater than zero mean one.
	ScalePosWeight float64
}

// DefaultParams returns the default hyperparameters.
func DefaultParams() (p Params) {
	return Params{
		Seed:         42,
		Estimators:   30,
		MaxDepth:     6,
		MinSamples:   100,
		LearningRate: 0.1,
	}
}

// New returns an unfitted model for algo, one of "dt", "rf", "bagging" and
// "gb".
func New(algo string, p Params) (m Model, err error) {
	switch algo {
	case "dt":
		dt := NewDecisionTree()
		dt.MaxDepth = p.MaxDepth
		dt.MinSamplesSplit = p.MinSamples
		dt.ClassWeight = p.ClassWeight
		dt.Seed = p.Seed

		return dt, nil
	case "rf":
		rf := NewRandomForest()
		rf.NEstimators = p.Estimators
		rf.MaxDepth = p.MaxDepth
		rf.MinSamples = p.MinSamples
		rf.ClassWeight = p.ClassWeight
		rf.Seed = p.Seed

		return rf, nil
	case "bagging":
		bg := NewBagging()
		bg.NEstimators = p.Estimators
		bg.MaxDepth = p.MaxDepth
		bg.MinSamples = p.MinSamples
		bg.ClassWeight = p.ClassWeight
		bg.Seed = p.Seed

		return bg, nil
	case "gb":
		gb := NewGradientBoosting()
		gb.NEstimators = p.Estimators
		gb.LearningRate = p.LearningRate
		gb.MinSamples = p.MinSamples
		gb.ScalePosWeight = p.ScalePosWeight

		return gb, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

func init() {
	// Models are stored behind the Model interface in artifacts.
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&Bagging{})
	gob.Register(&GradientBoosting{})
}

// validate checks that X and y form a non-empty binary dataset with rows of
// equal width.
func validate(X [][]float64, y []int) (err error) {
	if len(X) == 0 {
		return ErrEmptyDataset
	}

	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows and %d labels", ErrShapeMismatch, len(X), len(y))
	}

	n := len(X[0])
	if n == 0 {
		return fmt.Errorf("%w: rows have no features", ErrShapeMismatch)
	}

	for i, row := range X {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), n)
		}

		if y[i] != 0 && y[i] != 1 {
			return fmt.Errorf("label %d of row %d is not 0 or 1", y[i], i)
		}
	}

	return nil
}

// classWeights returns the weight of every row.  It returns nil when mode is
// not [ClassWeightBalanced], which means equal weights.
func classWeights(y []int, mode string) (w []float64) {
	if mode != ClassWeightBalanced {
		return nil
	}

	var pos int
	for _, v := range y {
		pos += v
	}

	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil
	}

	n := float64(len(y))
	wPos, wNeg := n/(2*float64(pos)), n/(2*float64(neg))

	w = make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			w[i] = wPos
		} else {
			w[i] = wNeg
		}
	}

	return w
}

// threshold converts probabilities to classes.
func threshold(ps []float64, thr float64) (out []int) {
	out = make([]int, len(ps))
	for i, p := range ps {
		if p >= thr {
			out[i] = 1
		}
	}

	return out
}

package models

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest is an ensemble of decision trees fitted on bootstrap samples
// with a random subset of features examined per split.
type RandomForest struct {
	Trees []*DecisionTree

	// ClassWeight is either empty or [ClassWeightBalanced].
	ClassWeight string

	Seed int64

	NEstimators        int
	MaxDepth           int
	MinSamples         int
	MaxThresholdsPerFe int

	// MaxFeatures is the number of features examined per split.  Zero means
	// the square root of the number of features, negative values mean all
	// of them.
	MaxFeatures int
}

// type check
var _ Model = (*RandomForest)(nil)

// NewRandomForest returns a forest with the default hyperparameters.
func NewRandomForest() (rf *RandomForest) {
	return &RandomForest{
		NEstimators:        30,
		MaxDepth:           6,
		MinSamples:         100,
		MaxThresholdsPerFe: 32,
		ClassWeight:        ClassWeightBalanced,
	}
}

// Name implements the [Model] interface for *RandomForest.
func (rf *RandomForest) Name() (name string) { return "RandomForest" }

// Fit implements the [Model] interface for *RandomForest.  Trees are fitted
// concurrently; the result only depends on Seed.
func (rf *RandomForest) Fit(X [][]float64, y []int) (err error) {
	if err = validate(X, y); err != nil {
		return err
	}

	nEst := rf.NEstimators
	if nEst <= 0 {
		nEst = 30
	}

	nFeats := len(X[0])
	maxFeats := rf.MaxFeatures
	switch {
	case maxFeats == 0:
		maxFeats = max(1, min(nFeats, int(math.Sqrt(float64(nFeats)))))
	case maxFeats < 0:
		maxFeats = 0
	}

	n := len(X)
	rng := rand.New(rand.NewSource(rf.Seed))
	samples := make([][]int, nEst)
	trees := make([]*DecisionTree, nEst)
	for k := range nEst {
		samples[k] = make([]int, n)
		for i := range samples[k] {
			samples[k][i] = rng.Intn(n)
		}

		trees[k] = &DecisionTree{
			ClassWeight:        rf.ClassWeight,
			Seed:               rng.Int63(),
			MaxDepth:           rf.MaxDepth,
			MinSamplesSplit:    rf.MinSamples,
			MaxThresholdsPerFe: rf.MaxThresholdsPerFe,
			MaxFeatures:        maxFeats,
		}
	}

	g := &errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range nEst {
		g.Go(func() (gerr error) {
			idx := samples[k]
			Xb := make([][]float64, n)
			yb := make([]int, n)
			for i, j := range idx {
				Xb[i], yb[i] = X[j], y[j]
			}

			trees[k].fit(Xb, yb, classWeights(yb, rf.ClassWeight))

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees

	return nil
}

// Predict implements the [Model] interface for *RandomForest.
func (rf *RandomForest) Predict(X [][]float64) (classes []int) {
	return threshold(rf.PredictProba(X), 0.5)
}

// PredictProba implements the [Model] interface for *RandomForest.  It
// returns the mean probability of the trees.
func (rf *RandomForest) PredictProba(X [][]float64) (ps []float64) {
	n := len(X)
	ps = make([]float64, n)
	if len(rf.Trees) == 0 {
		for i := range ps {
			ps[i] = 0.5
		}

		return ps
	}

	for _, dt := range rf.Trees {
		p := dt.PredictProba(X)
		for i := range n {
			ps[i] += p[i]
		}
	}

	m := float64(len(rf.Trees))
	for i := range n {
		ps[i] /= m
	}

	return ps
}

package models

import (
	"math"
	"math/rand"
)

// DTNode is a node of a fitted decision tree.
type DTNode struct {
	Left      *DTNode
	Right     *DTNode
	Feature   int
	Threshold float64
	ProbaLeaf float64
	IsLeaf    bool
}

// DecisionTree is a binary classification tree grown with the Gini impurity.
// Split thresholds are sampled from the values of the node.
type DecisionTree struct {
	Root *DTNode

	// ClassWeight is either empty or [ClassWeightBalanced].
	ClassWeight string

	Seed int64

	MaxDepth           int
	MinSamplesSplit    int
	MaxThresholdsPerFe int

	// MaxFeatures is the number of features examined per split.  Values not
	// greater than zero mean all features.
	MaxFeatures int

	rng *rand.Rand
}

// type check
var _ Model = (*DecisionTree)(nil)

// NewDecisionTree returns a tree with the default hyperparameters.
func NewDecisionTree() (dt *DecisionTree) {
	return &DecisionTree{MaxDepth: 6, MinSamplesSplit: 100, MaxThresholdsPerFe: 64}
}

// Name implements the [Model] interface for *DecisionTree.
func (dt *DecisionTree) Name() (name string) { return "DecisionTree" }

// Fit implements the [Model] interface for *DecisionTree.
func (dt *DecisionTree) Fit(X [][]float64, y []int) (err error) {
	if err = validate(X, y); err != nil {
		return err
	}

	dt.fit(X, y, classWeights(y, dt.ClassWeight))

	return nil
}

// fit grows the tree on a validated dataset.  w may be nil for equal
// weights.
func (dt *DecisionTree) fit(X [][]float64, y []int, w []float64) {
	dt.rng = rand.New(rand.NewSource(dt.Seed))

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	dt.Root = dt.build(X, y, w, idx, 0)
}

// Predict implements the [Model] interface for *DecisionTree.
func (dt *DecisionTree) Predict(X [][]float64) (classes []int) {
	return threshold(dt.PredictProba(X), 0.5)
}

// PredictProba implements the [Model] interface for *DecisionTree.
func (dt *DecisionTree) PredictProba(X [][]float64) (ps []float64) {
	ps = make([]float64, len(X))
	for i := range X {
		ps[i] = dt.predictProbaOne(X[i])
	}

	return ps
}

func (dt *DecisionTree) predictProbaOne(x []float64) (p float64) {
	n := dt.Root
	if n == nil {
		return 0.5
	}

	for !n.IsLeaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}

		if n == nil {
			return 0.5
		}
	}

	return n.ProbaLeaf
}

func (dt *DecisionTree) build(X [][]float64, y []int, w []float64, idx []int, depth int) (node *DTNode) {
	node = &DTNode{}
	p := classProba(y, w, idx)
	if len(idx) < dt.MinSamplesSplit || depth >= dt.MaxDepth || p == 0 || p == 1 {
		node.IsLeaf = true
		node.ProbaLeaf = p

		return node
	}

	bestFeature := -1
	bestThr := 0.0
	bestImp := math.MaxFloat64
	var leftBest, rightBest []int

	for _, f := range pickFeatures(dt.rng, len(X[0]), dt.MaxFeatures) {
		for _, thr := range candidateThresholds(dt.rng, X, idx, f, dt.MaxThresholdsPerFe) {
			l, r := splitIdx(X, idx, f, thr)
			if len(l) == 0 || len(r) == 0 {
				continue
			}

			imp := giniImpurity(y, w, l, r)
			if imp < bestImp {
				bestImp = imp
				bestFeature = f
				bestThr = thr
				leftBest, rightBest = l, r
			}
		}
	}

	if bestFeature == -1 {
		node.IsLeaf = true
		node.ProbaLeaf = p

		return node
	}

	node.Feature = bestFeature
	node.Threshold = bestThr
	node.Left = dt.build(X, y, w, leftBest, depth+1)
	node.Right = dt.build(X, y, w, rightBest, depth+1)

	return node
}

// weight returns the weight of row i.
func weight(w []float64, i int) (v float64) {
	if w == nil {
		return 1
	}

	return w[i]
}

// classProba returns the weighted share of positive rows in idx.
func classProba(y []int, w []float64, idx []int) (p float64) {
	var pos, total float64
	for _, i := range idx {
		wi := weight(w, i)
		pos += wi * float64(y[i])
		total += wi
	}

	if total == 0 {
		return 0
	}

	return pos / total
}

func splitIdx(X [][]float64, idx []int, f int, thr float64) (l, r []int) {
	l = make([]int, 0, len(idx))
	r = make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][f] <= thr {
			l = append(l, i)
		} else {
			r = append(r, i)
		}
	}

	return l, r
}

// giniImpurity returns the weighted Gini impurity of a split.
func giniImpurity(y []int, w []float64, l, r []int) (imp float64) {
	g := func(ids []int) (gini, total float64) {
		var pos float64
		for _, i := range ids {
			wi := weight(w, i)
			pos += wi * float64(y[i])
			total += wi
		}

		if total == 0 {
			return 0, 0
		}

		p := pos / total

		return p * (1 - p), total
	}

	gl, wl := g(l)
	gr, wr := g(r)
	n := wl + wr
	if n == 0 {
		return 0
	}

	return (wl/n)*gl + (wr/n)*gr
}

// candidateThresholds returns up to maxC values of feature f sampled from
// the rows in idx.
func candidateThresholds(rng *rand.Rand, X [][]float64, idx []int, f int, maxC int) (out []float64) {
	values := make([]float64, len(idx))
	for j, i := range idx {
		values[j] = X[i][f]
	}

	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	m := min(maxC, len(values))
	if m <= 0 {
		m = len(values)
	}

	return values[:m]
}

// pickFeatures returns maxFeats random feature indexes out of nFeats, or all
// of them when maxFeats is not in (0, nFeats).
func pickFeatures(rng *rand.Rand, nFeats int, maxFeats int) (out []int) {
	if maxFeats <= 0 || maxFeats >= nFeats {
		out = make([]int, nFeats)
		for i := range out {
			out[i] = i
		}

		return out
	}

	return rng.Perm(nFeats)[:maxFeats]
}

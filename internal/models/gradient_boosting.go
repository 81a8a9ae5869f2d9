package models

import (
	"math"
	"slices"
)

// gbTree is a regression stump fitted on the residuals of one boosting round.
type gbTree struct {
	Feature   int
	Threshold float64
	LeftVal   float64
	RightVal  float64
}

// GradientBoosting is a gradient boosted ensemble of stumps minimizing the
// logistic loss.
type GradientBoosting struct {
	Trees []gbTree

	// Init is the log-odds the boosting starts from.
	Init float64

	NEstimators        int
	LearningRate       float64
	MinSamples         int
	MaxThresholdsPerFe int

	// ScalePosWeight is the weight of positive rows.  Values not greater than
	// zero mean one.
	ScalePosWeight float64
}

// type check
var _ Model = (*GradientBoosting)(nil)

// NewGradientBoosting returns a boosted ensemble with the default
// hyperparameters.
func NewGradientBoosting() (gb *GradientBoosting) {
	return &GradientBoosting{NEstimators: 50, LearningRate: 0.1, MaxThresholdsPerFe: 32}
}

// Name implements the [Model] interface for *GradientBoosting.
func (gb *GradientBoosting) Name() (name string) { return "GradientBoosting" }

func sigmoid(z float64) (s float64) { return 1.0 / (1.0 + math.Exp(-z)) }

// Fit implements the [Model] interface for *GradientBoosting.
func (gb *GradientBoosting) Fit(X [][]float64, y []int) (err error) {
	if err = validate(X, y); err != nil {
		return err
	}

	n := len(X)
	posW := gb.ScalePosWeight
	if posW <= 0 {
		posW = 1
	}

	w := make([]float64, n)
	var pos, total float64
	for i := range n {
		w[i] = 1
		if y[i] == 1 {
			w[i] = posW
			pos += posW
		}

		total += w[i]
	}

	base := min(max(pos/total, 1e-3), 1-1e-3)
	gb.Init = math.Log(base / (1.0 - base))
	gb.Trees = gb.Trees[:0]

	F := make([]float64, n)
	for i := range F {
		F[i] = gb.Init
	}

	nFeats := len(X[0])
	cands := make([][]float64, nFeats)
	for j := range nFeats {
		cands[j] = gbCandidateThresholds(X, j, gb.MaxThresholdsPerFe)
	}

	r := make([]float64, n)
	for range gb.NEstimators {
		for i := range n {
			r[i] = float64(y[i]) - sigmoid(F[i])
		}

		best, ok := gb.bestStump(X, r, w, cands)
		if !ok {
			break
		}

		gb.Trees = append(gb.Trees, best)
		for i := range n {
			F[i] += gb.LearningRate * best.value(X[i])
		}
	}

	return nil
}

// bestStump returns the stump minimizing the weighted squared error of the
// residuals r.  ok is false if no threshold leaves MinSamples rows on both
// sides.
func (gb *GradientBoosting) bestStump(X [][]float64, r, w []float64, cands [][]float64) (best gbTree, ok bool) {
	bestSSE := math.MaxFloat64
	for j, thrs := range cands {
		for _, thr := range thrs {
			var lSum, lW, rSum, rW float64
			var lCount, rCount int
			for i, x := range X {
				if x[j] <= thr {
					lSum += w[i] * r[i]
					lW += w[i]
					lCount++
				} else {
					rSum += w[i] * r[i]
					rW += w[i]
					rCount++
				}
			}

			if lCount == 0 || rCount == 0 || lCount < gb.MinSamples || rCount < gb.MinSamples {
				continue
			}

			lAvg, rAvg := lSum/lW, rSum/rW

			var sse float64
			for i, x := range X {
				d := r[i] - rAvg
				if x[j] <= thr {
					d = r[i] - lAvg
				}

				sse += w[i] * d * d
			}

			if sse < bestSSE {
				bestSSE = sse
				best = gbTree{Feature: j, Threshold: thr, LeftVal: lAvg, RightVal: rAvg}
				ok = true
			}
		}
	}

	return best, ok
}

// value returns the output of the stump for x.
func (t gbTree) value(x []float64) (v float64) {
	if x[t.Feature] > t.Threshold {
		return t.RightVal
	}

	return t.LeftVal
}

// PredictProba implements the [Model] interface for *GradientBoosting.
func (gb *GradientBoosting) PredictProba(X [][]float64) (ps []float64) {
	ps = make([]float64, len(X))
	for i := range X {
		f := gb.Init
		for _, t := range gb.Trees {
			f += gb.LearningRate * t.value(X[i])
		}

		ps[i] = sigmoid(f)
	}

	return ps
}

// Predict implements the [Model] interface for *GradientBoosting.
func (gb *GradientBoosting) Predict(X [][]float64) (classes []int) {
	return threshold(gb.PredictProba(X), 0.5)
}

// gbCandidateThresholds returns up to nCand distinct quantiles of feature j.
func gbCandidateThresholds(X [][]float64, j int, nCand int) (out []float64) {
	if nCand <= 0 {
		nCand = 16
	}

	n := len(X)
	vals := make([]float64, n)
	for i := range n {
		vals[i] = X[i][j]
	}
	slices.Sort(vals)

	out = make([]float64, 0, nCand)
	for k := 1; k < nCand; k++ {
		idx := int(math.Round(float64(k) / float64(nCand) * float64(n-1)))
		if idx <= 0 || idx >= n {
			continue
		}

		thr := vals[idx]
		if len(out) == 0 || thr != out[len(out)-1] {
			out = append(out, thr)
		}
	}

	if len(out) == 0 {
		var sum float64
		for _, v := range vals {
			sum += v
		}

		out = append(out, sum/float64(n))
	}

	return out
}

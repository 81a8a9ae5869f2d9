// Package evaluation contains the metrics of binary classifiers.
package evaluation

import (
	"cmp"
	"math"
	"slices"
)

// Confusion is a confusion matrix of a binary classifier.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Report contains the metrics of a classifier on a holdout set.
type Report struct {
	Confusion Confusion `json:"confusion"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	ROCAUC    float64   `json:"roc_auc"`
	PRAUC     float64   `json:"pr_auc"`
	Threshold float64   `json:"threshold"`
}

// Evaluate computes every metric of the probabilities ps against the labels
// y, using thr to decide classes.
func Evaluate(y []int, ps []float64, thr float64) (r Report) {
	c := ConfusionAt(y, ps, thr)
	p, rec, f1 := c.PrecisionRecallF1()

	return Report{
		Confusion: c,
		Accuracy:  c.Accuracy(),
		Precision: p,
		Recall:    rec,
		F1:        f1,
		ROCAUC:    ROCAUC(y, ps),
		PRAUC:     PRAUC(y, ps),
		Threshold: thr,
	}
}

// Classes converts probabilities to classes: 1 when p >= thr.
func Classes(ps []float64, thr float64) (out []int) {
	out = make([]int, len(ps))
	for i, p := range ps {
		if p >= thr {
			out[i] = 1
		}
	}

	return out
}

// Accuracy returns the share of predictions p equal to the labels y.
func Accuracy(y, p []int) (acc float64) {
	if len(y) == 0 {
		return 0
	}

	var ok int
	for i := range y {
		if y[i] == p[i] {
			ok++
		}
	}

	return float64(ok) / float64(len(y))
}

// ConfusionAt returns the confusion matrix of ps against y at threshold thr.
func ConfusionAt(y []int, ps []float64, thr float64) (c Confusion) {
	for i := range y {
		pred := ps[i] >= thr
		switch {
		case pred && y[i] == 1:
			c.TP++
		case pred:
			c.FP++
		case y[i] == 0:
			c.TN++
		default:
			c.FN++
		}
	}

	return c
}

// Accuracy returns the accuracy of the matrix.
func (c Confusion) Accuracy() (acc float64) {
	total := c.TP + c.FP + c.TN + c.FN
	if total == 0 {
		return 0
	}

	return float64(c.TP+c.TN) / float64(total)
}

// PrecisionRecallF1 returns the precision, the recall and the F1 score of the
// positive class.  Undefined values are zero.
func (c Confusion) PrecisionRecallF1() (precision, recall, f1 float64) {
	if c.TP+c.FP > 0 {
		precision = float64(c.TP) / float64(c.TP+c.FP)
	}

	if c.TP+c.FN > 0 {
		recall = float64(c.TP) / float64(c.TP+c.FN)
	}

	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return precision, recall, f1
}

// PrecisionRecallF1 returns the precision, the recall and the F1 score of ps
// against y at threshold thr.
func PrecisionRecallF1(y []int, ps []float64, thr float64) (precision, recall, f1 float64) {
	return ConfusionAt(y, ps, thr).PrecisionRecallF1()
}

type scored struct {
	s float64
	y int
}

// sortedByScore returns the pairs of scores and labels in descending order
// of scores.
func sortedByScore(y []int, ps []float64) (pairs []scored) {
	pairs = make([]scored, len(y))
	for i := range y {
		pairs[i] = scored{s: ps[i], y: y[i]}
	}

	slices.SortStableFunc(pairs, func(a, b scored) int { return cmp.Compare(b.s, a.s) })

	return pairs
}

// ROCAUC returns the area under the ROC curve of the scores ps.  Tied scores
// are handled with the trapezoidal rule.  It returns zero when y contains a
// single class.
func ROCAUC(y []int, ps []float64) (auc float64) {
	pairs := sortedByScore(y, ps)

	var pos, neg int
	for _, p := range pairs {
		if p.y == 1 {
			pos++
		} else {
			neg++
		}
	}

	if pos == 0 || neg == 0 {
		return 0
	}

	var tp, fp int
	var prevTPR, prevFPR float64
	prevS := math.Inf(1)
	for _, p := range pairs {
		if p.s != prevS {
			tpr := float64(tp) / float64(pos)
			fpr := float64(fp) / float64(neg)
			auc += (fpr - prevFPR) * (tpr + prevTPR) / 2
			prevTPR, prevFPR = tpr, fpr
			prevS = p.s
		}

		if p.y == 1 {
			tp++
		} else {
			fp++
		}
	}

	auc += (1 - prevFPR) * (1 + prevTPR) / 2

	return auc
}

// PRAUC returns the area under the precision-recall curve of the scores ps,
// computed as the average precision.
func PRAUC(y []int, ps []float64) (auc float64) {
	pairs := sortedByScore(y, ps)

	var pos int
	for _, p := range pairs {
		pos += p.y
	}

	if pos == 0 {
		return 0
	}

	var tp, fp int
	var prevRec float64
	for _, p := range pairs {
		if p.y == 1 {
			tp++
		} else {
			fp++
		}

		prec := float64(tp) / float64(tp+fp)
		rec := float64(tp) / float64(pos)
		auc += (rec - prevRec) * prec
		prevRec = rec
	}

	return auc
}

// Metric is the metric optimized by [BestThreshold].
type Metric string

// Supported metrics.
const (
	MetricF1       Metric = "f1"
	MetricAccuracy Metric = "acc"
)

// BestThreshold returns the threshold from a grid of 201 values in [0, 1]
// that maximizes metric, and the value reached.  The lowest such threshold
// wins.
func BestThreshold(y []int, ps []float64, metric Metric) (thr, best float64) {
	if len(ps) == 0 {
		return 0.5, 0
	}

	const steps = 200

	best, thr = -1, 0.5
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		c := ConfusionAt(y, ps, t)

		var v float64
		if metric == MetricAccuracy {
			v = c.Accuracy()
		} else {
			_, _, v = c.PrecisionRecallF1()
		}

		if v > best {
			best, thr = v, t
		}
	}

	return thr, best
}

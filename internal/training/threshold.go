package training

import (
	"frauddetect/internal/evaluation"
	"frauddetect/internal/models"
)

// ThresholdPolicy configures how the classification threshold is chosen.
type ThresholdPolicy struct {
	// Metric is optimized when Auto is true.
	Metric evaluation.Metric

	// Value is the threshold used when Auto is false.
	Value float64

	// Min and Max clamp the chosen threshold when positive.
	Min float64
	Max float64

	// Auto makes the threshold maximize Metric on a validation tail of the
	// training set.
	Auto bool
}

// DefaultThresholdPolicy returns the default threshold policy.
func DefaultThresholdPolicy() (p ThresholdPolicy) {
	return ThresholdPolicy{
		Metric: evaluation.MetricF1,
		Value:  0.5,
		Min:    0.05,
		Max:    0.95,
		Auto:   true,
	}
}

// Select returns the threshold of m fitted on X and y.  When p.Auto is set,
// the last tenth of the rows, but at least minVal of them, is used as the
// validation set.
func (p ThresholdPolicy) Select(m models.Model, X [][]float64, y []int, minVal int) (thr float64) {
	thr = p.Value
	if p.Auto && len(X) > 0 {
		valSize := min(max(len(X)/10, minVal), len(X))
		valX, valY := X[len(X)-valSize:], y[len(y)-valSize:]
		thr, _ = evaluation.BestThreshold(valY, m.PredictProba(valX), p.Metric)
	}

	if p.Min > 0 {
		thr = max(thr, p.Min)
	}

	if p.Max > 0 {
		thr = min(thr, p.Max)
	}

	return thr
}

// Package explain contains post-hoc explanations of model predictions:
// baseline Shapley values, permutation importance, and local linear
// surrogates.
package explain

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrLength is returned when the lengths of the explained vectors differ.
const ErrLength errors.Error = "vector lengths differ"

// Predictor returns the probability of the positive class of every row.
// [models.Model] implements it.
type Predictor interface {
	PredictProba(X [][]float64) []float64
}

// MaxExactFeatures is the number of features up to which Shapley values are
// computed over every coalition.
const MaxExactFeatures = 12

// Explanation is the attribution of a prediction to the features.
type Explanation struct {
	// Values are the Shapley values of the features.  They sum to
	// Prediction minus Base.
	Values []float64

	// Base is the prediction of the baseline.
	Base float64

	// Prediction is the prediction of the explained row.
	Prediction float64
}

// ShapleyOptions configures [Shapley].
type ShapleyOptions struct {
	// Samples is the number of permutations sampled when there are more than
	// [MaxExactFeatures] features.  If not positive, 200 is used.
	Samples int

	Seed int64
}

// Shapley returns the baseline Shapley values of the prediction of m for x:
// a coalition of features takes the values of x and every other feature
// the value of baseline.  Values are exact up to [MaxExactFeatures]
// features and estimated from sampled permutations above that.
func Shapley(m Predictor, x, baseline []float64, opts ShapleyOptions) (e *Explanation, err error) {
	if len(x) != len(baseline) {
		return nil, fmt.Errorf("explaining %d features with a %d-feature baseline: %w", len(x), len(baseline), ErrLength)
	}

	if len(x) <= MaxExactFeatures {
		return exactShapley(m, x, baseline), nil
	}

	return sampledShapley(m, x, baseline, opts), nil
}

// coalition returns the row taking x for the features in mask and baseline
// for the others.
func coalition(x, baseline []float64, mask uint) (z []float64) {
	z = make([]float64, len(x))
	for j := range x {
		if mask&(1<<j) != 0 {
			z[j] = x[j]
		} else {
			z[j] = baseline[j]
		}
	}

	return z
}

func exactShapley(m Predictor, x, baseline []float64) (e *Explanation) {
	n := len(x)
	full := uint(1)<<n - 1

	rows := make([][]float64, full+1)
	for mask := range full + 1 {
		rows[mask] = coalition(x, baseline, mask)
	}

	v := m.PredictProba(rows)

	// weights[k] is k!(n-k-1)!/n!, the weight of a coalition of size k.
	weights := make([]float64, max(n, 1))
	for k := range n {
		lk, _ := math.Lgamma(float64(k + 1))
		lr, _ := math.Lgamma(float64(n - k))
		ln, _ := math.Lgamma(float64(n + 1))
		weights[k] = math.Exp(lk + lr - ln)
	}

	phi := make([]float64, n)
	for mask := range full + 1 {
		size := bits.OnesCount(mask)
		for j := range n {
			bit := uint(1) << j
			if mask&bit != 0 {
				continue
			}

			phi[j] += weights[size] * (v[mask|bit] - v[mask])
		}
	}

	return &Explanation{Values: phi, Base: v[0], Prediction: v[full]}
}

func sampledShapley(m Predictor, x, baseline []float64, opts ShapleyOptions) (e *Explanation) {
	samples := opts.Samples
	if samples <= 0 {
		samples = 200
	}

	n := len(x)
	rng := rand.New(rand.NewSource(opts.Seed))
	phi := make([]float64, n)

	var base, pred float64
	for range samples {
		perm := rng.Perm(n)

		rows := make([][]float64, n+1)
		z := append([]float64(nil), baseline...)
		rows[0] = append([]float64(nil), z...)
		for k, j := range perm {
			z[j] = x[j]
			rows[k+1] = append([]float64(nil), z...)
		}

		v := m.PredictProba(rows)
		for k, j := range perm {
			phi[j] += v[k+1] - v[k]
		}

		base, pred = v[0], v[n]
	}

	for j := range phi {
		phi[j] /= float64(samples)
	}

	return &Explanation{Values: phi, Base: base, Prediction: pred}
}

// MeanAbs returns the mean absolute value of every feature over the rows of
// values, the global importance shown in summary plots.
func MeanAbs(values [][]float64) (means []float64) {
	if len(values) == 0 {
		return nil
	}

	means = make([]float64, len(values[0]))
	for _, row := range values {
		for j, v := range row {
			means[j] += math.Abs(v)
		}
	}

	for j := range means {
		means[j] /= float64(len(values))
	}

	return means
}

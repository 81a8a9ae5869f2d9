package explain

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LIMEOptions configures [LIME].
type LIMEOptions struct {
	// Samples is the number of perturbed rows.  If not positive, 500 is used.
	Samples int

	// KernelWidth is the width of the exponential kernel over standardized
	// distances.  If not positive, 0.75*sqrt(n) is used for n features.
	KernelWidth float64

	// Ridge is the L2 penalty of the surrogate coefficients.  The intercept
	// is not penalized.  If not positive, 1 is used.
	Ridge float64

	Seed int64
}

// Surrogate is a local linear approximation of a model around a row.
type Surrogate struct {
	// Weights are the coefficients of the features, in the units of the
	// explained row.
	Weights []float64

	Intercept float64

	// LocalPrediction is the surrogate prediction at the explained row.
	LocalPrediction float64

	// Prediction is the model prediction at the explained row.
	Prediction float64

	// Score is the weighted R² of the surrogate on the perturbed rows.
	Score float64
}

// LIME fits a weighted ridge regression of the predictions of m on Gaussian
// perturbations of x.  scale is the standard deviation of the noise of every
// feature; a nil scale or a non-positive element means 1.
func LIME(m Predictor, x, scale []float64, opts LIMEOptions) (s *Surrogate, err error) {
	n := len(x)
	if scale != nil && len(scale) != n {
		return nil, fmt.Errorf("explaining %d features with %d scales: %w", n, len(scale), ErrLength)
	}

	samples := opts.Samples
	if samples <= 0 {
		samples = 500
	}

	width := opts.KernelWidth
	if width <= 0 {
		width = 0.75 * math.Sqrt(float64(n))
	}

	ridge := opts.Ridge
	if ridge <= 0 {
		ridge = 1
	}

	sd := make([]float64, n)
	for j := range sd {
		sd[j] = 1
		if scale != nil && scale[j] > 0 {
			sd[j] = scale[j]
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := make([][]float64, samples)
	weights := make([]float64, samples)

	// The first row is x itself.
	rows[0] = append([]float64(nil), x...)
	weights[0] = 1
	for i := 1; i < samples; i++ {
		z := make([]float64, n)
		var dist float64
		for j := range z {
			noise := rng.NormFloat64()
			z[j] = x[j] + noise*sd[j]
			dist += noise * noise
		}

		rows[i] = z
		weights[i] = math.Sqrt(math.Exp(-dist / (width * width)))
	}

	target := m.PredictProba(rows)

	beta, err := weightedRidge(rows, target, weights, ridge)
	if err != nil {
		return nil, err
	}

	s = &Surrogate{
		Intercept:  beta[0],
		Weights:    beta[1:],
		Prediction: target[0],
	}
	s.LocalPrediction = s.Intercept + floats.Dot(s.Weights, x)
	s.Score = weightedR2(rows, target, weights, s)

	return s, nil
}

// weightedRidge solves (ZᵀWZ + λD)β = ZᵀWt, where Z is rows with a leading
// column of ones and D is the identity with the intercept entry zeroed.
func weightedRidge(rows [][]float64, target, weights []float64, lambda float64) (beta []float64, err error) {
	k := len(rows[0]) + 1

	z := mat.NewDense(len(rows), k, nil)
	for i, row := range rows {
		z.Set(i, 0, 1)
		for j, v := range row {
			z.Set(i, j+1, v)
		}
	}

	w := mat.NewDiagDense(len(weights), weights)

	var wz mat.Dense
	wz.Mul(w, z)

	var a mat.Dense
	a.Mul(z.T(), &wz)
	for j := 1; j < k; j++ {
		a.Set(j, j, a.At(j, j)+lambda)
	}

	var b mat.VecDense
	b.MulVec(wz.T(), mat.NewVecDense(len(target), target))

	var sol mat.VecDense
	if err = sol.SolveVec(&a, &b); err != nil {
		return nil, fmt.Errorf("solving surrogate: %w", err)
	}

	beta = make([]float64, k)
	for j := range beta {
		beta[j] = sol.AtVec(j)
	}

	return beta, nil
}

func weightedR2(rows [][]float64, target, weights []float64, s *Surrogate) (r2 float64) {
	var sumW, mean float64
	for i, t := range target {
		sumW += weights[i]
		mean += weights[i] * t
	}

	mean /= sumW

	var ssRes, ssTot float64
	for i, row := range rows {
		pred := s.Intercept + floats.Dot(s.Weights, row)
		ssRes += weights[i] * (target[i] - pred) * (target[i] - pred)
		ssTot += weights[i] * (target[i] - mean) * (target[i] - mean)
	}

	if ssTot == 0 {
		return 1
	}

	return 1 - ssRes/ssTot
}

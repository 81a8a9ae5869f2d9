package explain

import (
	"cmp"
	"math/rand"
	"slices"

	"frauddetect/internal/evaluation"

	"gonum.org/v1/gonum/stat"
)

// Importance is the permutation importance of one feature.
type Importance struct {
	Feature string  `json:"feature"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
}

// PermutationImportance returns, for every feature, the drop of the ROC AUC
// of m on X and y when the column of the feature is shuffled, averaged over
// repeats shuffles.  The result is sorted by decreasing mean drop.
func PermutationImportance(
	m Predictor,
	X [][]float64,
	y []int,
	names []string,
	repeats int,
	seed int64,
) (imp []Importance) {
	if len(X) == 0 {
		return nil
	}

	repeats = max(repeats, 1)
	rng := rand.New(rand.NewSource(seed))
	base := evaluation.ROCAUC(y, m.PredictProba(X))

	shuffled := make([][]float64, len(X))
	for i, row := range X {
		shuffled[i] = slices.Clone(row)
	}

	col := make([]float64, len(X))
	drops := make([]float64, repeats)
	for j, name := range names {
		for i, row := range X {
			col[i] = row[j]
		}

		for r := range repeats {
			rng.Shuffle(len(col), func(a, b int) { col[a], col[b] = col[b], col[a] })
			for i := range shuffled {
				shuffled[i][j] = col[i]
			}

			drops[r] = base - evaluation.ROCAUC(y, m.PredictProba(shuffled))
		}

		for i, row := range X {
			shuffled[i][j] = row[j]
		}

		mean, std := stat.MeanStdDev(drops, nil)
		if repeats == 1 {
			std = 0
		}

		imp = append(imp, Importance{Feature: name, Mean: mean, Std: std})
	}

	slices.SortStableFunc(imp, func(a, b Importance) int { return cmp.Compare(b.Mean, a.Mean) })

	return imp
}

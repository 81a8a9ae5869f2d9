// Package training fits the feature pipeline and the models, selects the
// classification threshold, evaluates the models, and stores the best one in
// an artifact.
package training

import (
	"math/rand"
)

// Split is a dataset split into a training and a test set.
type Split struct {
	XTrain [][]float64
	YTrain []int
	XTest  [][]float64
	YTest  []int
}

// StratifiedSplit shuffles the rows of X and y and puts testSize of every
// class into the test set.  The split only depends on seed.
func StratifiedSplit(X [][]float64, y []int, testSize float64, seed int64) (s *Split) {
	rng := rand.New(rand.NewSource(seed))

	var posIdx, negIdx []int
	for i := range y {
		if y[i] == 1 {
			posIdx = append(posIdx, i)
		} else {
			negIdx = append(negIdx, i)
		}
	}

	var trainIdx, testIdx []int
	for _, class := range [][]int{posIdx, negIdx} {
		perm := rng.Perm(len(class))
		nTrain := len(class) - int(testSize*float64(len(class))+0.5)
		for k, p := range perm {
			if k < nTrain {
				trainIdx = append(trainIdx, class[p])
			} else {
				testIdx = append(testIdx, class[p])
			}
		}
	}

	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	s = &Split{
		XTrain: make([][]float64, len(trainIdx)),
		YTrain: make([]int, len(trainIdx)),
		XTest:  make([][]float64, len(testIdx)),
		YTest:  make([]int, len(testIdx)),
	}

	for i, j := range trainIdx {
		s.XTrain[i], s.YTrain[i] = X[j], y[j]
	}

	for i, j := range testIdx {
		s.XTest[i], s.YTest[i] = X[j], y[j]
	}

	return s
}

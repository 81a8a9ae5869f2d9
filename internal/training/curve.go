package training

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"frauddetect/internal/evaluation"
	"frauddetect/internal/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// CurveOptions configures a learning curve.
type CurveOptions struct {
	Threshold ThresholdPolicy

	// Points is the number of training sizes.
	Points int

	// Min is the smallest training size.
	Min int

	// Log makes the sizes grow geometrically instead of linearly.
	Log bool
}

// CurvePoint contains the metrics of a model fitted on the first Size rows of
// the training set.
type CurvePoint struct {
	Size     int
	TrainAcc float64
	TestAcc  float64
	TrainF1  float64
	TestF1   float64
	TrainROC float64
	TestROC  float64
	TrainPR  float64
	TestPR   float64
}

// CurveSizes returns increasing training sizes from about minSize to
// total, the last one always being total.
func CurveSizes(total, points, minSize int, useLog bool) (sizes []int) {
	if total <= 0 {
		return nil
	}

	points = max(points, 2)
	minSize = max(minSize, 10)
	if minSize > total {
		minSize = max(10, total/2)
	}

	raw := make([]int, 0, points)
	if useLog {
		ratio := math.Pow(float64(total)/float64(minSize), 1.0/float64(points-1))
		for i := range points {
			raw = append(raw, int(math.Round(float64(minSize)*math.Pow(ratio, float64(i)))))
		}
	} else {
		step := float64(total-minSize) / float64(points-1)
		for i := range points {
			raw = append(raw, int(math.Round(float64(minSize)+float64(i)*step)))
		}
	}

	last := -1
	for _, s := range raw {
		s = min(max(s, last+1), total)
		if s != last {
			sizes = append(sizes, s)
			last = s
		}
	}

	sizes[len(sizes)-1] = total

	return sizes
}

// LearningCurve fits a fresh model for algo on growing prefixes of the
// training set of s and evaluates it on both sets.
func LearningCurve(
	ctx context.Context,
	algo string,
	params models.Params,
	s *Split,
	opts CurveOptions,
) (points []CurvePoint, err error) {
	for _, size := range CurveSizes(len(s.XTrain), opts.Points, opts.Min, opts.Log) {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		m, merr := models.New(algo, params)
		if merr != nil {
			return nil, merr
		}

		subX, subY := s.XTrain[:size], s.YTrain[:size]
		if err = m.Fit(subX, subY); err != nil {
			return nil, fmt.Errorf("fitting on %d rows: %w", size, err)
		}

		thr := opts.Threshold.Select(m, subX, subY, 50)
		train := evaluation.Evaluate(subY, m.PredictProba(subX), thr)
		test := evaluation.Evaluate(s.YTest, m.PredictProba(s.XTest), thr)

		points = append(points, CurvePoint{
			Size:     size,
			TrainAcc: train.Accuracy,
			TestAcc:  test.Accuracy,
			TrainF1:  train.F1,
			TestF1:   test.F1,
			TrainROC: train.ROCAUC,
			TestROC:  test.ROCAUC,
			TrainPR:  train.PRAUC,
			TestPR:   test.PRAUC,
		})
	}

	return points, nil
}

// WriteCurveCSV writes points in CSV format.
func WriteCurveCSV(w io.Writer, points []CurvePoint) (err error) {
	cw := csv.NewWriter(w)
	err = cw.Write([]string{
		"size",
		"train_acc",
		"test_acc",
		"train_f1",
		"test_f1",
		"train_roc_auc",
		"test_roc_auc",
		"train_pr_auc",
		"test_pr_auc",
	})
	if err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	f := func(v float64) (s string) { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, p := range points {
		err = cw.Write([]string{
			strconv.Itoa(p.Size),
			f(p.TrainAcc),
			f(p.TestAcc),
			f(p.TrainF1),
			f(p.TestF1),
			f(p.TrainROC),
			f(p.TestROC),
			f(p.TrainPR),
			f(p.TestPR),
		})
		if err != nil {
			return fmt.Errorf("writing point: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// PlotCurve saves the accuracy and F1 curves of points to path.  The image
// format follows the extension of path.
func PlotCurve(path, title string, points []CurvePoint) (err error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Training samples"
	p.Y.Label.Text = "Metric"
	p.Y.Min = 0
	p.Y.Max = 1

	xy := func(get func(c CurvePoint) float64) (pts plotter.XYs) {
		pts = make(plotter.XYs, len(points))
		for i, c := range points {
			pts[i].X = float64(c.Size)
			pts[i].Y = get(c)
		}

		return pts
	}

	err = plotutil.AddLinePoints(p,
		"Train (Acc)", xy(func(c CurvePoint) float64 { return c.TrainAcc }),
		"Test (Acc)", xy(func(c CurvePoint) float64 { return c.TestAcc }),
		"Train (F1)", xy(func(c CurvePoint) float64 { return c.TrainF1 }),
		"Test (F1)", xy(func(c CurvePoint) float64 { return c.TestF1 }),
	)
	if err != nil {
		return fmt.Errorf("adding lines: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

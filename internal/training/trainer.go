package training

import (
	"context"
	"fmt"
	"io"
	"time"

	"frauddetect/internal/encoding"
	"frauddetect/internal/evaluation"
	"frauddetect/internal/features"
	"frauddetect/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Config is the configuration structure for a *Trainer.
type Config struct {
	// Logger is used to report progress.  If nil, logs are discarded.
	Logger *zap.Logger

	// Algos are the algorithms to fit, in order.  See [models.New].
	Algos []string

	Threshold ThresholdPolicy

	Params models.Params

	// TestSize is the share of every class kept for testing.
	TestSize float64
}

// Trainer fits and compares models on a dataset.
type Trainer struct {
	logger    *zap.Logger
	algos     []string
	threshold ThresholdPolicy
	params    models.Params
	testSize  float64
}

// NewTrainer returns a new properly initialized *Trainer.
func NewTrainer(c *Config) (t *Trainer) {
	t = &Trainer{
		logger:    c.Logger,
		algos:     c.Algos,
		threshold: c.Threshold,
		params:    c.Params,
		testSize:  c.TestSize,
	}

	if t.logger == nil {
		t.logger = zap.NewNop()
	}

	if t.testSize <= 0 || t.testSize >= 1 {
		t.testSize = 0.2
	}

	return t
}

// ModelResult is the outcome of fitting one algorithm.
type ModelResult struct {
	Model     models.Model
	Algorithm string
	Report    evaluation.Report
}

// Result is the outcome of [Trainer.Run].
type Result struct {
	// Best is the artifact of the model with the highest test ROC AUC.
	Best *Artifact

	// Split is the split the models were fitted and evaluated on.
	Split *Split

	// Correlations is the correlation of every feature with the label on
	// the training set.
	Correlations map[string]float64

	Models []ModelResult
}

// Run fits the pipeline on rows, splits the data, fits every configured
// algorithm and evaluates it on the test set.
func (t *Trainer) Run(ctx context.Context, rows []features.Row) (res *Result, err error) {
	p := &features.Pipeline{}
	X, y, err := p.Fit(rows)
	if err != nil {
		return nil, err
	}

	s := StratifiedSplit(X, y, t.testSize, t.params.Seed)
	if len(s.XTrain) == 0 || len(s.XTest) == 0 {
		return nil, fmt.Errorf("splitting %d rows: %w", len(X), models.ErrEmptyDataset)
	}

	t.logger.Info(
		"split dataset",
		zap.Int("train", len(s.XTrain)),
		zap.Int("test", len(s.XTest)),
		zap.Int("positives", countPositives(y)),
	)

	corr, err := encoding.CorrWithTarget(s.XTrain, p.Names(), s.YTrain)
	if err != nil {
		return nil, err
	}

	res = &Result{Split: s, Correlations: corr}

	var bestIdx int
	for i, algo := range t.algos {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		mr, ferr := t.fit(algo, s)
		if ferr != nil {
			return nil, fmt.Errorf("fitting %s: %w", algo, ferr)
		}

		res.Models = append(res.Models, mr)
		if mr.Report.ROCAUC > res.Models[bestIdx].Report.ROCAUC {
			bestIdx = i
		}
	}

	if len(res.Models) == 0 {
		return nil, fmt.Errorf("no algorithms: %w", models.ErrUnknownAlgorithm)
	}

	best := res.Models[bestIdx]
	res.Best = &Artifact{
		TrainedAt: time.Now().UTC(),
		Model:     best.Model,
		Pipeline:  p,
		Algorithm: best.Algorithm,
		Baseline:  columnMeans(s.XTrain),
		Metrics:   best.Report,
		Threshold: best.Report.Threshold,
	}

	t.logger.Info("selected model", zap.String("model", best.Model.Name()), zap.Float64("roc_auc", best.Report.ROCAUC))

	return res, nil
}

// fit fits one algorithm and evaluates it.
func (t *Trainer) fit(algo string, s *Split) (mr ModelResult, err error) {
	params := t.params
	if algo == "gb" && params.ScalePosWeight <= 0 {
		pos := countPositives(s.YTrain)
		if pos > 0 {
			params.ScalePosWeight = float64(len(s.YTrain)-pos) / float64(pos)
		}
	}

	if algo == "rf" && params.ClassWeight == "" {
		params.ClassWeight = models.ClassWeightBalanced
	}

	m, err := models.New(algo, params)
	if err != nil {
		return mr, err
	}

	start := time.Now()
	if err = m.Fit(s.XTrain, s.YTrain); err != nil {
		return mr, err
	}

	thr := t.threshold.Select(m, s.XTrain, s.YTrain, 100)
	rep := evaluation.Evaluate(s.YTest, m.PredictProba(s.XTest), thr)

	t.logger.Info(
		"holdout metrics",
		zap.String("model", m.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("accuracy", rep.Accuracy),
		zap.Float64("precision", rep.Precision),
		zap.Float64("recall", rep.Recall),
		zap.Float64("f1", rep.F1),
		zap.Float64("roc_auc", rep.ROCAUC),
		zap.Float64("pr_auc", rep.PRAUC),
		zap.Float64("threshold", thr),
	)

	return ModelResult{Model: m, Algorithm: algo, Report: rep}, nil
}

// reportJSON is the JSON form of a training result.
type reportJSON struct {
	TrainedAt    time.Time                    `json:"trained_at"`
	Models       map[string]evaluation.Report `json:"models"`
	Correlations map[string]float64           `json:"correlations"`
	BestModel    string                       `json:"best_model"`
	Threshold    float64                      `json:"threshold"`
}

// WriteReport writes the metrics of every model of res as indented JSON.
func WriteReport(w io.Writer, res *Result) (err error) {
	r := reportJSON{
		Models:       make(map[string]evaluation.Report, len(res.Models)),
		Correlations: res.Correlations,
	}

	for _, m := range res.Models {
		r.Models[m.Model.Name()] = m.Report
	}

	if res.Best != nil {
		r.TrainedAt = res.Best.TrainedAt
		r.BestModel = res.Best.Model.Name()
		r.Threshold = res.Best.Threshold
	}

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	_, err = w.Write(append(b, '\n'))

	return err
}

func countPositives(y []int) (n int) {
	for _, v := range y {
		n += v
	}

	return n
}

// columnMeans returns the mean of every column of X.
func columnMeans(X [][]float64) (means []float64) {
	if len(X) == 0 {
		return nil
	}

	means = make([]float64, len(X[0]))
	for _, row := range X {
		floats.Add(means, row)
	}

	floats.Scale(1/float64(len(X)), means)

	return means
}

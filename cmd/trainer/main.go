// Command trainer generates the dataset, trains the configured models and
// saves the best one.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/evaluation"
	"frauddetect/internal/features"
	"frauddetect/internal/geo"
	"frauddetect/internal/models"
	"frauddetect/internal/training"
	"frauddetect/pkg/utils"

	"github.com/AdguardTeam/golibs/errors"
	"go.uber.org/zap"
)

func main() {
	c, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := utils.MustLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, c, logger); err != nil {
		logger.Error("training failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run generates the dataset if requested, trains the configured models and
// writes the artifact, the report and the learning curve.
func run(ctx context.Context, c *config.Trainer, logger *zap.Logger) (err error) {
	if c.Regen {
		logger.Info("generating synthetic dataset", zap.Int("n", c.N), zap.String("out", c.Data))

		err = data.GenerateSynthetic(c.N, c.FraudRate, c.Seed, c.Data, c.Ranges)
		if err != nil {
			return err
		}
	}

	txs, err := data.ReadTransactionsFile(c.Data)
	if err != nil {
		return err
	}

	if c.Ranges != "" {
		if err = assignCountries(ctx, c.Ranges, txs, logger); err != nil {
			return err
		}
	}

	params := modelParams(c)
	policy := training.ThresholdPolicy{
		Metric: evaluation.Metric(c.Threshold.Metric),
		Value:  c.Threshold.Value,
		Min:    c.Threshold.Min,
		Max:    c.Threshold.Max,
		Auto:   c.Threshold.Auto,
	}

	t := training.NewTrainer(&training.Config{
		Logger:    logger,
		Algos:     c.Algos,
		Threshold: policy,
		Params:    params,
		TestSize:  c.TestSize,
	})

	res, err := t.Run(ctx, features.Engineer(txs))
	if err != nil {
		return err
	}

	if err = training.SaveArtifact(c.ModelOut, res.Best); err != nil {
		return err
	}

	logger.Info("model saved", zap.String("path", c.ModelOut), zap.String("model", res.Best.Model.Name()))

	err = writeFile(c.ReportOut, func(w io.Writer) (werr error) { return training.WriteReport(w, res) })
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !c.Curve.Enabled {
		return nil
	}

	points, err := training.LearningCurve(ctx, res.Best.Algorithm, params, res.Split, training.CurveOptions{
		Threshold: policy,
		Points:    c.Curve.Points,
		Min:       c.Curve.Min,
		Log:       c.Curve.Log,
	})
	if err != nil {
		return fmt.Errorf("learning curve: %w", err)
	}

	err = writeFile(c.Curve.CSV, func(w io.Writer) (werr error) { return training.WriteCurveCSV(w, points) })
	if err != nil {
		logger.Warn("writing learning curve csv", zap.Error(err))
	}

	title := "Learning curve: " + res.Best.Model.Name()
	if err = training.PlotCurve(c.Curve.Img, title, points); err != nil {
		logger.Warn("plotting learning curve", zap.Error(err))

		return nil
	}

	logger.Info("learning curve written", zap.String("img", c.Curve.Img), zap.String("csv", c.Curve.CSV))

	return nil
}

// assignCountries sets the country of every transaction from the range table
// at path.
func assignCountries(ctx context.Context, path string, txs []data.Transaction, logger *zap.Logger) (err error) {
	idx, err := geo.BuildIndexFile(path, logger)
	if err != nil {
		return err
	}

	m := geo.NewMapper(&geo.MapperConfig{
		Lookup:  idx,
		Logger:  logger,
		Workers: runtime.GOMAXPROCS(0),
	})

	matched, err := features.AssignCountries(ctx, m, txs)
	if err != nil {
		return err
	}

	logger.Info("countries assigned", zap.Int("matched", matched), zap.Int("transactions", len(txs)))

	return nil
}

// modelParams returns the model hyperparameters of c.
func modelParams(c *config.Trainer) (p models.Params) {
	p = models.DefaultParams()
	p.Seed = c.Seed
	p.Estimators = c.Estimators
	p.MaxDepth = c.MaxDepth
	p.MinSamples = c.MinSamples
	p.LearningRate = c.LearningRate
	p.ScalePosWeight = c.ScalePosWeight

	return p
}

// writeFile creates the file at path with its parent directory and writes it
// with write.
func writeFile(path string, write func(w io.Writer) (err error)) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return write(f)
}

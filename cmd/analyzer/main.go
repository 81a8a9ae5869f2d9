// Command analyzer writes exploratory plots, dataset statistics and model
// explanations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"frauddetect/internal/data"
	"frauddetect/internal/eda"
	"frauddetect/internal/explain"
	"frauddetect/internal/features"
	"frauddetect/internal/geo"
	"frauddetect/internal/training"
	"frauddetect/pkg/utils"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// options are the command-line options of the analyzer.
type options struct {
	data   string
	ranges string
	model  string
	out    string
	format string

	// samples is the number of rows explained with Shapley values.
	samples int

	// repeats is the number of shuffles of permutation importance.
	repeats int

	seed int64

	// topCountries is the number of countries in the country bar chart.
	topCountries int
}

func main() {
	opts := &options{}
	flag.StringVar(&opts.data, "data", "data/cleaned_data.csv", "transactions CSV")
	flag.StringVar(&opts.ranges, "ranges", "", "IP range table CSV used to fill in missing countries")
	flag.StringVar(&opts.model, "model", "", "trained artifact to explain, empty to skip explanations")
	flag.StringVar(&opts.out, "out", "reports", "output directory")
	flag.StringVar(&opts.format, "format", "png", "image format: png, svg or pdf")
	flag.IntVar(&opts.samples, "samples", 200, "number of rows explained with Shapley values")
	flag.IntVar(&opts.repeats, "repeats", 3, "shuffles per feature for permutation importance")
	flag.Int64Var(&opts.seed, "seed", 42, "random seed")
	flag.IntVar(&opts.topCountries, "top_countries", 20, "number of countries in the country chart")
	flag.Parse()

	logger := utils.MustLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	defer func() { _ = logger.Sync() }()

	a := &analyzer{opts: opts, logger: logger}
	if err := a.run(context.Background()); err != nil {
		logger.Error("analysis failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// analyzer writes the exploratory and explainability reports.
type analyzer struct {
	opts   *options
	logger *zap.Logger
}

func (a *analyzer) run(ctx context.Context) (err error) {
	if err = a.missing(); err != nil {
		return err
	}

	txs, err := data.ReadTransactionsFile(a.opts.data)
	if err != nil {
		return err
	}

	if a.opts.ranges != "" {
		if err = a.assignCountries(ctx, txs); err != nil {
			return err
		}
	}

	rows := features.Engineer(txs)
	if err = a.describe(txs, rows); err != nil {
		return err
	}

	if a.opts.model == "" {
		return nil
	}

	return a.explain(txs)
}

// missing logs the empty cells per column of the raw dataset.
func (a *analyzer) missing() (err error) {
	f, err := os.Open(a.opts.data)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	missing, err := data.MissingValues(f)
	if err != nil {
		return err
	}

	fields := make([]zap.Field, 0, len(missing))
	for _, col := range data.Columns {
		if n, ok := missing[col]; ok {
			fields = append(fields, zap.Int(col, n))
		}
	}

	a.logger.Info("missing values", fields...)

	return nil
}

func (a *analyzer) assignCountries(ctx context.Context, txs []data.Transaction) (err error) {
	idx, err := geo.BuildIndexFile(a.opts.ranges, a.logger)
	if err != nil {
		return err
	}

	m := geo.NewMapper(&geo.MapperConfig{
		Lookup:  idx,
		Logger:  a.logger,
		Workers: runtime.GOMAXPROCS(0),
	})

	_, err = features.AssignCountries(ctx, m, txs)

	return err
}

// describe writes the statistics and the plots of the dataset.
func (a *analyzer) describe(txs []data.Transaction, rows []features.Row) (err error) {
	cols := eda.NumericColumns(rows)

	err = a.writeJSON("describe.json", eda.Describe(cols))
	if err != nil {
		return err
	}

	err = a.writeJSON("summary.json", map[string]any{
		"summary":          eda.Summarize(txs),
		"fraud_trends":     eda.FraudTrends(txs),
		"fraud_by_device":  eda.FraudByDevice(txs, 10),
		"fraud_by_browser": eda.FraudByBrowser(txs),
	})
	if err != nil {
		return err
	}

	class := cols[data.ColumnClass]
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if name == data.ColumnClass {
			continue
		}

		col := cols[name]
		if err = eda.HistogramPlot(a.path("hist_"+name), name, col, 30); err != nil {
			return err
		}

		if err = eda.BoxPlotByClass(a.path("box_"+name), name, col, class); err != nil {
			return err
		}

		legit, fraud := eda.ClassMeans(col, class)
		a.logger.Info(
			"column",
			zap.String("name", name),
			zap.Float64("legit_mean", legit),
			zap.Float64("fraud_mean", fraud),
			zap.Int("outliers", len(eda.Outliers(col, 1.5))),
		)
	}

	for _, column := range eda.CategoricalColumns {
		if column == data.ColumnDeviceID {
			continue
		}

		counts, cerr := eda.CategoricalDistribution(txs, column)
		if cerr != nil {
			return cerr
		}

		if column == data.ColumnCountry && len(counts) > a.opts.topCountries {
			counts = counts[:a.opts.topCountries]
		}

		err = eda.BarPlot(a.path("bar_"+column), "Distribution of "+column, column, counts)
		if err != nil {
			return err
		}
	}

	corr, err := eda.CorrelationMatrix(names, cols)
	if err != nil {
		return err
	}

	return eda.HeatMapPlot(a.path("correlation"), names, corr)
}

// limeReport is the JSON form of a local surrogate.
type limeReport struct {
	Weights         map[string]float64 `json:"weights"`
	Intercept       float64            `json:"intercept"`
	LocalPrediction float64            `json:"local_prediction"`
	Prediction      float64            `json:"prediction"`
	Score           float64            `json:"score"`
}

// explain writes the Shapley summary, the permutation importance and a local
// surrogate of the first fraudulent transaction.
func (a *analyzer) explain(txs []data.Transaction) (err error) {
	art, err := training.LoadArtifact(a.opts.model)
	if err != nil {
		return err
	}

	p := art.Pipeline
	rows := make([]features.Row, len(txs))
	y := make([]int, len(txs))
	for i := range txs {
		rows[i] = p.Prepare(txs[i])
		y[i] = txs[i].Class
	}

	X, err := p.TransformAll(rows)
	if err != nil {
		return err
	} else if len(X) == 0 {
		return errors.Error("no transactions to explain")
	}

	names := p.Names()
	n := min(a.opts.samples, len(X))
	values := make([][]float64, 0, n)
	for _, x := range X[:n] {
		e, serr := explain.Shapley(art.Model, x, art.Baseline, explain.ShapleyOptions{Seed: a.opts.seed})
		if serr != nil {
			return serr
		}

		values = append(values, e.Values)
	}

	title := "Mean |SHAP value|: " + art.Model.Name()
	if err = explain.SummaryPlot(a.path("shap_summary"), title, names, explain.MeanAbs(values)); err != nil {
		return err
	}

	imp := explain.PermutationImportance(art.Model, X, y, names, a.opts.repeats, a.opts.seed)
	if err = a.writeJSON("permutation_importance.json", imp); err != nil {
		return err
	}

	row := max(slices.Index(y, 1), 0)
	s, err := explain.LIME(art.Model, X[row], nil, explain.LIMEOptions{Seed: a.opts.seed})
	if err != nil {
		return err
	}

	rep := limeReport{
		Weights:         make(map[string]float64, len(names)),
		Intercept:       s.Intercept,
		LocalPrediction: s.LocalPrediction,
		Prediction:      s.Prediction,
		Score:           s.Score,
	}
	for i, name := range names {
		rep.Weights[name] = s.Weights[i]
	}

	a.logger.Info(
		"explanations written",
		zap.Int("shap_rows", n),
		zap.Int("lime_row", row),
		zap.Float64("lime_score", s.Score),
	)

	return a.writeJSON("lime.json", rep)
}

// path returns the path of the image called name.
func (a *analyzer) path(name string) (p string) {
	return filepath.Join(a.opts.out, name+"."+a.opts.format)
}

// writeJSON writes v as indented JSON to the file called name.
func (a *analyzer) writeJSON(name string, v any) (err error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	if err = os.MkdirAll(a.opts.out, 0o755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(a.opts.out, name))
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	_, err = f.Write(append(b, '\n'))

	return err
}

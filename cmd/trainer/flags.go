package main

import (
	"flag"
	"strings"

	"frauddetect/internal/config"
)

// listValue is a comma-separated flag value.
type listValue struct {
	list *[]string
}

// type check
var _ flag.Value = listValue{}

// String implements the [flag.Value] interface for listValue.
func (v listValue) String() (s string) {
	if v.list == nil {
		return ""
	}

	return strings.Join(*v.list, ",")
}

// Set implements the [flag.Value] interface for listValue.
func (v listValue) Set(s string) (err error) {
	*v.list = (*v.list)[:0]
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*v.list = append(*v.list, item)
		}
	}

	return nil
}

// bindFlags registers the training flags on fs, storing values in c.  The
// current values of c are the defaults.
func bindFlags(fs *flag.FlagSet, c *config.Trainer) {
	fs.BoolVar(&c.Regen, "regen", c.Regen, "regenerate the synthetic dataset and range table")
	fs.IntVar(&c.N, "n", c.N, "number of synthetic transactions")
	fs.Float64Var(&c.FraudRate, "fraud_rate", c.FraudRate, "share of fraudulent synthetic transactions")
	fs.StringVar(&c.Data, "data", c.Data, "transactions CSV")
	fs.StringVar(&c.Ranges, "ranges", c.Ranges, "IP range table CSV")
	fs.StringVar(&c.ModelOut, "model_out", c.ModelOut, "path of the trained artifact")
	fs.StringVar(&c.ReportOut, "report_out", c.ReportOut, "path of the JSON metrics report")
	fs.Var(listValue{list: &c.Algos}, "algos", "comma-separated algorithms: dt, rf, bagging, gb")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.Float64Var(&c.TestSize, "test_size", c.TestSize, "share of the test set")
	fs.IntVar(&c.Estimators, "estimators", c.Estimators, "number of ensemble estimators")
	fs.IntVar(&c.MaxDepth, "max_depth", c.MaxDepth, "maximum tree depth")
	fs.IntVar(&c.MinSamples, "min_samples", c.MinSamples, "minimum number of samples to split")
	fs.Float64Var(&c.LearningRate, "lr", c.LearningRate, "gradient boosting learning rate")
	fs.Float64Var(&c.ScalePosWeight, "scale_pos_weight", c.ScalePosWeight, "gradient boosting positive weight, 0 for the class ratio")

	fs.BoolVar(&c.Curve.Enabled, "curve", c.Curve.Enabled, "write the learning curve")
	fs.IntVar(&c.Curve.Points, "curve_points", c.Curve.Points, "number of learning curve points")
	fs.StringVar(&c.Curve.Img, "curve_out_img", c.Curve.Img, "learning curve image")
	fs.StringVar(&c.Curve.CSV, "curve_out_csv", c.Curve.CSV, "learning curve CSV")
	fs.IntVar(&c.Curve.Min, "curve_min", c.Curve.Min, "smallest learning curve size")
	fs.BoolVar(&c.Curve.Log, "curve_log", c.Curve.Log, "grow learning curve sizes geometrically")

	fs.Float64Var(&c.Threshold.Value, "threshold", c.Threshold.Value, "classification threshold when not chosen automatically")
	fs.BoolVar(&c.Threshold.Auto, "threshold_auto", c.Threshold.Auto, "choose the threshold on a validation tail")
	fs.StringVar(&c.Threshold.Metric, "threshold_metric", c.Threshold.Metric, "metric of the automatic threshold: f1 or acc")
	fs.Float64Var(&c.Threshold.Min, "threshold_min", c.Threshold.Min, "lower bound of the automatic threshold")
	fs.Float64Var(&c.Threshold.Max, "threshold_max", c.Threshold.Max, "upper bound of the automatic threshold")
}

// parseFlags parses args.  When -config is given, the YAML file replaces the
// defaults and the flags set in args are applied on top of it.
func parseFlags(args []string) (c *config.Trainer, err error) {
	c = config.DefaultTrainer()

	fs := flag.NewFlagSet("trainer", flag.ContinueOnError)
	bindFlags(fs, c)
	confPath := fs.String("config", "", "YAML configuration file")

	if err = fs.Parse(args); err != nil {
		return nil, err
	}

	if *confPath == "" {
		return c, c.Validate()
	}

	loaded, err := config.LoadTrainer(*confPath)
	if err != nil {
		return nil, err
	}

	replay := flag.NewFlagSet("replay", flag.ContinueOnError)
	bindFlags(replay, loaded)

	fs.Visit(func(f *flag.Flag) {
		if err != nil || f.Name == "config" {
			return
		}

		err = replay.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return nil, err
	}

	return loaded, loaded.Validate()
}

package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"
)

// Algorithms is the list of the supported model algorithms.
var Algorithms = []string{"dt", "rf", "bagging", "gb"}

// Trainer is the configuration of the training CLI.  Flags override the
// values read from the YAML file.
type Trainer struct {
	Threshold ThresholdConfig `yaml:"threshold"`
	Curve     CurveConfig     `yaml:"curve"`

	Data      string `yaml:"data"`
	Ranges    string `yaml:"ranges"`
	ModelOut  string `yaml:"model_out"`
	ReportOut string `yaml:"report_out"`

	Algos []string `yaml:"algos"`

	FraudRate    float64 `yaml:"fraud_rate"`
	LearningRate float64 `yaml:"learning_rate"`
	TestSize     float64 `yaml:"test_size"`

	// ScalePosWeight is the weight of the positive class for gradient
	// boosting.  Zero means the ratio of negatives to positives.
	ScalePosWeight float64 `yaml:"scale_pos_weight"`

	Seed int64 `yaml:"seed"`

	N          int `yaml:"n"`
	Estimators int `yaml:"estimators"`
	MaxDepth   int `yaml:"max_depth"`
	MinSamples int `yaml:"min_samples"`

	Regen bool `yaml:"regen"`
}

// ThresholdConfig configures the choice of the classification threshold.
type ThresholdConfig struct {
	// Metric is either "f1" or "acc".
	Metric string  `yaml:"metric"`
	Value  float64 `yaml:"value"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Auto   bool    `yaml:"auto"`
}

// CurveConfig configures the learning curve output.
type CurveConfig struct {
	Img     string `yaml:"img"`
	CSV     string `yaml:"csv"`
	Points  int    `yaml:"points"`
	Min     int    `yaml:"min"`
	Enabled bool   `yaml:"enabled"`
	Log     bool   `yaml:"log"`
}

// DefaultTrainer returns the default training configuration.
func DefaultTrainer() (c *Trainer) {
	return &Trainer{
		Threshold: ThresholdConfig{
			Metric: "f1",
			Value:  0.5,
			Min:    0.05,
			Max:    0.95,
			Auto:   true,
		},
		Curve: CurveConfig{
			Img:     "reports/learning_curve.png",
			CSV:     "reports/learning_curve.csv",
			Points:  10,
			Min:     500,
			Enabled: true,
			Log:     true,
		},
		Data:         "data/cleaned_data.csv",
		Ranges:       "data/IpAddress_to_Country.csv",
		ModelOut:     "models/model.gob",
		ReportOut:    "reports/metrics.json",
		Algos:        []string{"dt", "rf", "gb"},
		FraudRate:    0.09,
		LearningRate: 0.1,
		TestSize:     0.2,
		Seed:         42,
		N:            50_000,
		Estimators:   30,
		MaxDepth:     6,
		MinSamples:   100,
		Regen:        false,
	}
}

// LoadTrainer reads the YAML file at path on top of the defaults and
// validates the result.
func LoadTrainer(path string) (c *Trainer, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trainer config: %w", err)
	}

	c = DefaultTrainer()
	if err = yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("decoding trainer config %q: %w", path, err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate returns an error if c contains invalid values.
func (c *Trainer) Validate() (err error) {
	if len(c.Algos) == 0 {
		err = multierr.Append(err, fmt.Errorf("algos: must not be empty"))
	}

	for _, a := range c.Algos {
		if !slices.Contains(Algorithms, a) {
			err = multierr.Append(err, fmt.Errorf("algos: unknown algorithm %q", a))
		}
	}

	if c.TestSize <= 0 || c.TestSize >= 1 {
		err = multierr.Append(err, fmt.Errorf("test_size: must be in (0, 1), got %g", c.TestSize))
	}

	if c.FraudRate < 0 || c.FraudRate > 1 {
		err = multierr.Append(err, fmt.Errorf("fraud_rate: must be in [0, 1], got %g", c.FraudRate))
	}

	if c.Threshold.Metric != "f1" && c.Threshold.Metric != "acc" {
		err = multierr.Append(err, fmt.Errorf("threshold.metric: must be f1 or acc, got %q", c.Threshold.Metric))
	}

	if c.Threshold.Min > c.Threshold.Max {
		err = multierr.Append(err, fmt.Errorf(
			"threshold: min %g is greater than max %g",
			c.Threshold.Min,
			c.Threshold.Max,
		))
	}

	if c.Regen && c.N <= 0 {
		err = multierr.Append(err, fmt.Errorf("n: must be positive when regen is set, got %d", c.N))
	}

	if err != nil {
		return fmt.Errorf("validating trainer config: %w", err)
	}

	return nil
}

package features

import (
	"fmt"

	"frauddetect/internal/data"
	"frauddetect/internal/encoding"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrNoRows is returned when a pipeline is fitted on no rows.
const ErrNoRows errors.Error = "no rows"

// Names of the engineered features.
const (
	FeatureTransactionFrequency = "transaction_frequency"
	FeatureVelocityCheck        = "velocity_check"
	FeaturePurchaseHour         = "purchase_hour"
	FeaturePurchaseWeekday      = "purchase_weekday"
)

// Names of the numeric model features, in vector order.
var numericNames = []string{
	FeatureTransactionFrequency,
	FeatureVelocityCheck,
	FeaturePurchaseHour,
	FeaturePurchaseWeekday,
	data.ColumnPurchaseValue,
	data.ColumnAge,
}

// Names of the categorical model features, in vector order after the numeric
// ones.
var categoricalNames = []string{
	data.ColumnSource,
	data.ColumnBrowser,
	data.ColumnSex,
	data.ColumnCountry,
}

// Pipeline turns engineered rows into standardized feature vectors.  It is
// stored in the model artifact with encoding/gob, so its fields are
// exported.
type Pipeline struct {
	// Frequency is the number of transactions per user seen during fitting.
	Frequency map[string]int

	// Encoders are the label encoders of the categorical columns.
	Encoders map[string]*encoding.LabelEncoder

	Scaler *encoding.StandardScaler
}

// Names returns the names of the features in vector order.
func (p *Pipeline) Names() (names []string) {
	names = make([]string, 0, len(numericNames)+len(categoricalNames))
	names = append(names, numericNames...)

	return append(names, categoricalNames...)
}

// Fit learns the user frequencies, the label encoders and the scaler from
// rows and returns the transformed rows together with their labels.
func (p *Pipeline) Fit(rows []Row) (X [][]float64, y []int, err error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("fitting pipeline: %w", ErrNoRows)
	}

	p.Frequency = map[string]int{}
	for i := range rows {
		p.Frequency[rows[i].UserID]++
	}

	p.Encoders = make(map[string]*encoding.LabelEncoder, len(categoricalNames))
	for _, col := range categoricalNames {
		values := make([]string, len(rows))
		for i := range rows {
			values[i] = categorical(&rows[i], col)
		}

		e := &encoding.LabelEncoder{}
		e.Fit(values)
		p.Encoders[col] = e
	}

	raw := make([][]float64, len(rows))
	y = make([]int, len(rows))
	for i := range rows {
		raw[i] = p.Encode(&rows[i])
		y[i] = rows[i].Class
	}

	p.Scaler = &encoding.StandardScaler{}
	if err = p.Scaler.Fit(raw); err != nil {
		return nil, nil, fmt.Errorf("fitting pipeline: %w", err)
	}

	X, err = p.Scaler.Transform(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("fitting pipeline: %w", err)
	}

	return X, y, nil
}

// Encode returns the label-encoded but not standardized feature vector of r.
// Categories unseen during fitting are encoded as -1.
func (p *Pipeline) Encode(r *Row) (x []float64) {
	x = []float64{
		float64(r.TransactionFrequency),
		r.VelocityCheck,
		float64(r.PurchaseHour),
		float64(r.PurchaseWeekday),
		r.PurchaseValue,
		float64(r.Age),
	}

	for _, col := range categoricalNames {
		code := -1
		if e, ok := p.Encoders[col]; ok {
			if c, found := e.Encode(categorical(r, col)); found {
				code = c
			}
		}

		x = append(x, float64(code))
	}

	return x
}

// Transform returns the standardized feature vector of r.
func (p *Pipeline) Transform(r *Row) (x []float64, err error) {
	if p.Scaler == nil {
		return nil, encoding.ErrNotFitted
	}

	return p.Scaler.TransformRow(p.Encode(r))
}

// TransformAll returns the standardized feature vectors of rows.
func (p *Pipeline) TransformAll(rows []Row) (X [][]float64, err error) {
	X = make([][]float64, len(rows))
	for i := range rows {
		X[i], err = p.Transform(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	return X, nil
}

// Prepare engineers the features of a single transaction, such as one
// received by the API.  The frequency of its user is taken from the fitted
// data, unseen users count as one transaction.
func (p *Pipeline) Prepare(tx data.Transaction) (r Row) {
	freq := p.Frequency[tx.UserID]
	if freq == 0 {
		freq = 1
	}

	if tx.Country == "" {
		tx.Country = data.UnknownCountry
	}

	return EngineerOne(tx, freq)
}

// categorical returns the value of the categorical column col of r.
func categorical(r *Row, col string) (v string) {
	switch col {
	case data.ColumnSource:
		return r.Source
	case data.ColumnBrowser:
		return r.Browser
	case data.ColumnSex:
		return r.Sex
	case data.ColumnCountry:
		return r.Country
	default:
		panic(fmt.Errorf("unexpected categorical column %q", col))
	}
}

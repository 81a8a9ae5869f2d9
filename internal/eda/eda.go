// Package eda contains the exploratory analysis of the transaction dataset:
// descriptive statistics, distributions, correlations and the fraud
// aggregates served by the API.
package eda

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"frauddetect/internal/data"
	"frauddetect/internal/features"

	"github.com/AdguardTeam/golibs/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrUnknownColumn is returned when a column does not exist or has the
// wrong type for the requested analysis.
const ErrUnknownColumn errors.Error = "unknown column"

// ColumnStats are the descriptive statistics of a numeric column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Median float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// Describe returns the statistics of every column, sorted by name.  Std is
// the sample standard deviation.  Empty columns only have a name.
func Describe(columns map[string][]float64) (stats []ColumnStats) {
	for _, name := range slices.Sorted(maps.Keys(columns)) {
		col := columns[name]
		cs := ColumnStats{Name: name, Count: len(col)}
		if len(col) == 0 {
			stats = append(stats, cs)

			continue
		}

		sorted := slices.Clone(col)
		slices.Sort(sorted)

		cs.Mean, cs.Std = stat.MeanStdDev(sorted, nil)
		if len(col) == 1 {
			cs.Std = 0
		}

		cs.Min, cs.Max = sorted[0], sorted[len(sorted)-1]
		cs.Q25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		cs.Median = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
		cs.Q75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)

		stats = append(stats, cs)
	}

	return stats
}

// NumericColumns returns the numeric columns of rows, including the
// engineered features and the label.
func NumericColumns(rows []features.Row) (columns map[string][]float64) {
	names := []string{
		data.ColumnPurchaseValue,
		data.ColumnAge,
		data.ColumnClass,
		features.FeatureTransactionFrequency,
		features.FeatureVelocityCheck,
		features.FeaturePurchaseHour,
		features.FeaturePurchaseWeekday,
	}

	columns = make(map[string][]float64, len(names))
	for _, n := range names {
		columns[n] = make([]float64, len(rows))
	}

	for i := range rows {
		r := &rows[i]
		columns[data.ColumnPurchaseValue][i] = r.PurchaseValue
		columns[data.ColumnAge][i] = float64(r.Age)
		columns[data.ColumnClass][i] = float64(r.Class)
		columns[features.FeatureTransactionFrequency][i] = float64(r.TransactionFrequency)
		columns[features.FeatureVelocityCheck][i] = r.VelocityCheck
		columns[features.FeaturePurchaseHour][i] = float64(r.PurchaseHour)
		columns[features.FeaturePurchaseWeekday][i] = float64(r.PurchaseWeekday)
	}

	return columns
}

// CategoricalColumns are the columns accepted by [CategoricalDistribution].
var CategoricalColumns = []string{
	data.ColumnSource,
	data.ColumnBrowser,
	data.ColumnSex,
	data.ColumnCountry,
	data.ColumnDeviceID,
}

// Count is the number of rows having a value.
type Count struct {
	Value string `json:"value"`
	N     int    `json:"count"`
}

// CategoricalDistribution returns the number of transactions per value of
// column, most frequent first and ties by value.
func CategoricalDistribution(txs []data.Transaction, column string) (counts []Count, err error) {
	get, err := categorical(column)
	if err != nil {
		return nil, err
	}

	byValue := map[string]int{}
	for i := range txs {
		byValue[get(&txs[i])]++
	}

	return sortedCounts(byValue), nil
}

// categorical returns the getter of column.
func categorical(column string) (get func(tx *data.Transaction) string, err error) {
	switch column {
	case data.ColumnSource:
		return func(tx *data.Transaction) string { return tx.Source }, nil
	case data.ColumnBrowser:
		return func(tx *data.Transaction) string { return tx.Browser }, nil
	case data.ColumnSex:
		return func(tx *data.Transaction) string { return tx.Sex }, nil
	case data.ColumnCountry:
		return func(tx *data.Transaction) string { return tx.Country }, nil
	case data.ColumnDeviceID:
		return func(tx *data.Transaction) string { return tx.DeviceID }, nil
	default:
		return nil, fmt.Errorf("categorical column %q: %w", column, ErrUnknownColumn)
	}
}

func sortedCounts(byValue map[string]int) (counts []Count) {
	counts = make([]Count, 0, len(byValue))
	for v, n := range byValue {
		counts = append(counts, Count{Value: v, N: n})
	}

	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.N, a.N); c != 0 {
			return c
		}

		return cmp.Compare(a.Value, b.Value)
	})

	return counts
}

// CorrelationMatrix returns the Pearson correlation matrix of the named
// columns, in the order of names.  All columns must have the same length.
func CorrelationMatrix(names []string, columns map[string][]float64) (corr *mat.SymDense, err error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no columns: %w", ErrUnknownColumn)
	}

	n := -1
	for _, name := range names {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
		}

		if n >= 0 && len(col) != n {
			return nil, fmt.Errorf("column %q has %d values, want %d", name, len(col), n)
		}

		n = len(col)
	}

	if n < 2 {
		return nil, fmt.Errorf("correlating %d rows: too few", n)
	}

	x := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		x.SetCol(j, columns[name])
	}

	corr = mat.NewSymDense(len(names), nil)
	stat.CorrelationMatrix(corr, x, nil)

	return corr, nil
}

// Outliers returns the indexes of the values of col outside of the
// Q1 - k*IQR and Q3 + k*IQR fences, the points a box plot draws
// separately.
func Outliers(col []float64, k float64) (idx []int) {
	if len(col) == 0 {
		return nil
	}

	sorted := slices.Clone(col)
	slices.Sort(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1

	lo, hi := q1-k*iqr, q3+k*iqr
	for i, v := range col {
		if v < lo || v > hi {
			idx = append(idx, i)
		}
	}

	return idx
}

// ClassMeans returns the mean of col over the legitimate and the fraudulent
// rows.
func ClassMeans(col []float64, class []float64) (legit, fraud float64) {
	var l, f []float64
	for i, v := range col {
		if class[i] == 1 {
			f = append(f, v)
		} else {
			l = append(l, v)
		}
	}

	if len(l) > 0 {
		legit = floats.Sum(l) / float64(len(l))
	}

	if len(f) > 0 {
		fraud = floats.Sum(f) / float64(len(f))
	}

	return legit, fraud
}

// Package encoding contains the encoders that turn engineered features into
// model input: label encoding of categorical values and standardization.
package encoding

import (
	"fmt"
	"math"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned when an encoder is used before it was fitted.
const ErrNotFitted errors.Error = "encoder is not fitted"

// LabelEncoder maps categorical values to their positions in the sorted list
// of distinct values seen during fitting.  Fields are exported for gob.
type LabelEncoder struct {
	Index  map[string]int
	Values []string
}

// Fit learns the classes of values.
func (e *LabelEncoder) Fit(values []string) {
	set := map[string]struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}

	e.Values = make([]string, 0, len(set))
	for v := range set {
		e.Values = append(e.Values, v)
	}
	slices.Sort(e.Values)

	e.Index = make(map[string]int, len(e.Values))
	for i, v := range e.Values {
		e.Index[v] = i
	}
}

// Encode returns the code of v.  ok is false if v was not seen during
// fitting.
func (e *LabelEncoder) Encode(v string) (code int, ok bool) {
	code, ok = e.Index[v]

	return code, ok
}

// Decode returns the value with code i.  ok is false if i is out of range.
func (e *LabelEncoder) Decode(i int) (v string, ok bool) {
	if i < 0 || i >= len(e.Values) {
		return "", false
	}

	return e.Values[i], true
}

// Classes returns the known values in code order.
func (e *LabelEncoder) Classes() (values []string) {
	return slices.Clone(e.Values)
}

// StandardScaler rescales every column to zero mean and unit variance using
// the population standard deviation.  Columns with no variance become zero.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// Fit learns the mean and the standard deviation of every column of X.
func (s *StandardScaler) Fit(X [][]float64) (err error) {
	if len(X) == 0 {
		return fmt.Errorf("fitting scaler: %w", errors.Error("no rows"))
	}

	n := len(X[0])
	s.Mean = make([]float64, n)
	s.Std = make([]float64, n)

	col := make([]float64, len(X))
	for j := range n {
		for i, row := range X {
			if len(row) != n {
				return fmt.Errorf("fitting scaler: row %d has %d columns, want %d", i, len(row), n)
			}

			col[i] = row[j]
		}

		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance)
	}

	return nil
}

// TransformRow returns the standardized copy of x.
func (s *StandardScaler) TransformRow(x []float64) (out []float64, err error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	} else if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("transforming row: got %d columns, want %d", len(x), len(s.Mean))
	}

	out = slices.Clone(x)
	floats.Sub(out, s.Mean)
	for j, sd := range s.Std {
		if sd == 0 {
			out[j] = 0
		} else {
			out[j] /= sd
		}
	}

	return out, nil
}

// Transform returns the standardized copy of X.
func (s *StandardScaler) Transform(X [][]float64) (out [][]float64, err error) {
	out = make([][]float64, len(X))
	for i, row := range X {
		out[i], err = s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	return out, nil
}

// CorrWithTarget returns the Pearson correlation of every column of X with
// the target y, keyed by column name.  Columns with no variance have a
// correlation of zero.
func CorrWithTarget(X [][]float64, names []string, y []int) (corr map[string]float64, err error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("correlating: %d rows and %d labels", len(X), len(y))
	}

	target := make([]float64, len(y))
	for i, v := range y {
		target[i] = float64(v)
	}

	corr = make(map[string]float64, len(names))
	col := make([]float64, len(X))
	for j, name := range names {
		for i, row := range X {
			col[i] = row[j]
		}

		c := stat.Correlation(col, target, nil)
		if math.IsNaN(c) {
			c = 0
		}

		corr[name] = c
	}

	return corr, nil
}

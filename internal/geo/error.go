package geo

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrEmptyTable is returned when an index is built from no ranges.
	ErrEmptyTable errors.Error = "range table is empty"

	// ErrInvertedRange is returned for a record whose lower bound is greater
	// than its upper bound.
	ErrInvertedRange errors.Error = "lower bound is greater than upper bound"

	// ErrInvalidIP is returned when a value cannot be interpreted as an IPv4
	// address.
	ErrInvalidIP errors.Error = "invalid ip address"
)

// ConstructionError is returned from [NewIndex] when the range table is empty
// or internally inconsistent.  No index is returned together with it.
type ConstructionError struct {
	// Err is the underlying error.  It may be a combination of several errors
	// made with multierr, one per bad record.
	Err error
}

// Error implements the error interface for *ConstructionError.
func (err *ConstructionError) Error() (msg string) {
	return fmt.Sprintf("building ip index: %s", err.Err)
}

// Unwrap implements the errors.Wrapper interface for *ConstructionError.
func (err *ConstructionError) Unwrap() (unwrapped error) {
	return err.Err
}

// ValidationError is returned when a value in a batch cannot be interpreted as
// a valid 32-bit unsigned integer.
type ValidationError struct {
	// Err is the underlying parse error.
	Err error

	// Value is the offending input.
	Value string

	// Row is the zero-based index of the offending value in the batch.
	Row int
}

// Error implements the error interface for *ValidationError.
func (err *ValidationError) Error() (msg string) {
	return fmt.Sprintf("row %d: value %q: %s", err.Row, err.Value, err.Err)
}

// Unwrap implements the errors.Wrapper interface for *ValidationError.
func (err *ValidationError) Unwrap() (unwrapped error) {
	return err.Err
}

package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"go.uber.org/zap"
)

// Column names of the range table.
const (
	ColumnLowerBound = "lower_bound_ip_address"
	ColumnUpperBound = "upper_bound_ip_address"
	ColumnCountry    = "country"
)

// ErrMissingColumn is returned when the range table header lacks a required
// column.
const ErrMissingColumn errors.Error = "missing column"

// LoadRanges reads a range table in CSV format.  The first line must be a
// header containing at least [ColumnLowerBound], [ColumnUpperBound] and
// [ColumnCountry]; other columns are ignored.  Bounds are parsed with
// [ParseIP].
func LoadRanges(r io.Reader) (records []RangeRecord, err error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var pos [3]int
	for i, name := range []string{ColumnLowerBound, ColumnUpperBound, ColumnCountry} {
		var ok bool
		pos[i], ok = cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	for line := 2; ; line++ {
		row, rerr := cr.Read()
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return nil, fmt.Errorf("line %d: %w", line, rerr)
		}

		lo, perr := ParseIP(row[pos[0]])
		if perr != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnLowerBound, perr)
		}

		hi, perr := ParseIP(row[pos[1]])
		if perr != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnUpperBound, perr)
		}

		records = append(records, RangeRecord{
			Country: strings.TrimSpace(row[pos[2]]),
			Lower:   lo,
			Upper:   hi,
		})
	}

	return records, nil
}

// LoadRangesFile reads the range table at path.
func LoadRangesFile(path string) (records []RangeRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening range table: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return LoadRanges(f)
}

// BuildIndexFile reads the range table at path and builds an index from it.
func BuildIndexFile(path string, logger *zap.Logger) (idx *Index, err error) {
	records, err := LoadRangesFile(path)
	if err != nil {
		return nil, err
	}

	return NewIndex(records, logger)
}

// WriteRanges writes records as a CSV range table readable by [LoadRanges].
func WriteRanges(w io.Writer, records []RangeRecord) (err error) {
	cw := csv.NewWriter(w)
	err = cw.Write([]string{ColumnLowerBound, ColumnUpperBound, ColumnCountry})
	if err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range records {
		err = cw.Write([]string{
			fmt.Sprint(r.Lower),
			fmt.Sprint(r.Upper),
			r.Country,
		})
		if err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

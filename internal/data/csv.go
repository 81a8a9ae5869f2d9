// Package data contains the transaction dataset: its model, CSV encoding and
// a synthetic generator.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrMissingColumn is returned when the dataset header lacks a required
	// column.
	ErrMissingColumn errors.Error = "missing column"

	// ErrNoHeader is returned when the dataset has no header line.
	ErrNoHeader errors.Error = "no header"
)

// requiredColumns are the columns that must be present in a dataset.  The
// country column is optional.
var requiredColumns = Columns[:len(Columns)-1]

// header maps column names to their positions.
type header map[string]int

// parseHeader reads the header line of the dataset.
func parseHeader(cr *csv.Reader) (h header, err error) {
	names, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	} else if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h = header{}
	for i, name := range names {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}

		h[strings.TrimSpace(name)] = i
	}

	return h, nil
}

// ReadTransactions reads transactions in CSV format.  The first line must be
// a header containing every column of [Columns] except [ColumnCountry], in
// any order.  Errors name the line and the column.
func ReadTransactions(r io.Reader) (txs []Transaction, err error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	h, err := parseHeader(cr)
	if err != nil {
		return nil, err
	}

	for _, c := range requiredColumns {
		if _, ok := h[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}

	for {
		row, rerr := cr.Read()
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return nil, fmt.Errorf("reading row: %w", rerr)
		}

		line, _ := cr.FieldPos(0)
		tx, perr := h.transaction(row)
		if perr != nil {
			return nil, fmt.Errorf("line %d: %w", line, perr)
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// ReadTransactionsFile reads the transactions stored at path.
func ReadTransactionsFile(path string) (txs []Transaction, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return ReadTransactions(f)
}

// transaction converts a CSV row into a transaction.
func (h header) transaction(row []string) (tx Transaction, err error) {
	get := func(col string) (v string) {
		if i, ok := h[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}

		return ""
	}

	tx = Transaction{
		UserID:    get(ColumnUserID),
		DeviceID:  get(ColumnDeviceID),
		Source:    get(ColumnSource),
		Browser:   get(ColumnBrowser),
		Sex:       get(ColumnSex),
		IPAddress: get(ColumnIPAddress),
		Country:   get(ColumnCountry),
	}

	if tx.SignupTime, err = time.Parse(TimeLayout, get(ColumnSignupTime)); err != nil {
		return tx, fmt.Errorf("column %q: %w", ColumnSignupTime, err)
	}

	if tx.PurchaseTime, err = time.Parse(TimeLayout, get(ColumnPurchaseTime)); err != nil {
		return tx, fmt.Errorf("column %q: %w", ColumnPurchaseTime, err)
	}

	if tx.PurchaseValue, err = strconv.ParseFloat(get(ColumnPurchaseValue), 64); err != nil {
		return tx, fmt.Errorf("column %q: %w", ColumnPurchaseValue, err)
	}

	if tx.Age, err = parseInt(get(ColumnAge)); err != nil {
		return tx, fmt.Errorf("column %q: %w", ColumnAge, err)
	}

	if tx.Class, err = parseInt(get(ColumnClass)); err != nil {
		return tx, fmt.Errorf("column %q: %w", ColumnClass, err)
	} else if tx.Class != 0 && tx.Class != 1 {
		return tx, fmt.Errorf("column %q: class must be 0 or 1, got %d", ColumnClass, tx.Class)
	}

	return tx, nil
}

// parseInt parses integers that may have been written as floats, like "39.0".
func parseInt(s string) (n int, err error) {
	n, err = strconv.Atoi(s)
	if err == nil {
		return n, nil
	}

	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, err
	}

	return int(f), nil
}

// WriteTransactions writes txs in the format read by [ReadTransactions],
// including the country column.
func WriteTransactions(w io.Writer, txs []Transaction) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range txs {
		tx := &txs[i]
		err = cw.Write([]string{
			tx.UserID,
			tx.SignupTime.Format(TimeLayout),
			tx.PurchaseTime.Format(TimeLayout),
			strconv.FormatFloat(tx.PurchaseValue, 'f', -1, 64),
			tx.DeviceID,
			tx.Source,
			tx.Browser,
			tx.Sex,
			strconv.Itoa(tx.Age),
			tx.IPAddress,
			strconv.Itoa(tx.Class),
			tx.Country,
		})
		if err != nil {
			return fmt.Errorf("writing transaction %d: %w", i, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteTransactionsFile writes txs to path, creating the parent directory.
func WriteTransactionsFile(path string, txs []Transaction) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return WriteTransactions(f, txs)
}

// MissingValues returns the number of empty cells per column of a raw CSV
// dataset.  Columns without empty cells are reported with zero.
func MissingValues(r io.Reader) (missing map[string]int, err error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	names, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	} else if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	names = append([]string(nil), names...)
	missing = make(map[string]int, len(names))
	for i, name := range names {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}

		names[i] = strings.TrimSpace(name)
		missing[names[i]] = 0
	}

	for {
		row, rerr := cr.Read()
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return nil, fmt.Errorf("reading row: %w", rerr)
		}

		for i, name := range names {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				missing[name]++
			}
		}
	}

	return missing, nil
}

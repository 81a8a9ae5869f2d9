// Package features contains the feature engineering of transactions: the
// temporal and behavioral features, the country join and the pipeline that
// turns engineered rows into model input.
package features

import (
	"context"
	"fmt"
	"time"

	"frauddetect/internal/data"
	"frauddetect/internal/geo"
)

// Row is a transaction together with its engineered features.
type Row struct {
	data.Transaction

	// PurchaseWeekday is the day of the week of the purchase, Monday is 0.
	PurchaseWeekday int

	// PurchaseHour is the hour of the purchase, from 0 to 23.
	PurchaseHour int

	// TransactionFrequency is the number of transactions of the user.
	TransactionFrequency int

	// VelocityCheck is the number of seconds from signup to purchase.
	VelocityCheck float64
}

// Weekday returns the day of the week of t with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) (d int) {
	return (int(t.Weekday()) + 6) % 7
}

// Frequencies returns the number of transactions of every user in txs.
func Frequencies(txs []data.Transaction) (freq map[string]int) {
	freq = map[string]int{}
	for i := range txs {
		freq[txs[i].UserID]++
	}

	return freq
}

// Engineer adds the engineered features to every transaction in txs.  The
// transaction frequency is counted over txs.
func Engineer(txs []data.Transaction) (rows []Row) {
	freq := Frequencies(txs)

	rows = make([]Row, len(txs))
	for i, tx := range txs {
		rows[i] = EngineerOne(tx, freq[tx.UserID])
	}

	return rows
}

// EngineerOne adds the engineered features to tx, using freq as the
// transaction frequency of its user.
func EngineerOne(tx data.Transaction, freq int) (r Row) {
	return Row{
		Transaction:          tx,
		PurchaseWeekday:      Weekday(tx.PurchaseTime),
		PurchaseHour:         tx.PurchaseTime.Hour(),
		TransactionFrequency: freq,
		VelocityCheck:        tx.PurchaseTime.Sub(tx.SignupTime).Seconds(),
	}
}

// CountryMapper maps IP address values to countries.  [*geo.Mapper]
// implements it.
type CountryMapper interface {
	MapIPsToCountries(ctx context.Context, values []string) (matches []geo.Match, err error)
}

// type check
var _ CountryMapper = (*geo.Mapper)(nil)

// AssignCountries sets the country of every transaction in txs from its IP
// address.  Addresses not covered by any range get [data.UnknownCountry].
// The whole batch fails on the first malformed address, with a
// [*geo.ValidationError] naming its row.
func AssignCountries(ctx context.Context, m CountryMapper, txs []data.Transaction) (matched int, err error) {
	ips := make([]string, len(txs))
	for i := range txs {
		ips[i] = txs[i].IPAddress
	}

	matches, err := m.MapIPsToCountries(ctx, ips)
	if err != nil {
		return 0, fmt.Errorf("assigning countries: %w", err)
	}

	for i, mt := range matches {
		if mt.Found {
			txs[i].Country = mt.Country
			matched++
		} else {
			txs[i].Country = data.UnknownCountry
		}
	}

	return matched, nil
}

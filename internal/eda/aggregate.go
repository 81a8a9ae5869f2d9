package eda

import (
	"math"
	"slices"
	"strings"
	"time"

	"frauddetect/internal/data"
)

// DateLayout is the layout of the dates of [Trend].
const DateLayout = time.DateOnly

// Summary is the overall fraud rate of a dataset.
type Summary struct {
	TotalTransactions int `json:"total_transactions"`
	FraudCases        int `json:"fraud_cases"`

	// FraudPercentage is the share of fraud cases in percents, rounded to
	// two decimals.
	FraudPercentage float64 `json:"fraud_percentage"`
}

// Summarize returns the summary of txs.
func Summarize(txs []data.Transaction) (s Summary) {
	s.TotalTransactions = len(txs)
	for i := range txs {
		s.FraudCases += txs[i].Class
	}

	if s.TotalTransactions > 0 {
		pct := float64(s.FraudCases) / float64(s.TotalTransactions) * 100
		s.FraudPercentage = math.Round(pct*100) / 100
	}

	return s
}

// Trend is the number of fraud cases on a purchase date.
type Trend struct {
	Date       string `json:"date"`
	FraudCases int    `json:"fraud_cases"`
}

// FraudTrends returns the number of fraud cases per purchase date, in date
// order.  Dates without fraud are included with zero cases.
func FraudTrends(txs []data.Transaction) (trends []Trend) {
	byDate := map[string]int{}
	for i := range txs {
		byDate[txs[i].PurchaseTime.Format(DateLayout)] += txs[i].Class
	}

	trends = make([]Trend, 0, len(byDate))
	for d, n := range byDate {
		trends = append(trends, Trend{Date: d, FraudCases: n})
	}

	slices.SortFunc(trends, func(a, b Trend) int { return strings.Compare(a.Date, b.Date) })

	return trends
}

// FraudByDevice returns the limit devices with the most fraud cases.  A
// non-positive limit returns every device.
func FraudByDevice(txs []data.Transaction, limit int) (counts []Count) {
	counts = fraudBy(txs, func(tx *data.Transaction) string { return tx.DeviceID })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}

	return counts
}

// FraudByBrowser returns the number of fraud cases per browser, most
// fraud first.
func FraudByBrowser(txs []data.Transaction) (counts []Count) {
	return fraudBy(txs, func(tx *data.Transaction) string { return tx.Browser })
}

func fraudBy(txs []data.Transaction, key func(tx *data.Transaction) string) (counts []Count) {
	byKey := map[string]int{}
	for i := range txs {
		byKey[key(&txs[i])] += txs[i].Class
	}

	return sortedCounts(byKey)
}

// CountMap converts counts to a map from value to count.
func CountMap(counts []Count) (m map[string]int) {
	m = make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Value] = c.N
	}

	return m
}

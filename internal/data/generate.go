package data

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"frauddetect/internal/geo"

	"github.com/AdguardTeam/golibs/errors"
)

var (
	sources   = []string{"SEO", "Ads", "Direct"}
	browsers  = []string{"Chrome", "IE", "Safari", "FireFox", "Opera"}
	countries = []string{
		"United States",
		"China",
		"Japan",
		"United Kingdom",
		"Korea Republic of",
		"Germany",
		"France",
		"Canada",
		"Brazil",
		"Italy",
	}
)

// Bounds of the address space the synthetic range table covers.
const (
	firstRangeIP = 16_777_216
	lastRangeIP  = 3_758_096_383
)

// Generator produces synthetic transactions resembling the e-commerce fraud
// dataset.  Fraudulent rows tend to have a short delay between signup and
// purchase, share devices, and happen at night.
type Generator struct {
	rng *rand.Rand

	// Start is the earliest signup time.
	Start time.Time

	// Ranges is the range table the IP addresses are drawn from.
	Ranges []geo.RangeRecord

	// FraudRate is the share of fraudulent transactions.
	FraudRate float64

	// UnknownRate is the share of IP addresses outside of every range.
	UnknownRate float64
}

// NewGenerator returns a generator seeded with seed.  Generators with the
// same seed produce the same data.
func NewGenerator(seed int64, fraudRate float64) (g *Generator) {
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		Start:       time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC),
		Ranges:      SyntheticRanges(200),
		FraudRate:   fraudRate,
		UnknownRate: 0.05,
	}
}

// SyntheticRanges splits the public IPv4 space into n contiguous blocks
// assigned to countries in turn.  Every fifth block is left out so that some
// addresses have no country.
func SyntheticRanges(n int) (records []geo.RangeRecord) {
	if n <= 0 {
		return nil
	}

	step := uint32((lastRangeIP - firstRangeIP) / n)
	for i := range n {
		if i%5 == 4 {
			continue
		}

		lo := uint32(firstRangeIP) + uint32(i)*step
		records = append(records, geo.RangeRecord{
			Country: countries[i%len(countries)],
			Lower:   lo,
			Upper:   lo + step - 1,
		})
	}

	return records
}

// Transactions generates n transactions.
func (g *Generator) Transactions(n int) (txs []Transaction) {
	txs = make([]Transaction, 0, n)

	// Fraud rings reuse devices and accounts.
	var ringDevices, ringUsers []string

	for i := range n {
		fraud := g.rng.Float64() < g.FraudRate

		tx := Transaction{
			UserID:   strconv.Itoa(100_000 + i),
			DeviceID: g.deviceID(),
			Source:   sources[g.rng.Intn(len(sources))],
			Browser:  browsers[g.rng.Intn(len(browsers))],
			Sex:      "M",
			Age:      18 + g.rng.Intn(58),
		}

		if g.rng.Float64() < 0.42 {
			tx.Sex = "F"
		}

		tx.SignupTime = g.Start.Add(time.Duration(g.rng.Int63n(int64(120 * 24 * time.Hour)))).
			Truncate(time.Second)
		tx.PurchaseValue = math.Round(math.Max(9, g.rng.NormFloat64()*18+36))
		tx.IPAddress = g.ipAddress()

		if fraud {
			tx.Class = 1
			g.fraudulent(&tx, &ringDevices, &ringUsers)
		} else {
			delay := time.Hour + time.Duration(g.rng.Int63n(int64(100*24*time.Hour)))
			tx.PurchaseTime = tx.SignupTime.Add(delay).Truncate(time.Second)
		}

		txs = append(txs, tx)
	}

	return txs
}

// fraudulent applies the fraud patterns to tx.
func (g *Generator) fraudulent(tx *Transaction, ringDevices, ringUsers *[]string) {
	if len(*ringDevices) > 0 && g.rng.Float64() < 0.5 {
		tx.DeviceID = (*ringDevices)[g.rng.Intn(len(*ringDevices))]
	} else {
		*ringDevices = append(*ringDevices, tx.DeviceID)
	}

	if len(*ringUsers) > 0 && g.rng.Float64() < 0.3 {
		tx.UserID = (*ringUsers)[g.rng.Intn(len(*ringUsers))]
	} else {
		*ringUsers = append(*ringUsers, tx.UserID)
	}

	switch {
	case g.rng.Float64() < 0.6:
		tx.PurchaseTime = tx.SignupTime.Add(time.Duration(1+g.rng.Intn(10)) * time.Second)
	case g.rng.Float64() < 0.5:
		day := tx.SignupTime.Add(time.Duration(1+g.rng.Intn(20)) * 24 * time.Hour)
		y, m, d := day.Date()
		tx.PurchaseTime = time.Date(y, m, d, g.rng.Intn(6), g.rng.Intn(60), g.rng.Intn(60), 0, time.UTC)
	default:
		delay := time.Hour + time.Duration(g.rng.Int63n(int64(60*24*time.Hour)))
		tx.PurchaseTime = tx.SignupTime.Add(delay).Truncate(time.Second)
	}

	tx.PurchaseValue = math.Round(tx.PurchaseValue * (1 + g.rng.Float64()*0.5))
}

// deviceID returns a random device identifier in the dataset's format.
func (g *Generator) deviceID() (id string) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	b := make([]byte, 13)
	for i := range b {
		b[i] = letters[g.rng.Intn(len(letters))]
	}

	return string(b)
}

// ipAddress returns the text of a random address in the float notation of
// the dataset.
func (g *Generator) ipAddress() (s string) {
	var ip uint32
	if len(g.Ranges) == 0 || g.rng.Float64() < g.UnknownRate {
		ip = g.rng.Uint32() % firstRangeIP
	} else {
		r := g.Ranges[g.rng.Intn(len(g.Ranges))]
		ip = r.Lower + uint32(g.rng.Int63n(int64(r.Upper-r.Lower)+1))
	}

	frac := float64(g.rng.Intn(1_000_000)) / 1e6

	return strconv.FormatFloat(float64(ip)+frac, 'f', -1, 64)
}

// GenerateSynthetic writes n synthetic transactions to dataPath and the range
// table they were drawn from to rangesPath.
func GenerateSynthetic(n int, fraudRate float64, seed int64, dataPath, rangesPath string) (err error) {
	g := NewGenerator(seed, fraudRate)
	txs := g.Transactions(n)

	if err = WriteTransactionsFile(dataPath, txs); err != nil {
		return fmt.Errorf("writing transactions: %w", err)
	}

	f, err := createFile(rangesPath)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	if err = geo.WriteRanges(f, g.Ranges); err != nil {
		return fmt.Errorf("writing ranges: %w", err)
	}

	return nil
}

// createFile creates the file at path together with its parent directory.
func createFile(path string) (f *os.File, err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	f, err = os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	return f, nil
}

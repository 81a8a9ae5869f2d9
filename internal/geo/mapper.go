package geo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the batch size above which lookups are spread across
// worker goroutines.
const DefaultChunkSize = 50_000

// Match is the result of mapping one address.
type Match struct {
	// Country is the matched country.  It is empty when Found is false.
	Country string `json:"country"`

	// Found is true if a country was found for the address.
	Found bool `json:"found"`
}

// MapperConfig is the configuration structure for a *Mapper.
type MapperConfig struct {
	// Lookup is the lookup backend.  It must not be nil and must be safe for
	// concurrent use when Workers is greater than one.
	Lookup CountryLookup

	// Logger is used to report batch statistics.  If nil, logs are discarded.
	Logger *zap.Logger

	// Metrics is used to collect lookup statistics.  If nil, [EmptyMetrics]
	// is used.
	Metrics Metrics

	// ChunkSize is the number of addresses per worker task.  If not positive,
	// [DefaultChunkSize] is used.
	ChunkSize int

	// Workers is the maximum number of concurrent worker tasks.  Values below
	// two disable parallel lookups.
	Workers int
}

// Mapper maps batches of addresses to countries.
type Mapper struct {
	lookup    CountryLookup
	logger    *zap.Logger
	metrics   Metrics
	chunkSize int
	workers   int
}

// NewMapper returns a new properly initialized *Mapper.
func NewMapper(c *MapperConfig) (m *Mapper) {
	m = &Mapper{
		lookup:    c.Lookup,
		logger:    c.Logger,
		metrics:   c.Metrics,
		chunkSize: c.ChunkSize,
		workers:   c.Workers,
	}

	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	if m.metrics == nil {
		m.metrics = EmptyMetrics{}
	}

	if m.chunkSize <= 0 {
		m.chunkSize = DefaultChunkSize
	}

	return m
}

// MapIPsToCountries parses values and maps each of them to a country.  The
// result has one element per value, in the same order.  If any value is not a
// valid address, the whole batch fails with a *ValidationError for the first
// such value.
func (m *Mapper) MapIPsToCountries(ctx context.Context, values []string) (matches []Match, err error) {
	ips := make([]uint32, len(values))
	for i, v := range values {
		ips[i], err = ParseIP(v)
		if err != nil {
			return nil, &ValidationError{Row: i, Value: v, Err: err}
		}
	}

	return m.MapUint32(ctx, ips)
}

// MapUint32 maps already parsed addresses.  err is only returned for backend
// failures and context cancellation.
func (m *Mapper) MapUint32(ctx context.Context, ips []uint32) (matches []Match, err error) {
	matches = make([]Match, len(ips))

	if m.workers < 2 || len(ips) <= m.chunkSize {
		err = m.lookupRange(ctx, ips, matches)
	} else {
		err = m.lookupParallel(ctx, ips, matches)
	}
	if err != nil {
		return nil, err
	}

	matched := 0
	for _, mt := range matches {
		if mt.Found {
			matched++
		}
	}

	m.metrics.ObserveLookups(matched, len(matches)-matched)
	m.logger.Info(
		"mapped ips to countries",
		zap.Int("total", len(matches)),
		zap.Int("matched", matched),
	)

	return matches, nil
}

// lookupParallel splits ips into chunks and looks them up in worker tasks.
// Every task writes into its own part of out.
func (m *Mapper) lookupParallel(ctx context.Context, ips []uint32, out []Match) (err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for start := 0; start < len(ips); start += m.chunkSize {
		end := min(start+m.chunkSize, len(ips))
		g.Go(func() error {
			return m.lookupRange(gctx, ips[start:end], out[start:end])
		})
	}

	return g.Wait()
}

// lookupRange looks up every address of ips and stores the result at the same
// position of out.
func (m *Mapper) lookupRange(ctx context.Context, ips []uint32, out []Match) (err error) {
	for i, ip := range ips {
		if i%4096 == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}

		country, ok, lerr := m.lookup.LookupCountry(ip)
		if lerr != nil {
			return fmt.Errorf("looking up %s: %w", FormatIP(ip), lerr)
		}

		out[i] = Match{Country: country, Found: ok}
	}

	return nil
}

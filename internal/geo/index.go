// Package geo maps IPv4 addresses to countries using a static interval index
// built from a table of address ranges.
package geo

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RangeRecord maps the closed address interval [Lower, Upper] to Country.
type RangeRecord struct {
	Country string
	Lower   uint32
	Upper   uint32
}

// span is a range as stored in the index.  hi is exclusive and kept as uint64
// so that an upper bound of 0xFFFFFFFF still fits after the increment.
type span struct {
	country string
	lo      uint64
	hi      uint64
	ord     int
}

func (s span) width() uint64 { return s.hi - s.lo }

// Index is an immutable interval index over [RangeRecord]s.  It is an implicit
// balanced search tree over the ranges sorted by lower bound in which every
// node also carries the largest upper bound of its subtree, so that a point
// query visits O(log n + k) nodes, where k is the number of ranges containing
// the point.
//
// When several ranges contain the same address, the narrowest one wins, and
// among ranges of equal width the one that came first in the input wins.
//
// An *Index is safe for concurrent use.
type Index struct {
	spans []span
	maxHi []uint64
}

// type check
var _ CountryLookup = (*Index)(nil)

// NewIndex builds an index from records.  It returns a *ConstructionError if
// records is empty or if any record has its lower bound above its upper bound.
// logger may be nil.
func NewIndex(records []RangeRecord, logger *zap.Logger) (idx *Index, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(records) == 0 {
		return nil, &ConstructionError{Err: ErrEmptyTable}
	}

	var errs error
	spans := make([]span, 0, len(records))
	for i, r := range records {
		if r.Lower > r.Upper {
			errs = multierr.Append(errs, fmt.Errorf(
				"record %d (%d-%d %q): %w", i, r.Lower, r.Upper, r.Country, ErrInvertedRange,
			))

			continue
		}

		spans = append(spans, span{
			country: r.Country,
			lo:      uint64(r.Lower),
			hi:      uint64(r.Upper) + 1,
			ord:     i,
		})
	}

	if errs != nil {
		logger.Error("ip index construction failed", zap.Error(errs))

		return nil, &ConstructionError{Err: errs}
	}

	slices.SortFunc(spans, func(a, b span) int {
		return cmp.Or(cmp.Compare(a.lo, b.lo), cmp.Compare(a.hi, b.hi), cmp.Compare(a.ord, b.ord))
	})

	idx = &Index{
		spans: spans,
		maxHi: make([]uint64, len(spans)),
	}
	idx.build(0, len(spans))

	logger.Info("ip index built", zap.Int("ranges", len(spans)))

	return idx, nil
}

// build fills maxHi for the subtree over spans[l:r] and returns its maximum.
func (idx *Index) build(l, r int) (mx uint64) {
	if l >= r {
		return 0
	}

	m := int(uint(l+r) >> 1)
	mx = max(idx.spans[m].hi, idx.build(l, m), idx.build(m+1, r))
	idx.maxHi[m] = mx

	return mx
}

// Len returns the number of ranges in the index.
func (idx *Index) Len() (n int) {
	return len(idx.spans)
}

// Lookup returns the country of the range containing ip.  ok is false if no
// range contains it.
func (idx *Index) Lookup(ip uint32) (country string, ok bool) {
	best := -1
	idx.stab(0, len(idx.spans), uint64(ip), &best)
	if best < 0 {
		return "", false
	}

	return idx.spans[best].country, true
}

// LookupCountry implements the [CountryLookup] interface for *Index.  err is
// always nil.
func (idx *Index) LookupCountry(ip uint32) (country string, ok bool, err error) {
	country, ok = idx.Lookup(ip)

	return country, ok, nil
}

// stab visits every range in spans[l:r] containing p and keeps the preferred
// one in best.
func (idx *Index) stab(l, r int, p uint64, best *int) {
	if l >= r {
		return
	}

	m := int(uint(l+r) >> 1)
	if idx.maxHi[m] <= p {
		return
	}

	idx.stab(l, m, p, best)

	s := idx.spans[m]
	if s.lo > p {
		// Every range to the right starts at or after s.lo.
		return
	}

	if p < s.hi && idx.prefer(m, *best) {
		*best = m
	}

	idx.stab(m+1, r, p, best)
}

// prefer returns true if the span at i wins over the span at j.
func (idx *Index) prefer(i, j int) (ok bool) {
	if j < 0 {
		return true
	}

	a, b := idx.spans[i], idx.spans[j]
	if a.width() != b.width() {
		return a.width() < b.width()
	}

	return a.ord < b.ord
}

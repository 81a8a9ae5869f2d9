package geo_test

import (
	"testing"

	"frauddetect/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLookup is a [geo.CountryLookup] that counts backend calls.
type countingLookup struct {
	geo.CountryLookup

	calls int
}

func (l *countingLookup) LookupCountry(ip uint32) (country string, ok bool, err error) {
	l.calls++

	return l.CountryLookup.LookupCountry(ip)
}

func TestCachedLookup(t *testing.T) {
	idx := newTestIndex(t, geo.RangeRecord{Lower: 0, Upper: 10, Country: "A"})
	backend := &countingLookup{CountryLookup: idx}

	c := geo.NewCachedLookup(backend, 2)

	for range 3 {
		country, ok, err := c.LookupCountry(5)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "A", country)
	}

	assert.Equal(t, 1, backend.calls)

	// Misses are cached as well.
	for range 2 {
		_, ok, err := c.LookupCountry(50)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, 2, c.Len())

	// The least recently used address is evicted.
	_, _, err := c.LookupCountry(6)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, _, err = c.LookupCountry(5)
	require.NoError(t, err)
	assert.Equal(t, 4, backend.calls)

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCachedLookup_error(t *testing.T) {
	c := geo.NewCachedLookup(failingLookup{}, 8)

	_, _, err := c.LookupCountry(1)
	assert.Error(t, err)
	assert.Zero(t, c.Len())
}

package geo

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bluele/gcache"
)

// cacheItem is a cached lookup result.
type cacheItem struct {
	country string
	ok      bool
}

// CachedLookup is a [CountryLookup] keeping the results of another lookup in
// an LRU cache.  Backend errors are not cached.
type CachedLookup struct {
	lookup CountryLookup
	cache  gcache.Cache
}

// type check
var _ CountryLookup = (*CachedLookup)(nil)

// NewCachedLookup returns a new *CachedLookup keeping up to size results of
// l.  size must be positive.
func NewCachedLookup(l CountryLookup, size int) (c *CachedLookup) {
	return &CachedLookup{
		lookup: l,
		cache:  gcache.New(size).LRU().Build(),
	}
}

// LookupCountry implements the [CountryLookup] interface for *CachedLookup.
func (c *CachedLookup) LookupCountry(ip uint32) (country string, ok bool, err error) {
	v, err := c.cache.Get(ip)
	if err == nil {
		item := v.(cacheItem)

		return item.country, item.ok, nil
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		// Shouldn't happen, since there is no loader function.
		panic(fmt.Errorf("geo: getting cache item: %w", err))
	}

	country, ok, err = c.lookup.LookupCountry(ip)
	if err != nil {
		return "", false, err
	}

	err = c.cache.Set(ip, cacheItem{country: country, ok: ok})
	if err != nil {
		// Shouldn't happen, since there is no serialization function.
		panic(fmt.Errorf("geo: setting cache item: %w", err))
	}

	return country, ok, nil
}

// Purge removes every cached result, for example after the backend data
// changed.
func (c *CachedLookup) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached results.
func (c *CachedLookup) Len() (n int) {
	return c.cache.Len(false)
}

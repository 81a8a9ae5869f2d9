package geo

import (
	"sync/atomic"
)

// CountryLookup defines the interface for IP-to-country lookups.
type CountryLookup interface {
	// LookupCountry returns the country owning ip.  ok is false if the backend
	// has no country for it.  err is only returned for backend failures.
	LookupCountry(ip uint32) (country string, ok bool, err error)
}

// Holder keeps the current [Index] and allows replacing it atomically while
// other goroutines are looking addresses up.
type Holder struct {
	value atomic.Pointer[Index]
}

// type check
var _ CountryLookup = (*Holder)(nil)

// NewHolder returns a holder containing idx, which may be nil.
func NewHolder(idx *Index) (h *Holder) {
	h = &Holder{}
	if idx != nil {
		h.value.Store(idx)
	}

	return h
}

// Get returns the current index or nil if none was set.
func (h *Holder) Get() (idx *Index) {
	return h.value.Load()
}

// Set replaces the current index.
func (h *Holder) Set(idx *Index) {
	h.value.Store(idx)
}

// LookupCountry implements the [CountryLookup] interface for *Holder.
func (h *Holder) LookupCountry(ip uint32) (country string, ok bool, err error) {
	idx := h.value.Load()
	if idx == nil {
		return "", false, nil
	}

	country, ok = idx.Lookup(ip)

	return country, ok, nil
}

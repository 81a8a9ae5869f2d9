package geo

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/oschwald/geoip2-golang"
)

// MmdbReader is a [CountryLookup] backed by a MaxMind country database.
type MmdbReader struct {
	db *geoip2.Reader
}

// type check
var _ CountryLookup = (*MmdbReader)(nil)

// NewMmdbReader opens the MMDB file at path.
func NewMmdbReader(path string) (r *MmdbReader, err error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mmdb %q: %w", path, err)
	}

	return &MmdbReader{db: db}, nil
}

// LookupCountry implements the [CountryLookup] interface for *MmdbReader.
// The country is the ISO 3166-1 code of the record, and ok is false when the
// database has no country for ip.
func (r *MmdbReader) LookupCountry(ip uint32) (country string, ok bool, err error) {
	record, err := r.db.Country(uint32ToNetIP(ip))
	if err != nil {
		return "", false, fmt.Errorf("looking up %s: %w", FormatIP(ip), err)
	}

	country = record.Country.IsoCode

	return country, country != "", nil
}

// Close releases the database.
func (r *MmdbReader) Close() (err error) {
	return errors.Annotate(r.db.Close(), "closing mmdb: %w")
}

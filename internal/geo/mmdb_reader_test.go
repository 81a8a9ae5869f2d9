package geo_test

import (
	"os"
	"testing"

	"frauddetect/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMMDBPath = "../../testdata/GeoLite2-Country-Test.mmdb"

func newTestMmdbReader(t *testing.T) (r *geo.MmdbReader) {
	t.Helper()

	if _, err := os.Stat(testMMDBPath); os.IsNotExist(err) {
		t.Skip("test mmdb not found, download it with: curl -L -o testdata/GeoLite2-Country-Test.mmdb " +
			"https://github.com/maxmind/MaxMind-DB/raw/main/test-data/GeoLite2-Country-Test.mmdb")
	}

	r, err := geo.NewMmdbReader(testMMDBPath)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })

	return r
}

func TestNewMmdbReader_invalidPath(t *testing.T) {
	_, err := geo.NewMmdbReader("/nonexistent/path.mmdb")
	assert.Error(t, err)
}

func TestMmdbReader_LookupCountry(t *testing.T) {
	r := newTestMmdbReader(t)

	testCases := []struct {
		name   string
		ip     string
		want   string
		wantOK bool
	}{{
		name:   "gb",
		ip:     "2.125.160.216",
		want:   "GB",
		wantOK: true,
	}, {
		name:   "us",
		ip:     "216.160.83.56",
		want:   "US",
		wantOK: true,
	}, {
		name:   "private",
		ip:     "10.0.0.1",
		want:   "",
		wantOK: false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ip, err := geo.ParseIP(tc.ip)
			require.NoError(t, err)

			country, ok, err := r.LookupCountry(ip)
			require.NoError(t, err)

			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, country)
		})
	}
}

func TestCachedLookup_mmdb(t *testing.T) {
	r := newTestMmdbReader(t)
	c := geo.NewCachedLookup(r, 16)

	ip, err := geo.ParseIP("2.125.160.216")
	require.NoError(t, err)

	for range 3 {
		country, ok, lerr := c.LookupCountry(ip)
		require.NoError(t, lerr)

		assert.True(t, ok)
		assert.Equal(t, "GB", country)
	}

	assert.Equal(t, 1, c.Len())
}

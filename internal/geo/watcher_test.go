package geo_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"frauddetect/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder(t *testing.T) {
	h := geo.NewHolder(nil)
	assert.Nil(t, h.Get())

	_, ok, err := h.LookupCountry(5)
	require.NoError(t, err)
	assert.False(t, ok)

	h.Set(newTestIndex(t, geo.RangeRecord{Lower: 0, Upper: 10, Country: "A"}))

	country, ok, err := h.LookupCountry(5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A", country)
}

func TestHolder_concurrentAccess(t *testing.T) {
	h := geo.NewHolder(newTestIndex(t, geo.RangeRecord{Lower: 0, Upper: 10, Country: "A"}))
	next := newTestIndex(t, geo.RangeRecord{Lower: 0, Upper: 10, Country: "B"})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for range 1_000 {
			h.Set(next)
		}
	}()

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for range 1_000 {
				_, ok, _ := h.LookupCountry(3)
				assert.True(t, ok)
			}
		}()
	}

	wg.Wait()
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranges.csv")
	require.NoError(t, os.WriteFile(path, []byte(testRangeTable), 0o644))

	h := geo.NewHolder(nil)
	m := &testMetrics{}
	w, err := geo.NewWatcher(&geo.WatcherConfig{
		Holder:  h,
		Metrics: m,
		Path:    path,
	})
	require.NoError(t, err)

	require.NoError(t, w.Reload())
	require.NotNil(t, h.Get())
	assert.Equal(t, 3, h.Get().Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// A broken table keeps the old index.
	require.NoError(t, os.WriteFile(path, []byte("lower_bound_ip_address,upper_bound_ip_address,country\n9,1,X\n"), 0o644))
	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()

		for _, ok := range m.reloads {
			if !ok {
				return true
			}
		}

		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, h.Get().Len())

	const table = "lower_bound_ip_address,upper_bound_ip_address,country\n1,100,Japan\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))
	assert.Eventually(t, func() bool {
		country, ok, _ := h.LookupCountry(50)

		return ok && country == "Japan"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_missingDir(t *testing.T) {
	_, err := geo.NewWatcher(&geo.WatcherConfig{
		Holder: geo.NewHolder(nil),
		Path:   filepath.Join(t.TempDir(), "missing", "ranges.csv"),
	})
	assert.Error(t, err)
}

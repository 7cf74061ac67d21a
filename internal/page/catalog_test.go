package page

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dgnotes/internal/cache"
	"github.com/charlesng35/dgnotes/internal/kvstore"
)

var sampleDiscs = []Disc{
	{ID: "1", Name: "Buzzz", Brand: "Discraft", Category: "Midrange"},
	{ID: "2", Name: "Destroyer", Brand: "Innova", Category: "Distance Driver"},
	{ID: "3", Name: "Aviar", Brand: "Innova", Category: "Putter"},
}

func catalogServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(sampleDiscs)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestCatalogCachesForOneDay(t *testing.T) {
	ctx := context.Background()
	srv, hits := catalogServer(t, http.StatusOK)
	now := time.Now()
	clock := func() time.Time { return now }
	catalog := NewCatalog(cache.NewTTL(kvstore.NewMemoryStore(), cache.WithClock(clock)), srv.URL, time.Second)

	discs, err := catalog.Discs(ctx)
	require.NoError(t, err)
	require.Equal(t, sampleDiscs, discs)

	now = now.Add(23 * time.Hour)
	_, err = catalog.Discs(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	now = now.Add(2 * time.Hour)
	_, err = catalog.Discs(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestCatalogCollapsesConcurrentMisses(t *testing.T) {
	srv, hits := catalogServer(t, http.StatusOK)
	catalog := NewCatalog(cache.NewTTL(kvstore.NewMemoryStore()), srv.URL, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			discs, err := catalog.Discs(context.Background())
			assert.NoError(t, err)
			assert.Len(t, discs, 3)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, hits.Load(), int32(8))
	require.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestCatalogErrorIsNotCached(t *testing.T) {
	srv, hits := catalogServer(t, http.StatusServiceUnavailable)
	catalog := NewCatalog(cache.NewTTL(kvstore.NewMemoryStore()), srv.URL, time.Second)

	_, err := catalog.Discs(context.Background())
	require.Error(t, err)
	_, err = catalog.Discs(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 2, hits.Load())
}

func TestSearchAndCategories(t *testing.T) {
	require.Len(t, Search(sampleDiscs, "innova"), 2)
	require.Equal(t, "Buzzz", Search(sampleDiscs, " BUZ ")[0].Name)
	require.Nil(t, Search(sampleDiscs, ""))
	require.Equal(t, []string{"Distance Driver", "Midrange", "Putter"}, Categories(sampleDiscs))
}

func TestCatalogFetchIgnoresCallerCancellation(t *testing.T) {
	srv, hits := catalogServer(t, http.StatusOK)
	catalog := NewCatalog(cache.NewTTL(kvstore.NewMemoryStore()), srv.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	discs, err := catalog.Discs(ctx)
	require.NoError(t, err)
	require.Equal(t, sampleDiscs, discs)

	_, err = catalog.Discs(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load(), "the fetched catalog was cached")
}

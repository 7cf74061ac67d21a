package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/internal/monitoring"
)

const (
	defaultStoreTimeout = 2 * time.Second

	// ProbeKey is read, never written, by the key-value probe.
	ProbeKey = "__health_probe"
)

// KVStore returns a readiness probe that reads a fixed key from the cache backend.
// A missing key is a healthy answer.
func KVStore(backend string, store kvstore.Store, timeout time.Duration) monitoring.Check {
	name := "kvstore"
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "cache backend not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultStoreTimeout))
		defer cancel()

		if _, _, err := store.Get(probeCtx, ProbeKey); err != nil {
			return monitoring.ResultFromError(name, err, time.Since(start))
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Duration: time.Since(start),
		}
	})
}

// BlobStore returns a readiness probe that counts pending shared files.
func BlobStore(store blobstore.Store, timeout time.Duration) monitoring.Check {
	name := "blobstore"
	return monitoring.NewCheck(name, func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "blob store not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultStoreTimeout))
		defer cancel()

		count, err := store.Count(probeCtx)
		if err != nil {
			return monitoring.ResultFromError(name, err, time.Since(start))
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%d pending", count),
			Duration: time.Since(start),
		}
	})
}

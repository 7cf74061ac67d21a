// Package cache implements the page's persistent and time-bounded caches on
// top of a durable key-value store. Values are JSON encoded. Neither cache ever
// surfaces a failure to the fire-and-forget callers: storage problems are
// logged and reads degrade to a miss.
package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/pkg/metrics"
)

const kindPersistent = "persistent"

// Persistent stores JSON values without expiry. Entries live until they are
// overwritten, removed, or evicted by the storage layer.
type Persistent struct {
	kv  kvstore.Store
	log *zap.Logger
}

// NewPersistent builds a persistent cache over kv.
func NewPersistent(kv kvstore.Store, opts ...Option) *Persistent {
	cfg := buildOptions(opts)
	return &Persistent{kv: kv, log: cfg.log}
}

// Store encodes value and writes it under key, replacing any prior value.
func (p *Persistent) Store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return storageError("encode", key, err)
	}
	if err := p.kv.Set(ctx, key, string(raw)); err != nil {
		return storageError("write", key, err)
	}
	return nil
}

// Set is Store without a result. Failures are logged and counted.
func (p *Persistent) Set(ctx context.Context, key string, value any) {
	if err := p.Store(ctx, key, value); err != nil {
		metrics.CacheWriteFailures.WithLabelValues(kindPersistent).Inc()
		p.log.Warn("persistent cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Load decodes the value stored under key into dst. It reports false with a
// nil error when the key is absent.
func (p *Persistent) Load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(kindPersistent, "error").Inc()
		return false, storageError("read", key, err)
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(kindPersistent, "miss").Inc()
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		metrics.CacheLookups.WithLabelValues(kindPersistent, "error").Inc()
		return false, storageError("decode", key, err)
	}
	metrics.CacheLookups.WithLabelValues(kindPersistent, "hit").Inc()
	return true, nil
}

// Get is Load that folds every failure into a miss.
func (p *Persistent) Get(ctx context.Context, key string, dst any) bool {
	ok, err := p.Load(ctx, key, dst)
	if err != nil {
		p.log.Warn("persistent cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// Remove deletes key. Failures are logged.
func (p *Persistent) Remove(ctx context.Context, key string) {
	if err := p.kv.Remove(ctx, key); err != nil {
		p.log.Warn("persistent cache remove failed", zap.String("key", key), zap.Error(err))
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/pkg/metrics"
)

const kindTTL = "ttl"

var errNoTimestamp = errors.New("entry has no timestamp")

// envelope is the stored shape of a TTL entry. Timestamp is epoch milliseconds.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"`
}

// TTL stores JSON values stamped with their write time. A read that finds an
// entry older than the caller's window deletes it and reports a miss.
// Expiry is lazy: nothing sweeps unread entries.
type TTL struct {
	kv         kvstore.Store
	log        *zap.Logger
	now        func() time.Time
	defaultTTL int
}

// NewTTL builds a TTL cache over kv.
func NewTTL(kv kvstore.Store, opts ...Option) *TTL {
	cfg := buildOptions(opts)
	return &TTL{
		kv:         kv,
		log:        cfg.log,
		now:        cfg.now,
		defaultTTL: cfg.defaultTTL,
	}
}

// DefaultTTL reports the window used by Get.
func (c *TTL) DefaultTTL() int {
	return c.defaultTTL
}

// Store writes value under key stamped with the current time.
func (c *TTL) Store(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return storageError("encode", key, err)
	}
	stamp := c.now().UnixMilli()
	raw, err := json.Marshal(envelope{Data: data, Timestamp: &stamp})
	if err != nil {
		return storageError("encode", key, err)
	}
	if err := c.kv.Set(ctx, key, string(raw)); err != nil {
		return storageError("write", key, err)
	}
	return nil
}

// Set is Store without a result. Failures are logged and counted.
func (c *TTL) Set(ctx context.Context, key string, value any) {
	if err := c.Store(ctx, key, value); err != nil {
		metrics.CacheWriteFailures.WithLabelValues(kindTTL).Inc()
		c.log.Warn("ttl cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Load decodes the entry under key into dst when it is no older than
// ttlMinutes. Expired entries are removed before the miss is reported. A
// window of zero or less never yields a hit.
func (c *TTL) Load(ctx context.Context, key string, ttlMinutes int, dst any) (bool, error) {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(kindTTL, "error").Inc()
		return false, storageError("read", key, err)
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(kindTTL, "miss").Inc()
		return false, nil
	}

	var entry envelope
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		metrics.CacheLookups.WithLabelValues(kindTTL, "error").Inc()
		return false, storageError("decode", key, err)
	}
	if entry.Timestamp == nil {
		metrics.CacheLookups.WithLabelValues(kindTTL, "error").Inc()
		return false, storageError("decode", key, errNoTimestamp)
	}

	age := c.now().UnixMilli() - *entry.Timestamp
	if ttlMinutes <= 0 || age > int64(ttlMinutes)*int64(time.Minute/time.Millisecond) {
		metrics.CacheLookups.WithLabelValues(kindTTL, "expired").Inc()
		if err := c.kv.Remove(ctx, key); err != nil {
			c.log.Warn("ttl cache eviction failed", zap.String("key", key), zap.Error(err))
		}
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, dst); err != nil {
		metrics.CacheLookups.WithLabelValues(kindTTL, "error").Inc()
		return false, storageError("decode", key, err)
	}
	metrics.CacheLookups.WithLabelValues(kindTTL, "hit").Inc()
	return true, nil
}

// GetFresh is Load that folds every failure into a miss.
func (c *TTL) GetFresh(ctx context.Context, key string, ttlMinutes int, dst any) bool {
	ok, err := c.Load(ctx, key, ttlMinutes, dst)
	if err != nil {
		c.log.Warn("ttl cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// Get reads key with the default window.
func (c *TTL) Get(ctx context.Context, key string, dst any) bool {
	return c.GetFresh(ctx, key, c.defaultTTL, dst)
}

// Merge overlays patch on the fresh object stored under key (or an empty one)
// and writes the result back with a new timestamp.
func (c *TTL) Merge(ctx context.Context, key string, ttlMinutes int, patch map[string]any) error {
	current := map[string]any{}
	if !c.GetFresh(ctx, key, ttlMinutes, &current) || current == nil {
		current = map[string]any{}
	}
	for field, value := range patch {
		current[field] = value
	}
	return c.Store(ctx, key, current)
}

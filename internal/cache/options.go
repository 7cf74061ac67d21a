package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/pkg/logger"
)

// DefaultTTLMinutes is the freshness window applied when a read names none.
const DefaultTTLMinutes = 15

// Option customises a cache.
type Option func(*options)

type options struct {
	log        *zap.Logger
	now        func() time.Time
	defaultTTL int
}

func buildOptions(opts []Option) options {
	cfg := options{
		now:        time.Now,
		defaultTTL: DefaultTTLMinutes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.log == nil {
		cfg.log = logger.WithModule("cache")
	}
	return cfg
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithClock overrides the time source used for TTL stamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithDefaultTTL sets the window used by TTL.Get. Values below one minute are ignored.
func WithDefaultTTL(minutes int) Option {
	return func(o *options) {
		if minutes > 0 {
			o.defaultTTL = minutes
		}
	}
}

package share

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/pkg/logger"
)

// Signal is what a boot URL asks the page to do.
type Signal int

const (
	SignalNone Signal = iota
	// SignalImport asks the page to collect the latest pending file.
	SignalImport
	// SignalError reports that the last share submission failed.
	SignalError
	// SignalLaunch marks a file handed over directly by the launch queue.
	SignalLaunch
)

func (s Signal) String() string {
	switch s {
	case SignalImport:
		return "import"
	case SignalError:
		return "error"
	case SignalLaunch:
		return "launch"
	default:
		return "none"
	}
}

// CollectorConfig configures the page side of the pipeline.
type CollectorConfig struct {
	TriggerParam string
	ErrorParam   string
	Unconsumed   UnconsumedPolicy
}

// Outcome is the result of consuming a boot URL or launch. Failures are
// reported in Err; a nil File with a nil Err means there was nothing to import.
type Outcome struct {
	Signal   Signal
	CleanURL string
	File     *blobstore.PendingFile
	Err      error
}

// Collector is the page side of the pipeline.
type Collector struct {
	store blobstore.Store
	cfg   CollectorConfig
	now   func() time.Time
	log   *zap.Logger
}

// NewCollector builds a collector over store.
func NewCollector(store blobstore.Store, cfg CollectorConfig) *Collector {
	if cfg.TriggerParam == "" {
		cfg.TriggerParam = DefaultTriggerParam
	}
	if cfg.ErrorParam == "" {
		cfg.ErrorParam = DefaultErrorParam
	}
	if cfg.Unconsumed == "" {
		cfg.Unconsumed = DiscardUnconsumed
	}
	return &Collector{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.WithModule("share"),
	}
}

// Inspect recognises the import and error signals in rawURL and returns the
// URL with both removed. The error signal wins when both are present.
func (c *Collector) Inspect(rawURL string) (Signal, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SignalNone, rawURL, fmt.Errorf("share: parse url: %w", err)
	}

	query := u.Query()
	signal := SignalNone
	if query.Has(c.cfg.TriggerParam) {
		signal = SignalImport
	}
	if query.Has(c.cfg.ErrorParam) {
		signal = SignalError
	}
	if !query.Has(c.cfg.TriggerParam) && !query.Has(c.cfg.ErrorParam) && !query.Has(RouteMarker) {
		return signal, rawURL, nil
	}

	query.Del(c.cfg.TriggerParam)
	query.Del(c.cfg.ErrorParam)
	query.Del(RouteMarker)
	u.RawQuery = query.Encode()
	return signal, u.String(), nil
}

// CollectLatest reads every pending file, returns the newest and removes
// pending files according to the unconsumed policy. Reading and removal are
// separate transactions. An empty store yields nil.
func (c *Collector) CollectLatest(ctx context.Context) (*blobstore.PendingFile, error) {
	files, err := c.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("share: read pending files: %w", err)
	}
	latest, ok := blobstore.Latest(files)
	if !ok {
		return nil, nil
	}

	switch c.cfg.Unconsumed {
	case KeepUnconsumed:
		err = c.store.Delete(ctx, latest.ID)
	default:
		err = c.store.Clear(ctx)
	}
	if err != nil {
		// the file is still handed over; it may be offered again next time
		c.log.Warn("pending files not cleared", zap.Uint64("id", latest.ID), zap.Error(err))
	}
	if len(files) > 1 {
		c.log.Info("collected latest shared file",
			zap.Uint64("id", latest.ID),
			zap.Int("pending", len(files)),
			zap.String("unconsumed", string(c.cfg.Unconsumed)),
		)
	}
	return &latest, nil
}

// Consume inspects rawURL and collects a file when it carries the import signal.
func (c *Collector) Consume(ctx context.Context, rawURL string) Outcome {
	signal, clean, err := c.Inspect(rawURL)
	out := Outcome{Signal: signal, CleanURL: clean}
	if err != nil {
		out.Err = err
		return out
	}
	if signal != SignalImport {
		return out
	}
	out.File, out.Err = c.CollectLatest(ctx)
	return out
}

// Launch wraps a file handed to the app directly. The blob store is not involved.
func (c *Collector) Launch(name, contentType string, data []byte) Outcome {
	if len(data) == 0 && name == "" {
		return Outcome{Signal: SignalLaunch, Err: ErrNoFile}
	}
	return Outcome{
		Signal: SignalLaunch,
		File: &blobstore.PendingFile{
			Name:        name,
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        data,
			Timestamp:   c.now().UTC(),
		},
	}
}

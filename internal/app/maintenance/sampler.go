package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/models"
	"github.com/charlesng35/dgnotes/internal/worker"
	"github.com/charlesng35/dgnotes/pkg/logger"
	"github.com/charlesng35/dgnotes/pkg/metrics"
)

const (
	defaultSampleSpec = "@every 1m"
	defaultPruneSpec  = "@daily"
)

// Sampler refreshes the storage gauges and prunes cached responses left
// behind by deleted generations. It never touches cache entries: TTL expiry
// only happens on read.
type Sampler struct {
	files       blobstore.Store
	generations worker.GenerationStore
	db          *gorm.DB
	cron        *cron.Cron
	log         *zap.Logger
	enabled     bool

	sampleSchedule string
	pruneSchedule  string
}

// Option customises the Sampler.
type Option func(*Sampler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sampler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSampleSchedule overrides the cron specification for gauge sampling.
func WithSampleSchedule(spec string) Option {
	return func(s *Sampler) {
		if spec != "" {
			s.sampleSchedule = spec
		}
	}
}

// WithPruneSchedule overrides the cron specification for orphan pruning.
func WithPruneSchedule(spec string) Option {
	return func(s *Sampler) {
		if spec != "" {
			s.pruneSchedule = spec
		}
	}
}

// WithDatabase enables pruning of orphaned cached responses.
func WithDatabase(db *gorm.DB) Option {
	return func(s *Sampler) {
		s.db = db
	}
}

// NewSampler constructs a Sampler. Any nil dependency skips the matching job.
func NewSampler(files blobstore.Store, generations worker.GenerationStore, opts ...Option) *Sampler {
	s := &Sampler{
		files:          files,
		generations:    generations,
		sampleSchedule: defaultSampleSpec,
		pruneSchedule:  defaultPruneSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	s.enabled = s.files != nil || s.generations != nil || s.db != nil
	return s
}

// Start registers the jobs and launches the scheduler when at least one is enabled.
func (s *Sampler) Start() error {
	if !s.enabled {
		return nil
	}

	if s.files != nil || s.generations != nil {
		if _, err := s.cron.AddFunc(s.sampleSchedule, func() {
			if err := s.Sample(context.Background()); err != nil {
				s.log.Warn("gauge sampling failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule sampling: %w", err)
		}
	}

	if s.db != nil {
		if _, err := s.cron.AddFunc(s.pruneSchedule, func() {
			if _, err := PruneOrphanedResponses(context.Background(), s.db); err != nil {
				s.log.Warn("orphan pruning failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule pruning: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sampler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// Sample refreshes the pending file and generation gauges.
func (s *Sampler) Sample(ctx context.Context) error {
	var errs error

	if s.files != nil {
		count, err := s.files.Count(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("count pending files: %w", err))
		} else {
			metrics.PendingSharedFiles.Set(float64(count))
		}
	}

	if s.generations != nil {
		labels, err := s.generations.Labels(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list generations: %w", err))
		} else {
			metrics.CacheGenerations.Set(float64(len(labels)))
		}
	}

	return errs
}

// RunOnce executes every enabled job sequentially. Used in tests and during
// graceful shutdown.
func (s *Sampler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	errs := s.Sample(ctx)
	if s.db != nil {
		if _, err := PruneOrphanedResponses(ctx, s.db); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// PruneOrphanedResponses deletes cached responses whose generation no longer exists.
func PruneOrphanedResponses(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("prune responses: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	live := db.Model(&models.CacheGeneration{}).Select("label")
	result := db.WithContext(ctx).
		Where("generation NOT IN (?)", live).
		Delete(&models.CachedResponse{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune responses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/api"
	"github.com/charlesng35/dgnotes/internal/app"
	"github.com/charlesng35/dgnotes/internal/app/maintenance"
	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/cache"
	"github.com/charlesng35/dgnotes/internal/database"
	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/internal/monitoring"
	"github.com/charlesng35/dgnotes/internal/monitoring/checks"
	"github.com/charlesng35/dgnotes/internal/origin"
	"github.com/charlesng35/dgnotes/internal/page"
	"github.com/charlesng35/dgnotes/internal/realtime"
	"github.com/charlesng35/dgnotes/internal/share"
	"github.com/charlesng35/dgnotes/internal/worker"
	"github.com/charlesng35/dgnotes/pkg/logger"
	"github.com/charlesng35/dgnotes/web"
)

const (
	installRetryInterval = 5 * time.Second

	// installedGenerationSetting records the last generation label that installed.
	installedGenerationSetting = "worker.installed_generation"
)

// runtimeStack bundles long-lived services used by the HTTP servers.
type runtimeStack struct {
	DB           *gorm.DB
	KV           kvstore.Store
	Files        blobstore.Store
	Generations  worker.GenerationStore
	Network      *worker.OriginNetwork
	Registration *worker.Registration
	Hub          *realtime.Hub
	Sampler      *maintenance.Sampler
	Router       *gin.Engine
	Origin       *gin.Engine

	redis       *kvstore.RedisStore
	unsubscribe func()
}

// bootstrapRuntime opens the stores, builds the worker and the share
// pipeline, and wires both routers. The worker version is installed later,
// once the origin is reachable.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := stack.openKeyValueStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Files, err = blobstore.OpenDatabaseStore(ctx, stack.DB)
	if err != nil {
		return nil, fmt.Errorf("open shared file store: %w", err)
	}

	switch cfg.Worker.GenerationStore {
	case app.BackendMemory:
		stack.Generations = worker.NewMemoryGenerations()
	case "", app.BackendDatabase:
		stack.Generations = worker.NewDatabaseGenerations(stack.DB)
	default:
		return nil, fmt.Errorf("unsupported worker.generation_store %q", cfg.Worker.GenerationStore)
	}

	stack.Network, err = worker.NewOriginNetwork(cfg.Worker.OriginURL, cfg.Worker.NetworkTimeout)
	if err != nil {
		return nil, err
	}

	stack.Registration = worker.NewRegistration(stack.Generations, stack.Network, worker.Options{
		AutoSkipWaiting: cfg.Worker.AutoSkipWaiting,
		Logger:          log.With(zap.String("component", "worker")),
	})
	stack.Hub = realtime.NewHub(stack.Registration)
	stack.unsubscribe = stack.Registration.Subscribe(stack.Hub.PublishEvent)

	if cfg.Origin.Enabled {
		shell, err := web.FS()
		if err != nil {
			return nil, fmt.Errorf("load embedded shell: %w", err)
		}
		stack.Origin, err = origin.NewRouter(shell)
		if err != nil {
			return nil, err
		}
	}

	receiverCfg, err := cfg.Share.ReceiverConfig()
	if err != nil {
		return nil, err
	}
	collectorCfg, err := cfg.Share.CollectorConfig()
	if err != nil {
		return nil, err
	}

	ttl := cache.NewTTL(stack.KV, cache.WithDefaultTTL(cfg.Cache.DefaultTTLMinutes))

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.Database(stack.DB, 0))
	health.RegisterReadiness(checks.KVStore(backend, stack.KV, 0))
	health.RegisterReadiness(checks.BlobStore(stack.Files, 0))
	health.RegisterReadiness(checks.Worker(stack.Registration))
	health.RegisterReadiness(checks.Origin(stack.Network, cfg.Worker.NetworkTimeout))

	samplerOpts := []maintenance.Option{maintenance.WithSampleSchedule(cfg.Monitoring.SampleSchedule)}
	if _, ok := stack.Generations.(*worker.DatabaseGenerations); ok {
		samplerOpts = append(samplerOpts, maintenance.WithDatabase(stack.DB))
	}
	stack.Sampler = maintenance.NewSampler(stack.Files, stack.Generations, samplerOpts...)
	if err := stack.Sampler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, api.Services{
		DB:           stack.DB,
		Persistent:   cache.NewPersistent(stack.KV),
		TTL:          ttl,
		Receiver:     share.NewReceiver(stack.Files, receiverCfg),
		Page:         page.NewApp(share.NewCollector(stack.Files, collectorCfg), nil),
		Registration: stack.Registration,
		Fetch:        worker.NewHandler(stack.Network, stack.Generations),
		Hub:          stack.Hub,
		Health:       health,
		Catalog:      page.NewCatalog(ttl, cfg.Catalog.URL, cfg.Catalog.Timeout),
		Dashboard:    page.NewDashboard(ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// openKeyValueStore selects the cache backend. An unreachable Redis falls back
// to the database so the caches keep working.
func (s *runtimeStack) openKeyValueStore(ctx context.Context, cfg *app.Config, log *zap.Logger) (string, error) {
	switch backend := cfg.Cache.BackendName(); backend {
	case app.BackendMemory:
		s.KV = kvstore.NewMemoryStore()
		return backend, nil
	case app.BackendDatabase:
		s.KV = kvstore.NewDatabaseStore(s.DB)
		return backend, nil
	case app.BackendRedis:
		redisStore, err := kvstore.NewRedisStore(ctx, cfg.Cache.RedisStoreConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed caches", zap.Error(err))
			s.KV = kvstore.NewDatabaseStore(s.DB)
			return app.BackendDatabase, nil
		}
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		s.redis = redisStore
		s.KV = redisStore
		return backend, nil
	default:
		return "", fmt.Errorf("unsupported cache.backend %q", backend)
	}
}

// installWorker registers the configured cache generation, retrying until the
// origin answers or ctx ends. Until then requests go to the network only.
func (s *runtimeStack) installWorker(ctx context.Context, cfg worker.CacheConfig, log *zap.Logger) error {
	for {
		version, err := s.Registration.Register(ctx, cfg)
		if err != nil && version != nil && version.State() == worker.StateActivated {
			log.Warn("worker activated with cleanup errors", zap.Error(err))
			err = nil
		}
		if err == nil {
			log.Info("worker registered",
				zap.String("label", version.Label()),
				zap.String("state", string(version.State())),
			)
			if err := database.UpsertSystemSetting(ctx, s.DB, installedGenerationSetting, version.Label()); err != nil {
				log.Warn("record installed generation", zap.Error(err))
			}
			return nil
		}
		if !errors.Is(err, worker.ErrInstallFailed) {
			return err
		}

		log.Warn("worker install failed; retrying", zap.Error(err), zap.Duration("retry_in", installRetryInterval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(installRetryInterval):
		}
	}
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) error {
	if s == nil {
		return nil
	}

	var errs error

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	if s.Sampler != nil {
		stopCtx := s.Sampler.Stop()
		if stopCtx != nil {
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
				errs = multierr.Append(errs, fmt.Errorf("maintenance jobs: %w", ctx.Err()))
			}
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("redis shutdown: %w", err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	if errs != nil {
		log.Warn("runtime shutdown incomplete", zap.Error(errs))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

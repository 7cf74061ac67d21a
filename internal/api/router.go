package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/app"
	"github.com/charlesng35/dgnotes/internal/cache"
	"github.com/charlesng35/dgnotes/internal/middleware"
	"github.com/charlesng35/dgnotes/internal/monitoring"
	"github.com/charlesng35/dgnotes/internal/page"
	"github.com/charlesng35/dgnotes/internal/realtime"
	"github.com/charlesng35/dgnotes/internal/share"
	"github.com/charlesng35/dgnotes/internal/worker"
)

// Services bundles the runtime components the router exposes.
type Services struct {
	DB           *gorm.DB
	Persistent   *cache.Persistent
	TTL          *cache.TTL
	Receiver     *share.Receiver
	Page         *page.App
	Registration *worker.Registration
	Fetch        *worker.Handler
	Hub          *realtime.Hub
	Health       *monitoring.HealthManager
	Catalog      *page.Catalog
	Dashboard    *page.Dashboard
}

func (s Services) validate() error {
	switch {
	case s.Persistent == nil || s.TTL == nil:
		return fmt.Errorf("caches must be provided")
	case s.Receiver == nil || s.Page == nil:
		return fmt.Errorf("share pipeline must be provided")
	case s.Registration == nil || s.Fetch == nil:
		return fmt.Errorf("worker must be provided")
	}
	return nil
}

// NewRouter builds the edge engine. Named routes serve the share target, the
// worker control surface and the JSON API; every other request goes through
// the worker fetch policy.
func NewRouter(cfg *app.Config, svc Services) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	metricsPath := metricsEndpoint(cfg)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger("/health", "/health/live", "/health/ready", metricsPath))
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, cfg, svc)

	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	registerShareRoutes(r, cfg, svc)
	registerWorkerRoutes(r, svc)

	api := r.Group("/api")
	api.Use(middleware.SecurityHeaders(""))
	registerCacheRoutes(api, svc)
	registerShareAPIRoutes(api, cfg, svc)
	registerPageRoutes(api, svc)

	// Share submissions marked with ?share-target on any path are caught
	// before the fetch policy sees them.
	r.NoRoute(svc.Receiver.InterceptMarked, svc.Fetch.Fetch)

	return r, nil
}

func metricsEndpoint(cfg *app.Config) string {
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		return "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}

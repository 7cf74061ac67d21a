package app

import (
	"fmt"
	"strings"
)

// ApplyRuntimeDefaults fills settings that depend on other settings, such as the
// worker's origin when the bundled origin server is enabled. It returns a map
// describing which keys were derived so callers can log the event.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	derived := make(map[string]bool)

	cfg.Worker.OriginURL = strings.TrimSpace(cfg.Worker.OriginURL)
	if cfg.Worker.OriginURL == "" {
		if !cfg.Origin.Enabled {
			return nil, fmt.Errorf("worker.origin_url is required when the origin server is disabled")
		}
		if cfg.Origin.Port <= 0 {
			return nil, fmt.Errorf("origin.port must be positive (current: %d)", cfg.Origin.Port)
		}
		cfg.Worker.OriginURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Origin.Port)
		derived["worker.origin_url"] = true
	}

	route := strings.TrimSpace(cfg.Share.Route)
	if route != "" && !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if route != cfg.Share.Route {
		cfg.Share.Route = route
		derived["share.route"] = true
	}

	if cfg.Cache.DefaultTTLMinutes <= 0 {
		cfg.Cache.DefaultTTLMinutes = 15
		derived["cache.default_ttl_minutes"] = true
	}

	return derived, nil
}

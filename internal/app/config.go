package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the dgnotes edge.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Origin     OriginConfig     `mapstructure:"origin"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Share      ShareConfig      `mapstructure:"share"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the edge HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// OriginConfig configures the static application shell server.
type OriginConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig selects the key-value backend behind the page caches.
type CacheConfig struct {
	Backend           string           `mapstructure:"backend"`
	DefaultTTLMinutes int              `mapstructure:"default_ttl_minutes"`
	Redis             RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefix   string        `mapstructure:"prefix"`
}

// WorkerConfig configures the installable worker.
type WorkerConfig struct {
	GenerationLabel string        `mapstructure:"generation_label"`
	ShellManifest   []string      `mapstructure:"shell_manifest"`
	OriginURL       string        `mapstructure:"origin_url"`
	NetworkTimeout  time.Duration `mapstructure:"network_timeout"`
	AutoSkipWaiting bool          `mapstructure:"auto_skip_waiting"`
	GenerationStore string        `mapstructure:"generation_store"`
}

// ShareConfig configures the share ingestion pipeline.
type ShareConfig struct {
	Route            string `mapstructure:"route"`
	FieldName        string `mapstructure:"field_name"`
	SelectionPolicy  string `mapstructure:"selection_policy"`
	UnconsumedPolicy string `mapstructure:"unconsumed_policy"`
	MaxUploadMB      int    `mapstructure:"max_upload_mb"`
	TriggerParam     string `mapstructure:"trigger_param"`
	ErrorParam       string `mapstructure:"error_param"`
}

// CatalogConfig configures the public disc catalog client.
type CatalogConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks, metrics and gauge sampling.
type MonitoringConfig struct {
	Prometheus     PrometheusConfig `mapstructure:"prometheus"`
	Health         HealthConfig     `mapstructure:"health_check"`
	SampleSchedule string           `mapstructure:"sample_schedule"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("DGNOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("origin.enabled", true)
	v.SetDefault("origin.port", 8081)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/dgnotes.sqlite")

	v.SetDefault("cache.backend", "database")
	v.SetDefault("cache.default_ttl_minutes", 15)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.prefix", "dgnotes:")

	v.SetDefault("worker.generation_label", "dgnotes-cache-v1.0.51")
	v.SetDefault("worker.shell_manifest", []string{"/", "/index.html", "/manifest.json"})
	v.SetDefault("worker.origin_url", "")
	v.SetDefault("worker.network_timeout", "10s")
	v.SetDefault("worker.auto_skip_waiting", false)
	v.SetDefault("worker.generation_store", "database")

	v.SetDefault("share.route", "/share-target")
	v.SetDefault("share.field_name", "csvfile")
	v.SetDefault("share.selection_policy", "exact_then_first")
	v.SetDefault("share.unconsumed_policy", "discard")
	v.SetDefault("share.max_upload_mb", 10)
	v.SetDefault("share.trigger_param", "trigger-import")
	v.SetDefault("share.error_param", "share-target-error")

	v.SetDefault("catalog.url", "https://discit-api.fly.dev/disc")
	v.SetDefault("catalog.timeout", "15s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.sample_schedule", "@every 1m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

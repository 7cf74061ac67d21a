package app

import (
	"strings"

	"github.com/charlesng35/dgnotes/internal/database"
	"github.com/charlesng35/dgnotes/internal/kvstore"
	"github.com/charlesng35/dgnotes/internal/share"
	"github.com/charlesng35/dgnotes/internal/worker"
)

// Cache backends.
const (
	BackendDatabase = "database"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// ConnectionConfig converts the database section into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var auth DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		// unsupported drivers surface when the database is opened
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
	return dbCfg
}

// BackendName returns the normalised cache backend name.
func (c CacheConfig) BackendName() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return BackendDatabase
	}
	return backend
}

// RedisStoreConfig converts the cache configuration into the kvstore representation.
func (c CacheConfig) RedisStoreConfig() kvstore.RedisConfig {
	return kvstore.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
		Prefix:   c.Redis.Prefix,
	}
}

// CacheConfig returns the generation the worker should install.
func (c WorkerConfig) CacheConfig() worker.CacheConfig {
	manifest := make([]string, 0, len(c.ShellManifest))
	for _, entry := range c.ShellManifest {
		if entry = strings.TrimSpace(entry); entry != "" {
			manifest = append(manifest, entry)
		}
	}
	return worker.CacheConfig{
		GenerationLabel: strings.TrimSpace(c.GenerationLabel),
		ShellManifest:   manifest,
	}
}

// ReceiverConfig converts the share section for the edge side of the pipeline.
func (c ShareConfig) ReceiverConfig() (share.ReceiverConfig, error) {
	policy, err := share.ParseSelectionPolicy(c.SelectionPolicy)
	if err != nil {
		return share.ReceiverConfig{}, err
	}
	return share.ReceiverConfig{
		FieldName:      strings.TrimSpace(c.FieldName),
		Policy:         policy,
		MaxUploadBytes: int64(c.MaxUploadMB) << 20,
		TriggerParam:   strings.TrimSpace(c.TriggerParam),
		ErrorParam:     strings.TrimSpace(c.ErrorParam),
	}, nil
}

// CollectorConfig converts the share section for the page side of the pipeline.
func (c ShareConfig) CollectorConfig() (share.CollectorConfig, error) {
	policy, err := share.ParseUnconsumedPolicy(c.UnconsumedPolicy)
	if err != nil {
		return share.CollectorConfig{}, err
	}
	return share.CollectorConfig{
		TriggerParam: strings.TrimSpace(c.TriggerParam),
		ErrorParam:   strings.TrimSpace(c.ErrorParam),
		Unconsumed:   policy,
	}, nil
}

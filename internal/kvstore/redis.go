package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
)

const (
	defaultRedisTimeout = 5 * time.Second
	defaultRedisPrefix  = "dgnotes:"
)

// RedisConfig captures the connection parameters for the Redis-backed store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	Prefix   string
	MaxIdle  int
}

// RedisStore implements Store on a Redis server. Keys carry no server-side
// expiry; the TTL cache owns expiration.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisStore builds a pooled Redis store and verifies connectivity with PING
// so misconfiguration surfaces during start-up.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("kvstore: redis address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRedisPrefix
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 4
	}

	opts := []redis.DialOption{
		redis.DialConnectTimeout(cfg.Timeout),
		redis.DialReadTimeout(cfg.Timeout),
		redis.DialWriteTimeout(cfg.Timeout),
		redis.DialDatabase(cfg.DB),
		redis.DialUseTLS(cfg.TLS),
	}
	if cfg.Username != "" {
		opts = append(opts, redis.DialUsername(cfg.Username))
	}
	if cfg.Password != "" {
		opts = append(opts, redis.DialPassword(cfg.Password))
	}

	store := &RedisStore{
		prefix: cfg.Prefix,
		pool: &redis.Pool{
			MaxIdle:     cfg.MaxIdle,
			IdleTimeout: 5 * time.Minute,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialContext(ctx, "tcp", cfg.Address, opts...)
			},
			TestOnBorrow: func(c redis.Conn, lastUsed time.Time) error {
				if time.Since(lastUsed) < time.Minute {
					return nil
				}
				_, err := c.Do("PING")
				return err
			},
		},
	}

	conn, err := store.pool.GetContext(ctx)
	if err != nil {
		_ = store.pool.Close()
		return nil, unavailable("ping", cfg.Address, err)
	}
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		_ = store.pool.Close()
		return nil, unavailable("ping", cfg.Address, err)
	}

	return store, nil
}

// Close releases pooled connections.
func (s *RedisStore) Close() error {
	return s.pool.Close()
}

// Get returns the raw value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", s.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable("set", key, err)
	}
	defer conn.Close()

	if _, err := conn.Do("SET", s.prefix+key, value); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable("remove", key, err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", s.prefix+key); err != nil {
		return unavailable("remove", key, err)
	}
	return nil
}

// Package config defines service configuration and loading.
//
// Conventions follow the rest of the repo: defaults come from New, the
// loader layers an optional YAML file and environment variables on top, and
// sentinel errors allow errors.Is from callers.
package config

import (
	"time"
)

// Store backend names accepted in StoreBackend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the record store: "memory" or "redis".
	StoreBackend string `koanf:"store_backend"`

	// SnapshotPath persists the memory store to a JSON file. Empty
	// disables persistence.
	SnapshotPath string `koanf:"snapshot_path"`

	// Redis connection settings, used when StoreBackend is "redis".
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`

	// QueueSize bounds the in-memory activity event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of activity workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PointsPerLevel sets the experience level granularity.
	PointsPerLevel int64 `koanf:"points_per_level"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// RefreshIntervalSeconds drives the periodic dashboard refresh.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`

	// CoreTeam maps privileged operator identities to display names.
	CoreTeam map[string]string `koanf:"core_team"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		StoreBackend:           BackendMemory,
		SnapshotPath:           "",
		RedisAddr:              "localhost:6379",
		RedisDB:                0,
		KeyPrefix:              "vault",
		QueueSize:              10_000,
		WorkerCount:            4,
		DedupeSize:             50_000,
		PointsPerLevel:         100,
		MaxLeaderboardLimit:    100,
		RefreshIntervalSeconds: 60,
		CoreTeam:               map[string]string{},
	}
}

// RefreshInterval returns the dashboard refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

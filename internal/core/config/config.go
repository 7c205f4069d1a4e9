package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	WatchPaths    []string      `toml:"watch_paths"`
	Watch         Watch         `toml:"watch"`
	Exclude       Exclude       `toml:"exclude"`
	Journal       Journal       `toml:"journal"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
	UI            UI            `toml:"ui"`
}

type Watch struct {
	Latency       time.Duration `toml:"latency"`
	Executor      string        `toml:"executor"`
	QueueCapacity int           `toml:"queue_capacity"`
	// Kinds limits which change kinds are forwarded. Empty means all.
	Kinds []string `toml:"kinds"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type UI struct {
	Enabled bool `toml:"enabled"`
	MaxRows int  `toml:"max_rows"`
}

const (
	ExecutorQueue = "queue"
	ExecutorLoop  = "loop"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"pathwatch/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Load reads and parses the config at path. A missing file is reported as
// errors.CodeNotFound and still matches fs.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeNotFound, "config file not found"),
				errors.CtxPath, path,
			)
		}
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML, fills defaults and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{"."}
	}

	if cfg.Watch.Latency == 0 {
		cfg.Watch.Latency = 100 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Watch.Executor) == "" {
		cfg.Watch.Executor = ExecutorQueue
	}
	if cfg.Watch.QueueCapacity == 0 {
		cfg.Watch.QueueCapacity = 256
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "node_modules"}
	}

	if strings.TrimSpace(cfg.Journal.Path) == "" {
		cfg.Journal.Path = "pathwatch.db"
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		cfg.Observability.MetricsAddr = "127.0.0.1:9464"
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}

	if cfg.UI.MaxRows == 0 {
		cfg.UI.MaxRows = 200
	}
}

func normalize(cfg *Config) {
	cfg.Watch.Executor = strings.ToLower(strings.TrimSpace(cfg.Watch.Executor))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	for i, kind := range cfg.Watch.Kinds {
		cfg.Watch.Kinds[i] = strings.ToLower(strings.TrimSpace(kind))
	}
}

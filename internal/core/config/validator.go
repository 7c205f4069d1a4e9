package config

import (
	"fmt"
	"strings"

	"pathwatch/internal/core/errors"

	"github.com/gobwas/glob"
)

var knownKinds = map[string]bool{
	"created":  true,
	"removed":  true,
	"renamed":  true,
	"modified": true,
	"metadata": true,
	"other":    true,
}

// Validate checks every section and returns the first problem as
// errors.CodeValidationError. The message names the offending key.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateWatchPaths,
		validateWatch,
		validateExclude,
		validateJournal,
		validateObservability,
		validateLog,
		validateUI,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWatchPaths(cfg *Config) error {
	if len(cfg.WatchPaths) == 0 {
		return fmt.Errorf("watch_paths must not be empty")
	}
	for i, path := range cfg.WatchPaths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("watch_paths[%d] must not be empty", i)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Latency < 0 {
		return fmt.Errorf("watch.latency must not be negative, got %s", cfg.Watch.Latency)
	}
	switch cfg.Watch.Executor {
	case ExecutorQueue, ExecutorLoop:
	default:
		return fmt.Errorf("watch.executor must be one of: queue, loop")
	}
	if cfg.Watch.QueueCapacity < 1 {
		return fmt.Errorf("watch.queue_capacity must be >= 1, got %d", cfg.Watch.QueueCapacity)
	}
	seen := make(map[string]bool, len(cfg.Watch.Kinds))
	for i, kind := range cfg.Watch.Kinds {
		if !knownKinds[kind] {
			return fmt.Errorf("watch.kinds[%d] is not a known change kind: %q", i, kind)
		}
		if seen[kind] {
			return fmt.Errorf("duplicate watch.kinds entry %q", kind)
		}
		seen[kind] = true
	}
	return nil
}

func validateExclude(cfg *Config) error {
	check := func(key string, patterns []string) error {
		for i, pattern := range patterns {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s[%d] must not be empty", key, i)
			}
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s[%d] is not a valid glob %q: %w", key, i, pattern, err)
			}
		}
		return nil
	}
	if err := check("exclude.dirs", cfg.Exclude.Dirs); err != nil {
		return err
	}
	return check("exclude.files", cfg.Exclude.Files)
}

func validateJournal(cfg *Config) error {
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.Path) == "" {
		return fmt.Errorf("journal.path must not be empty when journal.enabled=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if obs.Enabled && strings.TrimSpace(obs.MetricsAddr) == "" {
		return fmt.Errorf("observability.metrics_addr must not be empty when observability.enabled=true")
	}
	if obs.EnableTracing && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when observability.enable_tracing=true")
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}

func validateUI(cfg *Config) error {
	if cfg.UI.MaxRows < 1 {
		return fmt.Errorf("ui.max_rows must be >= 1, got %d", cfg.UI.MaxRows)
	}
	return nil
}

package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PATHWATCH_[SECTION]_[KEY] (e.g., PATHWATCH_WATCH_LATENCY).
func ApplyEnvOverrides(cfg *Config) {
	setEnvList(&cfg.WatchPaths, "PATHWATCH_WATCH_PATHS")

	// Watch
	setEnvDuration(&cfg.Watch.Latency, "PATHWATCH_WATCH_LATENCY")
	setEnvString(&cfg.Watch.Executor, "PATHWATCH_WATCH_EXECUTOR")
	setEnvInt(&cfg.Watch.QueueCapacity, "PATHWATCH_WATCH_QUEUE_CAPACITY")
	setEnvList(&cfg.Watch.Kinds, "PATHWATCH_WATCH_KINDS")

	// Journal
	setEnvBool(&cfg.Journal.Enabled, "PATHWATCH_JOURNAL_ENABLED")
	setEnvString(&cfg.Journal.Path, "PATHWATCH_JOURNAL_PATH")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "PATHWATCH_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.MetricsAddr, "PATHWATCH_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PATHWATCH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "PATHWATCH_OBSERVABILITY_ENABLE_TRACING")

	// Log
	setEnvString(&cfg.Log.Level, "PATHWATCH_LOG_LEVEL")
	setEnvString(&cfg.Log.Format, "PATHWATCH_LOG_FORMAT")

	// UI
	setEnvBool(&cfg.UI.Enabled, "PATHWATCH_UI_ENABLED")
	setEnvInt(&cfg.UI.MaxRows, "PATHWATCH_UI_MAX_ROWS")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}

package config

import (
	"strings"
	"testing"

	"pathwatch/internal/core/errors"
)

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"version", func(c *Config) { c.Version = 3 }, "version"},
		{"empty watch paths", func(c *Config) { c.WatchPaths = nil }, "watch_paths"},
		{"blank watch path", func(c *Config) { c.WatchPaths = []string{"ok", " "} }, "watch_paths[1]"},
		{"negative latency", func(c *Config) { c.Watch.Latency = -1 }, "watch.latency"},
		{"executor", func(c *Config) { c.Watch.Executor = "threads" }, "watch.executor"},
		{"queue capacity", func(c *Config) { c.Watch.QueueCapacity = 0 }, "watch.queue_capacity"},
		{"unknown kind", func(c *Config) { c.Watch.Kinds = []string{"touched"} }, "watch.kinds[0]"},
		{"duplicate kind", func(c *Config) { c.Watch.Kinds = []string{"created", "created"} }, "watch.kinds"},
		{"bad dir glob", func(c *Config) { c.Exclude.Dirs = []string{"[oops"} }, "exclude.dirs[0]"},
		{"blank file glob", func(c *Config) { c.Exclude.Files = []string{""} }, "exclude.files[0]"},
		{"journal path", func(c *Config) { c.Journal.Enabled = true; c.Journal.Path = "" }, "journal.path"},
		{"metrics addr", func(c *Config) { c.Observability.Enabled = true; c.Observability.MetricsAddr = "" }, "observability.metrics_addr"},
		{"tracing endpoint", func(c *Config) { c.Observability.EnableTracing = true }, "observability.otlp_endpoint"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"max rows", func(c *Config) { c.UI.MaxRows = -5 }, "ui.max_rows"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected validation error mentioning %q", tc.wantKey)
			}
			if !strings.Contains(err.Error(), tc.wantKey) {
				t.Errorf("expected error to mention %q, got %v", tc.wantKey, err)
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsTracingWithEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Observability.EnableTracing = true
	cfg.Observability.OTLPEndpoint = "localhost:4317"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Package cli runs pathwatch sessions for the command line: plain line
// output or a live terminal view, an optional journal, and the metrics and
// health endpoint.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"pathwatch/internal/core/app"
	"pathwatch/internal/core/config"
	"pathwatch/internal/data/journal"
	"pathwatch/internal/shared/lifecycle"
	"pathwatch/internal/shared/observability"
)

// RunWatch watches cfg.WatchPaths until ctx is cancelled or the terminal
// view is closed.
func RunWatch(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := slog.Default()

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	var (
		opts   []app.Option
		pinger app.Pinger
	)
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, app.WithJournal(store))
		pinger = store
	}

	a, err := app.New(cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	listeners := a.Listeners()
	if cfg.UI.Enabled {
		ui := newTerminalUI(fmt.Sprintf("pathwatch: %s", strings.Join(a.Watcher.Paths(), ", ")), cfg.UI.MaxRows)
		a.AddSink(ui.Sink)
		listeners = append(listeners, ui)
	} else {
		a.AddSink(NewPrinter(out).Sink)
	}
	if cfg.Observability.Enabled {
		health := app.NewHealthService(a, pinger)
		listeners = append(listeners, NewObservabilityServer(cfg.Observability.MetricsAddr, health))
	}

	return lifecycle.Serve(ctx, listeners...)
}

// RunJournal prints the most recent journaled events, or per-kind totals
// when counts is set.
func RunJournal(ctx context.Context, path string, limit int, counts bool, out io.Writer) error {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if counts {
		totals, err := store.CountByKind(ctx)
		if err != nil {
			return err
		}
		return printCounts(out, totals)
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	return printEntries(out, entries)
}

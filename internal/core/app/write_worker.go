package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pathwatch/internal/core/watcher"
	"pathwatch/internal/shared/util"
)

const (
	journalBatchSize     = 64
	journalFlushInterval = 100 * time.Millisecond
)

// EventJournal persists delivered events.
type EventJournal interface {
	Append(ctx context.Context, watcherID string, event watcher.Event) error
}

type journalRecord struct {
	watcherID string
	event     watcher.Event
}

// writeWorker moves journal appends off the executor that delivers events.
// Records that do not fit in the buffer are dropped and counted.
type writeWorker struct {
	journal EventJournal
	records chan journalRecord
	dropLog *util.Limiter
	logger  *slog.Logger

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

func newWriteWorker(journal EventJournal, capacity int, logger *slog.Logger) *writeWorker {
	if capacity <= 0 {
		capacity = 1024
	}
	return &writeWorker{
		journal: journal,
		records: make(chan journalRecord, capacity),
		dropLog: util.NewLimiter(1, 1),
		logger:  logger,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (w *writeWorker) enqueue(watcherID string, event watcher.Event) {
	select {
	case w.records <- journalRecord{watcherID: watcherID, event: event}:
	default:
		if w.dropLog.Allow(1) {
			w.logger.Warn("journal buffer full, dropping events",
				"path", event.Path, "dropped_since_last", w.dropLog.Suppressed()+1)
		}
	}
}

// Start applies records until Stop is called, then flushes what is left.
// It keeps running after ctx is cancelled so events delivered while the
// watcher shuts down still reach the journal.
func (w *writeWorker) Start(ctx context.Context) error {
	defer close(w.done)
	ctx = context.WithoutCancel(ctx)

	ticker := time.NewTicker(journalFlushInterval)
	defer ticker.Stop()

	batch := make([]journalRecord, 0, journalBatchSize)
	for {
		select {
		case <-w.quit:
			w.drain(ctx, batch)
			return nil
		case rec := <-w.records:
			batch = append(batch, rec)
			if len(batch) >= journalBatchSize {
				w.apply(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.apply(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *writeWorker) Stop(ctx context.Context) error {
	w.quitOnce.Do(func() { close(w.quit) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writeWorker) drain(ctx context.Context, batch []journalRecord) {
	for {
		select {
		case rec := <-w.records:
			batch = append(batch, rec)
		default:
			w.apply(ctx, batch)
			return
		}
	}
}

func (w *writeWorker) apply(ctx context.Context, batch []journalRecord) {
	for _, rec := range batch {
		if err := w.journal.Append(ctx, rec.watcherID, rec.event); err != nil {
			w.logger.Warn("journal append failed", "error", err, "path", rec.event.Path)
		}
	}
}

// Package journal persists observed change events to sqlite so they can be
// listed after the watch session that saw them has ended.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pathwatch/internal/core/watcher"
	"pathwatch/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

const (
	driverName   = "sqlite"
	maxAttempts  = 5
	defaultLimit = 50
)

type Entry struct {
	Seq        int64
	WatcherID  string
	EventID    uint64
	Path       string
	Kind       string
	Flags      uint32
	ObservedAt time.Time
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
	now  func() time.Time
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("journal path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("journal path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory %q: %w", dir, err)
		}
	}

	// Handlers append while `pathwatch journal` may read from another process.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite journal %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Append(ctx context.Context, watcherID string, event watcher.Event) error {
	ctx, span := observability.Tracer.Start(ctx, "journal.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("watcher.id", watcherID),
		attribute.String("event.kind", event.Kind.String()),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.withRetry("append event", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO events (watcher_id, event_id, path, kind, flags, observed_at_utc)
VALUES (?, ?, ?, ?, ?, ?)`,
			watcherID,
			int64(event.ID),
			event.Path,
			event.Kind.String(),
			int64(event.Flags),
			s.now().UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	observability.JournalWriteSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.JournalWriteErrorsTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return err
	}
	observability.JournalWritesTotal.Inc()
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load recent events", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT seq, watcher_id, event_id, path, kind, flags, observed_at_utc
FROM events
ORDER BY seq DESC
LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry   Entry
			eventID int64
			flags   int64
			tsRaw   string
		)
		if err := rows.Scan(&entry.Seq, &entry.WatcherID, &eventID, &entry.Path, &entry.Kind, &flags, &tsRaw); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse observed_at_utc %q: %w", tsRaw, err)
		}
		entry.EventID = uint64(eventID)
		entry.Flags = uint32(flags)
		entry.ObservedAt = ts
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CountByKind(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("count events by kind", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

package watcher

import (
	"log/slog"
	"sync/atomic"

	"pathwatch/internal/core/bridge"
	"pathwatch/internal/core/ports"
	"pathwatch/internal/shared/observability"
)

// session is the state a running stream refers to through its opaque
// context. It lives in the watcher's bridge table, not in the Watcher, so the
// source can keep it alive after the caller lets go.
type session struct {
	watcherID string
	handler   Handler
	logger    *slog.Logger
	active    atomic.Bool

	// Only touched from the executor the stream is scheduled onto.
	lastID    uint64
	delivered bool
}

func newSession(watcherID string, handler Handler, logger *slog.Logger) *session {
	s := &session{watcherID: watcherID, handler: handler, logger: logger}
	s.active.Store(true)
	return s
}

// dispatchVia returns the stream callback for a table. The callback carries
// no session of its own; every batch resolves its target through the token.
func dispatchVia(sessions *bridge.Table[*session]) ports.StreamCallback {
	return func(info ports.Context, batch ports.Batch) {
		s, ok := sessions.Lookup(info)
		if !ok {
			observability.EventsDroppedTotal.WithLabelValues(observability.DropReasonNoSession).Add(float64(batch.Len()))
			return
		}
		s.dispatch(batch)
	}
}

func (s *session) dispatch(batch ports.Batch) {
	n := batch.Len()
	observability.BatchSize.Observe(float64(n))

	if longest := max(len(batch.IDs), len(batch.Paths), len(batch.Flags)); longest > n {
		s.logger.Warn("native batch has mismatched record slices",
			"ids", len(batch.IDs), "paths", len(batch.Paths), "flags", len(batch.Flags))
		observability.EventsDroppedTotal.WithLabelValues(observability.DropReasonTruncated).Add(float64(longest - n))
	}

	for i := 0; i < n; i++ {
		if !s.active.Load() {
			observability.EventsDroppedTotal.WithLabelValues(observability.DropReasonInactive).Add(float64(n - i))
			return
		}

		id := batch.IDs[i]
		if s.delivered && id <= s.lastID {
			s.logger.Debug("dropping out-of-order record", "id", id, "last_id", s.lastID, "path", batch.Paths[i])
			observability.EventsDroppedTotal.WithLabelValues(observability.DropReasonStaleID).Inc()
			continue
		}
		s.lastID, s.delivered = id, true

		event := Translate(id, batch.Paths[i], batch.Flags[i])
		s.handler(event)
		observability.EventsDeliveredTotal.WithLabelValues(event.Kind.String()).Inc()
	}
}

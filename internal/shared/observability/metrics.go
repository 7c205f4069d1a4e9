package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StreamsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_streams_created_total",
		Help: "Total number of native streams created.",
	})

	StreamsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_streams_released_total",
		Help: "Total number of native streams released.",
	})

	WatchersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathwatch_watchers_running",
		Help: "Current number of watchers in the running state.",
	})

	WatcherStartFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_watcher_start_failures_total",
		Help: "Total number of watcher starts rejected by the native source.",
	})

	BridgeLiveContexts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathwatch_bridge_live_contexts",
		Help: "Current number of opaque contexts still referenced.",
	})

	EventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathwatch_events_delivered_total",
		Help: "Total number of translated events handed to watcher handlers.",
	}, []string{"kind"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathwatch_events_dropped_total",
		Help: "Total number of raw records not delivered to a handler.",
	}, []string{"reason"})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathwatch_batch_records",
		Help:    "Number of records per raw batch received from the native source.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	SourceEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_source_events_total",
		Help: "Total number of file system events received from fsnotify.",
	})

	SourceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_source_errors_total",
		Help: "Total number of errors reported by fsnotify.",
	})

	JournalWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_journal_writes_total",
		Help: "Total number of events persisted to the journal.",
	})

	JournalWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathwatch_journal_write_errors_total",
		Help: "Total number of journal writes that failed.",
	})

	JournalWriteSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathwatch_journal_write_seconds",
		Help:    "Latency for persisting one event to the journal.",
		Buckets: prometheus.DefBuckets,
	})
)

const (
	DropReasonInactive  = "inactive"
	DropReasonStaleID   = "stale_id"
	DropReasonTruncated = "truncated"
	DropReasonNoSession = "no_session"
)

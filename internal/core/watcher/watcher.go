// Package watcher watches a fixed set of paths through a native change
// source and delivers typed events to a handler.
//
// A Watcher moves Idle -> Running -> Stopped. Start and Stop are idempotent
// and safe to call from any goroutine; delivery happens on the executor the
// watcher was built with, concurrently with control calls.
package watcher

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"pathwatch/internal/core/bridge"
	"pathwatch/internal/core/errors"
	"pathwatch/internal/core/ports"
	"pathwatch/internal/engine/executor"
	"pathwatch/internal/engine/fsevents"
	"pathwatch/internal/shared/observability"

	"github.com/google/uuid"
)

// Handler receives translated events, one at a time and in order.
type Handler func(Event)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Option func(*Watcher)

// WithExecutor delivers events on exec. A nil exec keeps the shared
// default loop.
func WithExecutor(exec ports.Executor) Option {
	return func(w *Watcher) {
		if exec != nil {
			w.executor = exec
		}
	}
}

func WithSource(source ports.Source) Option {
	return func(w *Watcher) {
		if source != nil {
			w.source = source
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLatency lets the source hold records for up to d to batch them.
func WithLatency(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.latency = d
		}
	}
}

func WithName(name string) Option {
	return func(w *Watcher) {
		w.name = strings.TrimSpace(name)
	}
}

type Watcher struct {
	id       string
	name     string
	paths    []string
	handler  Handler
	executor ports.Executor
	source   ports.Source
	latency  time.Duration
	logger   *slog.Logger
	sessions *bridge.Table[*session]

	mu      sync.Mutex
	state   State
	live    *liveStream
	cleanup runtime.Cleanup
}

// liveStream holds everything Stop has to undo. It never points back at the
// Watcher so it can be released by a runtime cleanup.
type liveStream struct {
	source   ports.Source
	stream   ports.Stream
	token    ports.Context
	session  *session
	sessions *bridge.Table[*session]
}

// New validates the watch set and builds an idle watcher. It never touches
// the native source.
func New(paths []string, handler Handler, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.CodeInvalidConfiguration, "watch set must not be empty")
	}
	if handler == nil {
		return nil, errors.New(errors.CodeInvalidConfiguration, "handler must not be nil")
	}

	resolved := make([]string, 0, len(paths))
	for i, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			return nil, errors.AddContext(
				errors.New(errors.CodeInvalidConfiguration, "watch path must not be blank"),
				"index", i,
			)
		}
		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInvalidConfiguration, "resolve watch path"),
				errors.CtxPath, trimmed,
			)
		}
		resolved = append(resolved, abs)
	}

	w := &Watcher{
		id:      uuid.NewString(),
		paths:   resolved,
		handler: handler,
		logger:  slog.Default(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.executor == nil {
		w.executor = executor.Default()
	}
	if w.source == nil {
		w.source = fsevents.New(fsevents.Options{Logger: w.logger})
	}
	if w.name == "" {
		w.name = w.id[:8]
	}
	w.logger = w.logger.With("watcher", w.name)
	w.sessions = bridge.NewTable(func(*session) {
		observability.BridgeLiveContexts.Dec()
	})
	return w, nil
}

func (w *Watcher) ID() string {
	return w.id
}

func (w *Watcher) Name() string {
	return w.name
}

// Paths returns a copy of the resolved watch set.
func (w *Watcher) Paths() []string {
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start creates, schedules and starts the native stream. It is a no-op
// unless the watcher is idle. Source failures leave the watcher idle and
// are reported as CodeSourceUnavailable.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return nil
	}

	sess := newSession(w.id, w.handler, w.logger)
	token := w.sessions.Open(sess)
	observability.BridgeLiveContexts.Inc()

	spec := ports.StreamSpec{
		Paths:   w.Paths(),
		SinceID: ports.SinceNow,
		Latency: w.latency,
		Flags:   ports.CreateFlagFileEvents,
	}
	sctx := ports.StreamContext{
		Info:    token,
		Retain:  w.sessions.Retain,
		Release: w.sessions.Release,
	}

	stream, err := w.source.Create(spec, sctx, dispatchVia(w.sessions))
	if err != nil {
		w.sessions.Release(token)
		observability.WatcherStartFailuresTotal.Inc()
		w.logger.Warn("native source refused stream", "paths", w.paths, "error", err)
		return errors.AddContext(
			errors.AddContext(
				errors.Wrap(err, errors.CodeSourceUnavailable, "create stream"),
				errors.CtxPaths, w.Paths(),
			),
			errors.CtxWatcher, w.name,
		)
	}
	observability.StreamsCreatedTotal.Inc()

	w.source.Schedule(stream, w.executor)
	if err := w.source.Start(stream); err != nil {
		sess.active.Store(false)
		w.source.Invalidate(stream)
		w.source.Release(stream)
		observability.StreamsReleasedTotal.Inc()
		w.sessions.Release(token)
		observability.WatcherStartFailuresTotal.Inc()
		w.logger.Warn("native source failed to start stream", "paths", w.paths, "error", err)
		return errors.AddContext(
			errors.AddContext(
				errors.Wrap(err, errors.CodeSourceUnavailable, "start stream"),
				errors.CtxPaths, w.Paths(),
			),
			errors.CtxWatcher, w.name,
		)
	}

	w.live = &liveStream{
		source:   w.source,
		stream:   stream,
		token:    token,
		session:  sess,
		sessions: w.sessions,
	}
	w.cleanup = runtime.AddCleanup(w, releaseAbandoned, w.live)
	w.state = StateRunning
	observability.WatchersRunning.Inc()
	w.logger.Info("watcher started", "paths", w.paths, "latency", w.latency)
	return nil
}

// Stop ends delivery and releases the stream and its context. It is a
// no-op unless the watcher is running. No handler call begins after Stop
// returns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateRunning {
		return
	}
	w.cleanup.Stop()
	w.live.release()
	w.live = nil
	w.state = StateStopped
	observability.WatchersRunning.Dec()
	w.logger.Info("watcher stopped")
}

// Close is Stop in io.Closer form.
func (w *Watcher) Close() error {
	w.Stop()
	return nil
}

func (l *liveStream) release() {
	l.session.active.Store(false)
	l.source.Stop(l.stream)
	l.source.Invalidate(l.stream)
	l.source.Release(l.stream)
	observability.StreamsReleasedTotal.Inc()
	l.sessions.Release(l.token)
}

func releaseAbandoned(l *liveStream) {
	l.session.logger.Warn("running watcher was garbage collected without Stop")
	l.release()
	observability.WatchersRunning.Dec()
}

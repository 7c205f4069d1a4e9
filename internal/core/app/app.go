// Package app assembles a watch session from configuration: the watcher and
// its executor, the fsnotify source, the kind filter and the event sinks.
package app

import (
	"context"
	"log/slog"
	"sync"

	"pathwatch/internal/core/config"
	"pathwatch/internal/core/errors"
	"pathwatch/internal/core/ports"
	"pathwatch/internal/core/watcher"
	"pathwatch/internal/engine/executor"
	"pathwatch/internal/engine/fsevents"
	"pathwatch/internal/shared/lifecycle"
	"pathwatch/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

type App struct {
	Config  *config.Config
	Watcher *watcher.Watcher

	logger  *slog.Logger
	filter  KindFilter
	source  ports.Source
	journal EventJournal
	loop    *executor.Loop
	queue   *executor.Queue
	writer  *writeWorker

	sinksMu sync.RWMutex
	sinks   []watcher.Handler
}

type Option func(*App)

// WithJournal persists every forwarded event.
func WithJournal(journal EventJournal) Option {
	return func(a *App) {
		a.journal = journal
	}
}

// WithSource replaces the fsnotify source.
func WithSource(source ports.Source) Option {
	return func(a *App) {
		a.source = source
	}
}

func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeInvalidConfiguration, "config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	filter, err := NewKindFilter(cfg.Watch.Kinds)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfiguration, "watch.kinds")
	}

	a := &App{Config: cfg, logger: logger, filter: filter}
	for _, opt := range opts {
		opt(a)
	}

	if a.source == nil {
		source, err := newSource(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.source = source
	}
	if a.journal != nil {
		a.writer = newWriteWorker(a.journal, cfg.Watch.QueueCapacity*4, logger)
	}

	var exec ports.Executor
	switch cfg.Watch.Executor {
	case config.ExecutorLoop:
		a.loop = executor.NewLoop(cfg.Watch.QueueCapacity)
		exec = a.loop
	default:
		a.queue = executor.NewQueue("pathwatch", cfg.Watch.QueueCapacity)
		exec = a.queue
	}

	w, err := watcher.New(cfg.WatchPaths, a.handle,
		watcher.WithExecutor(exec),
		watcher.WithSource(a.source),
		watcher.WithLatency(cfg.Watch.Latency),
		watcher.WithLogger(logger),
	)
	if err != nil {
		a.closeExecutor()
		return nil, err
	}
	a.Watcher = w
	return a, nil
}

func newSource(cfg *config.Config, logger *slog.Logger) (*fsevents.Source, error) {
	dirs, err := fsevents.CompilePatterns(cfg.Exclude.Dirs)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfiguration, "exclude.dirs")
	}
	files, err := fsevents.CompilePatterns(cfg.Exclude.Files)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfiguration, "exclude.files")
	}
	return fsevents.New(fsevents.Options{
		Logger:       logger,
		ExcludeDirs:  dirs,
		ExcludeFiles: files,
	}), nil
}

// AddSink registers a handler for forwarded events. Sinks run on the
// watcher's executor, in registration order.
func (a *App) AddSink(sink watcher.Handler) {
	if sink == nil {
		return
	}
	a.sinksMu.Lock()
	a.sinks = append(a.sinks, sink)
	a.sinksMu.Unlock()
}

func (a *App) handle(event watcher.Event) {
	if !a.filter(event.Kind) {
		return
	}

	a.sinksMu.RLock()
	sinks := a.sinks
	a.sinksMu.RUnlock()
	for _, sink := range sinks {
		sink(event)
	}

	if a.writer != nil {
		a.writer.enqueue(a.Watcher.ID(), event)
	}
}

// Listeners returns the components that make up a running session, in the
// order they should be stopped.
func (a *App) Listeners() []lifecycle.Listener {
	lis := []lifecycle.Listener{&watchListener{app: a}}
	if a.loop != nil {
		lis = append(lis, &loopListener{loop: a.loop})
	}
	if a.writer != nil {
		lis = append(lis, a.writer)
	}
	return lis
}

func (a *App) Close() error {
	a.Watcher.Stop()
	a.closeExecutor()
	return nil
}

func (a *App) closeExecutor() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
}

// watchListener keeps the watcher running for the lifetime of a session.
type watchListener struct {
	app *App
}

func (l *watchListener) Start(ctx context.Context) error {
	w := l.app.Watcher
	ctx, span := observability.Tracer.Start(ctx, "watch.session")
	span.SetAttributes(
		attribute.String("watcher.id", w.ID()),
		attribute.StringSlice("watcher.paths", w.Paths()),
	)
	defer span.End()

	if err := w.Start(); err != nil {
		span.RecordError(err)
		return err
	}
	l.app.logger.Info("watching", "paths", w.Paths(), "executor", l.app.Config.Watch.Executor)

	<-ctx.Done()
	return nil
}

func (l *watchListener) Stop(context.Context) error {
	l.app.Watcher.Stop()
	return nil
}

// loopListener drives a cooperative executor on its own goroutine.
type loopListener struct {
	loop *executor.Loop
}

func (l *loopListener) Start(ctx context.Context) error {
	if err := l.loop.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (l *loopListener) Stop(context.Context) error {
	return nil
}

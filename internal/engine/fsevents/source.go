// Package fsevents implements ports.Source on top of fsnotify.
//
// It gives fsnotify the shape of a stream-based notification service:
// directories are watched recursively, records carry FSEvents-style item
// flags and ids from a source-wide counter, and records seen within the
// stream latency are delivered together as one batch on the scheduled
// executor.
package fsevents

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"pathwatch/internal/core/ports"
	"pathwatch/internal/shared/observability"
	"pathwatch/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

var (
	ErrHistoryUnsupported = errors.New("fsnotify source only supports SinceNow")
	ErrNotScheduled       = errors.New("stream is not scheduled on an executor")
	ErrStreamClosed       = errors.New("stream was already stopped or released")
	ErrContextNotLive     = errors.New("stream context is not live")
)

type Options struct {
	Logger       *slog.Logger
	ExcludeDirs  []glob.Glob
	ExcludeFiles []glob.Glob
	// ErrorLogRate bounds fsnotify error log lines per second.
	ErrorLogRate float64
}

var _ ports.Source = (*Source)(nil)

type Source struct {
	logger       *slog.Logger
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	errLimiter   *util.Limiter
	lastID       atomic.Uint64
}

func New(opts Options) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rate := opts.ErrorLogRate
	if rate <= 0 {
		rate = 1
	}
	return &Source{
		logger:       logger.With("source", "fsnotify"),
		excludeDirs:  opts.ExcludeDirs,
		excludeFiles: opts.ExcludeFiles,
		errLimiter:   util.NewLimiter(rate, 5),
	}
}

// CompilePatterns compiles glob patterns matched against base names.
func CompilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

type stream struct {
	source   *Source
	spec     ports.StreamSpec
	sctx     ports.StreamContext
	callback ports.StreamCallback
	fsw      *fsnotify.Watcher

	mu       sync.Mutex
	exec     ports.Executor
	started  bool
	stopped  bool
	released bool
	done     chan struct{}
	exited   chan struct{}
}

func (s *stream) Paths() []string {
	out := make([]string, len(s.spec.Paths))
	copy(out, s.spec.Paths)
	return out
}

// Create validates the paths and registers fsnotify watches for them. The
// stream context is retained only once everything else succeeded.
func (src *Source) Create(spec ports.StreamSpec, sctx ports.StreamContext, callback ports.StreamCallback) (ports.Stream, error) {
	if spec.SinceID != ports.SinceNow {
		return nil, ErrHistoryUnsupported
	}
	if len(spec.Paths) == 0 {
		return nil, errors.New("stream needs at least one path")
	}
	if callback == nil {
		return nil, errors.New("stream callback must not be nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	s := &stream{
		source:   src,
		spec:     spec,
		sctx:     sctx,
		callback: callback,
		fsw:      fsw,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, path := range spec.Paths {
		if err := s.watchRoot(path); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	if sctx.Retain != nil && !sctx.Retain(sctx.Info) {
		_ = fsw.Close()
		return nil, ErrContextNotLive
	}
	return s, nil
}

func (src *Source) Schedule(ps ports.Stream, exec ports.Executor) {
	s := ps.(*stream)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.exec = exec
}

func (src *Source) Start(ps ports.Stream) error {
	s := ps.(*stream)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.released {
		return ErrStreamClosed
	}
	if s.exec == nil {
		return ErrNotScheduled
	}
	if s.started {
		return nil
	}
	s.started = true
	go s.run()
	return nil
}

// Stop ends delivery. Batches already handed to the executor are dropped
// when they reach the front of its queue.
func (src *Source) Stop(ps ports.Stream) {
	s := ps.(*stream)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

func (src *Source) Invalidate(ps ports.Stream) {
	s := ps.(*stream)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec = nil
}

// Release closes fsnotify and drops the stream's context reference. It
// runs at most once per stream.
func (src *Source) Release(ps ports.Stream) {
	s := ps.(*stream)
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.mu.Unlock()

	if err := s.fsw.Close(); err != nil {
		src.logger.Warn("closing fsnotify watcher failed", "error", err)
	}
	if s.sctx.Release != nil && !s.sctx.Release(s.sctx.Info) {
		src.logger.Warn("stream context was already released", "paths", s.spec.Paths)
	}
}

func (s *stream) watchRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	if !info.IsDir() {
		if err := s.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %q: %w", path, err)
		}
		return nil
	}
	return s.watchRecursive(path)
}

func (s *stream) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && s.source.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return s.fsw.Add(path)
		}

		return nil
	})
}

func (s *stream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *stream) run() {
	defer close(s.exited)

	var (
		pending ports.Batch
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending.IDs) == 0 {
			return
		}
		batch := pending
		pending = ports.Batch{}
		s.deliver(batch)
	}

	for {
		select {
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			observability.SourceEventsTotal.Inc()
			s.collect(&pending, event)
			if s.spec.Latency <= 0 {
				flush()
			} else if timer == nil && len(pending.IDs) > 0 {
				timer = time.NewTimer(s.spec.Latency)
				timerC = timer.C
			}

		case <-timerC:
			timer, timerC = nil, nil
			flush()

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			s.source.reportError(err)

		case <-s.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (s *stream) deliver(batch ports.Batch) {
	s.mu.Lock()
	exec := s.exec
	stopped := s.stopped
	s.mu.Unlock()
	if stopped || exec == nil {
		return
	}

	info, callback := s.sctx.Info, s.callback
	task := func() {
		if s.isStopped() {
			return
		}
		callback(info, batch)
	}

	// An executor that is never drained must not pin this goroutine past Stop.
	if ce, ok := exec.(ports.CancelableExecutor); ok {
		if !ce.SubmitUntil(s.done, task) {
			s.source.logger.Debug("dropping batch for stopped stream", "records", batch.Len())
		}
		return
	}
	exec.Submit(task)
}

func (s *stream) collect(batch *ports.Batch, event fsnotify.Event) {
	flags := opFlags(event.Op)
	flags |= itemTypeFlags(event.Name, event.Op)

	if flags&ports.FlagItemIsDir != 0 {
		if s.source.shouldExcludeDir(event.Name) {
			return
		}
		if event.Op.Has(fsnotify.Create) {
			s.append(batch, event.Name, flags)
			s.adoptDirectory(batch, event.Name)
			return
		}
	} else if s.source.shouldExcludeFile(event.Name) {
		return
	}

	if flags == ports.FlagNone {
		return
	}
	s.append(batch, event.Name, flags)
}

// adoptDirectory watches a directory created after the stream started and
// reports the files that were already inside it by the time the watch was
// in place.
func (s *stream) adoptDirectory(batch *ports.Batch, dir string) {
	if err := s.watchRecursive(dir); err != nil {
		s.source.logger.Warn("failed to watch new directory", "path", dir, "error", err)
		return
	}
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || path == dir {
			return nil
		}
		if info.IsDir() {
			if s.source.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			s.append(batch, path, ports.FlagItemCreated|ports.FlagItemIsDir)
			return nil
		}
		if s.source.shouldExcludeFile(path) {
			return nil
		}
		s.append(batch, path, ports.FlagItemCreated|typeFlag(info.Mode()))
		return nil
	})
}

func (s *stream) append(batch *ports.Batch, path string, flags ports.EventFlags) {
	batch.IDs = append(batch.IDs, s.source.lastID.Add(1))
	batch.Paths = append(batch.Paths, path)
	batch.Flags = append(batch.Flags, flags)
}

func (src *Source) reportError(err error) {
	observability.SourceErrorsTotal.Inc()
	if !src.errLimiter.Allow(1) {
		return
	}
	src.logger.Error("fsnotify error", "error", err, "suppressed", src.errLimiter.Suppressed())
}

func (src *Source) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range src.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (src *Source) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)
	for _, g := range src.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

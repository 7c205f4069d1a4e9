package watcher

import (
	"errors"
	"sync"

	"pathwatch/internal/core/ports"
)

// fakeSource is a scripted ports.Source. It honours the stream context
// contract (retain on create, release on release) and only delivers batches
// for streams that are scheduled, started and not yet stopped.
type fakeSource struct {
	mu sync.Mutex

	createErr error
	startErr  error

	creates, schedules, starts, stops, invalidates, releases int

	streams []*fakeStream
}

type fakeStream struct {
	spec     ports.StreamSpec
	sctx     ports.StreamContext
	callback ports.StreamCallback
	exec     ports.Executor
	started  bool
	stopped  bool
	released bool
}

func (s *fakeStream) Paths() []string {
	return s.spec.Paths
}

var errNoSuchPath = errors.New("no such file or directory")

func (f *fakeSource) Create(spec ports.StreamSpec, sctx ports.StreamContext, cb ports.StreamCallback) (ports.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if !sctx.Retain(sctx.Info) {
		return nil, errors.New("context is not live")
	}
	stream := &fakeStream{spec: spec, sctx: sctx, callback: cb}
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeSource) Schedule(stream ports.Stream, exec ports.Executor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules++
	stream.(*fakeStream).exec = exec
}

func (f *fakeSource) Start(stream ports.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	stream.(*fakeStream).started = true
	return nil
}

func (f *fakeSource) Stop(stream ports.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	stream.(*fakeStream).stopped = true
}

func (f *fakeSource) Invalidate(stream ports.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidates++
	stream.(*fakeStream).exec = nil
}

func (f *fakeSource) Release(stream ports.Stream) {
	f.mu.Lock()
	s := stream.(*fakeStream)
	f.releases++
	s.released = true
	f.mu.Unlock()
	s.sctx.Release(s.sctx.Info)
}

// emit delivers a batch to the most recent stream the way a native source
// would: asynchronously, on the scheduled executor. It reports whether the
// batch was handed to the executor.
func (f *fakeSource) emit(batch ports.Batch) bool {
	f.mu.Lock()
	if len(f.streams) == 0 {
		f.mu.Unlock()
		return false
	}
	s := f.streams[len(f.streams)-1]
	if !s.started || s.stopped || s.exec == nil {
		f.mu.Unlock()
		return false
	}
	exec, cb, info := s.exec, s.callback, s.sctx.Info
	f.mu.Unlock()
	return exec.Submit(func() { cb(info, batch) })
}

// lastStream returns the newest stream so tests can replay a batch that was
// already dequeued when Stop ran.
func (f *fakeSource) lastStream() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

func (f *fakeSource) nativeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.schedules + f.starts + f.stops + f.invalidates + f.releases
}

func batchOf(records ...record) ports.Batch {
	var b ports.Batch
	for _, r := range records {
		b.IDs = append(b.IDs, r.id)
		b.Paths = append(b.Paths, r.path)
		b.Flags = append(b.Flags, r.flags)
	}
	return b
}

type record struct {
	id    uint64
	path  string
	flags ports.EventFlags
}

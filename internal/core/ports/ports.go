package ports

import "time"

// Context is the opaque token a native source holds on behalf of a watcher.
// It carries identity only; the bridge that issued it maps it back to state.
type Context uintptr

// EventFlags is the raw per-record bitmask reported by a native source.
// Values follow the FSEvents item flags.
type EventFlags uint32

const (
	FlagNone            EventFlags = 0x00000000
	FlagMustScanSubDirs EventFlags = 0x00000001
	FlagUserDropped     EventFlags = 0x00000002
	FlagKernelDropped   EventFlags = 0x00000004
	FlagEventIdsWrapped EventFlags = 0x00000008
	FlagHistoryDone     EventFlags = 0x00000010
	FlagRootChanged     EventFlags = 0x00000020
	FlagMount           EventFlags = 0x00000040
	FlagUnmount         EventFlags = 0x00000080

	FlagItemCreated       EventFlags = 0x00000100
	FlagItemRemoved       EventFlags = 0x00000200
	FlagItemInodeMetaMod  EventFlags = 0x00000400
	FlagItemRenamed       EventFlags = 0x00000800
	FlagItemModified      EventFlags = 0x00001000
	FlagItemFinderInfoMod EventFlags = 0x00002000
	FlagItemChangeOwner   EventFlags = 0x00004000
	FlagItemXattrMod      EventFlags = 0x00008000
	FlagItemIsFile        EventFlags = 0x00010000
	FlagItemIsDir         EventFlags = 0x00020000
	FlagItemIsSymlink     EventFlags = 0x00040000
)

// CreateFlags controls stream creation.
type CreateFlags uint32

const (
	CreateFlagNone       CreateFlags = 0x00000000
	CreateFlagNoDefer    CreateFlags = 0x00000002
	CreateFlagWatchRoot  CreateFlags = 0x00000004
	CreateFlagIgnoreSelf CreateFlags = 0x00000008
	// CreateFlagFileEvents asks for file-level records, not just the
	// enclosing directory.
	CreateFlagFileEvents CreateFlags = 0x00000010
)

// SinceNow requests only events that happen after the stream starts.
const SinceNow uint64 = ^uint64(0)

// Batch is one raw delivery from a native source. The three slices are
// parallel: record i is (IDs[i], Paths[i], Flags[i]).
type Batch struct {
	IDs   []uint64
	Paths []string
	Flags []EventFlags
}

// Len returns the number of complete records in the batch.
func (b Batch) Len() int {
	n := len(b.IDs)
	if len(b.Paths) < n {
		n = len(b.Paths)
	}
	if len(b.Flags) < n {
		n = len(b.Flags)
	}
	return n
}

// StreamSpec describes the subscription a stream covers.
type StreamSpec struct {
	Paths   []string
	SinceID uint64
	Latency time.Duration
	Flags   CreateFlags
}

// StreamContext is handed to the source at creation. The source must call
// Retain once when it stores Info and Release once when the stream is
// released. Both report false for a token that is no longer live.
type StreamContext struct {
	Info    Context
	Retain  func(Context) bool
	Release func(Context) bool
}

// StreamCallback receives raw batches on the executor the stream is
// scheduled onto.
type StreamCallback func(info Context, batch Batch)

// Stream is an opaque handle to one live subscription.
type Stream interface {
	Paths() []string
}

// Source abstracts the platform change-notification service.
type Source interface {
	Create(spec StreamSpec, sctx StreamContext, callback StreamCallback) (Stream, error)
	Schedule(stream Stream, exec Executor)
	Start(stream Stream) error
	Stop(stream Stream)
	Invalidate(stream Stream)
	Release(stream Stream)
}

// Executor accepts work items and runs them one at a time, in submission
// order. Submit reports false when the executor no longer accepts work.
type Executor interface {
	Submit(task func()) bool
}

// CancelableExecutor is an Executor whose Submit can be abandoned.
// SubmitUntil gives up and reports false once done is closed while it is
// still waiting for room.
type CancelableExecutor interface {
	Executor
	SubmitUntil(done <-chan struct{}, task func()) bool
}

package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pathwatch/internal/core/ports"
)

const defaultLoopCapacity = 1024

var ErrLoopBusy = errors.New("loop is already being run")

var _ ports.CancelableExecutor = (*Loop)(nil)

// Loop is a cooperative executor. Submitted tasks wait until the owner calls
// Run or RunPending, and then run on the owner's goroutine, interleaved with
// whatever else the owner does between turns.
type Loop struct {
	tasks  chan func()
	turn   sync.Mutex
	logger *slog.Logger
}

var defaultLoop = sync.OnceValue(func() *Loop {
	return NewLoop(defaultLoopCapacity)
})

// Default returns the process-wide shared loop used by watchers that were
// not given an executor. Something, usually main, has to Run it.
func Default() *Loop {
	return defaultLoop()
}

func NewLoop(capacity int) *Loop {
	if capacity <= 0 {
		capacity = defaultLoopCapacity
	}
	return &Loop{
		tasks:  make(chan func(), capacity),
		logger: slog.Default().With("executor", "loop"),
	}
}

// Submit enqueues task, blocking while the loop's buffer is full.
func (l *Loop) Submit(task func()) bool {
	return l.SubmitUntil(nil, task)
}

// SubmitUntil is Submit that gives up once done is closed. A loop nobody
// drives never frees buffer space, so producers that can be stopped should
// use this form.
func (l *Loop) SubmitUntil(done <-chan struct{}, task func()) bool {
	if task == nil {
		return false
	}
	select {
	case l.tasks <- task:
		return true
	case <-done:
		return false
	}
}

// Run executes tasks on the calling goroutine until ctx is done.
// Only one goroutine may drive a loop at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.turn.TryLock() {
		return ErrLoopBusy
	}
	defer l.turn.Unlock()

	for {
		select {
		case task := <-l.tasks:
			runTask(l.logger, task)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunPending executes the tasks that are ready right now and returns how
// many ran. It returns zero while another goroutine is inside Run.
func (l *Loop) RunPending() int {
	if !l.turn.TryLock() {
		return 0
	}
	defer l.turn.Unlock()

	n := 0
	for {
		select {
		case task := <-l.tasks:
			runTask(l.logger, task)
			n++
		default:
			return n
		}
	}
}

// Len reports the number of tasks waiting for a turn.
func (l *Loop) Len() int {
	return len(l.tasks)
}

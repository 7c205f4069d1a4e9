// Package executor provides the execution contexts watchers deliver events on.
//
// Both executors run submitted tasks one at a time in submission order. A
// Queue owns a goroutine; a Loop runs tasks only while its owner drives it.
package executor

import (
	"log/slog"
	"sync"

	"pathwatch/internal/core/ports"
)

const defaultQueueCapacity = 256

var _ ports.CancelableExecutor = (*Queue)(nil)

// Queue is a serial work queue backed by a dedicated goroutine.
type Queue struct {
	name   string
	tasks  chan func()
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	logger *slog.Logger
}

// NewQueue starts a queue whose buffer holds capacity pending tasks.
// Submit blocks once the buffer is full.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	q := &Queue{
		name:   name,
		tasks:  make(chan func(), capacity),
		done:   make(chan struct{}),
		logger: slog.Default().With("executor", name),
	}
	go q.work()
	return q
}

// Submit enqueues task. It reports false after Close.
func (q *Queue) Submit(task func()) bool {
	return q.SubmitUntil(nil, task)
}

// SubmitUntil is Submit that stops waiting for buffer space once done is
// closed. A nil done waits forever.
func (q *Queue) SubmitUntil(done <-chan struct{}, task func()) bool {
	if task == nil {
		return false
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.tasks <- task:
		return true
	case <-done:
		return false
	}
}

// Close stops accepting work and waits for queued tasks to finish.
// It must not be called from a task running on the same queue.
func (q *Queue) Close() error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}

// Len reports the number of tasks waiting to run.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.tasks)
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) work() {
	defer close(q.done)
	for task := range q.tasks {
		runTask(q.logger, task)
	}
}

func runTask(logger *slog.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("executor task panicked", "panic", r)
		}
	}()
	task()
}

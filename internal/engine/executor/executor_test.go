package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := NewQueue("test", 4)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, q.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, q.Close())

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_NeverRunsTasksConcurrently(t *testing.T) {
	q := NewQueue("serial", 16)
	defer q.Close()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		q.Submit(func() {
			defer wg.Done()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestQueue_RejectsAfterClose(t *testing.T) {
	q := NewQueue("closed", 1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.False(t, q.Submit(func() {}))
	assert.False(t, NewQueue("nil-task", 1).Submit(nil))
}

func TestQueue_SurvivesPanickingTask(t *testing.T) {
	q := NewQueue("panics", 4)
	ran := make(chan struct{})
	q.Submit(func() { panic("boom") })
	q.Submit(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queue stopped after a panicking task")
	}
	require.NoError(t, q.Close())
}

func TestLoop_RunPendingDrainsReadyTasks(t *testing.T) {
	l := NewLoop(8)
	var got []string
	l.Submit(func() { got = append(got, "a") })
	l.Submit(func() { got = append(got, "b") })

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 2, l.RunPending())
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 0, l.RunPending())
}

func TestLoop_RunStopsOnContext(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	l.Submit(func() { close(done) })

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not run submitted task")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoop_SingleDriver(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	l.Submit(func() { close(started) })
	go l.Run(ctx)
	<-started

	assert.ErrorIs(t, l.Run(ctx), ErrLoopBusy)
	assert.Equal(t, 0, l.RunPending())
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestLoop_SubmitUntilGivesUpWhenDone(t *testing.T) {
	l := NewLoop(1)
	require.True(t, l.Submit(func() {}))

	done := make(chan struct{})
	result := make(chan bool, 1)
	go func() { result <- l.SubmitUntil(done, func() {}) }()

	select {
	case <-result:
		t.Fatal("SubmitUntil returned while the loop was full and done was open")
	case <-time.After(50 * time.Millisecond):
	}
	close(done)
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("SubmitUntil kept waiting after done was closed")
	}
	assert.Equal(t, 1, l.Len())
}

func TestQueue_SubmitUntilGivesUpWhenDone(t *testing.T) {
	q := NewQueue("full", 1)
	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Submit(func() {
		close(started)
		<-release
	}))
	<-started
	require.True(t, q.Submit(func() {}))

	done := make(chan struct{})
	close(done)
	assert.False(t, q.SubmitUntil(done, func() {}))

	close(release)
	require.NoError(t, q.Close())
}

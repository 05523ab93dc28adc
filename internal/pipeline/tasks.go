package pipeline

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultBackgroundConcurrency bounds simultaneous rewrite stages.
const DefaultBackgroundConcurrency = 4

// ErrTasksClosed is returned by Go after Shutdown.
var ErrTasksClosed = errors.New("background tasks are shutting down")

// Tasks runs detached work that outlives the request that started it.
// Each task gets its own context, and a panic in one task is logged and contained.
type Tasks struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewTasks creates a runner allowing at most limit tasks to execute at once.
func NewTasks(limit int) *Tasks {
	if limit <= 0 {
		limit = DefaultBackgroundConcurrency
	}
	return &Tasks{sem: semaphore.NewWeighted(int64(limit))}
}

// Go schedules fn. Tasks queue until a slot is free; a scheduled task always runs.
func (t *Tasks) Go(name string, fn func(ctx context.Context)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTasksClosed
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		// Background acquisition never fails, so fn is guaranteed to run.
		_ = t.sem.Acquire(context.Background(), 1)
		defer t.sem.Release(1)
		runContained(name, func() { fn(context.Background()) })
	}()
	return nil
}

// Shutdown stops accepting tasks and waits for running ones until ctx is done.
func (t *Tasks) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runContained(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[tasks] %s panicked: %v\n%s", name, r, debug.Stack())
		}
	}()
	fn()
}

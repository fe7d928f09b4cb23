package container

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Executor bounds the number of controller tasks running at once with a
// weighted semaphore. Submissions beyond the bound queue in Execute's
// acquire call; a rejected (canceled-context) acquire falls back to
// running the task inline rather than dropping it, so a saturated pool
// degrades to synchronous execution instead of losing work.
type Executor struct {
	sem *semaphore.Weighted
}

// NewExecutor returns an Executor that runs at most concurrency tasks at
// once. concurrency <= 0 is treated as 1.
func NewExecutor(concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{sem: semaphore.NewWeighted(int64(concurrency))}
}

// Execute runs fn on a pool goroutine once a slot is free. It satisfies
// controller.Executor.
func (e *Executor) Execute(fn func()) {
	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		// context.Background() never cancels; this is unreachable in
		// practice, but fall back to inline execution rather than drop fn.
		fn()
		return
	}
	go func() {
		defer e.sem.Release(1)
		fn()
	}()
}

// TryExecute attempts to run fn immediately without blocking for a slot.
// If the pool is saturated it runs fn inline on the calling goroutine and
// reports false.
func (e *Executor) TryExecute(fn func()) (queued bool) {
	if !e.sem.TryAcquire(1) {
		fn()
		return false
	}
	go func() {
		defer e.sem.Release(1)
		fn()
	}()
	return true
}

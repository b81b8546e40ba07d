// Package worker moves blocking work off the orchestrating goroutine.
//
// Run is the "dispatch and await" primitive: filesystem checks, process spawn,
// process wait and synchronous network I/O go through it so the event loop
// itself never blocks inside a system call. Group tracks fire-and-forget work
// so callers and tests can wait for it to drain.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PanicError reports a panic recovered from a unit of work.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.Value)
}

// Run executes fn on a dedicated goroutine and waits for its result.
// If ctx ends first Run returns ctx.Err(); fn is not interrupted and its
// result is discarded.
func Run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)

	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = &PanicError{Value: p}
			}
			ch <- r
		}()
		r.val, r.err = fn()
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Group runs background tasks and lets callers wait for all of them.
type Group struct {
	wg sync.WaitGroup

	// OnPanic, when set, receives panics recovered from tasks.
	OnPanic func(err error)
}

// Go dispatches fn and returns immediately.
func (g *Group) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if p := recover(); p != nil && g.OnPanic != nil {
				g.OnPanic(&PanicError{Value: p})
			}
		}()
		fn()
	}()
}

// Wait blocks until every dispatched task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether all tasks finished.
func (g *Group) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

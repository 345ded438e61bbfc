package plugin

import (
	"context"

	"github.com/zero-day-ai/bolt/types"
)

// Executor runs submitted work. Implementations must eventually run every
// submitted function exactly once.
type Executor interface {
	Submit(fn func())
}

// goExecutor runs each function on its own goroutine.
type goExecutor struct{}

func (goExecutor) Submit(fn func()) {
	go fn()
}

// Future is the pending outcome of ExecuteAsync.
//
// Abandoning a Future does not cancel the underlying call: the handler keeps
// running until it returns on its own.
type Future struct {
	done   chan struct{}
	result *types.Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(r *types.Result) {
	f.result = r
	close(f.done)
}

// Done returns a channel closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available and returns it.
func (f *Future) Wait() *types.Result {
	<-f.done
	return f.result
}

// Await waits for the result or for ctx to end, whichever comes first. When
// ctx ends first, its error is returned and the call continues in the
// background.
func (f *Future) Await(ctx context.Context) (*types.Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the result if it is available.
func (f *Future) Result() (*types.Result, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return nil, false
	}
}

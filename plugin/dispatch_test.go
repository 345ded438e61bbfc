package plugin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

func definitionWith(name string, h Handler) *Definition {
	def := NewDefinition()
	def.SetID("dispatch-test")
	def.AddAction(name, h)
	return def
}

func TestExecute_NotInitialized(t *testing.T) {
	rt := newRuntime(t, newTestDefinition(&hookCounts{}))

	r := rt.Execute(context.Background(), "echo", types.Params{"a": 1}, nil)

	require.NotNil(t, r)
	assert.False(t, r.Success)
	assert.Equal(t, pluginerr.CodeNotInitialized, r.ErrorCode)
	assert.NotEmpty(t, r.Error)
	assert.GreaterOrEqual(t, r.ExecutionTimeMs, int64(0))
}

func TestExecute_UnknownAction(t *testing.T) {
	def := newTestDefinition(&hookCounts{})
	def.AddAction("ping", DataFunc(func(ctx context.Context, params types.Params) (any, error) {
		return "pong", nil
	}).Handler())
	rt := newReadyRuntime(t, def)

	r := rt.Execute(context.Background(), "nonexistent", nil, nil)

	assert.False(t, r.Success)
	assert.Equal(t, pluginerr.CodeActionNotSupported, r.ErrorCode)
	assert.Contains(t, r.Error, "nonexistent")
	assert.Contains(t, r.Error, "echo")
	assert.Contains(t, r.Error, "ping")
}

func TestExecute_Success(t *testing.T) {
	rt := newReadyRuntime(t, newTestDefinition(&hookCounts{}))

	r := rt.Execute(context.Background(), "echo", types.Params{"message": "hi"}, types.NewExecutionContext())

	require.True(t, r.Success)
	assert.Equal(t, types.Params{"message": "hi"}, r.Data)
	assert.Empty(t, r.ErrorCode)
}

func TestExecute_HandlerOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		success bool
		code    string
		message string
	}{
		{
			name: "plain error",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return nil, errors.New("disk full")
			},
			code:    pluginerr.CodeExecutionFailed,
			message: "disk full",
		},
		{
			name: "coded error",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return nil, pluginerr.MissingParam("sql")
			},
			code:    pluginerr.CodeMissingParam,
			message: "missing required parameter: sql",
		},
		{
			name: "structured error without code",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return nil, &pluginerr.Error{Message: "boom"}
			},
			code:    pluginerr.CodeExecutionFailed,
			message: "boom",
		},
		{
			name: "panic",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				panic("nil map write")
			},
			code:    pluginerr.CodeExecutionFailed,
			message: "nil map write",
		},
		{
			name: "panic with error",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				panic(errors.New("wrapped"))
			},
			code:    pluginerr.CodeExecutionFailed,
			message: "wrapped",
		},
		{
			name: "nil result",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return nil, nil
			},
			success: true,
		},
		{
			name: "failure result passes through",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return types.Failure("QUERY_FAILED", "no such table"), nil
			},
			code:    "QUERY_FAILED",
			message: "no such table",
		},
		{
			name: "error wins over result",
			handler: func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
				return types.Success("ignored"), errors.New("late failure")
			},
			code:    pluginerr.CodeExecutionFailed,
			message: "late failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newReadyRuntime(t, definitionWith("run", tt.handler))

			var r *types.Result
			require.NotPanics(t, func() {
				r = rt.Execute(context.Background(), "run", nil, nil)
			})

			require.NotNil(t, r)
			assert.Equal(t, tt.success, r.Success)
			assert.Equal(t, tt.code, r.ErrorCode)
			assert.Equal(t, tt.message, r.Error)
			assert.GreaterOrEqual(t, r.ExecutionTimeMs, int64(0))
		})
	}
}

func TestExecute_StampsExecutionTime(t *testing.T) {
	rt := newReadyRuntime(t, definitionWith("slow", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return types.SuccessEmpty(), nil
	}))

	r := rt.Execute(context.Background(), "slow", nil, nil)

	assert.True(t, r.Success)
	assert.GreaterOrEqual(t, r.ExecutionTimeMs, int64(20))
}

func TestExecute_SharedResultIsNotMutated(t *testing.T) {
	shared := types.Success("cached")
	rt := newReadyRuntime(t, definitionWith("cached", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		time.Sleep(5 * time.Millisecond)
		return shared, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rt.Execute(context.Background(), "cached", nil, nil)
			assert.NotSame(t, shared, r)
			assert.Equal(t, "cached", r.Data)
			assert.GreaterOrEqual(t, r.ExecutionTimeMs, int64(5))
		}()
	}
	wg.Wait()

	assert.Zero(t, shared.ExecutionTimeMs)
}

func TestExecute_NilParamsBecomeEmpty(t *testing.T) {
	var got types.Params
	rt := newReadyRuntime(t, definitionWith("inspect", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		got = params
		return nil, nil
	}))

	rt.Execute(context.Background(), "inspect", nil, nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExecute_PassesExecutionContext(t *testing.T) {
	var tenant string
	rt := newReadyRuntime(t, definitionWith("who", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		tenant = ec.TenantID
		return nil, nil
	}))

	rt.Execute(context.Background(), "who", nil, &types.ExecutionContext{TenantID: "acme"})

	assert.Equal(t, "acme", tenant)
}

func TestExecute_Concurrent(t *testing.T) {
	var calls atomic.Int64
	rt := newReadyRuntime(t, definitionWith("count", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		calls.Add(1)
		return types.Success(params["i"]), nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := rt.Execute(context.Background(), "count", types.Params{"i": i}, nil)
			assert.True(t, r.Success)
			assert.Equal(t, i, r.Data)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(64), calls.Load())
}

func TestExecute_RacingDestroy(t *testing.T) {
	rt := newReadyRuntime(t, newTestDefinition(&hookCounts{}))

	var wg sync.WaitGroup
	results := make(chan *types.Result, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- rt.Execute(context.Background(), "echo", nil, nil)
		}()
	}
	rt.Destroy(context.Background())
	wg.Wait()
	close(results)

	for r := range results {
		if r.Success {
			continue
		}
		assert.Equal(t, pluginerr.CodeNotInitialized, r.ErrorCode)
	}
}

func TestExecuteAsync(t *testing.T) {
	rt := newReadyRuntime(t, newTestDefinition(&hookCounts{}))

	f := rt.ExecuteAsync(context.Background(), "echo", types.Params{"x": 1}, nil)
	r := f.Wait()

	require.True(t, r.Success)
	assert.Equal(t, types.Params{"x": 1}, r.Data)

	got, ok := f.Result()
	assert.True(t, ok)
	assert.Same(t, r, got)
}

func TestExecuteAsync_Failures(t *testing.T) {
	rt := newRuntime(t, newTestDefinition(&hookCounts{}))

	r := rt.ExecuteAsync(context.Background(), "echo", nil, nil).Wait()

	assert.Equal(t, pluginerr.CodeNotInitialized, r.ErrorCode)
}

func TestExecuteAsync_AwaitAbandoned(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	rt := newReadyRuntime(t, definitionWith("block", func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
		<-release
		close(finished)
		return types.Success("done"), nil
	}))

	f := rt.ExecuteAsync(context.Background(), "block", nil, nil)

	_, ok := f.Result()
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("handler did not keep running after Await gave up")
	}

	r, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", r.Data)
}

type countingExecutor struct {
	submitted atomic.Int64
}

func (e *countingExecutor) Submit(fn func()) {
	e.submitted.Add(1)
	fn()
}

func TestExecuteAsync_CustomExecutor(t *testing.T) {
	exec := &countingExecutor{}
	rt := newReadyRuntime(t, newTestDefinition(&hookCounts{}), WithExecutor(exec))

	f := rt.ExecuteAsync(context.Background(), "echo", nil, nil)

	_, ok := f.Result()
	assert.True(t, ok)
	assert.Equal(t, int64(1), exec.submitted.Load())
}

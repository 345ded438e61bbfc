package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

// Execute runs the named action and returns its Result.
//
// Execute never panics. Calls on an instance that is not ready fail with
// PLUGIN_NOT_INITIALIZED, unknown actions with ACTION_NOT_SUPPORTED, and
// handler errors or panics with EXECUTION_FAILED unless the handler returned
// a coded *pluginerr.Error. ExecutionTimeMs is set on every Result. The
// returned Result is a copy, so handlers may return shared Results.
func (rt *Runtime) Execute(ctx context.Context, action string, params types.Params, ec *types.ExecutionContext) *types.Result {
	start := time.Now()

	ctx, span := rt.obs.start(ctx, rt.id, action, ec)
	result := *rt.dispatch(ctx, action, params, ec)
	result.ExecutionTimeMs = elapsedMs(start)
	rt.obs.finish(ctx, span, rt.id, action, &result)

	return &result
}

// ExecuteAsync runs Execute on the configured Executor and returns a Future
// for its Result. The call is not cancelled if the Future is abandoned.
func (rt *Runtime) ExecuteAsync(ctx context.Context, action string, params types.Params, ec *types.ExecutionContext) *Future {
	f := newFuture()
	rt.executor.Submit(func() {
		f.complete(rt.Execute(ctx, action, params, ec))
	})
	return f
}

func (rt *Runtime) dispatch(ctx context.Context, action string, params types.Params, ec *types.ExecutionContext) *types.Result {
	// State and handler are read under one lock so a concurrent Destroy is
	// observed either completely or not at all.
	rt.mu.RLock()
	state := rt.State()
	handler, ok := rt.registry.Lookup(action)
	var supported []string
	if state == StateReady && !ok {
		supported = rt.registry.Names()
	}
	logger := rt.instance
	rt.mu.RUnlock()

	if logger == nil {
		logger = rt.logger
	}

	if state != StateReady {
		logger.Debug("rejected action call", "action", action, "state", state.String())
		return types.FailureFromError(pluginerr.NotInitialized(rt.id))
	}

	if !ok {
		logger.Debug("unsupported action", "action", action, "supported", supported)
		return types.FailureFromError(pluginerr.ActionNotSupported(rt.id, action, supported))
	}

	if params == nil {
		params = types.Params{}
	}

	logger.Debug("executing action", "action", action, "params", len(params))
	return rt.invoke(ctx, logger, action, handler, params, ec)
}

func (rt *Runtime) invoke(ctx context.Context, logger *slog.Logger, action string, h Handler, params types.Params, ec *types.ExecutionContext) (result *types.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action panicked",
				"action", action,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = types.FailureFromError(
				pluginerr.New(pluginerr.CodeExecutionFailed, fmt.Sprintf("%v", r)),
			)
		}
	}()

	res, err := h(ctx, params, ec)
	if err != nil {
		code := pluginerr.CodeOf(err)
		if pluginerr.Classify(code) == pluginerr.ClassRoutine {
			logger.Warn("action rejected", "action", action, "code", code, "error", err)
		} else {
			logger.Error("action failed", "action", action, "error", err)
		}
		return types.FailureFromError(err)
	}

	if res == nil {
		return types.SuccessEmpty()
	}
	return res
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

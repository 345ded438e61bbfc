package plugin

import (
	"context"

	"github.com/zero-day-ai/bolt/types"
)

// Handler executes one action. It receives the call's parameters and
// execution context and returns a Result or an error.
//
// A returned *pluginerr.Error with a code becomes a failed Result carrying
// that code. Any other error, or a panic, becomes an EXECUTION_FAILED Result. A nil Result
// with a nil error is treated as success without data.
//
// Handlers may run concurrently with each other and with themselves; any
// state they share must be synchronized by the plugin.
type Handler func(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error)

// DataFunc is the short form of a Handler for actions that only produce data.
type DataFunc func(ctx context.Context, params types.Params) (any, error)

// Handler adapts fn to a Handler that wraps its data in a successful Result.
func (fn DataFunc) Handler() Handler {
	return func(ctx context.Context, params types.Params, _ *types.ExecutionContext) (*types.Result, error) {
		data, err := fn(ctx, params)
		if err != nil {
			return nil, err
		}
		return types.Success(data), nil
	}
}

// InitFunc prepares plugin resources from the configuration. It runs once,
// before actions are registered.
type InitFunc func(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error

// RegisterFunc registers the plugin's actions. It runs once, after InitFunc.
type RegisterFunc func(r *ActionRegistry) error

// DestroyFunc releases plugin resources.
type DestroyFunc func(ctx context.Context) error

// HealthFunc reports plugin-specific health while the instance is ready.
type HealthFunc func(ctx context.Context) types.HealthStatus

package plugin

import (
	"context"

	"github.com/zero-day-ai/bolt/types"
)

// Plugin is the contract between a host and a unit of pluggable work.
//
// A plugin is initialized once, serves any number of concurrent action calls,
// and is destroyed once. Execute never panics and never returns a nil Result.
type Plugin interface {
	// ID returns the unique, immutable plugin identifier.
	ID() string

	// Version returns the plugin version.
	Version() string

	// Type returns the plugin category.
	Type() types.PluginType

	// Name returns the display name. Defaults to the id.
	Name() string

	// Description returns a human-readable description of the plugin.
	Description() string

	// Author returns the plugin author, or "".
	Author() string

	// Initialize prepares the plugin with the given configuration. It may be
	// called once; failures are fatal for the instance and are reported as a
	// *pluginerr.Error with code INIT_FAILED.
	Initialize(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error

	// Execute runs the named action and returns its Result. Routine failures,
	// including calls before initialization, are reported in the Result.
	Execute(ctx context.Context, action string, params types.Params, ec *types.ExecutionContext) *types.Result

	// ExecuteAsync runs Execute without blocking the caller.
	ExecuteAsync(ctx context.Context, action string, params types.Params, ec *types.ExecutionContext) *Future

	// Destroy releases the plugin's resources. Repeated calls are no-ops.
	Destroy(ctx context.Context)

	// SupportedActions returns the registered action names.
	SupportedActions() []string

	// SupportsAction reports whether the named action is registered.
	SupportsAction(action string) bool

	// Health returns a point-in-time health snapshot.
	Health(ctx context.Context) types.HealthStatus

	// DefaultConfigJSON returns a JSON template of the plugin's properties.
	DefaultConfigJSON() string
}

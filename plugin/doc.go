// Package plugin provides the plugin contract and the runtime that drives a
// plugin through its lifecycle and dispatches its actions.
//
// # Core Concepts
//
// A Plugin is a unit of work hosted by a larger platform. It:
//   - Has a unique id, a version and a type
//   - Exposes named actions invoked with key/value parameters
//   - Is initialized once with a Config and destroyed once
//   - Reports health for monitoring
//
// Instances move through a fixed set of states:
//
//	Uninitialized -> Initializing -> Ready | Failed -> Destroyed
//
// Only a Ready instance executes actions. Calls in any other state return a
// PLUGIN_NOT_INITIALIZED Result instead of failing loudly.
//
// # Creating a Plugin
//
// Plugins are assembled from a Definition rather than by embedding a base
// type. Hooks run at initialization, registration, health and destroy time:
//
//	def := plugin.NewDefinition()
//	def.SetID("greeter")
//	def.SetVersion("1.0.0")
//
//	var prefix string
//	def.SetInitFunc(func(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
//	    prefix = cfg.StringProperty("prefix", "Hello")
//	    return nil
//	})
//	def.SetRegisterFunc(func(r *plugin.ActionRegistry) error {
//	    return r.RegisterFunc("greet", func(ctx context.Context, params types.Params) (any, error) {
//	        name, err := input.RequireString(params, "name")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return map[string]any{"message": prefix + ", " + name}, nil
//	    })
//	})
//
//	p, err := plugin.New(def, plugin.WithLogger(logger))
//
// # Using a Plugin
//
//	if err := p.Initialize(ctx, cfg, types.NewExecutionContext()); err != nil {
//	    // INIT_FAILED; the instance is unusable
//	}
//	defer p.Destroy(ctx)
//
//	result := p.Execute(ctx, "greet", types.Params{"name": "Bolt"}, ec)
//	if !result.Success {
//	    log.Println(result.ErrorCode, result.Error)
//	}
//
//	// Or without blocking:
//	future := p.ExecuteAsync(ctx, "greet", params, ec)
//	result, err := future.Await(ctx)
//
// # Concurrency
//
// Execute and ExecuteAsync may be called from any number of goroutines.
// Initialize and Destroy are serialized with each other. Handlers run without
// any implicit locking, so plugins must protect their own shared state.
//
// Timeouts, retry counts and concurrency limits in Config are hints; the
// runtime does not enforce them.
package plugin

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

var _ Plugin = (*Runtime)(nil)

// Runtime is a plugin instance built from a Definition. It owns the lifecycle
// state machine and the action registry, and dispatches every action call.
type Runtime struct {
	id            string
	version       string
	name          string
	description   string
	author        string
	pluginType    types.PluginType
	defaultConfig string
	actions       []actionEntry
	initFunc      InitFunc
	registerFunc  RegisterFunc
	destroyFunc   DestroyFunc
	healthFunc    HealthFunc

	registry *ActionRegistry
	executor Executor
	obs      *observer
	logger   *slog.Logger

	state atomic.Int32

	// lifecycle serializes Initialize and Destroy.
	lifecycle sync.Mutex

	// mu guards the fields below and makes state changes visible to
	// dispatch together with the registry contents.
	mu       sync.RWMutex
	cfg      *types.Config
	initCtx  *types.ExecutionContext
	initErr  error
	instance *slog.Logger
}

// ID returns the plugin id.
func (rt *Runtime) ID() string { return rt.id }

// Version returns the plugin version.
func (rt *Runtime) Version() string { return rt.version }

// Type returns the plugin category.
func (rt *Runtime) Type() types.PluginType { return rt.pluginType }

// Name returns the display name, or the id when none was set.
func (rt *Runtime) Name() string {
	if rt.name == "" {
		return rt.id
	}
	return rt.name
}

// Description returns the plugin description.
func (rt *Runtime) Description() string { return rt.description }

// Author returns the plugin author.
func (rt *Runtime) Author() string { return rt.author }

// DefaultConfigJSON returns the JSON properties template.
func (rt *Runtime) DefaultConfigJSON() string { return rt.defaultConfig }

// State returns the current lifecycle state.
func (rt *Runtime) State() State {
	return State(rt.state.Load())
}

// Config returns a copy of the configuration the instance was initialized
// with, or nil before initialization.
func (rt *Runtime) Config() *types.Config {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.cfg == nil {
		return nil
	}
	return rt.cfg.Clone()
}

// InitContext returns a copy of the execution context passed to Initialize.
func (rt *Runtime) InitContext() *types.ExecutionContext {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.initCtx == nil {
		return nil
	}
	return rt.initCtx.Copy()
}

// SupportedActions returns the registered action names in sorted order.
func (rt *Runtime) SupportedActions() []string {
	return rt.registry.Names()
}

// SupportsAction reports whether action is registered.
func (rt *Runtime) SupportsAction(action string) bool {
	return rt.registry.Has(action)
}

// ActionDescription returns the description declared for action, if any.
func (rt *Runtime) ActionDescription(action string) string {
	for _, entry := range rt.actions {
		if entry.descriptor.Name == action {
			return entry.descriptor.Description
		}
	}
	return ""
}

// Initialize runs the init hook, registers the declared actions, runs the
// register hook and moves the instance to Ready.
//
// It may only be called on an uninitialized instance. If any step fails or
// panics, the instance moves to Failed and an INIT_FAILED error wrapping the
// original cause is returned.
func (rt *Runtime) Initialize(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
	rt.lifecycle.Lock()
	defer rt.lifecycle.Unlock()

	current := rt.State()
	if !current.canTransition(StateInitializing) {
		return pluginerr.New(pluginerr.CodeInitFailed,
			fmt.Sprintf("cannot initialize plugin in state %s", current)).WithPlugin(rt.id)
	}

	cfg = cfg.Clone()
	if cfg.PluginID == "" {
		cfg.PluginID = rt.id
	}
	logger := rt.logger.With("instance_id", cfg.InstanceID)

	rt.mu.Lock()
	rt.cfg = cfg
	rt.initCtx = ec.Copy()
	rt.instance = logger
	rt.state.Store(int32(StateInitializing))
	rt.mu.Unlock()

	if cfg.PluginID != rt.id {
		logger.Warn("config plugin id does not match plugin", "config_plugin_id", cfg.PluginID)
	}

	if err := rt.setup(ctx, cfg.Clone(), ec.Copy(), logger); err != nil {
		rt.mu.Lock()
		rt.registry.Clear()
		rt.initErr = err
		rt.state.Store(int32(StateFailed))
		rt.mu.Unlock()

		logger.Error("plugin initialization failed", "version", rt.version, "error", err)
		return pluginerr.InitializationFailed(rt.id, err)
	}

	rt.mu.Lock()
	rt.registry.setOpen(false)
	rt.state.Store(int32(StateReady))
	rt.mu.Unlock()

	logger.Info("plugin initialized",
		"version", rt.version,
		"actions", rt.registry.Len(),
	)
	return nil
}

// setup runs the init and registration steps, converting panics to errors.
func (rt *Runtime) setup(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialization: %v", r)
		}
	}()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := rt.initFunc(ctx, cfg, ec); err != nil {
		return err
	}

	rt.registry.setNotify(func(name string, replaced bool) {
		logger.Debug("registered action", "action", name, "replaced", replaced)
	})
	rt.registry.setOpen(true)

	for _, entry := range rt.actions {
		if err := rt.registry.Register(entry.descriptor.Name, entry.handler); err != nil {
			return err
		}
	}

	if err := rt.registerFunc(rt.registry); err != nil {
		return fmt.Errorf("register actions: %w", err)
	}
	return nil
}

// Destroy clears the action registry and runs the destroy hook. It is a
// no-op on an instance that is already destroyed. An instance that was never
// initialized moves straight to Destroyed without running the hook.
//
// Errors and panics from the hook are logged, not returned.
func (rt *Runtime) Destroy(ctx context.Context) {
	rt.lifecycle.Lock()
	defer rt.lifecycle.Unlock()

	logger := rt.instanceLogger()

	switch current := rt.State(); current {
	case StateDestroyed:
		logger.Debug("plugin already destroyed")
		return
	case StateUninitialized:
		logger.Warn("destroying plugin that was never initialized")
		rt.markDestroyed()
		return
	}

	rt.markDestroyed()

	if err := rt.teardown(ctx); err != nil {
		logger.Error("plugin destroy hook failed", "error", err)
	}
	logger.Info("plugin destroyed")
}

func (rt *Runtime) markDestroyed() {
	rt.mu.Lock()
	rt.registry.Clear()
	rt.state.Store(int32(StateDestroyed))
	rt.mu.Unlock()
}

func (rt *Runtime) teardown(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during destroy: %v", r)
		}
	}()
	return rt.destroyFunc(ctx)
}

// Health returns a snapshot of the instance's health. Before initialization
// completes the status is UNKNOWN; after a failed initialization or destroy
// it is UNHEALTHY. While ready, the health hook decides, defaulting to
// HEALTHY. Details always include the lifecycle state and action count.
func (rt *Runtime) Health(ctx context.Context) types.HealthStatus {
	state := rt.State()

	var status types.HealthStatus
	switch state {
	case StateUninitialized:
		status = types.NewUnknownStatus("plugin not initialized")
	case StateInitializing:
		status = types.NewUnknownStatus("plugin initializing")
	case StateFailed:
		status = types.NewUnhealthyStatus("plugin initialization failed", nil)
		rt.mu.RLock()
		if rt.initErr != nil {
			status = status.WithDetail("error", rt.initErr.Error())
		}
		rt.mu.RUnlock()
	case StateDestroyed:
		status = types.NewUnhealthyStatus("plugin destroyed", nil)
	case StateReady:
		status = rt.readyHealth(ctx)
	default:
		status = types.NewUnknownStatus(fmt.Sprintf("unexpected state %s", state))
	}

	return status.
		WithDetail("state", state.String()).
		WithDetail("actions", rt.registry.Len())
}

func (rt *Runtime) readyHealth(ctx context.Context) (status types.HealthStatus) {
	if rt.healthFunc == nil {
		return types.NewHealthyStatus("plugin operational")
	}
	defer func() {
		if r := recover(); r != nil {
			rt.instanceLogger().Error("health check panicked", "panic", r)
			status = types.NewUnknownStatus(fmt.Sprintf("health check panicked: %v", r))
		}
	}()
	return rt.healthFunc(ctx)
}

func (rt *Runtime) instanceLogger() *slog.Logger {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.instance != nil {
		return rt.instance
	}
	return rt.logger
}

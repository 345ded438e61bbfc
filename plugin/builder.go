package plugin

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/bolt/types"
)

// actionEntry is an action declared on a Definition.
type actionEntry struct {
	descriptor ActionDescriptor
	handler    Handler
}

// Definition describes a plugin: its identity, its actions and the hooks that
// run at each lifecycle step. Use NewDefinition, the setter methods, and then
// New to build a runnable instance.
//
// A Definition may be reused to build any number of instances. Hooks and
// actions set directly on it are shared by all of them; state owned by one
// instance is created in an InstanceFunc.
type Definition struct {
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
	instanceFunc  InstanceFunc
}

// InstanceFunc sets the hooks and actions of a single instance on inst, a
// private copy of the Definition made by New.
type InstanceFunc func(inst *Definition)

// NewDefinition creates a new plugin definition with no-op hooks.
func NewDefinition() *Definition {
	return &Definition{
		pluginType:    types.PluginTypeCustom,
		defaultConfig: "{}",
		actions:       make([]actionEntry, 0),
		initFunc: func(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
			return nil
		},
		registerFunc: func(r *ActionRegistry) error {
			return nil
		},
		destroyFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// SetID sets the plugin id. Required.
func (d *Definition) SetID(id string) {
	d.id = id
}

// SetVersion sets the plugin version.
func (d *Definition) SetVersion(version string) {
	d.version = version
}

// SetName sets the display name. Defaults to the id.
func (d *Definition) SetName(name string) {
	d.name = name
}

// SetDescription sets the plugin description.
func (d *Definition) SetDescription(desc string) {
	d.description = desc
}

// SetAuthor sets the plugin author.
func (d *Definition) SetAuthor(author string) {
	d.author = author
}

// SetType sets the plugin category. Defaults to PluginTypeCustom.
func (d *Definition) SetType(t types.PluginType) {
	d.pluginType = t
}

// SetDefaultConfig sets the JSON configuration template returned by
// DefaultConfigJSON.
func (d *Definition) SetDefaultConfig(json string) {
	d.defaultConfig = json
}

// AddAction declares an action that is registered during initialization.
func (d *Definition) AddAction(name string, handler Handler) {
	d.AddActionWithDesc(name, "", handler)
}

// AddActionWithDesc declares an action with a description.
func (d *Definition) AddActionWithDesc(name, description string, handler Handler) {
	d.actions = append(d.actions, actionEntry{
		descriptor: ActionDescriptor{Name: name, Description: description},
		handler:    handler,
	})
}

// SetInitFunc sets the hook that acquires resources.
func (d *Definition) SetInitFunc(fn InitFunc) {
	d.initFunc = fn
}

// SetRegisterFunc sets the hook that registers actions which depend on
// initialization, in addition to those declared with AddAction.
func (d *Definition) SetRegisterFunc(fn RegisterFunc) {
	d.registerFunc = fn
}

// SetDestroyFunc sets the hook that releases resources.
func (d *Definition) SetDestroyFunc(fn DestroyFunc) {
	d.destroyFunc = fn
}

// SetHealthFunc sets the hook reporting health while the instance is ready.
func (d *Definition) SetHealthFunc(fn HealthFunc) {
	d.healthFunc = fn
}

// SetInstanceFunc sets the function New calls for every instance it builds.
//
// Example:
//
//	def.SetInstanceFunc(func(inst *plugin.Definition) {
//	    c := &counter{}
//	    inst.SetInitFunc(c.init)
//	    inst.AddAction("inc", c.inc)
//	})
func (d *Definition) SetInstanceFunc(fn InstanceFunc) {
	d.instanceFunc = fn
}

// clone returns a copy of d whose action list can grow independently.
func (d *Definition) clone() *Definition {
	c := *d
	c.actions = make([]actionEntry, len(d.actions))
	copy(c.actions, d.actions)
	c.instanceFunc = nil
	return &c
}

// New creates an uninitialized plugin instance from the definition.
// Returns an error if the definition is invalid.
func New(def *Definition, opts ...Option) (*Runtime, error) {
	if def == nil {
		return nil, fmt.Errorf("definition cannot be nil")
	}
	if def.instanceFunc != nil {
		inst := def.clone()
		def.instanceFunc(inst)
		def = inst
	}

	if def.id == "" {
		return nil, fmt.Errorf("plugin id is required")
	}

	for _, entry := range def.actions {
		if entry.descriptor.Name == "" {
			return nil, fmt.Errorf("action name cannot be empty")
		}
		if entry.handler == nil {
			return nil, fmt.Errorf("handler for action %q cannot be nil", entry.descriptor.Name)
		}
	}

	pluginType := def.pluginType
	if pluginType == "" {
		pluginType = types.PluginTypeCustom
	}
	if !pluginType.IsValid() {
		return nil, fmt.Errorf("unknown plugin type: %q", pluginType)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	actions := make([]actionEntry, len(def.actions))
	copy(actions, def.actions)

	noop := NewDefinition()
	initFunc, registerFunc, destroyFunc := def.initFunc, def.registerFunc, def.destroyFunc
	if initFunc == nil {
		initFunc = noop.initFunc
	}
	if registerFunc == nil {
		registerFunc = noop.registerFunc
	}
	if destroyFunc == nil {
		destroyFunc = noop.destroyFunc
	}

	rt := &Runtime{
		id:            def.id,
		version:       def.version,
		name:          def.name,
		description:   def.description,
		author:        def.author,
		pluginType:    pluginType,
		defaultConfig: def.defaultConfig,
		actions:       actions,
		initFunc:      initFunc,
		registerFunc:  registerFunc,
		destroyFunc:   destroyFunc,
		healthFunc:    def.healthFunc,
		registry:      newSealedRegistry(),
		executor:      options.executor,
	}
	rt.logger = options.logger.With("plugin_id", def.id)

	obs, err := newObserver(options.tracer, options.meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	rt.obs = obs

	return rt, nil
}

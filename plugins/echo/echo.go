// Package echo is the smallest useful plugin: it echoes its input, answers
// pings and reports the time. Hosts use it to test wiring end to end.
package echo

import (
	"context"
	"time"

	"github.com/zero-day-ai/bolt/input"
	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/types"
)

const (
	// ID is the plugin id.
	ID = "echo-plugin"
	// Version is the plugin version.
	Version = "1.0.0"

	defaultGreetingPrefix = "Hello"
	defaultTimeLayout     = "2006-01-02 15:04:05"
)

// Settings are the echo plugin properties.
type Settings struct {
	GreetingPrefix string `json:"greetingPrefix" default:"Hello"`
}

type echoPlugin struct {
	settings Settings
	cfg      *types.Config
	actions  *plugin.ActionRegistry
}

// Definition returns the echo plugin definition. Every instance built from
// it keeps its own settings.
func Definition() *plugin.Definition {
	def := plugin.NewDefinition()
	def.SetID(ID)
	def.SetVersion(Version)
	def.SetName("Echo")
	def.SetDescription("Echoes input back; used to test and learn the plugin system")
	def.SetAuthor("Bolt Team")
	def.SetType(types.PluginTypeCustom)
	def.SetDefaultConfig(`{"greetingPrefix":"Hello"}`)
	def.SetInstanceFunc(func(inst *plugin.Definition) {
		e := &echoPlugin{}
		inst.SetInitFunc(e.init)
		inst.SetRegisterFunc(e.register)
	})
	return def
}

// New builds an echo plugin instance.
func New(opts ...plugin.Option) (*plugin.Runtime, error) {
	return plugin.New(Definition(), opts...)
}

func (e *echoPlugin) init(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
	var settings Settings
	if err := cfg.Decode(&settings); err != nil {
		return err
	}
	if settings.GreetingPrefix == "" {
		settings.GreetingPrefix = defaultGreetingPrefix
	}
	e.settings = settings
	e.cfg = cfg
	return nil
}

func (e *echoPlugin) register(r *plugin.ActionRegistry) error {
	e.actions = r
	for name, h := range map[string]plugin.Handler{
		"echo": e.echo,
		"ping": e.ping,
		"time": e.time,
		"info": e.info,
	} {
		if err := r.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

func (e *echoPlugin) echo(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	name, err := input.OptionalString(params, "name", "World")
	if err != nil {
		return nil, err
	}
	message, err := input.OptionalString(params, "message", "")
	if err != nil {
		return nil, err
	}
	data := map[string]any{
		"greeting":  e.settings.GreetingPrefix + ", " + name + "!",
		"echo":      message,
		"timestamp": time.Now().UnixMilli(),
	}
	if ec != nil {
		data["executionId"] = ec.ExecutionID
	}
	return types.Success(data), nil
}

func (e *echoPlugin) ping(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	return types.Success(map[string]any{
		"status":     "pong",
		"pluginId":   ID,
		"version":    Version,
		"instanceId": e.cfg.InstanceID,
	}), nil
}

// time formats the current local time. The optional "format" parameter is a
// Go time layout.
func (e *echoPlugin) time(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	layout, err := input.OptionalString(params, "format", defaultTimeLayout)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	zone, _ := now.Zone()
	return types.Success(map[string]any{
		"datetime":  now.Format(layout),
		"timestamp": now.UnixMilli(),
		"timezone":  now.Location().String(),
		"zone":      zone,
	}), nil
}

func (e *echoPlugin) info(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	actions := e.actions.Names()
	properties := make(map[string]any, len(e.cfg.Properties))
	for k, v := range e.cfg.Properties {
		properties[k] = v
	}
	return types.Success(map[string]any{
		"pluginId":         ID,
		"version":          Version,
		"instanceId":       e.cfg.InstanceID,
		"instanceName":     e.cfg.InstanceName,
		"supportedActions": actions,
		"properties":       properties,
	}), nil
}

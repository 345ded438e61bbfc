// Package celexpr is a plugin that evaluates Common Expression Language
// expressions against caller-supplied variables.
//
// Every variable is declared with the dynamic type, so an expression may use
// any name present in the call's "variables" object. Compiled programs are
// cached per expression and variable set.
package celexpr

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/bolt/input"
	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

const (
	// ID is the plugin id.
	ID = "cel-expression-plugin"
	// Version is the plugin version.
	Version = "1.0.0"
)

// Error codes returned by the expression actions.
const (
	CodeCompileFailed = "COMPILE_FAILED"
	CodeEvalFailed    = "EVAL_FAILED"
)

// Settings are the expression plugin properties.
type Settings struct {
	// MaxPrograms bounds the compiled-program cache. Once full, new
	// programs are still evaluated but not cached.
	MaxPrograms int `json:"maxPrograms" default:"256" validate:"gte=1"`
	// CostLimit aborts evaluations exceeding this runtime cost. 0 disables
	// the limit.
	CostLimit uint64 `json:"costLimit"`
}

// DefaultSettings returns the settings used for absent properties.
func DefaultSettings() Settings {
	var s Settings
	defaults.MustSet(&s)
	return s
}

type celPlugin struct {
	settings Settings
	logger   *slog.Logger

	mu       sync.Mutex
	programs map[string]cel.Program
}

// Definition returns the expression plugin definition.
func Definition(logger *slog.Logger) *plugin.Definition {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin_id", ID)

	def := plugin.NewDefinition()
	def.SetID(ID)
	def.SetVersion(Version)
	def.SetName("CEL Expressions")
	def.SetDescription("Evaluates CEL expressions over request variables")
	def.SetAuthor("Bolt Team")
	def.SetType(types.PluginTypeCustom)
	def.SetDefaultConfig(`{"maxPrograms":256,"costLimit":0}`)
	def.SetInstanceFunc(func(inst *plugin.Definition) {
		c := &celPlugin{logger: logger}
		inst.SetInitFunc(c.init)
		inst.SetDestroyFunc(c.destroy)
		inst.SetHealthFunc(c.health)
		inst.AddActionWithDesc("eval", "Evaluate expression with the given variables", c.eval)
		inst.AddActionWithDesc("compile", "Check that expression compiles", c.compile)
	})
	return def
}

// New builds an expression plugin instance.
func New(logger *slog.Logger, opts ...plugin.Option) (*plugin.Runtime, error) {
	if logger != nil {
		opts = append([]plugin.Option{plugin.WithLogger(logger)}, opts...)
	}
	return plugin.New(Definition(logger), opts...)
}

func (c *celPlugin) init(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
	var settings Settings
	if err := cfg.Decode(&settings); err != nil {
		return err
	}
	c.settings = settings
	c.mu.Lock()
	c.programs = make(map[string]cel.Program, settings.MaxPrograms)
	c.mu.Unlock()
	return nil
}

func (c *celPlugin) destroy(ctx context.Context) error {
	c.mu.Lock()
	c.programs = nil
	c.mu.Unlock()
	return nil
}

func (c *celPlugin) health(ctx context.Context) types.HealthStatus {
	c.mu.Lock()
	cached := len(c.programs)
	c.mu.Unlock()

	details := map[string]any{
		"cached_programs": cached,
		"max_programs":    c.settings.MaxPrograms,
	}
	if cached >= c.settings.MaxPrograms {
		return types.NewDegradedStatus("program cache full", details)
	}
	return types.HealthStatus{
		Status:  types.StatusHealthy,
		Message: "expression engine ready",
		Details: details,
	}
}

func (c *celPlugin) eval(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	expr, err := input.RequireString(params, "expression")
	if err != nil {
		return nil, err
	}
	vars := input.GetMap(params, "variables")
	if vars == nil {
		vars = map[string]any{}
	}

	prg, cached, err := c.program(expr, variableNames(vars))
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return nil, pluginerr.New(CodeEvalFailed, err.Error()).WithPlugin(ID)
	}
	result, err := native(out)
	if err != nil {
		return nil, pluginerr.New(CodeEvalFailed, err.Error()).WithPlugin(ID)
	}

	return types.Success(map[string]any{
		"result": result,
		"type":   out.Type().TypeName(),
	}).WithMetadata("cached", cached), nil
}

// compile reports syntax and type errors as data rather than failing.
func (c *celPlugin) compile(ctx context.Context, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	expr, err := input.RequireString(params, "expression")
	if err != nil {
		return nil, err
	}
	env, err := newEnv(input.GetStringSlice(params, "variables"))
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return types.Success(map[string]any{
			"valid": false,
			"error": iss.Err().Error(),
		}), nil
	}
	return types.Success(map[string]any{
		"valid":      true,
		"outputType": ast.OutputType().String(),
	}), nil
}

// program returns a compiled program for expr, reporting whether it came
// from the cache.
func (c *celPlugin) program(expr string, names []string) (cel.Program, bool, error) {
	key := strings.Join(names, ",") + "\x00" + expr

	c.mu.Lock()
	prg, ok := c.programs[key]
	c.mu.Unlock()
	if ok {
		return prg, true, nil
	}

	env, err := newEnv(names)
	if err != nil {
		return nil, false, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, false, pluginerr.New(CodeCompileFailed, iss.Err().Error()).WithPlugin(ID)
	}

	opts := []cel.ProgramOption{cel.InterruptCheckFrequency(100)}
	if c.settings.CostLimit > 0 {
		opts = append(opts, cel.CostLimit(c.settings.CostLimit))
	}
	prg, err = env.Program(ast, opts...)
	if err != nil {
		return nil, false, pluginerr.New(CodeCompileFailed, err.Error()).WithPlugin(ID)
	}

	c.mu.Lock()
	if c.programs != nil && len(c.programs) < c.settings.MaxPrograms {
		c.programs[key] = prg
	} else if c.programs != nil {
		c.logger.Debug("program cache full", "max_programs", c.settings.MaxPrograms)
	}
	c.mu.Unlock()
	return prg, false, nil
}

func newEnv(names []string) (*cel.Env, error) {
	opts := []cel.EnvOption{ext.Strings()}
	for _, name := range names {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, pluginerr.InvalidParam("variables", err.Error())
	}
	return env, nil
}

func variableNames(vars map[string]any) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var jsonValueType = reflect.TypeOf(&structpb.Value{})

// native converts a CEL value to plain Go. Scalars keep their CEL type;
// lists, maps and everything else go through their JSON form.
func native(v ref.Val) (any, error) {
	switch v := v.(type) {
	case celtypes.Int:
		return int64(v), nil
	case celtypes.Uint:
		return uint64(v), nil
	case celtypes.Double:
		return float64(v), nil
	case celtypes.String:
		return string(v), nil
	case celtypes.Bool:
		return bool(v), nil
	case celtypes.Null:
		return nil, nil
	}
	pb, err := v.ConvertToNative(jsonValueType)
	if err != nil {
		return nil, fmt.Errorf("unsupported result type %s: %w", v.Type().TypeName(), err)
	}
	return pb.(*structpb.Value).AsInterface(), nil
}

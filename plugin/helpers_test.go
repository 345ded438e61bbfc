package plugin

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bolt/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hookCounts records how often lifecycle hooks ran.
type hookCounts struct {
	init     int
	register int
	destroy  int
}

// newTestDefinition returns a definition with an "echo" action and hooks that
// count their invocations.
func newTestDefinition(counts *hookCounts) *Definition {
	def := NewDefinition()
	def.SetID("test-plugin")
	def.SetVersion("1.0.0")
	def.SetInitFunc(func(ctx context.Context, cfg *types.Config, ec *types.ExecutionContext) error {
		counts.init++
		return nil
	})
	def.SetRegisterFunc(func(r *ActionRegistry) error {
		counts.register++
		return r.RegisterFunc("echo", func(ctx context.Context, params types.Params) (any, error) {
			return params, nil
		})
	})
	def.SetDestroyFunc(func(ctx context.Context) error {
		counts.destroy++
		return nil
	})
	return def
}

func newRuntime(t *testing.T, def *Definition, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	rt, err := New(def, opts...)
	require.NoError(t, err)
	return rt
}

func newReadyRuntime(t *testing.T, def *Definition, opts ...Option) *Runtime {
	t.Helper()
	rt := newRuntime(t, def, opts...)
	require.NoError(t, rt.Initialize(context.Background(), &types.Config{PluginID: def.id}, types.NewExecutionContext()))
	return rt
}

package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/types"
)

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestExecute_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	rt := newReadyRuntime(t, newTestDefinition(&hookCounts{}), WithTracer(provider.Tracer("test")))

	rt.Execute(context.Background(), "echo", nil, &types.ExecutionContext{ExecutionID: "exec-1"})
	rt.Execute(context.Background(), "missing", nil, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "plugin.execute", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	attrs := attrMap(ok.Attributes())
	assert.Equal(t, "test-plugin", attrs["plugin.id"].AsString())
	assert.Equal(t, "echo", attrs["plugin.action"].AsString())
	assert.Equal(t, "exec-1", attrs["plugin.execution_id"].AsString())
	assert.True(t, attrs["result.success"].AsBool())

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	attrs = attrMap(failed.Attributes())
	assert.Equal(t, pluginerr.CodeActionNotSupported, attrs["result.error_code"].AsString())
}

func TestWithNilOptionsKeepDefaults(t *testing.T) {
	rt := newRuntime(t, newTestDefinition(&hookCounts{}), WithTracer(nil), WithMeter(nil), WithExecutor(nil), WithLogger(nil))
	require.NoError(t, rt.Initialize(context.Background(), nil, nil))

	r := rt.ExecuteAsync(context.Background(), "echo", nil, nil).Wait()
	assert.True(t, r.Success)
}

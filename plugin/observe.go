package plugin

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/bolt/types"
)

const instrumentationName = "github.com/zero-day-ai/bolt/plugin"

// observer holds the OpenTelemetry instruments for action dispatch.
type observer struct {
	tracer trace.Tracer

	// countCounter increments once per call, successful or not
	countCounter metric.Int64Counter

	// durationHistogram records handler time in milliseconds
	durationHistogram metric.Float64Histogram
}

func newObserver(tracer trace.Tracer, meter metric.Meter) (*observer, error) {
	obs := &observer{tracer: tracer}
	var err error

	obs.countCounter, err = meter.Int64Counter(
		"plugin.execute.count",
		metric.WithDescription("Number of plugin action calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create count counter: %w", err)
	}

	obs.durationHistogram, err = meter.Float64Histogram(
		"plugin.execute.duration",
		metric.WithDescription("Plugin action duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return obs, nil
}

// start opens the dispatch span.
func (o *observer) start(ctx context.Context, pluginID, action string, ec *types.ExecutionContext) (context.Context, trace.Span) {
	ctx, span := o.tracer.Start(ctx, "plugin.execute", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("plugin.id", pluginID),
		attribute.String("plugin.action", action),
	)
	if ec != nil {
		if ec.ExecutionID != "" {
			span.SetAttributes(attribute.String("plugin.execution_id", ec.ExecutionID))
		}
		if ec.TenantID != "" {
			span.SetAttributes(attribute.String("plugin.tenant_id", ec.TenantID))
		}
	}
	return ctx, span
}

// finish records the outcome on the span and in the metrics, then ends the
// span.
func (o *observer) finish(ctx context.Context, span trace.Span, pluginID, action string, r *types.Result) {
	span.SetAttributes(
		attribute.Bool("result.success", r.Success),
		attribute.Int64("result.execution_time_ms", r.ExecutionTimeMs),
	)
	if r.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(attribute.String("result.error_code", r.ErrorCode))
		span.SetStatus(codes.Error, r.Error)
	}
	span.End()

	opts := metric.WithAttributes(
		attribute.String("plugin.id", pluginID),
		attribute.String("plugin.action", action),
		attribute.Bool("result.success", r.Success),
		attribute.String("result.error_code", r.ErrorCode),
	)
	o.countCounter.Add(ctx, 1, opts)
	o.durationHistogram.Record(ctx, float64(r.ExecutionTimeMs), opts)
}

package plugin

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Option configures a Runtime built by New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	executor Executor
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
		executor: goExecutor{},
	}
}

// WithLogger sets the logger for lifecycle and dispatch events.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets an OpenTelemetry tracer. Every action call is recorded as a
// "plugin.execute" span.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMeter sets an OpenTelemetry meter for call counts and durations.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithExecutor sets where ExecuteAsync runs handlers. By default each call
// gets its own goroutine.
func WithExecutor(executor Executor) Option {
	return func(o *options) {
		if executor != nil {
			o.executor = executor
		}
	}
}

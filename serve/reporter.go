package serve

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	bolthealth "github.com/zero-day-ai/bolt/health"
	"github.com/zero-day-ai/bolt/types"
)

// HealthSource is anything reporting a health snapshot, such as a
// plugin.Plugin.
type HealthSource interface {
	Health(ctx context.Context) types.HealthStatus
}

// ServingStatus maps a plugin health state to the gRPC health protocol.
// Degraded instances still serve.
func ServingStatus(status types.HealthStatus) grpc_health_v1.HealthCheckResponse_ServingStatus {
	switch {
	case status.IsHealthy(), status.IsDegraded():
		return grpc_health_v1.HealthCheckResponse_SERVING
	case status.IsUnhealthy():
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	default:
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}
}

// HealthReporter publishes the health of named sources to a gRPC health
// server. Each source is reported under its own service name; the empty
// service name carries the combined status of all sources.
type HealthReporter struct {
	server *health.Server
	logger *slog.Logger

	mu      sync.RWMutex
	sources map[string]HealthSource
	last    map[string]types.HealthStatus
}

// NewHealthReporter creates a reporter writing to server.
func NewHealthReporter(server *health.Server, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthReporter{
		server:  server,
		logger:  logger,
		sources: make(map[string]HealthSource),
		last:    make(map[string]types.HealthStatus),
	}
}

// Add registers source under service, replacing any previous source.
func (r *HealthReporter) Add(service string, source HealthSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[service] = source
}

// Remove stops reporting service and marks it SERVICE_UNKNOWN.
func (r *HealthReporter) Remove(service string) {
	r.mu.Lock()
	delete(r.sources, service)
	delete(r.last, service)
	r.mu.Unlock()
	r.server.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN)
}

// Services returns the registered service names in sorted order.
func (r *HealthReporter) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Last returns the status recorded for service by the latest Sync.
func (r *HealthReporter) Last(service string) (types.HealthStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.last[service]
	return status, ok
}

// Sync polls every source once and updates the health server. It returns
// the combined status.
func (r *HealthReporter) Sync(ctx context.Context) types.HealthStatus {
	r.mu.RLock()
	sources := make(map[string]HealthSource, len(r.sources))
	for name, src := range r.sources {
		sources[name] = src
	}
	r.mu.RUnlock()

	statuses := make([]types.HealthStatus, 0, len(sources))
	current := make(map[string]types.HealthStatus, len(sources))
	for name, src := range sources {
		status := src.Health(ctx)
		current[name] = status
		statuses = append(statuses, status)
		r.server.SetServingStatus(name, ServingStatus(status))
	}

	combined := bolthealth.Combine(statuses...)
	if len(sources) == 0 {
		combined = types.NewUnknownStatus("no plugins registered")
	}
	r.server.SetServingStatus("", ServingStatus(combined))

	r.mu.Lock()
	for name, status := range current {
		if prev, ok := r.last[name]; !ok || prev.Status != status.Status {
			r.logger.Info("plugin health changed", "service", name, "status", status.Status, "message", status.Message)
		}
		if _, still := r.sources[name]; still {
			r.last[name] = status
		}
	}
	r.mu.Unlock()

	return combined
}

// Watch calls Sync immediately and then every interval until ctx is done.
func (r *HealthReporter) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.Sync(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sort"
	"time"

	"github.com/zero-day-ai/bolt/types"
)

// Check produces a health status on demand. Plugins compose checks in their
// HealthFunc.
type Check func(ctx context.Context) types.HealthStatus

// EndpointCheck dials address ("host:port") over TCP on every call. The dial
// is bounded by timeout as well as by the caller's context; zero timeout
// leaves only the context.
func EndpointCheck(name, address string, timeout time.Duration) Check {
	return func(ctx context.Context) types.HealthStatus {
		details := map[string]any{"check": name, "address": address}
		if _, _, err := net.SplitHostPort(address); err != nil {
			details["error"] = err.Error()
			return types.NewUnhealthyStatus(fmt.Sprintf("%s address invalid", name), details)
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		details["latency_ms"] = time.Since(start).Milliseconds()
		if err != nil {
			details["error"] = err.Error()
			return types.NewUnhealthyStatus(fmt.Sprintf("%s unreachable", name), details)
		}
		_ = conn.Close()
		return types.HealthStatus{
			Status:  types.StatusHealthy,
			Message: fmt.Sprintf("%s reachable", name),
			Details: details,
		}
	}
}

// PathCheck stats path on every call and reports unhealthy when it is
// missing or unreadable.
func PathCheck(name, path string) Check {
	return func(ctx context.Context) types.HealthStatus {
		details := map[string]any{"check": name, "path": path}
		if path == "" {
			return types.NewUnhealthyStatus(fmt.Sprintf("%s path not set", name), details)
		}
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return types.NewUnhealthyStatus(fmt.Sprintf("%s missing", name), details)
		}
		if err != nil {
			details["error"] = err.Error()
			return types.NewUnhealthyStatus(fmt.Sprintf("%s not accessible", name), details)
		}
		details["dir"] = info.IsDir()
		details["size"] = info.Size()
		return types.HealthStatus{
			Status:  types.StatusHealthy,
			Message: fmt.Sprintf("%s present", name),
			Details: details,
		}
	}
}

// PingCheck wraps a ping function, such as (*sql.DB).PingContext, as a
// health check. A ping slower than slow reports degraded; zero disables the
// latency threshold.
func PingCheck(name string, ping func(ctx context.Context) error, slow time.Duration) Check {
	return func(ctx context.Context) types.HealthStatus {
		start := time.Now()
		err := ping(ctx)
		elapsed := time.Since(start)
		details := map[string]any{
			"check":      name,
			"latency_ms": elapsed.Milliseconds(),
		}
		if err != nil {
			details["error"] = err.Error()
			return types.NewUnhealthyStatus(fmt.Sprintf("%s ping failed", name), details)
		}
		if slow > 0 && elapsed > slow {
			return types.NewDegradedStatus(fmt.Sprintf("%s ping slow", name), details)
		}
		return types.HealthStatus{
			Status:  types.StatusHealthy,
			Message: fmt.Sprintf("%s reachable", name),
			Details: details,
		}
	}
}

// Run evaluates checks with ctx and combines the results.
func Run(ctx context.Context, checks ...Check) types.HealthStatus {
	statuses := make([]types.HealthStatus, 0, len(checks))
	for _, check := range checks {
		if check == nil {
			continue
		}
		statuses = append(statuses, check(ctx))
	}
	return Combine(statuses...)
}

// Combine aggregates multiple statuses into one. Priority, highest first:
// unhealthy, degraded, unknown, healthy. An empty set is healthy.
func Combine(checks ...types.HealthStatus) types.HealthStatus {
	if len(checks) == 0 {
		return types.NewHealthyStatus("no checks provided")
	}

	byStatus := make(map[string][]string, 4)
	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		status := check.Status
		if check.IsUnknown() {
			status = types.StatusUnknown
		}
		byStatus[status] = append(byStatus[status], msg)
	}

	details := map[string]any{
		"total":     len(checks),
		"healthy":   len(byStatus[types.StatusHealthy]),
		"degraded":  len(byStatus[types.StatusDegraded]),
		"unhealthy": len(byStatus[types.StatusUnhealthy]),
		"unknown":   len(byStatus[types.StatusUnknown]),
	}

	if failed := byStatus[types.StatusUnhealthy]; len(failed) > 0 {
		details["failed_checks"] = sorted(failed)
		return types.NewUnhealthyStatus(fmt.Sprintf("%d check(s) failed", len(failed)), details)
	}
	if degraded := byStatus[types.StatusDegraded]; len(degraded) > 0 {
		details["degraded_checks"] = sorted(degraded)
		return types.NewDegradedStatus(fmt.Sprintf("%d check(s) degraded", len(degraded)), details)
	}
	if unknown := byStatus[types.StatusUnknown]; len(unknown) > 0 {
		return types.HealthStatus{
			Status:  types.StatusUnknown,
			Message: fmt.Sprintf("%d check(s) unknown", len(unknown)),
			Details: details,
		}
	}
	return types.NewHealthyStatus(fmt.Sprintf("all %d check(s) passed", len(checks)))
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

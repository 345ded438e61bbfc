package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/bolt/manifest"
	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/queue"
	"github.com/zero-day-ai/bolt/types"
)

const (
	defaultConcurrency       = 4
	defaultShutdownTimeout   = 30 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
	popRetryDelay            = 250 * time.Millisecond
)

// Options configures the worker behavior.
type Options struct {
	// InstanceID selects the queue to consume. If empty, the manifest, then
	// the plugin's configuration, then the plugin id are used.
	InstanceID string

	// Concurrency is the number of worker goroutines to start.
	// If 0, uses the manifest worker section, then Config.MaxConcurrent,
	// then 4.
	Concurrency int

	// ShutdownTimeout is the time to wait for in-flight calls after ctx is
	// cancelled. If 0, uses the manifest value or 30s.
	ShutdownTimeout time.Duration

	// HeartbeatInterval is the time between health heartbeats. If 0, uses
	// the manifest value or 10s.
	HeartbeatInterval time.Duration

	// Logger is the structured logger for worker operations.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Manifest supplies defaults for the options above. Optional.
	Manifest *manifest.Manifest
}

// configured is implemented by *plugin.Runtime.
type configured interface {
	Config() *types.Config
}

// Run consumes invocations for one plugin instance until ctx is cancelled.
//
// It starts Concurrency goroutines that pop invocations, dispatch them with
// p.Execute and publish the outcomes, plus a heartbeat goroutine that
// records p.Health. After ctx is cancelled, in-flight calls get
// ShutdownTimeout to finish; Run returns an error if they do not.
//
// Configuration priority (highest to lowest):
//  1. Explicit Options values (if non-zero)
//  2. Manifest worker section
//  3. Plugin configuration hints
//  4. Defaults
func Run(ctx context.Context, p plugin.Plugin, client queue.Client, opts Options) error {
	if p == nil {
		return errors.New("worker: plugin is required")
	}
	if client == nil {
		return errors.New("worker: queue client is required")
	}

	opts = applyDefaults(opts, p)
	workerID := generateWorkerID()

	logger := opts.Logger.With(
		"plugin_id", p.ID(),
		"instance_id", opts.InstanceID,
		"worker_id", workerID,
	)

	logger.Info("worker starting",
		"concurrency", opts.Concurrency,
		"actions", p.SupportedActions(),
	)

	if err := client.IncrementWorkerCount(ctx, opts.InstanceID); err != nil {
		logger.Error("failed to increment worker count", "error", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.DecrementWorkerCount(cleanupCtx, opts.InstanceID); err != nil {
			logger.Error("failed to decrement worker count", "error", err)
		}
	}()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go runHeartbeat(heartbeatCtx, p, client, opts.InstanceID, opts.HeartbeatInterval, logger)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			workerLoop(ctx, workerNum, p, client, opts.InstanceID, workerID, logger)
		}(i)
	}

	logger.Info("worker started", "workers", opts.Concurrency)

	<-ctx.Done()
	logger.Info("context cancelled, initiating graceful shutdown")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("worker shutdown complete")
		return nil
	case <-time.After(opts.ShutdownTimeout):
		logger.Warn("worker shutdown timeout exceeded", "timeout", opts.ShutdownTimeout)
		return fmt.Errorf("worker shutdown timed out after %s", opts.ShutdownTimeout)
	}
}

func runHeartbeat(ctx context.Context, p plugin.Plugin, client queue.Client, instanceID string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("heartbeat goroutine started", "interval", interval)

	for {
		if err := client.Heartbeat(ctx, instanceID, p.Health(ctx)); err != nil && ctx.Err() == nil {
			// heartbeat failures are transient
			logger.Debug("heartbeat failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Debug("heartbeat goroutine stopped")
			return
		case <-ticker.C:
		}
	}
}

// workerLoop pops and processes invocations until ctx is cancelled. An
// invocation already popped is finished and published even if ctx is
// cancelled meanwhile.
func workerLoop(ctx context.Context, workerNum int, p plugin.Plugin, client queue.Client, instanceID, workerID string, logger *slog.Logger) {
	logger = logger.With("worker_num", workerNum)
	logger.Debug("worker loop started")

	execCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			logger.Debug("worker loop stopped", "reason", "context_cancelled")
			return
		}

		inv, err := client.Pop(ctx, instanceID)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("worker loop stopped", "reason", "context_error")
				return
			}
			var decodeErr *queue.DecodeError
			if errors.As(err, &decodeErr) {
				logger.Warn("dropping malformed invocation", "error", err)
				continue
			}
			logger.Error("failed to pop invocation", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(popRetryDelay):
			}
			continue
		}
		if inv == nil {
			continue
		}

		logger.Debug("received invocation", "job_id", inv.JobID, "action", inv.Action)

		outcome := processInvocation(execCtx, p, *inv, workerID, logger)
		if outcome.JobID == "" {
			continue
		}
		if err := client.Publish(execCtx, outcome); err != nil {
			logger.Error("failed to publish outcome", "job_id", outcome.JobID, "error", err)
		}
	}
}

// processInvocation always returns an outcome. Invalid invocations fail
// with INVALID_PARAM instead of reaching the plugin.
func processInvocation(ctx context.Context, p plugin.Plugin, inv queue.Invocation, workerID string, logger *slog.Logger) queue.Outcome {
	outcome := queue.Outcome{
		JobID:     inv.JobID,
		WorkerID:  workerID,
		StartedAt: time.Now().UnixMilli(),
	}

	finish := func(result *types.Result) queue.Outcome {
		outcome.Result = result
		outcome.CompletedAt = time.Now().UnixMilli()
		return outcome
	}

	if err := inv.IsValid(); err != nil {
		logger.Warn("invalid invocation", "job_id", inv.JobID, "error", err)
		return finish(types.FailureFromError(pluginerr.InvalidParam("invocation", err.Error())))
	}

	params, err := inv.DecodeParams()
	if err != nil {
		logger.Warn("invalid invocation params", "job_id", inv.JobID, "error", err)
		return finish(types.FailureFromError(pluginerr.InvalidParam("params", err.Error())))
	}

	result := p.Execute(ctx, inv.Action, params, inv.Context)

	logger.Info("invocation completed",
		"job_id", inv.JobID,
		"action", inv.Action,
		"success", result.Success,
		"duration_ms", result.ExecutionTimeMs,
	)
	return finish(result)
}

// Call runs one action on a remote plugin instance and waits for its
// result. It returns an error only when the round trip itself fails; action
// failures come back as an unsuccessful Result.
func Call(ctx context.Context, client queue.Client, instanceID, action string, params types.Params, ec *types.ExecutionContext) (*types.Result, error) {
	inv, err := queue.NewInvocation(instanceID, action, params, ec)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes, err := client.Subscribe(subCtx, inv.JobID)
	if err != nil {
		return nil, err
	}
	if err := client.Push(ctx, *inv); err != nil {
		return nil, err
	}

	select {
	case out, ok := <-outcomes:
		if !ok {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("waiting for job %s: %w", inv.JobID, ctx.Err())
			}
			return nil, fmt.Errorf("result channel for job %s closed", inv.JobID)
		}
		if out.Result == nil {
			return nil, fmt.Errorf("job %s returned no result", inv.JobID)
		}
		return out.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for job %s: %w", inv.JobID, ctx.Err())
	}
}

// generateWorkerID creates a unique identifier for this worker instance.
// Uses hostname + PID + UUID for uniqueness.
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}

// applyDefaults resolves zero Options from the manifest, the plugin
// configuration and the built-in defaults.
func applyDefaults(opts Options, p plugin.Plugin) Options {
	var cfg *types.Config
	if c, ok := p.(configured); ok {
		cfg = c.Config()
	}
	var wc *manifest.WorkerConfig
	if opts.Manifest != nil {
		wc = opts.Manifest.Worker
	}

	if opts.InstanceID == "" {
		switch {
		case opts.Manifest != nil:
			opts.InstanceID = opts.Manifest.InstanceID()
		case cfg != nil && cfg.InstanceID != "":
			opts.InstanceID = cfg.InstanceID
		default:
			opts.InstanceID = p.ID()
		}
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = wc.GetConcurrency()
	}
	if opts.Concurrency <= 0 && cfg != nil && cfg.MaxConcurrent > 0 {
		opts.Concurrency = cfg.MaxConcurrent
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
		if wc != nil {
			opts.ShutdownTimeout = wc.GetShutdownTimeout()
		}
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
		if wc != nil {
			opts.HeartbeatInterval = wc.GetHeartbeatInterval()
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

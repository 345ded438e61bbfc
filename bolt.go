package bolt

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/serve"
	"github.com/zero-day-ai/bolt/types"
	"github.com/zero-day-ai/bolt/worker"
)

// ServePlugin owns the full lifecycle of one plugin instance. It initializes
// p with cfg, reports its health over gRPC and, with WithQueue, consumes
// invocations for it. When ctx is cancelled everything is shut down and p
// is destroyed.
//
// It returns nil on a clean shutdown, the initialization error if p could
// not be initialized, or the first error from the health server or worker.
func ServePlugin(ctx context.Context, p plugin.Plugin, cfg *types.Config, opts ...ServeOption) error {
	if p == nil {
		return ErrNoPlugin
	}
	sc := newServeConfig(opts)
	logger := sc.logger.With("plugin_id", p.ID())

	if err := p.Initialize(ctx, cfg, types.NewExecutionContext()); err != nil {
		return err
	}
	defer p.Destroy(context.Background())

	srv, err := newServer(sc)
	if err != nil {
		return err
	}

	instanceID := p.ID()
	if cfg != nil && cfg.InstanceID != "" {
		instanceID = cfg.InstanceID
	}
	srv.Reporter().Add(instanceID, p)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv.Reporter().Watch(gctx, sc.healthInterval)
		return nil
	})

	g.Go(func() error {
		err := srv.Serve(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	if sc.queue != nil {
		wopts := sc.worker
		if wopts.InstanceID == "" {
			wopts.InstanceID = instanceID
		}
		if wopts.Logger == nil {
			wopts.Logger = sc.logger
		}
		g.Go(func() error {
			if err := worker.Run(gctx, p, sc.queue, wopts); err != nil {
				return fmt.Errorf("worker: %w", err)
			}
			return nil
		})
	}

	logger.Info("plugin serving", "instance_id", instanceID, "queue", sc.queue != nil)

	err = g.Wait()
	logger.Info("plugin stopped", "instance_id", instanceID)
	return err
}

func newServer(sc *serveConfig) (*serve.Server, error) {
	cfg := serve.NewConfig(append(sc.serve, serve.WithLogger(sc.logger))...)
	if sc.listener != nil {
		return serve.NewServerWithListener(cfg, sc.listener)
	}
	return serve.NewServer(cfg)
}

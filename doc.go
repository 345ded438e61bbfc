// Package bolt hosts pluggable units of work behind a small, strict
// lifecycle.
//
// A plugin is built from a plugin.Definition, initialized once with a
// types.Config, serves any number of concurrent action calls through
// Execute and is destroyed once. Every call returns a types.Result; handler
// errors and panics become failed results with a stable error code from
// package pluginerr.
//
// # Packages
//
//   - plugin: lifecycle state machine, action registry and dispatcher
//   - types: configuration, execution context, results and health
//   - pluginerr: coded errors and their classification
//   - input: typed access to action parameters
//   - health: reusable health checks and aggregation
//   - manifest: plugin.yaml deployment descriptors
//   - queue, worker: running a plugin instance behind a Redis queue
//   - serve: gRPC health service for hosted instances
//   - plugins/...: ready-made echo, HTTP, SQL and CEL plugins
//
// # Hosting a plugin
//
// ServePlugin runs one instance until its context is cancelled:
//
//	p, err := echo.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	err = bolt.ServePlugin(ctx, p, &types.Config{InstanceID: "echo-1"},
//		bolt.WithPort(50051),
//		bolt.WithQueue(redisClient, worker.Options{}),
//	)
package bolt

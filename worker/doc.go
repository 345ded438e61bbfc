// Package worker runs a plugin instance as a Redis queue consumer.
//
// Hosts push invocations onto the instance's queue (see package queue) and
// wait for the outcome; Call does both. Run pops invocations, dispatches them
// through the plugin's Execute and publishes each Result, so remote callers
// see exactly the results a local Execute would return.
//
//	p, _ := plugin.New(def)
//	_ = p.Initialize(ctx, m.ToConfig(), nil)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := worker.Run(ctx, p, client, worker.Options{Manifest: m}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Options.Concurrency goroutines consume the queue. When unset it falls back
// to the manifest worker section, then to the MaxConcurrent hint of the
// plugin's configuration, then to 4. A plugin serves concurrent calls, so
// concurrency is bounded only by what its collaborators tolerate.
//
// # Health
//
// A heartbeat goroutine records the plugin's Health in Redis every
// HeartbeatInterval with a 30s TTL.
package worker

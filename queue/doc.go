// Package queue provides Redis-based invocation queues for running plugin
// actions out of process.
//
// A host pushes an Invocation onto the queue of a plugin instance, a worker
// pops it, dispatches it through the plugin runtime and publishes the Outcome
// on a per-job pub/sub channel.
//
// # Redis Key Schema
//
//   - <prefix>:<instance>:queue - List of invocations (LPUSH/BRPOP)
//   - <prefix>:<instance>:health - JSON health status with a 30s TTL
//   - <prefix>:<instance>:workers - Integer counter for active workers
//   - results:<jobID> - Pub/Sub channel for job outcomes
//
// The prefix defaults to "plugin".
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	inv, _ := queue.NewInvocation("echo-1", "echo", types.Params{"message": "hi"}, nil)
//	outcomes, _ := client.Subscribe(ctx, inv.JobID)
//	_ = client.Push(ctx, *inv)
//	out := <-outcomes
//
// Subscribe before pushing; pub/sub does not buffer for late subscribers.
//
// RedisClient is safe for concurrent use by multiple goroutines.
package queue

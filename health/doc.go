// Package health provides reusable health checks for plugin HealthFuncs.
//
// Checks report a types.HealthStatus in one of four states. Combine folds
// several statuses into one with the priority unhealthy, degraded, unknown,
// healthy, and records the per-state counts in Details.
//
//	def.SetHealthFunc(func(ctx context.Context) types.HealthStatus {
//	    return health.Run(ctx,
//	        health.PingCheck("database", db.PingContext, 500*time.Millisecond),
//	        health.PathCheck("database file", "/var/lib/bolt/bolt.db"),
//	    )
//	})
package health

// Package types provides the value types exchanged between plugins and the
// hosts that run them.
//
// # Configuration
//
// Config is handed to a plugin once, at initialization. Properties carry the
// plugin-specific settings; typed getters and Decode read them:
//
//	prefix := cfg.StringProperty("greetingPrefix", "Hello")
//	dsn, err := cfg.RequiredString("dsn") // CONFIG_MISSING when absent
//
// # Execution Context
//
// ExecutionContext identifies the caller of an action:
//
//	ec := types.ForWorkflowNode("wf-42", "node-7")
//	ec.TenantID = "acme"
//
// # Results
//
// Result is returned from every action call. Failures carry an error code:
//
//	r := types.Failure(pluginerr.CodeMissingParam, "missing required parameter: sql")
//	if !r.Success {
//	    log.Println(r.ErrorCode, r.Error)
//	}
//
// # Health
//
// HealthStatus reports one of four states: HEALTHY, DEGRADED, UNHEALTHY or
// UNKNOWN.
//
//	status := types.NewDegradedStatus("high latency", map[string]any{
//	    "latency_ms": 500,
//	})
package types

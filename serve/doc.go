// Package serve exposes plugin health over the standard gRPC health
// checking protocol.
//
// A Server hosts grpc_health_v1. Its HealthReporter polls registered
// plugins and maps their four health states onto serving statuses:
//
//   - HEALTHY, DEGRADED: SERVING
//   - UNHEALTHY: NOT_SERVING
//   - UNKNOWN: SERVICE_UNKNOWN
//
// Each plugin is reported under its own service name and the empty service
// name carries the combined status, so load balancers and orchestrators can
// check a host without knowing its plugins.
//
//	srv, err := serve.NewServer(serve.NewConfig(serve.WithPort(50051)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.Reporter().Add("echo-1", p)
//	go srv.Reporter().Watch(ctx, 5*time.Second)
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
//
// Serve returns when ctx is cancelled, after marking every service
// NOT_SERVING and draining active RPCs for up to GracefulTimeout.
package serve

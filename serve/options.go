package serve

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"
)

// Option is a functional option for configuring a Server.
type Option func(*Config)

// WithPort sets the TCP port for the gRPC server. Use port 0 to pick any
// free port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithGracefulShutdown sets the maximum duration to wait for active
// requests to complete during graceful shutdown.
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS enables TLS with PEM-encoded certificate and key files. If either
// path is empty, TLS stays disabled.
//
// Example:
//
//	cfg := serve.NewConfig(serve.WithTLS("/etc/certs/server.crt", "/etc/certs/server.key"))
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithLogger sets the server logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithServerOptions appends raw gRPC server options, such as interceptors or
// message size limits. Repeated calls accumulate.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(c *Config) {
		c.ServerOptions = append(c.ServerOptions, opts...)
	}
}

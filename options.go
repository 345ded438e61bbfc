package bolt

import (
	"log/slog"
	"net"
	"time"

	"github.com/zero-day-ai/bolt/queue"
	"github.com/zero-day-ai/bolt/serve"
	"github.com/zero-day-ai/bolt/worker"
)

// ServeOption configures ServePlugin.
type ServeOption func(*serveConfig)

type serveConfig struct {
	serve          []serve.Option
	listener       net.Listener
	logger         *slog.Logger
	queue          queue.Client
	worker         worker.Options
	healthInterval time.Duration
}

func newServeConfig(opts []ServeOption) *serveConfig {
	cfg := &serveConfig{healthInterval: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// WithPort sets the gRPC health port.
func WithPort(port int) ServeOption {
	return func(c *serveConfig) {
		c.serve = append(c.serve, serve.WithPort(port))
	}
}

// WithGracefulShutdown bounds how long the health server waits for active
// RPCs on shutdown.
func WithGracefulShutdown(timeout time.Duration) ServeOption {
	return func(c *serveConfig) {
		c.serve = append(c.serve, serve.WithGracefulShutdown(timeout))
	}
}

// WithTLS serves health over TLS using PEM files.
func WithTLS(certFile, keyFile string) ServeOption {
	return func(c *serveConfig) {
		c.serve = append(c.serve, serve.WithTLS(certFile, keyFile))
	}
}

// WithListener serves on lis instead of listening on the configured port.
func WithListener(lis net.Listener) ServeOption {
	return func(c *serveConfig) {
		c.listener = lis
	}
}

// WithLogger sets the logger for the host, the health server and the
// worker.
func WithLogger(logger *slog.Logger) ServeOption {
	return func(c *serveConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQueue also consumes invocations for the instance from client.
// Zero fields of opts are resolved as worker.Run does.
func WithQueue(client queue.Client, opts worker.Options) ServeOption {
	return func(c *serveConfig) {
		c.queue = client
		c.worker = opts
	}
}

// WithHealthInterval sets how often plugin health is pushed to the health
// server. Default: 10s
func WithHealthInterval(interval time.Duration) ServeOption {
	return func(c *serveConfig) {
		if interval > 0 {
			c.healthInterval = interval
		}
	}
}

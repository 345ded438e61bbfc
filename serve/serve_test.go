package serve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zero-day-ai/bolt/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startBufconnServer serves srv over an in-memory listener and returns a
// connected health client.
func startBufconnServer(t *testing.T) (*Server, grpc_health_v1.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, err := NewServerWithListener(NewConfig(WithLogger(discardLogger()), WithGracefulShutdown(time.Second)), lis)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return srv, grpc_health_v1.NewHealthClient(conn)
}

// staticSource reports a settable status.
type staticSource struct {
	mu     sync.Mutex
	status types.HealthStatus
}

func (s *staticSource) Health(context.Context) types.HealthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *staticSource) set(status types.HealthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func check(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

// statusOf is check without assertions, for polling.
func statusOf(client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return -1
	}
	return resp.GetStatus()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50051, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.GracefulTimeout)
	assert.Empty(t, cfg.TLSCertFile)
	assert.Nil(t, cfg.Logger)
}

func TestNewConfigOptions(t *testing.T) {
	logger := discardLogger()
	cfg := NewConfig(
		WithPort(9000),
		WithGracefulShutdown(5*time.Second),
		WithTLS("cert.pem", "key.pem"),
		WithLogger(logger),
		WithLogger(nil),
		WithServerOptions(grpc.MaxRecvMsgSize(1<<20)),
		WithServerOptions(grpc.MaxSendMsgSize(1<<20)),
	)
	assert.Len(t, cfg.ServerOptions, 2)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.GracefulTimeout)
	assert.Equal(t, "cert.pem", cfg.TLSCertFile)
	assert.Equal(t, "key.pem", cfg.TLSKeyFile)
	assert.Same(t, logger, cfg.Logger)
}

func TestNewServer(t *testing.T) {
	srv, err := NewServer(NewConfig(WithPort(0), WithLogger(discardLogger())))
	require.NoError(t, err)
	defer srv.Stop()

	assert.NotNil(t, srv.GRPCServer())
	assert.NotNil(t, srv.HealthServer())
	assert.NotNil(t, srv.Reporter())
	assert.Greater(t, srv.Port(), 0)
}

func TestNewServerErrors(t *testing.T) {
	_, err := NewServerWithListener(nil, nil)
	assert.Error(t, err)

	_, err = NewServer(NewConfig(WithPort(0), WithTLS("/nonexistent/cert.pem", "/nonexistent/key.pem")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load TLS credentials")
}

func TestServeStopsOnContextCancel(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv, err := NewServerWithListener(NewConfig(WithLogger(discardLogger())), lis)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServingStatus(t *testing.T) {
	tests := []struct {
		status types.HealthStatus
		want   grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{types.NewHealthyStatus(""), grpc_health_v1.HealthCheckResponse_SERVING},
		{types.NewDegradedStatus("", nil), grpc_health_v1.HealthCheckResponse_SERVING},
		{types.NewUnhealthyStatus("", nil), grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{types.NewUnknownStatus(""), grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN},
		{types.HealthStatus{Status: "weird"}, grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN},
	}
	for _, tt := range tests {
		t.Run(tt.status.Status, func(t *testing.T) {
			assert.Equal(t, tt.want, ServingStatus(tt.status))
		})
	}
}

func TestHealthReporterOverGRPC(t *testing.T) {
	srv, client := startBufconnServer(t)
	reporter := srv.Reporter()

	echo := &staticSource{status: types.NewHealthyStatus("ok")}
	db := &staticSource{status: types.NewDegradedStatus("slow", nil)}
	reporter.Add("echo-1", echo)
	reporter.Add("db-1", db)
	assert.Equal(t, []string{"db-1", "echo-1"}, reporter.Services())

	combined := reporter.Sync(context.Background())
	assert.True(t, combined.IsDegraded())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, "echo-1"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, "db-1"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, ""))

	db.set(types.NewUnhealthyStatus("down", nil))
	combined = reporter.Sync(context.Background())
	assert.True(t, combined.IsUnhealthy())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, "db-1"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, ""))

	last, ok := reporter.Last("db-1")
	require.True(t, ok)
	assert.Equal(t, "down", last.Message)

	reporter.Remove("db-1")
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN, check(t, client, "db-1"))
	_, ok = reporter.Last("db-1")
	assert.False(t, ok)

	reporter.Sync(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, ""))
}

func TestHealthReporterUnregisteredService(t *testing.T) {
	_, client := startBufconnServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "missing"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthReporterNoSources(t *testing.T) {
	srv, client := startBufconnServer(t)

	combined := srv.Reporter().Sync(context.Background())
	assert.True(t, combined.IsUnknown())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN, check(t, client, ""))
}

func TestHealthReporterWatch(t *testing.T) {
	srv, client := startBufconnServer(t)
	reporter := srv.Reporter()

	src := &staticSource{status: types.NewUnknownStatus("starting")}
	reporter.Add("echo-1", src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reporter.Watch(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return statusOf(client, "echo-1") == grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
	}, 2*time.Second, 10*time.Millisecond)

	src.set(types.NewHealthyStatus("ready"))
	assert.Eventually(t, func() bool {
		return statusOf(client, "echo-1") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return")
	}
}

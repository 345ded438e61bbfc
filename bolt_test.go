package bolt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/plugins/echo"
	"github.com/zero-day-ai/bolt/queue"
	"github.com/zero-day-ai/bolt/types"
	"github.com/zero-day-ai/bolt/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialBufconn(t *testing.T, lis *bufconn.Listener) grpc_health_v1.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func servingStatus(client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestServePlugin_HealthAndQueue(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := queue.NewRedisClient(queue.RedisOptions{URL: fmt.Sprintf("redis://%s", s.Addr())})
	require.NoError(t, err)
	defer CloseWithLog(client, discardLogger(), "queue client")

	p, err := echo.New(plugin.WithLogger(discardLogger()))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServePlugin(ctx, p,
			&types.Config{InstanceID: "echo-1", Properties: map[string]any{"greetingPrefix": "Hi"}},
			WithListener(lis),
			WithLogger(discardLogger()),
			WithGracefulShutdown(time.Second),
			WithHealthInterval(20*time.Millisecond),
			WithQueue(client, worker.Options{Concurrency: 1}),
		)
	}()

	health := dialBufconn(t, lis)
	assert.Eventually(t, func() bool {
		return servingStatus(health, "echo-1") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(health, ""))

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	result, err := worker.Call(callCtx, client, "echo-1", "echo", types.Params{"message": "Hello World", "name": "Bolt"}, nil)
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	data, _ := result.DataAsMap()
	assert.Equal(t, "Hi, Bolt!", data["greeting"])
	assert.Equal(t, "Hello World", data["echo"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ServePlugin did not return")
	}
	assert.Equal(t, plugin.StateDestroyed, p.State())
}

func TestServePlugin_InitializationFailure(t *testing.T) {
	p, err := echo.New(plugin.WithLogger(discardLogger()))
	require.NoError(t, err)

	err = ServePlugin(context.Background(), p,
		&types.Config{Properties: map[string]any{"greetingPrefix": map[string]any{"nested": true}}},
		WithListener(bufconn.Listen(1024)),
		WithLogger(discardLogger()),
	)
	require.Error(t, err)
	assert.True(t, pluginerr.HasCode(err, pluginerr.CodeInitFailed))
	assert.Equal(t, plugin.StateFailed, p.State())
}

func TestServePlugin_RequiresPlugin(t *testing.T) {
	assert.ErrorIs(t, ServePlugin(context.Background(), nil, nil), ErrNoPlugin)
}

package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/bolt/types"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, mr
}

func newTestInvocation(t *testing.T, instanceID, action string, params types.Params) Invocation {
	t.Helper()
	inv, err := NewInvocation(instanceID, action, params, nil)
	require.NoError(t, err)
	return *inv
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
		require.NoError(t, err)
		defer client.Close()
		assert.Equal(t, DefaultPrefix, client.Prefix())
	})

	t.Run("custom prefix", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr()), Prefix: "bolt"})
		require.NoError(t, err)
		defer client.Close()
		assert.Equal(t, "bolt", client.Prefix())
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{
			URL:            "redis://127.0.0.1:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestPushPop(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		client, mr := setupTestClient(t)
		ctx := context.Background()

		ec := types.ForWorkflowNode("wf-1", "node-7")
		inv, err := NewInvocation("echo-1", "echo", types.Params{"message": "Hello World", "count": 2}, ec)
		require.NoError(t, err)

		require.NoError(t, client.Push(ctx, *inv))
		assert.True(t, mr.Exists("plugin:echo-1:queue"))

		popped, err := client.Pop(ctx, "echo-1")
		require.NoError(t, err)
		require.NotNil(t, popped)

		assert.Equal(t, inv.JobID, popped.JobID)
		assert.Equal(t, "echo", popped.Action)
		assert.Equal(t, inv.SubmittedAt, popped.SubmittedAt)
		require.NotNil(t, popped.Context)
		assert.Equal(t, "node-7", popped.Context.NodeID)

		params, err := popped.DecodeParams()
		require.NoError(t, err)
		assert.Equal(t, "Hello World", params["message"])
		assert.Equal(t, 2.0, params["count"])
	})

	t.Run("FIFO order", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		var ids []string
		for i := 0; i < 5; i++ {
			inv := newTestInvocation(t, "echo-1", "ping", nil)
			ids = append(ids, inv.JobID)
			require.NoError(t, client.Push(ctx, inv))
		}

		for _, want := range ids {
			popped, err := client.Pop(ctx, "echo-1")
			require.NoError(t, err)
			require.NotNil(t, popped)
			assert.Equal(t, want, popped.JobID)
		}
	})

	t.Run("queues are per instance", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Push(ctx, newTestInvocation(t, "a", "ping", nil)))

		popped, err := client.Pop(ctx, "b")
		require.NoError(t, err)
		assert.Nil(t, popped)
	})

	t.Run("push requires instance", func(t *testing.T) {
		client, _ := setupTestClient(t)
		err := client.Push(context.Background(), Invocation{JobID: "j"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instance_id is required")
	})

	t.Run("malformed entry", func(t *testing.T) {
		client, mr := setupTestClient(t)
		_, err := mr.Lpush("plugin:echo-1:queue", "{not json")
		require.NoError(t, err)

		popped, err := client.Pop(context.Background(), "echo-1")
		assert.Nil(t, popped)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "{not json", decodeErr.Payload)
	})

	t.Run("pop returns on cancelled context", func(t *testing.T) {
		client, _ := setupTestClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Pop(ctx, "echo-1")
		require.Error(t, err)
	})
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcomes, err := client.Subscribe(ctx, "job-1")
	require.NoError(t, err)

	now := time.Now().UnixMilli()
	sent := Outcome{
		JobID:       "job-1",
		Result:      types.Success(map[string]any{"status": "pong"}),
		WorkerID:    "worker-1",
		StartedAt:   now,
		CompletedAt: now + 5,
	}
	require.NoError(t, client.Publish(ctx, sent))

	select {
	case got := <-outcomes:
		assert.Equal(t, "job-1", got.JobID)
		assert.Equal(t, "worker-1", got.WorkerID)
		require.NotNil(t, got.Result)
		assert.True(t, got.Result.Success)
		data, ok := got.Result.DataAsMap()
		require.True(t, ok)
		assert.Equal(t, "pong", data["status"])
		assert.Equal(t, 5*time.Millisecond, got.Duration())
	case <-ctx.Done():
		t.Fatal("timed out waiting for outcome")
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())

	outcomes, err := client.Subscribe(ctx, "job-2")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-outcomes:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed")
	}
}

func TestHeartbeat(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	status, err := client.Health(ctx, "echo-1")
	require.NoError(t, err)
	assert.True(t, status.IsUnknown())

	require.NoError(t, client.Heartbeat(ctx, "echo-1", types.NewDegradedStatus("slow", map[string]any{"latency_ms": 900.0})))
	assert.Equal(t, HeartbeatTTL, mr.TTL("plugin:echo-1:health"))

	status, err = client.Health(ctx, "echo-1")
	require.NoError(t, err)
	assert.True(t, status.IsDegraded())
	assert.Equal(t, "slow", status.Message)
	assert.Equal(t, 900.0, status.Details["latency_ms"])

	mr.FastForward(HeartbeatTTL + time.Second)
	status, err = client.Health(ctx, "echo-1")
	require.NoError(t, err)
	assert.True(t, status.IsUnknown())
}

func TestHealthInvalidPayload(t *testing.T) {
	client, mr := setupTestClient(t)
	require.NoError(t, mr.Set("plugin:echo-1:health", "ok"))

	_, err := client.Health(context.Background(), "echo-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid heartbeat")
}

func TestWorkerCount(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	count, err := client.GetWorkerCount(ctx, "echo-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.IncrementWorkerCount(ctx, "echo-1"))
		}()
	}
	wg.Wait()
	require.NoError(t, client.DecrementWorkerCount(ctx, "echo-1"))

	count, err = client.GetWorkerCount(ctx, "echo-1")
	require.NoError(t, err)
	assert.Equal(t, 9, count)

	require.NoError(t, mr.Set("plugin:bad:workers", "many"))
	_, err = client.GetWorkerCount(ctx, "bad")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	client, _ := setupTestClient(t)
	require.NoError(t, client.Close())

	err := client.Push(context.Background(), newTestInvocation(t, "echo-1", "ping", nil))
	require.Error(t, err)
}

package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/bolt/types"
)

// HeartbeatTTL is how long a heartbeat stays visible without renewal.
const HeartbeatTTL = 30 * time.Second

// Client defines the interface for Redis-backed plugin invocation queues.
type Client interface {
	// Push appends an invocation to its instance's queue (LPUSH).
	Push(ctx context.Context, inv Invocation) error

	// Pop removes the oldest invocation for an instance (BRPOP). It returns
	// nil, nil when the poll interval passes with nothing queued.
	Pop(ctx context.Context, instanceID string) (*Invocation, error)

	// Publish sends an outcome to its job's result channel.
	Publish(ctx context.Context, out Outcome) error

	// Subscribe listens on a job's result channel. The returned channel is
	// closed when ctx is done.
	Subscribe(ctx context.Context, jobID string) (<-chan Outcome, error)

	// Heartbeat records the instance's health with HeartbeatTTL.
	Heartbeat(ctx context.Context, instanceID string, status types.HealthStatus) error

	// Health returns the last heartbeat, or UNKNOWN when it has expired.
	Health(ctx context.Context, instanceID string) (types.HealthStatus, error)

	// GetWorkerCount returns the current worker count for an instance.
	GetWorkerCount(ctx context.Context, instanceID string) (int, error)

	// IncrementWorkerCount increments the worker count for an instance.
	IncrementWorkerCount(ctx context.Context, instanceID string) error

	// DecrementWorkerCount decrements the worker count for an instance.
	DecrementWorkerCount(ctx context.Context, instanceID string) error

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Prefix namespaces instance keys. Default: DefaultPrefix
	Prefix string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// PollTimeout bounds each blocking Pop. Redis counts it in whole seconds.
	// Default: 1s
	PollTimeout time.Duration
}

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client      *redis.Client
	prefix      string
	pollTimeout time.Duration
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.PollTimeout < time.Second {
		opts.PollTimeout = time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout
	redisOpts.ContextTimeoutEnabled = true

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, prefix: opts.Prefix, pollTimeout: opts.PollTimeout}, nil
}

// Prefix returns the key prefix in use.
func (c *RedisClient) Prefix() string {
	return c.prefix
}

// Push appends an invocation to its instance's queue.
func (c *RedisClient) Push(ctx context.Context, inv Invocation) error {
	if inv.InstanceID == "" {
		return fmt.Errorf("failed to push invocation %s: instance_id is required", inv.JobID)
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation: %w", err)
	}

	queue := QueueKey(c.prefix, inv.InstanceID)
	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}
	return nil
}

// Pop removes and returns the oldest invocation for an instance.
func (c *RedisClient) Pop(ctx context.Context, instanceID string) (*Invocation, error) {
	queue := QueueKey(c.prefix, instanceID)

	// BRPOP returns [queue_name, value] or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, c.pollTimeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var inv Invocation
	if err := json.Unmarshal([]byte(result[1]), &inv); err != nil {
		return nil, &DecodeError{Payload: result[1], Err: err}
	}
	return &inv, nil
}

// DecodeError reports a queue entry that is not a valid invocation. The
// entry has already been removed from the queue.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to unmarshal invocation: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Publish sends an outcome to its job's result channel.
func (c *RedisClient) Publish(ctx context.Context, out Outcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	channel := ResultChannel(out.JobID)
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a subscription to a job's result channel.
func (c *RedisClient) Subscribe(ctx context.Context, jobID string) (<-chan Outcome, error) {
	channel := ResultChannel(jobID)
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	outcomes := make(chan Outcome)

	go func() {
		defer close(outcomes)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var out Outcome
				if err := json.Unmarshal([]byte(msg.Payload), &out); err != nil {
					continue
				}

				select {
				case outcomes <- out:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outcomes, nil
}

// Heartbeat stores the instance's health status with HeartbeatTTL.
func (c *RedisClient) Heartbeat(ctx context.Context, instanceID string, status types.HealthStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal health status: %w", err)
	}
	healthKey := HealthKey(c.prefix, instanceID)
	if err := c.client.Set(ctx, healthKey, data, HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for instance %s: %w", instanceID, err)
	}
	return nil
}

// Health returns the last recorded heartbeat for an instance.
func (c *RedisClient) Health(ctx context.Context, instanceID string) (types.HealthStatus, error) {
	healthKey := HealthKey(c.prefix, instanceID)
	data, err := c.client.Get(ctx, healthKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.NewUnknownStatus("no heartbeat"), nil
		}
		return types.HealthStatus{}, fmt.Errorf("failed to read heartbeat for instance %s: %w", instanceID, err)
	}

	var status types.HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return types.HealthStatus{}, fmt.Errorf("invalid heartbeat for instance %s: %w", instanceID, err)
	}
	return status, nil
}

// GetWorkerCount returns the current worker count for an instance.
func (c *RedisClient) GetWorkerCount(ctx context.Context, instanceID string) (int, error) {
	workerKey := WorkersKey(c.prefix, instanceID)
	countStr, err := c.client.Get(ctx, workerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count for instance %s: %w", instanceID, err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}
	return count, nil
}

// IncrementWorkerCount increments the worker count for an instance.
func (c *RedisClient) IncrementWorkerCount(ctx context.Context, instanceID string) error {
	workerKey := WorkersKey(c.prefix, instanceID)
	if err := c.client.Incr(ctx, workerKey).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count for instance %s: %w", instanceID, err)
	}
	return nil
}

// DecrementWorkerCount decrements the worker count for an instance.
func (c *RedisClient) DecrementWorkerCount(ctx context.Context, instanceID string) error {
	workerKey := WorkersKey(c.prefix, instanceID)
	if err := c.client.Decr(ctx, workerKey).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count for instance %s: %w", instanceID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}

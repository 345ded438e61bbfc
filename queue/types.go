package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/bolt/types"
	"github.com/zero-day-ai/bolt/value"
)

// DefaultPrefix is the key prefix used when RedisOptions.Prefix is empty.
const DefaultPrefix = "plugin"

// Invocation is one action call submitted to a plugin instance's queue.
type Invocation struct {
	// JobID is a UUID correlating the invocation with its Outcome.
	JobID string `json:"job_id"`

	// InstanceID selects the queue, and so the plugin instance, that runs it.
	InstanceID string `json:"instance_id"`

	// Action is the registered action name to dispatch.
	Action string `json:"action"`

	// Params is the parameter map encoded as a JSON object.
	Params json.RawMessage `json:"params,omitempty"`

	// Context is the caller's execution context, if any.
	Context *types.ExecutionContext `json:"context,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when the call was queued.
	SubmittedAt int64 `json:"submitted_at"`
}

// Outcome carries the Result of an Invocation back to the caller.
type Outcome struct {
	JobID    string        `json:"job_id"`
	Result   *types.Result `json:"result"`
	WorkerID string        `json:"worker_id"`

	// StartedAt and CompletedAt are Unix timestamps in milliseconds.
	StartedAt   int64 `json:"started_at"`
	CompletedAt int64 `json:"completed_at"`
}

// NewInvocation builds an invocation with a fresh job id and encoded params.
func NewInvocation(instanceID, action string, params types.Params, ec *types.ExecutionContext) (*Invocation, error) {
	encoded, err := value.EncodeMap(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return &Invocation{
		JobID:       uuid.NewString(),
		InstanceID:  instanceID,
		Action:      action,
		Params:      encoded,
		Context:     ec,
		SubmittedAt: time.Now().UnixMilli(),
	}, nil
}

// DecodeParams returns the parameter map. Missing params decode as an empty
// map.
func (inv *Invocation) DecodeParams() (types.Params, error) {
	m, err := value.DecodeMap(inv.Params)
	if err != nil {
		return nil, err
	}
	return types.Params(m), nil
}

// IsValid checks the invocation has the fields a worker needs.
func (inv *Invocation) IsValid() error {
	if inv.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if inv.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if inv.Action == "" {
		return fmt.Errorf("action is required")
	}
	if inv.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", inv.SubmittedAt)
	}
	return nil
}

// Age returns the time since the invocation was submitted.
func (inv *Invocation) Age() time.Duration {
	if inv.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-inv.SubmittedAt) * time.Millisecond
}

// Duration returns the wall-clock time the worker spent on the invocation.
func (o *Outcome) Duration() time.Duration {
	if o.StartedAt <= 0 || o.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(o.CompletedAt-o.StartedAt) * time.Millisecond
}

// IsValid checks the outcome is complete.
func (o *Outcome) IsValid() error {
	if o.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if o.Result == nil {
		return fmt.Errorf("result is required")
	}
	if o.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if o.CompletedAt < o.StartedAt {
		return fmt.Errorf("completed_at (%d) cannot be before started_at (%d)", o.CompletedAt, o.StartedAt)
	}
	return nil
}

// QueueKey is the list holding invocations for an instance.
func QueueKey(prefix, instanceID string) string {
	return formatKeyName(prefix, instanceID, "queue")
}

// HealthKey holds the last heartbeat status of an instance.
func HealthKey(prefix, instanceID string) string {
	return formatKeyName(prefix, instanceID, "health")
}

// WorkersKey counts the workers serving an instance.
func WorkersKey(prefix, instanceID string) string {
	return formatKeyName(prefix, instanceID, "workers")
}

// ResultChannel is the pub/sub channel an Outcome is published on.
func ResultChannel(jobID string) string {
	return formatKeyName("results", jobID)
}

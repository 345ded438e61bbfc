package types

import "github.com/google/uuid"

// Params holds action parameters. Values are JSON-compatible: nil, bool,
// numbers, string, []any and map[string]any.
type Params = map[string]any

// ExecutionContext describes the environment of a call: which workflow node
// triggered it, on behalf of whom, and for which request.
//
// Attributes is a free-form bag owned by the caller. It is not synchronized;
// a single goroutine may write it, and it must not be written while the
// context is shared with a running action.
type ExecutionContext struct {
	ExecutionID        string         `json:"executionId,omitempty"`
	WorkflowInstanceID string         `json:"workflowInstanceId,omitempty"`
	NodeID             string         `json:"nodeId,omitempty"`
	TenantID           string         `json:"tenantId,omitempty"`
	UserID             string         `json:"userId,omitempty"`
	RequestID          string         `json:"requestId,omitempty"`
	TraceID            string         `json:"traceId,omitempty"`
	ClientIP           string         `json:"clientIp,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}

// NewExecutionContext returns a context with a freshly generated ExecutionID.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: uuid.NewString(),
	}
}

// ForWorkflowNode returns a context for a single workflow node execution.
func ForWorkflowNode(workflowInstanceID, nodeID string) *ExecutionContext {
	ec := NewExecutionContext()
	ec.WorkflowInstanceID = workflowInstanceID
	ec.NodeID = nodeID
	return ec
}

// Attribute returns the attribute stored under key. It is safe on a nil
// context.
func (ec *ExecutionContext) Attribute(key string) (any, bool) {
	if ec == nil || ec.Attributes == nil {
		return nil, false
	}
	v, ok := ec.Attributes[key]
	return v, ok
}

// SetAttribute stores an attribute, allocating the map on first use.
func (ec *ExecutionContext) SetAttribute(key string, v any) {
	if ec.Attributes == nil {
		ec.Attributes = make(map[string]any)
	}
	ec.Attributes[key] = v
}

// Copy returns a shallow copy of ec with its own Attributes map. A nil
// receiver yields an empty context.
func (ec *ExecutionContext) Copy() *ExecutionContext {
	if ec == nil {
		return &ExecutionContext{}
	}
	cp := *ec
	if ec.Attributes != nil {
		cp.Attributes = make(map[string]any, len(ec.Attributes))
		for k, v := range ec.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}
